package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"reliefhub-api/database"
)

var seed bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		log.Info().Str("driver", cfg.Database.Driver).Msg("database migrated")

		if seed {
			if err := database.SeedData(db); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&seed, "seed", false, "insert sample need posts into an empty database")
	rootCmd.AddCommand(migrateCmd)
}
