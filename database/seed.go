package database

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"reliefhub-api/models"
)

// SeedPIN is the edit PIN of every seeded post.
const SeedPIN = "1234"

// SeedData populates an empty database with sample need posts for development.
func SeedData(db *gorm.DB) error {
	var postCount int64
	if err := db.Model(&models.NeedPost{}).Count(&postCount).Error; err != nil {
		return errors.Wrap(err, "count posts")
	}
	if postCount > 0 {
		log.Info().Msg("database already has data, skipping seed")
		return nil
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte(SeedPIN), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash seed pin")
	}

	samplePosts := []models.NeedPost{
		{
			RequesterName:  "Flood relief camp, Ward 4",
			Category:       models.CategoryDryRations,
			Title:          "Rice and lentils for 40 families",
			Description:    "Camp hosting families displaced by the river flood. Dry rations for one week.",
			Unit:           "kg",
			QuantityNeeded: 200,
			District:       "Colombo",
			Area:           "Kolonnawa",
		},
		{
			RequesterName:  "Community kitchen",
			Category:       models.CategoryBabyItems,
			Title:          "Infant formula and diapers",
			Description:    "Twelve infants under one year at the shelter.",
			Unit:           "packs",
			QuantityNeeded: 60,
			District:       "Gampaha",
			Area:           "Ja-Ela",
		},
		{
			RequesterName:  "Village health volunteer",
			Category:       models.CategoryMedical,
			Title:          "First aid kits",
			Description:    "Basic kits for households cut off by landslides.",
			Unit:           "kits",
			QuantityNeeded: 25,
			District:       "Kegalle",
		},
	}

	for i := range samplePosts {
		post := &samplePosts[i]
		post.ID = uuid.New().String()
		post.Status = models.PostStatusActive
		post.EditPinHash = string(pinHash)
		if err := db.Create(post).Error; err != nil {
			log.Warn().Err(err).Str("title", post.Title).Msg("could not create sample post")
		}
	}

	log.Info().Int("posts", len(samplePosts)).Msg("database seeded with sample need posts")
	return nil
}
