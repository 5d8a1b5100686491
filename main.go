// File: /main.go
package main

import (
	"github.com/rs/zerolog"
	"reliefhub-api/cmd"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cmd.Execute()
}
