package main

import (
	"os"

	"clip-trivia-service/internal/cli"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("trivia-service exited")
		os.Exit(1)
	}
}
