package main

import (
	"os"

	"ansible-webui/internal/server"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	server.SetupLogging(os.Getenv("LOG_LEVEL"))
	if envErr != nil {
		log.Debug().Err(envErr).Msg("No .env file loaded")
	}

	Execute()
}
