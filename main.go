package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/timothe-chaumont/automatic-receipts/cmd"
	"github.com/timothe-chaumont/automatic-receipts/internal/config"
	"github.com/timothe-chaumont/automatic-receipts/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// The commands validate the full configuration themselves; here it is
	// only needed for the logger.
	cfg, err := config.Load()
	if err != nil {
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	cmd.Execute()
}
