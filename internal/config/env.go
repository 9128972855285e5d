package config

import (
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// EnvEditor overrides editor.command from the configuration file.
const EnvEditor = "MANYVIS_EDITOR"

var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads environment variables from the first .env/.env.local file present.
// godotenv.Load never overrides variables already set in the process environment.
func loadEnvFile() error {
	for _, envPath := range envFiles {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			return err
		}
		slog.Debug("Loaded environment variables", "path", envPath)
		return nil
	}
	return errors.New("no .env file found")
}
