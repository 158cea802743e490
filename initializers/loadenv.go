package initializers

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env when present. A missing file is not an error since
// deployments usually set the variables directly.
func LoadEnv() error {
	log.Println("Loading env file")
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("No .env file found, using process environment")
		return nil
	}
	if err != nil {
		return fmt.Errorf("env not loading: %w", err)
	}
	log.Println("Env loaded successfully")
	return nil
}
