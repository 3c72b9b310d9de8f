package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

const fileName = "gradebook.toml"

// FileConfig holds the optional on-disk overrides. Any zero value falls
// back to the corresponding environment variable or default.
type FileConfig struct {
	Listen        string `toml:"listen"`
	Port          int    `toml:"port"`
	DBFolder      string `toml:"db_folder"`
	LogFolder     string `toml:"log_folder"`
	SessionSecret string `toml:"session_secret"`
	SessionMaxAge int    `toml:"session_max_age"`
}

var fileConfig FileConfig

// LoadFile reads gradebook.toml from the working directory if present.
// A missing file is not an error; a malformed one is.
func LoadFile() error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return toml.Unmarshal(data, &fileConfig)
}
