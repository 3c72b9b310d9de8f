// Package config exposes process configuration for the gradebook panel.
// Values come from environment variables (optionally loaded from a .env
// file by main) and may be overridden by an optional gradebook.toml file.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("GRADEBOOK_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("GRADEBOOK_DEBUG") == "true"
}

func GetListen() string {
	if fileConfig.Listen != "" {
		return fileConfig.Listen
	}
	return os.Getenv("GRADEBOOK_LISTEN")
}

func GetPort() int {
	if fileConfig.Port > 0 {
		return fileConfig.Port
	}
	if v := os.Getenv("GRADEBOOK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			return port
		}
	}
	return 8080
}

// GetSessionSecret returns the cookie-store signing secret. Empty means the
// caller should generate an ephemeral one (sessions then reset on restart).
func GetSessionSecret() string {
	if fileConfig.SessionSecret != "" {
		return fileConfig.SessionSecret
	}
	return os.Getenv("GRADEBOOK_SESSION_SECRET")
}

// GetSessionMaxAge returns the session lifetime in minutes.
func GetSessionMaxAge() int {
	if fileConfig.SessionMaxAge > 0 {
		return fileConfig.SessionMaxAge
	}
	if v := os.Getenv("GRADEBOOK_SESSION_MAX_AGE"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			return m
		}
	}
	return 60
}

func GetDBFolderPath() string {
	if fileConfig.DBFolder != "" {
		return fileConfig.DBFolder
	}
	dbFolderPath := os.Getenv("GRADEBOOK_DB_FOLDER")
	if dbFolderPath == "" {
		dbFolderPath = "data"
	}
	return dbFolderPath
}

func GetDBPath() string {
	return fmt.Sprintf("%s/%s.db", GetDBFolderPath(), GetName())
}

func GetLogFolder() string {
	if fileConfig.LogFolder != "" {
		return fileConfig.LogFolder
	}
	logFolderPath := os.Getenv("GRADEBOOK_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "log"
	}
	return logFolderPath
}
