/*
Package configs is responsible for loading and parsing the application's configuration settings.

Server parameters (environment, port, allowed origins, log level, settings file location) are read
from environment variables and may be overridden by command-line flags. Game settings live in a
separate settings file, see settings.go.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// AppConfig contains the server-level configuration parameters.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int
	LogLevel    string

	// Security Settings
	AllowedOrigins []string

	// Game Settings
	SettingsFile string
	Settings     Settings
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads the configuration from environment variables, applies command-line overrides
// from args (typically os.Args[1:]) and finally loads the game settings file.
// It returns any parse or validation error encountered.
func LoadConfig(args []string) (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Port
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	// LogLevel, empty means "pick by environment"
	cfg.LogLevel = os.Getenv("LOG_LEVEL")

	// --- Security Settings ---
	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))

	// --- Game Settings ---
	cfg.SettingsFile = os.Getenv("SETTINGS_FILE")

	// --- Command-line overrides ---
	fs := pflag.NewFlagSet("lobby", pflag.ContinueOnError)
	fs.StringVarP(&cfg.Environment, "env", "e", cfg.Environment, "running environment (development, production)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	fs.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "log level (trace, debug, info, warn, error)")
	fs.StringVarP(&cfg.SettingsFile, "settings", "s", cfg.SettingsFile, "path to the game settings file (YAML or JSON)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", cfg.AllowedOrigins, "comma-separated WebSocket/CORS origins")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse command line arguments: %w", err)
	}

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	settings, err := LoadSettings(cfg.SettingsFile)
	if err != nil {
		return nil, err
	}
	cfg.Settings = settings

	return cfg, nil
}

// splitList splits a comma-separated value, trimming spaces and dropping empty entries.
func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
