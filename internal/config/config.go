package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DataDir    string `env:"YONCA_DATA_DIR"`
	SocketPath string `env:"YONCA_SOCKET"`
	LogLevel   string `env:"YONCA_LOG_LEVEL"`
	LogFormat  string `env:"YONCA_LOG_FORMAT"`

	SessionDBPath string `env:"YONCA_SESSION_DB"`

	OpenAIKey   string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"OPENAI_MODEL"`

	// Gmail OAuth collaborator files. ClientSecretPath points at the
	// downloaded client_secret.json; tokens are stored per account under
	// TokenDir, encrypted with TokenPassphrase.
	ClientSecretPath string `env:"YONCA_CLIENT_SECRET"`
	TokenDir         string `env:"YONCA_TOKEN_DIR"`
	TokenPassphrase  string `env:"YONCA_TOKEN_PASSPHRASE"`
}

func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}
	baseDir := filepath.Join(homeDir, ".yonca")

	cfg := &Config{
		DataDir:          filepath.Join(baseDir, "data"),
		SocketPath:       filepath.Join(baseDir, "daemon.sock"),
		LogLevel:         "info",
		LogFormat:        "text",
		SessionDBPath:    filepath.Join(baseDir, "sessions.db"),
		OpenAIModel:      "gpt-4.1-mini",
		ClientSecretPath: filepath.Join(baseDir, "credentials", "client_secret.json"),
		TokenDir:         filepath.Join(baseDir, "credentials"),
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.DataDir,
		filepath.Dir(c.SocketPath),
		filepath.Dir(c.SessionDBPath),
		c.TokenDir,
	} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}
