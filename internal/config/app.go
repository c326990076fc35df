package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/recallion/recallion/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"RECALLION_RUNTIME_PATH" envDefault:".recallion"`

	// HTTP API listen address.
	ListenAddr string `env:"RECALLION_LISTEN_ADDR" envDefault:":8787"`

	// Static bearer-token auth: "token1=owner1,token2=owner2". A real identity
	// provider sits in front of this in production.
	AuthTokens map[string]string `env:"RECALLION_AUTH_TOKENS" envSeparator:","`
}

// GetRuntimePath reads the runtime directory without parsing the full config,
// so the .env file inside it can be loaded first.
func GetRuntimePath() string {
	if p := os.Getenv("RECALLION_RUNTIME_PATH"); p != "" {
		return p
	}
	return ".recallion"
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse app config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "recallion.db")
}

func (c AppConfig) GetBlobPath() string {
	return filepath.Join(c.RuntimePath, "blobs")
}
