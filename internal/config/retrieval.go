package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/recallion/recallion/pkg/log"
)

type RetrievalConfig struct {
	TopK      int     `env:"RETRIEVAL_TOP_K" envDefault:"5"`
	Threshold float32 `env:"RETRIEVAL_THRESHOLD" envDefault:"0.3"`

	// Upper bound on the rendered memory context, in tokens.
	ContextTokenBudget int `env:"RETRIEVAL_CONTEXT_TOKEN_BUDGET" envDefault:"2000"`
}

func NewRetrievalConfig(ctx context.Context) *RetrievalConfig {
	c := &RetrievalConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse retrieval config")
	}
	return c
}
