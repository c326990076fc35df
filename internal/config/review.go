package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/recallion/recallion/pkg/log"
)

type ReviewConfig struct {
	BatchSize     int `env:"REVIEW_BATCH_SIZE" envDefault:"20"`
	ExcerptLength int `env:"REVIEW_EXCERPT_LENGTH" envDefault:"200"`
}

func NewReviewConfig(ctx context.Context) *ReviewConfig {
	c := &ReviewConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse review config")
	}
	return c
}
