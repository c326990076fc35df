package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/recallion/recallion/pkg/log"
)

type GatewayConfig struct {
	BaseURL        string        `env:"GATEWAY_BASE_URL" envDefault:"https://ai.gateway.lovable.dev/v1"`
	APIKey         string        `env:"GATEWAY_API_KEY,required,notEmpty"`
	ChatModel      string        `env:"GATEWAY_CHAT_MODEL" envDefault:"google/gemini-3-flash-preview"`
	EmbeddingModel string        `env:"GATEWAY_EMBEDDING_MODEL" envDefault:"text-embedding-004"`
	Timeout        time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"120s"`
}

func NewGatewayConfig(ctx context.Context) *GatewayConfig {
	c := &GatewayConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse gateway config")
	}
	return c
}
