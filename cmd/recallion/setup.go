package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/recallion/recallion/internal/config"
	"github.com/recallion/recallion/internal/gateway"
	"github.com/recallion/recallion/internal/service/chat"
	"github.com/recallion/recallion/internal/service/enrich"
	"github.com/recallion/recallion/internal/service/review"
	"github.com/recallion/recallion/internal/storage/blob"
	"github.com/recallion/recallion/internal/storage/sqlite"
	"github.com/recallion/recallion/internal/transport/httpapi"
	"github.com/recallion/recallion/pkg/log"
	"github.com/recallion/recallion/pkg/srv"
)

// components holds the wired application graph. Subcommands pick the parts
// they need; serve runs all of it behind the HTTP API.
type components struct {
	appCfg   *config.AppConfig
	db       *sql.DB
	store    *sqlite.MemoryRepo
	blobs    *blob.Store
	ai       *gateway.Client
	queue    *enrich.Queue
	chatSvc  *chat.Service
	reviewer *review.Reviewer
}

func newComponents(ctx context.Context) *components {
	logger := log.FromCtx(ctx)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// Configuration
	appCfg := config.NewAppConfig(ctx)
	gatewayCfg := config.NewGatewayConfig(ctx)
	retrievalCfg := config.NewRetrievalConfig(ctx)
	reviewCfg := config.NewReviewConfig(ctx)

	// Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	store := sqlite.NewMemoryRepo(db)

	blobs, err := blob.NewStore(appCfg.GetBlobPath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize blob store")
	}

	// AI gateway
	ai := gateway.NewClient(gatewayCfg)

	// Services
	queue := enrich.NewQueue(enrich.NewEnricher(store, ai))
	chatSvc := chat.NewService(
		chat.NewRetriever(retrievalCfg, store, ai),
		chat.NewAssembler(retrievalCfg.ContextTokenBudget),
		ai,
	)
	reviewer := review.NewReviewer(reviewCfg, store, ai)

	return &components{
		appCfg:   appCfg,
		db:       db,
		store:    store,
		blobs:    blobs,
		ai:       ai,
		queue:    queue,
		chatSvc:  chatSvc,
		reviewer: reviewer,
	}
}

func (c *components) services(ctx context.Context) []srv.Service {
	handler := httpapi.NewHandler(c.store, c.blobs, c.queue, c.chatSvc, c.reviewer)
	return []srv.Service{
		httpapi.NewServer(ctx, c.appCfg, handler),
		c.queue,
		srv.NewCleanup(c.db.Close),
	}
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
