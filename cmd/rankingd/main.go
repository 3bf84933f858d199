package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rbxgroups/ranking-system/internal/api"
	"github.com/rbxgroups/ranking-system/internal/core/service"
	"github.com/rbxgroups/ranking-system/internal/core/store"
	mongodb "github.com/rbxgroups/ranking-system/internal/infrastructure/db/mongo"
	redisdb "github.com/rbxgroups/ranking-system/internal/infrastructure/db/redis"
	"github.com/rbxgroups/ranking-system/internal/infrastructure/roblox"
	"github.com/rbxgroups/ranking-system/internal/pkg/config"
	"github.com/rbxgroups/ranking-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title        Group Ranking System API
// @version      1.0
// @description  Time-bounded rank moderation for a Roblox group.
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fallback := logger.Init(logger.Options{Service: "rankingd"})
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "rankingd",
	})

	// --- Durable stores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}()

	if err := mongodb.NewOperatorRepository(db).EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("operator index creation failed")
	}

	// --- Upstream session ---
	client := roblox.New(roblox.Config{
		Cookie:  cfg.Roblox.Cookie,
		GroupID: cfg.Roblox.GroupID,
		Timeout: cfg.Roblox.Timeout,
	}, log)

	identity, err := client.Initialize(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("roblox authentication failed")
	}
	log.Info().
		Int64("bot_user_id", identity.UserID).
		Str("bot_username", identity.Username).
		Int64("group_id", cfg.Roblox.GroupID).
		Msg("authenticated")

	// --- Membership state ---
	st := store.New(cfg.Roblox.GroupID, mongodb.NewStateRepository(db), log)
	if err := st.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("membership state load failed")
	}

	ranking := service.NewRankingService(client, st, redisdb.NewNameCache(rdb), cfg.Roblox.SuspensionRank, log)

	reconciler := service.NewReconciler(st, client, cfg.Reconcile.Interval, log)
	reconciler.Start(ctx)

	// --- HTTP server ---
	e := api.NewRouter(api.Deps{
		Mongo:     db,
		Redis:     rdb,
		Client:    client,
		Ranking:   ranking,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("listening")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}
