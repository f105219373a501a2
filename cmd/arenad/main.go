// Command arenad runs the XRP/EUR paper-trading arena as a standalone
// HTTP service: market cache, sqlite persistence, and the gin-based
// API host wired together the way a deployed SynapseStrike-lineage
// service starts up.
package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"xrparena/api"
	"xrparena/logging"
	"xrparena/market"
	"xrparena/mcp"
	"xrparena/metrics"
	"xrparena/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, continuing with process environment")
	}

	logging.Init(getenv("LOG_LEVEL", "info"), getenv("LOG_PRETTY", "") != "")

	dbPath := getenv("ARENA_DB_PATH", "arena.db")
	db, err := store.New(dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("failed to open arena store")
	}
	defer db.Close()

	startPrice := getenvFloat("ARENA_START_PRICE", 0.60)
	volatility := getenvFloat("ARENA_VOLATILITY", 0.002)
	seed := getenvInt64("ARENA_SEED", 1)
	source := market.NewSyntheticSource(seed, startPrice, volatility, 0)
	cache := market.New("XRP/EUR", "BTC/EUR", source)
	market.Register(cache)

	metrics.Init()

	server := api.NewServer(api.Config{
		Cache:        cache,
		Store:        db,
		ModelClient:  buildModelClient(),
		JWTSecret:    getenv("ARENA_JWT_SECRET", "dev-secret-change-me"),
		OperatorHash: os.Getenv("ARENA_OPERATOR_TOKEN_HASH"),
		Logger:       log.With().Str("component", "api").Logger(),
	})

	addr := getenv("ARENA_LISTEN_ADDR", ":8080")
	log.Info().Str("addr", addr).Msg("xrparena listening")
	if err := server.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// buildModelClient wires tier 2 of the decision engine to a real model
// endpoint when ARENA_MODEL_ENDPOINT is configured, so the three-tier
// pipeline can actually reach tier 2 instead of always short-circuiting
// to tier 1. With no endpoint configured, api.NewServer falls back to
// mcp.NewLocalFuncClient() itself and tier 2 never fires.
func buildModelClient() mcp.AIClient {
	endpoint := os.Getenv("ARENA_MODEL_ENDPOINT")
	if endpoint == "" {
		return nil
	}
	return mcp.NewRemoteClient(
		mcp.WithBaseURL(endpoint),
		mcp.WithModel(getenv("ARENA_MODEL_ID", "")),
		mcp.WithAPIKey(os.Getenv("ARENA_MODEL_API_KEY")),
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
