package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	echoapi "go.pilab.hu/gatekeeper/api/echo"
	"go.pilab.hu/gatekeeper/cache"
	rediscache "go.pilab.hu/gatekeeper/cache/redis"
	"go.pilab.hu/gatekeeper/codec"
	"go.pilab.hu/gatekeeper/config"
	"go.pilab.hu/gatekeeper/domain"
	"go.pilab.hu/gatekeeper/grant"
	"go.pilab.hu/gatekeeper/internal/auth"
	"go.pilab.hu/gatekeeper/internal/expiration"
	"go.pilab.hu/gatekeeper/internal/metrics"
	"go.pilab.hu/gatekeeper/middleware"
	"go.pilab.hu/gatekeeper/mongodb"
	"go.pilab.hu/gatekeeper/policy"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogger(cfg)

	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db", cfg.MongoDBName).
		Str("algorithm", cfg.SigningAlgorithm).
		Msg("Starting gatekeeper server")

	ctx := context.Background()

	mongoClient, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}()

	tokens := mongodb.NewTokenRepository(db)
	clients := mongodb.NewClientRepository(db)
	accounts := mongodb.NewAccountRepository(db)

	signer, err := buildCodec(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token codec")
	}

	defaultTTL, err := expiration.ParsePhrase(cfg.DefaultExpiration)
	if err != nil {
		log.Fatal().Err(err).Str("phrase", cfg.DefaultExpiration).Msg("Invalid DEFAULT_EXPIRATION")
	}
	cacheTTL, err := expiration.ParsePhrase(cfg.CacheTTL)
	if err != nil {
		log.Fatal().Err(err).Str("phrase", cfg.CacheTTL).Msg("Invalid CACHE_TTL")
	}

	tokenCache := buildTokenCache(cfg, cacheTTL)

	issuer := grant.NewTokenIssuer(tokens, tokenCache, signer)
	hasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)

	dispatcher := grant.NewDispatcher(
		grant.NewPasswordGranter(accounts, issuer, hasher, defaultTTL),
		grant.NewClientCredentialsGranter(issuer, defaultTTL),
		grant.NewRefreshGranter(tokens, accounts, signer, issuer, defaultTTL),
	)
	dispatcher.RegisterAlias(grant.TypeTemp, grant.TypeRefresh)

	registry := policy.NewRegistry()
	policy.RegisterBuiltins(registry)
	authenticated, err := registry.Check(policy.CheckAuthenticated)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build authentication policy")
	}

	metrics.InitCustomMetrics(prometheus.DefaultRegisterer)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	gatekeeperAPI := echoapi.NewGatekeeperAPI(dispatcher, issuer, tokens, clients)
	gatekeeperAPI.SetOriginBinding(cfg.OriginBinding)
	gatekeeperAPI.RegisterRoutes(e)

	bearer := middleware.NewBearer(signer, tokens, clients, accounts, tokenCache)
	bearer.SetOriginBinding(cfg.OriginBinding)
	e.GET("/gatekeeper/whoami", whoamiHandler,
		bearer.Middleware(),
		middleware.RequirePolicy(authenticated, "", ""))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

// whoamiHandler echoes back the resolved auth context of the caller.
func whoamiHandler(c echo.Context) error {
	ac, ok := domain.AuthContextFrom(c.Request().Context())
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}
	resp := echo.Map{
		"token_id":  ac.Token.ID,
		"client_id": ac.Token.ClientID,
		"scope":     ac.Scope,
	}
	if ac.Account != nil {
		resp["account_id"] = ac.Account.ID
		resp["username"] = ac.Account.Username
	}
	return c.JSON(http.StatusOK, resp)
}

func initLogger(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func buildCodec(cfg *config.ServerConfig) (*codec.Codec, error) {
	codecCfg := codec.Config{
		Algorithm: codec.Algorithm(cfg.SigningAlgorithm),
		Issuer:    cfg.Issuer,
	}

	switch codecCfg.Algorithm {
	case codec.RS256:
		priv, err := codec.LoadRSAPrivateKey(cfg.RSAPrivateKeyPath)
		if err != nil {
			return nil, err
		}
		pub, err := codec.LoadRSAPublicKey(cfg.RSAPublicKeyPath)
		if err != nil {
			return nil, err
		}
		codecCfg.PrivateKey = priv
		codecCfg.PublicKey = pub
	default:
		codecCfg.Secret = []byte(cfg.SigningSecret)
	}

	return codec.New(codecCfg)
}

func buildTokenCache(cfg *config.ServerConfig, ttl time.Duration) cache.TokenCache {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryTokenCache(ttl)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis token cache")
	return rediscache.NewTokenCache(client, "gatekeeper", ttl)
}
