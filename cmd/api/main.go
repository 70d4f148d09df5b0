package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"stella/internal/http/handlers"
	"stella/internal/http/httpapi"
	"stella/internal/infra"
	"stella/internal/infra/geoip"
	"stella/internal/jobs"
	"stella/internal/jobs/extract"
	"stella/internal/jobs/webhook"
	"stella/internal/providers/comfydeploy"
	"stella/internal/providers/elevenlabs"
	"stella/internal/providers/runpod"
	"stella/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	geo, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}

	// Webhook records go to redis when configured so restarts and multiple
	// replicas see the same push state; otherwise an in-process store.
	var store webhook.RecordStore
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		store = webhook.NewRedisStore(redis.NewClient(redisOpts))
		logger.Info().Msg("webhook store: redis")
	} else {
		mem := webhook.NewMemoryStore()
		defer mem.Close()
		store = mem
	}

	comfy := comfydeploy.NewClient(comfydeploy.Options{
		APIKey:       cfg.ComfyDeployAPIKey,
		DeploymentID: cfg.ComfyDeployDeploymentID,
		BaseURL:      cfg.ComfyDeployBaseURL,
		Logger:       logger,
	})
	vellum := runpod.NewClient(runpod.Options{
		APIKey:      cfg.RunPodAPIKey,
		EndpointID:  cfg.RunPodEndpointID,
		BaseURL:     cfg.RunPodBaseURL,
		SyncTimeout: cfg.RunPodSyncTimeout,
		Logger:      logger,
	})
	talk := runpod.NewClient(runpod.Options{
		APIKey:      cfg.RunPodAPIKey,
		EndpointID:  cfg.RunPodTalkEndpointID,
		EndpointVar: "RUNPOD_AITALK_ENDPOINT_ID",
		BaseURL:     cfg.RunPodBaseURL,
		AssetKind:   extract.KindVideo,
		Logger:      logger,
	})
	voices := elevenlabs.NewClient(elevenlabs.Options{APIKey: cfg.ElevenLabsAPIKey})

	receiver := webhook.NewReceiver(store, comfydeploy.MapStatus, logger)
	controller := jobs.NewController(receiver, jobs.ControllerOptions{
		PollInterval: cfg.JobPollInterval,
		MaxWait:      cfg.JobMaxWait,
		Logger:       logger,
	})

	app := &handlers.App{
		Config:      cfg,
		Logger:      logger,
		Users:       users.NewStore(dbpool),
		Geo:         geo,
		ComfyDeploy: comfy,
		RunPod:      vellum,
		RunPodTalk:  talk,
		Voices:      voices,
		Jobs:        controller,
		Receiver:    receiver,
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
