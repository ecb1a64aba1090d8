package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"FleetStock/internal/auth"
	"FleetStock/internal/cache"
	"FleetStock/internal/catalog"
	"FleetStock/internal/config"
	"FleetStock/internal/handlers"
	"FleetStock/internal/middleware"
	"FleetStock/internal/mirror"
	"FleetStock/internal/sheets"
	"FleetStock/internal/store"
	"FleetStock/internal/syncer"
	"FleetStock/internal/transfer"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, dbPath, err := store.Open(cfg.DataDir)
	if err != nil {
		sugar.Fatalw("failed to open local store", "error", err)
	}
	defer kv.Close()
	if err := kv.Migrate(); err != nil {
		sugar.Fatalw("failed to migrate local store", "error", err)
	}

	client := sheets.NewClient(cfg.ScriptURL, cfg.RemoteRPS, sugar)
	m := mirror.New()
	tiered := cache.New(kv, cfg.CacheTTL)

	sync := syncer.New(client, m, tiered, cfg.PollInterval, sugar)
	if err := sync.Bootstrap(ctx); err != nil {
		// без первого снимка работать не с чем
		sugar.Fatalw("initial load failed", "error", err)
	}
	go sync.Run(ctx)

	// геолокация опциональна: без провайдера записи журнала идут без адреса
	engine := transfer.NewEngine(client, m, nil, sugar)
	authService := auth.NewService(client, m, kv, sugar)
	catalogService := catalog.NewService(client, m, tiered, sugar)

	h := handlers.NewHandler(authService, catalogService, engine, sync, m, sugar, cfg)

	sugar.Infow("Starting server",
		"addr", cfg.ListenAddr,
		"https", cfg.EnableHTTPS,
		"script_url", cfg.ScriptURL,
		"poll_interval", cfg.PollInterval,
		"cache_ttl", cfg.CacheTTL,
		"db_path", dbPath,
	)

	if cfg.EnableHTTPS {
		if cfg.TLSCertFile == "" || cfg.TLSKeyFile == "" {
			sugar.Fatalw("HTTPS enabled but tls-cert/tls-key are not set")
		}
		err = http.ListenAndServeTLS(cfg.ListenAddr, cfg.TLSCertFile, cfg.TLSKeyFile, h.Router)
	} else {
		err = http.ListenAndServe(cfg.ListenAddr, h.Router)
	}
	if err != nil {
		sugar.Fatalw("Server failed", "error", err)
	}
}
