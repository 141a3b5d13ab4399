package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/blockverse/internal/api"
	"github.com/annel0/blockverse/internal/auth"
	"github.com/annel0/blockverse/internal/cache"
	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/network"
	"github.com/annel0/blockverse/internal/observability"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или BLOCKVERSE_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации: %v", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	logging.SetDefaultLevel(level)

	logging.GetLoggerManager().SetAllLevels(level)
	defer logging.GetLoggerManager().CloseAll()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error("❌ Сервер остановлен с ошибкой: %v", err)
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.GetServerLogger()
	logger.Info("🎮 Запуск blockverse %s (seed=%d, transport=%s)", version, cfg.World.Seed, cfg.Server.Transport)

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry, version)
	if err != nil {
		logger.Warn("Телеметрия недоступна: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("Ошибка остановки телеметрии: %v", err)
		}
	}()

	if cfg.Blocks.TagOverrides != "" {
		if err := block.LoadTagOverrides(cfg.Blocks.TagOverrides); err != nil {
			return fmt.Errorf("переопределения тегов блоков: %w", err)
		}
		logger.Info("Загружены переопределения тегов блоков из %s", cfg.Blocks.TagOverrides)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, err := storage.Open(cfg.World.DataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	chunkCache, err := openCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer chunkCache.Close()
	cacheBackend := "memory"
	if cfg.Cache.RedisURL != "" {
		cacheBackend = "redis"
	}
	reg.MustRegister(cache.NewCollector(chunkCache, cacheBackend))

	positions, closePositions, err := openPositions(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer closePositions()

	bus, err := openBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()
	eventbus.Init(bus)
	busMetrics := eventbus.NewMetricsExporter(bus, reg)
	busMetrics.Start()
	defer busMetrics.Stop()
	if sub, err := eventbus.StartLoggingListener(ctx, bus, logging.GetComponentLogger("events")); err == nil {
		defer sub.Unsubscribe()
	}

	wm := world.NewWorldManager(world.Options{
		Seed:     cfg.World.Seed,
		SeaLevel: cfg.World.SeaLevel,
		Bus:      bus,
		Cache:    chunkCache,
		Metrics:  world.NewMetrics(reg),
	})

	users, err := auth.NewRepository(ctx, cfg.Auth)
	if err != nil {
		return err
	}
	defer users.Close()
	if _, err := auth.EnsureAdmin(ctx, users, cfg.Auth.AdminUser, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("создание администратора: %w", err)
	}
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT секрет не задан: токены недействительны после перезапуска")
	}

	ops := storage.NewOperatorStore(store)
	game := network.NewServer(network.Options{
		Config:    cfg.Server,
		World:     wm,
		Operators: ops,
		Positions: positions,
		Cache:     chunkCache,
		Bus:       bus,
		Metrics:   network.NewMetrics(reg),
	})

	start := time.Now()
	spawn := game.Spawn()
	if err := wm.Preload(ctx, spawn.ChunkCoords(), cfg.World.PreloadRadius); err != nil {
		return fmt.Errorf("предзагрузка мира: %w", err)
	}
	logger.Info("🌍 Мир готов: %d чанков вокруг %v за %s", len(wm.ResidentChunks()), spawn, time.Since(start).Round(time.Millisecond))

	gameAddr := ":" + strconv.Itoa(cfg.Server.GamePort)
	ln, err := network.Listen(cfg.Server.Transport, gameAddr)
	if err != nil {
		return err
	}

	rest := api.NewRestServer(api.Config{
		Addr:      ":" + strconv.Itoa(cfg.Server.RESTPort),
		Version:   version,
		Game:      game,
		World:     wm,
		Operators: ops,
		Auth:      auth.NewAuthenticator(users, tokens, logging.GetAPILogger()),
		Cache:     chunkCache,
		Registry:  reg,
	})

	var metricsSrv *http.Server
	if cfg.Server.MetricsPort > 0 && cfg.Server.MetricsPort != cfg.Server.RESTPort {
		metricsSrv = &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Server.MetricsPort),
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	var (
		health   *observability.HealthServer
		healthLn net.Listener
	)
	if cfg.Server.HealthPort > 0 {
		healthLn, err = net.Listen("tcp", ":"+strconv.Itoa(cfg.Server.HealthPort))
		if err != nil {
			ln.Close()
			return fmt.Errorf("health check: %w", err)
		}
		health = observability.NewHealthServer()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return game.Serve(gctx, ln) })
	g.Go(func() error { return game.Run(gctx) })
	g.Go(rest.Start)
	if health != nil {
		g.Go(func() error { return health.Serve(healthLn) })
		health.SetServing(observability.ServiceGame, true)
		health.SetServing(observability.ServiceREST, true)
	}
	if metricsSrv != nil {
		g.Go(func() error {
			logger.Info("📈 Метрики Prometheus на %s/metrics", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// Остановка по сигналу или при падении любого из сервисов
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("📡 Завершение работы...")

		if health != nil {
			health.SetServing(observability.ServiceGame, false)
			health.SetServing(observability.ServiceREST, false)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := game.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Ошибка остановки игрового сервера: %v", err)
		}
		if err := rest.Stop(shutdownCtx); err != nil {
			logger.Warn("Ошибка остановки REST API: %v", err)
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		if health != nil {
			health.Shutdown()
		}
		return nil
	})

	logger.Info("✅ Все сервисы запущены: игра %s (%s), REST :%d", gameAddr, cfg.Server.Transport, cfg.Server.RESTPort)
	return g.Wait()
}

func openCache(cfg config.CacheConfig) (cache.CacheRepo, error) {
	if cfg.RedisURL == "" {
		return cache.NewMemoryCache(cfg.TTL()), nil
	}
	rc, err := cache.NewRedisCache(cfg.RedisURL, "blockverse:", cfg.TTL())
	if err != nil {
		return nil, fmt.Errorf("redis кэш: %w", err)
	}
	return rc, nil
}

// openPositions хранит позиции в Redis, если он настроен, иначе в BadgerDB
func openPositions(ctx context.Context, cfg *config.Config, store *storage.Store) (storage.PositionRepo, func(), error) {
	if cfg.Cache.RedisURL == "" {
		return storage.NewBadgerPositionRepo(store), func() {}, nil
	}
	repo, err := storage.NewRedisPositionRepo(ctx, cfg.Cache.RedisURL, "blockverse:", 0)
	if err != nil {
		return nil, nil, fmt.Errorf("redis позиции: %w", err)
	}
	return repo, func() { _ = repo.Close() }, nil
}

func openBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		return eventbus.NewMemoryBus(1024), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("шина событий: %w", err)
	}
	return bus, nil
}
