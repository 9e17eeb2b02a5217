package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"salonagent/internal/api"
	"salonagent/internal/booking"
	"salonagent/internal/calendar"
	"salonagent/internal/config"
	"salonagent/internal/contacts"
	"salonagent/internal/events"
	"salonagent/internal/metrics"
	"salonagent/internal/notify"
	"salonagent/internal/salon"
	"salonagent/internal/slots"
	"salonagent/internal/tools"
)

func main() {
	if err := godotenv.Load(".env.local"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env.local: %v\n", err)
	}

	cfg, err := config.Load(os.Getenv("SALON_CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	bus := events.NewEventBus(&logger)

	busy, cache := newBusyProvider(ctx, cfg, rdb, &logger)
	if cache != nil {
		purge := func(events.Event) error {
			cache.Purge(ctx)
			return nil
		}
		for _, t := range []string{events.BookingCreated, events.BookingCancelled, events.BookingRescheduled, events.KnowledgeReloaded} {
			bus.Subscribe(t, purge)
		}
	}

	holder := salon.NewHolder(nil)
	err = salon.Watch(ctx, cfg.KnowledgePaths(), cfg.ReloadInterval(), cfg.LoadKnowledge,
		func(db *salon.DB) {
			first := holder.Current() == nil
			holder.Swap(db)
			metrics.IncKnowledgeReload("ok")
			for _, w := range db.Warnings {
				logger.Warn().Str("warning", w).Msg("knowledge base")
			}
			logger.Info().
				Int("services", len(db.Services)).
				Int("staff", len(db.Staff)).
				Int("bookable", len(db.BookableStaff())).
				Bool("initial", first).
				Msg("knowledge base loaded")
			if !first {
				publishReload(bus, db, &logger)
			}
		},
		func(err error) {
			metrics.IncKnowledgeReload("error")
			logger.Error().Err(err).Msg("knowledge reload failed, keeping previous snapshot")
		})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load knowledge base")
	}

	opts := []tools.Option{tools.WithPublisher(bus)}
	if cfg.Booking.BaseURL != "" {
		client, err := booking.NewClient(booking.Config{
			BaseURL:  cfg.Booking.BaseURL,
			User:     cfg.Booking.User,
			Password: cfg.Booking.Password,
			Timeout:  cfg.BookingTimeout(),
			Paths:    cfg.Booking.Paths,
		}, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create booking client")
		}
		opts = append(opts, tools.WithBookings(client))
	} else {
		logger.Warn().Msg("booking.base_url not set, booking tools will report gateway_error")
	}

	contactStore, err := contacts.Open(cfg.Contacts.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open contacts store")
	}
	defer contactStore.Close()
	opts = append(opts, tools.WithContacts(contactStore))
	go contacts.NewBackupService(contactStore, cfg.Contacts.Backup, &logger).Start(ctx)

	if cfg.Telegram.BotToken != "" && len(cfg.Telegram.Managers) > 0 {
		bot, err := notify.NewBot(cfg.Telegram.BotToken)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifier disabled")
		} else {
			notify.NewNotifier(bot, cfg.Telegram.Managers, &logger).Subscribe(bus)
			logger.Info().Int("managers", len(cfg.Telegram.Managers)).Msg("telegram notifier enabled")
		}
	}

	var suggestOpts []slots.SuggesterOption
	if cfg.Suggest.Oversample > 0 {
		suggestOpts = append(suggestOpts, slots.WithOversample(cfg.Suggest.Oversample))
	}
	suggester := slots.NewSuggester(busy, &logger, suggestOpts...)
	toolbox := tools.New(holder, suggester, &logger, opts...)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, holder, contactStore, rdb, &logger)
	if cfg.Monitoring.GRPCHealthPort > 0 {
		go startGRPCHealth(ctx, cfg.Monitoring.GRPCHealthPort, &logger)
	}

	srv := api.NewHTTPServer(api.Config{
		Addr:         cfg.API.Addr,
		APIKey:       cfg.API.APIKey,
		ReadTimeout:  cfg.APIReadTimeout(),
		WriteTimeout: cfg.APIWriteTimeout(),
	}, toolbox, &logger)
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Str("app", cfg.App.Name).Int("tools", len(toolbox.Names())).Msg("salon agent started")
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("api server error")
	}
	logger.Info().Msg("salon agent stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.PrettyLogs() {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		logger = zerolog.New(output)
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(cfg.LogLevel()).With().Timestamp().Logger()
}

func newBusyProvider(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zerolog.Logger) (calendar.BusyProvider, *calendar.CachedProvider) {
	if !cfg.Calendar.Enabled {
		logger.Info().Msg("calendar lookups disabled, suggestions use store hours only")
		return nil, nil
	}
	google, err := calendar.NewGoogleProvider(ctx, calendar.GoogleConfig{
		CredentialsFile: cfg.Calendar.CredentialsFile,
		Timeout:         cfg.CalendarTimeout(),
		RatePerSecond:   cfg.Calendar.RatePerSecond,
		Burst:           cfg.Calendar.Burst,
	}, logger)
	if errors.Is(err, calendar.ErrNotConfigured) {
		logger.Warn().Msg("calendar.credentials_file not set, calendar lookups disabled")
		return nil, nil
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create calendar provider")
	}
	cache := calendar.NewCachedProvider(google, cfg.CalendarCacheTTL(), logger)
	if rdb != nil {
		cache.UseRedis(rdb)
	}
	return cache, cache
}

func publishReload(bus *events.EventBus, db *salon.DB, logger *zerolog.Logger) {
	ev, err := events.New(events.KnowledgeReloaded, events.KnowledgePayload{
		Services: len(db.Services),
		Staff:    len(db.Staff),
		Warnings: db.Warnings,
	})
	if err != nil {
		logger.Error().Err(err).Msg("build reload event")
		return
	}
	if err := bus.Publish(ev); err != nil {
		logger.Warn().Err(err).Msg("reload event delivery incomplete")
	}
}

func startHealthServer(ctx context.Context, port int, holder *salon.Holder, store *contacts.Store, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if holder.Current() == nil {
			http.Error(w, "knowledge base not loaded", http.StatusServiceUnavailable)
			return
		}
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := store.PingContext(ctxPing); err != nil {
			http.Error(w, "contacts db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startGRPCHealth(ctx context.Context, port int, logger *zerolog.Logger) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Error().Err(err).Int("port", port).Msg("grpc health listen failed")
		return
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()
	logger.Info().Int("port", port).Msg("grpc health listening")
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Error().Err(err).Msg("grpc health server error")
	}
}
