package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"TokenLedger/internal/event"
	"TokenLedger/internal/ledger"
	"TokenLedger/internal/notify"
	"TokenLedger/internal/observability"
	"TokenLedger/internal/server"
	"TokenLedger/internal/store"
)

// Config holds all application configuration, loaded from environment
// variables.
type Config struct {
	// Postgres. Empty DSN runs on the in-memory store.
	PostgresURL   string
	MigrationsDir string

	// NATS. Empty URL disables outbound event publishing.
	NATSURL       string
	PublishBuffer int

	// Cold-start genesis: administrator identity and initial supply,
	// fully credited to the administrator. Ignored once state exists.
	AdminAddress  string
	InitialSupply uint64

	// Listeners
	GRPCAddr    string
	HTTPAddr    string
	MetricsAddr string
}

func DefaultConfig() Config {
	return Config{
		PostgresURL:   os.Getenv("LEDGER_POSTGRES_DSN"),
		MigrationsDir: envOrDefault("LEDGER_MIGRATIONS_DIR", "migrations"),
		NATSURL:       os.Getenv("LEDGER_NATS_URL"),
		PublishBuffer: envIntOrDefault("LEDGER_PUBLISH_BUFFER", 4096),
		AdminAddress:  envOrDefault("LEDGER_ADMIN_ADDRESS", ""),
		InitialSupply: envUintOrDefault("LEDGER_INITIAL_SUPPLY", 0),
		GRPCAddr:      envOrDefault("LEDGER_GRPC_ADDR", ":9090"),
		HTTPAddr:      envOrDefault("LEDGER_HTTP_ADDR", ":8080"),
		MetricsAddr:   envOrDefault("LEDGER_METRICS_ADDR", ":9091"),
	}
}

func main() {
	log := observability.NewLogger("main")
	log.Info().Msg("ledgerd starting")

	cfg := DefaultConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	// --- Store ---
	var backend store.Store
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres open")
		}
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping")
		}
		log.Info().Msg("postgres connected")

		migrator := store.NewMigrator(db, cfg.MigrationsDir, observability.NewLogger("migrate"))
		if err := migrator.Up(ctx); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}

		backend = store.NewPostgres(db)
	} else {
		log.Warn().Msg("no LEDGER_POSTGRES_DSN set, state is in-memory only")
		backend = store.NewMemory()
	}
	defer backend.Close()

	// --- Event sink ---
	var sink event.Sink
	var publisher *notify.Publisher
	if cfg.NATSURL != "" {
		nc, js, err := notify.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("nats connect")
		}
		defer nc.Close()
		log.Info().Msg("nats connected")

		if err := notify.EnsureStream(ctx, js); err != nil {
			log.Fatal().Err(err).Msg("ensure outbound stream")
		}

		publisher = notify.NewPublisher(js, cfg.PublishBuffer, observability.NewLogger("notify"), metrics)
		sink = publisher
	} else {
		log.Warn().Msg("no LEDGER_NATS_URL set, events are not published")
	}

	// --- Ledger state: restore or cold start ---
	state, err := loadState(ctx, cfg, backend, sink, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("load ledger state")
	}
	log.Info().
		Str("admin", state.Admin().String()).
		Uint64("total_supply", state.TotalSupply()).
		Uint64("sequence", state.Sequence()).
		Bool("paused", state.Paused()).
		Msg("ledger state ready")

	// --- Serve ---
	svc := server.NewLedgerService(state, observability.NewLogger("service"))
	grpcServer := server.NewGRPCServer(cfg.GRPCAddr, svc, metrics, observability.NewLogger("grpc"))
	gateway := server.NewGateway(cfg.HTTPAddr, svc, healthChecker, observability.NewLogger("gateway"))

	errChan := make(chan error, 4)

	if publisher != nil {
		go func() {
			if err := publisher.Run(ctx); err != nil && err != context.Canceled {
				errChan <- err
			}
		}()
	}
	go func() { errChan <- grpcServer.Start(ctx) }()
	go func() { errChan <- gateway.Start(ctx) }()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		errChan <- http.ListenAndServe(cfg.MetricsAddr, mux)
	}()

	healthChecker.SetReady(true)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		healthChecker.SetReady(false)
		cancel()
		time.Sleep(500 * time.Millisecond)
	case err := <-errChan:
		if err != nil {
			log.Fatal().Err(err).Msg("component failed")
		}
	}

	log.Info().Msg("ledgerd stopped")
}

// loadState restores from the store, or creates and persists the genesis
// state on a cold start.
func loadState(
	ctx context.Context,
	cfg Config,
	backend store.Store,
	sink event.Sink,
	metrics *observability.Metrics,
) (*ledger.State, error) {
	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}

	if snap != nil {
		return ledger.NewStateFromSnapshot(snap, backend, sink, metrics)
	}

	admin, err := ledger.ParseAddress(cfg.AdminAddress)
	if err != nil {
		return nil, err
	}
	state, err := ledger.NewState(admin, cfg.InitialSupply, backend, sink, metrics)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(ctx, state.Snapshot()); err != nil {
		return nil, err
	}
	return state, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envUintOrDefault(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
