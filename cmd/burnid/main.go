package main

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/vim-labs/burni-tokens/internal/api"
	"github.com/vim-labs/burni-tokens/internal/asset"
	"github.com/vim-labs/burni-tokens/internal/core"
	"github.com/vim-labs/burni-tokens/internal/ingestion"
	"github.com/vim-labs/burni-tokens/internal/observability"
	"github.com/vim-labs/burni-tokens/internal/persistence"
	"github.com/vim-labs/burni-tokens/internal/projection"
	"github.com/vim-labs/burni-tokens/internal/query"
)

const (
	tokenName     = "Burni"
	tokenSymbol   = "BURN"
	tokenDecimals = 18

	registryName   = "Burnin"
	registrySymbol = "BURNIN"
)

// Config holds all daemon configuration. Values come from BURNI_*
// environment variables with flag overrides.
type Config struct {
	// Postgres is optional: with an empty URL the daemon runs in-memory
	// only, with no event log, projections or snapshots.
	PostgresURL string

	// NATS is optional: with an empty URL no events are published.
	NATSURL string

	HTTPAddr    string
	MetricsAddr string

	PersistChanSize    int
	ProjectionChanSize int
	PublishChanSize    int

	PersistBatchSize    int
	PersistFlushTimeout time.Duration

	SnapshotInterval int64

	IdempotencyCapacity int
	MigrationsDir       string

	DeployerAddress string
	RegistryAddress string
	TotalSupply     uint64 // whole units
	BaseTokenURI    string
}

func DefaultConfig() Config {
	return Config{
		PostgresURL:         os.Getenv("BURNI_POSTGRES_URL"),
		NATSURL:             os.Getenv("BURNI_NATS_URL"),
		HTTPAddr:            envOrDefault("BURNI_HTTP_ADDR", ":8080"),
		MetricsAddr:         envOrDefault("BURNI_METRICS_ADDR", ":9091"),
		PersistChanSize:     envIntOrDefault("BURNI_PERSIST_CHAN_SIZE", 1024),
		ProjectionChanSize:  envIntOrDefault("BURNI_PROJECTION_CHAN_SIZE", 2048),
		PublishChanSize:     envIntOrDefault("BURNI_PUBLISH_CHAN_SIZE", 4096),
		PersistBatchSize:    envIntOrDefault("BURNI_PERSIST_BATCH_SIZE", 50),
		PersistFlushTimeout: 10 * time.Millisecond,
		SnapshotInterval:    int64(envIntOrDefault("BURNI_SNAPSHOT_INTERVAL", 10_000)),
		IdempotencyCapacity: envIntOrDefault("BURNI_IDEMPOTENCY_CAPACITY", 100_000),
		MigrationsDir:       envOrDefault("BURNI_MIGRATIONS_DIR", "migrations"),
		DeployerAddress:     os.Getenv("BURNI_DEPLOYER_ADDRESS"),
		RegistryAddress:     os.Getenv("BURNI_REGISTRY_ADDRESS"),
		TotalSupply:         uint64(envIntOrDefault("BURNI_TOTAL_SUPPLY", 1_000_000)),
		BaseTokenURI:        envOrDefault("BURNI_BASE_TOKEN_URI", "https://burni.co/nft/"),
	}
}

func main() {
	log := observability.NewLogger("main")

	cfg := DefaultConfig()
	pflag.StringVar(&cfg.PostgresURL, "postgres-url", cfg.PostgresURL, "Postgres connection string (empty: in-memory only)")
	pflag.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL (empty: no event publishing)")
	pflag.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP API listen address")
	pflag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address")
	pflag.StringVar(&cfg.DeployerAddress, "deployer-address", cfg.DeployerAddress, "address receiving the full supply (required)")
	pflag.StringVar(&cfg.RegistryAddress, "registry-address", cfg.RegistryAddress, "deposit address of the asset registry (required)")
	pflag.Uint64Var(&cfg.TotalSupply, "total-supply", cfg.TotalSupply, "total supply in whole units")
	pflag.StringVar(&cfg.BaseTokenURI, "base-token-uri", cfg.BaseTokenURI, "base locator prefix for asset URIs")
	pflag.Parse()

	deployer, err := asset.ParseAddress(cfg.DeployerAddress)
	if err != nil || deployer.IsZero() {
		log.Fatal().Str("value", cfg.DeployerAddress).Msg("BURNI_DEPLOYER_ADDRESS must be a non-zero address")
	}
	registryAddr, err := asset.ParseAddress(cfg.RegistryAddress)
	if err != nil || registryAddr.IsZero() {
		log.Fatal().Str("value", cfg.RegistryAddress).Msg("BURNI_REGISTRY_ADDRESS must be a non-zero address")
	}
	if registryAddr == deployer {
		log.Fatal().Msg("registry address must differ from the deployer address")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	metrics := observability.NewMetrics()
	health := observability.NewHealthChecker()

	// --- Postgres (optional) ---
	var (
		db        *sql.DB
		snapMgr   *persistence.SnapshotManager
		dbChecker core.DBIdempotencyChecker
		queries   *query.Service
	)
	if cfg.PostgresURL != "" {
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres open")
		}
		defer db.Close()

		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping")
		}
		log.Info().Msg("Postgres connected")

		migrator := persistence.NewMigrator(db, cfg.MigrationsDir)
		if err := migrator.Up(ctx); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}

		snapMgr = persistence.NewSnapshotManager(db)
		dbChecker = persistence.NewPostgresIdempotencyChecker(db)
		queries = query.NewService(db)
	} else {
		log.Warn().Msg("no Postgres URL configured, running in-memory only")
	}

	// --- Channels ---
	persistChan := make(chan core.Output, cfg.PersistChanSize)
	projectionChan := make(chan core.Output, cfg.ProjectionChanSize)
	publishChan := make(chan core.Output, cfg.PublishChanSize)
	metrics.ChannelCapacity.WithLabelValues("persist").Set(float64(cfg.PersistChanSize))
	metrics.ChannelCapacity.WithLabelValues("projection").Set(float64(cfg.ProjectionChanSize))
	metrics.ChannelCapacity.WithLabelValues("publish").Set(float64(cfg.PublishChanSize))

	// --- Engine ---
	supply := new(big.Int).Mul(
		new(big.Int).SetUint64(cfg.TotalSupply),
		asset.Unit(),
	)

	engineDeps := core.Deps{
		ProjectionChan: projectionChan,
		PublishChan:    publishChan,
		DBChecker:      dbChecker,
		Metrics:        metrics,
		Logger:         observability.NewLogger("engine"),
	}
	if db != nil {
		engineDeps.PersistChan = persistChan
	}

	engine := core.New(core.Config{
		TokenName:           tokenName,
		TokenSymbol:         tokenSymbol,
		TokenDecimals:       tokenDecimals,
		TotalSupply:         supply,
		Deployer:            deployer,
		RegistryName:        registryName,
		RegistrySymbol:      registrySymbol,
		RegistryAddress:     registryAddr,
		BaseTokenURI:        cfg.BaseTokenURI,
		IdempotencyCapacity: cfg.IdempotencyCapacity,
	}, engineDeps)

	// --- Recovery ---
	if snapMgr != nil {
		data, seq, err := snapMgr.LoadLatest(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			log.Info().Msg("no snapshot found, cold start from sequence 0")
		case err != nil:
			log.Fatal().Err(err).Msg("load snapshot")
		default:
			if err := engine.Restore(data); err != nil {
				log.Fatal().Err(err).Msg("restore snapshot")
			}
			log.Info().Int64("sequence", seq).Msg("restored state from snapshot")

			writer := persistence.NewEventLogWriter(db)
			head, err := writer.LastSequence(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("read event log head")
			}
			if head > seq {
				log.Warn().
					Int64("snapshot_sequence", seq).
					Int64("log_head", head).
					Msg("event log is ahead of the latest snapshot, events after it are not reflected in memory")
			}
		}
	}

	errChan := make(chan error, 8)

	// --- Workers ---
	if db != nil {
		persistWorker := persistence.NewWorker(
			db, persistChan, cfg.PersistBatchSize, cfg.PersistFlushTimeout,
			metrics, observability.NewLogger("persistence"),
		)
		go func() { errChan <- persistWorker.Run(ctx) }()

		projWorker := projection.NewWorker(db, projectionChan, observability.NewLogger("projection"))
		go func() { errChan <- projWorker.Run(ctx) }()
	} else {
		go drainOutputs(ctx, projectionChan)
	}

	// --- NATS publisher (optional) ---
	if cfg.NATSURL != "" {
		natsLog := observability.NewLogger("nats")
		nc, js, err := ingestion.ConnectNATS(cfg.NATSURL, natsLog)
		if err != nil {
			log.Fatal().Err(err).Msg("nats connect")
		}
		defer nc.Close()

		if err := ingestion.EnsureOutboundStream(ctx, js); err != nil {
			log.Fatal().Err(err).Msg("ensure outbound stream")
		}

		publisher := ingestion.NewOutboundPublisher(js, publishChan, natsLog)
		go func() { errChan <- publisher.Run(ctx) }()
		log.Info().Msg("NATS connected")
	} else {
		go drainOutputs(ctx, publishChan)
	}

	// --- HTTP API ---
	server := api.NewServer(engine, queries, observability.NewLogger("api"))
	go func() { errChan <- server.Start(cfg.HTTPAddr) }()

	// --- Metrics + health ---
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", health.LivenessHandler)
		mux.HandleFunc("/readyz", health.ReadinessHandler)
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			<-ctx.Done()
			shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			srv.Shutdown(shutCtx)
		}()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// --- Periodic snapshots ---
	if snapMgr != nil {
		go runPeriodicSnapshots(ctx, engine, snapMgr, cfg.SnapshotInterval, metrics, log)
	}

	health.SetReady(true)
	log.Info().
		Int64("sequence", engine.Sequence()).
		Str("http", cfg.HTTPAddr).
		Str("metrics", cfg.MetricsAddr).
		Msg("burnid ready")

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		log.Error().Err(err).Msg("component failed, shutting down")
	}

	health.SetReady(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	if snapMgr != nil {
		if err := takeSnapshot(shutdownCtx, engine, snapMgr, metrics); err != nil {
			log.Error().Err(err).Msg("final snapshot failed")
		} else {
			log.Info().Msg("final snapshot saved")
		}
	}

	log.Info().Msg("burnid shutdown complete")
}

func drainOutputs(ctx context.Context, ch <-chan core.Output) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
		}
	}
}

func runPeriodicSnapshots(
	ctx context.Context,
	engine *core.Engine,
	snapMgr *persistence.SnapshotManager,
	interval int64,
	metrics *observability.Metrics,
	log zerolog.Logger,
) {
	if interval <= 0 {
		interval = 10_000
	}

	lastSeq := engine.Sequence()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq := engine.Sequence()
			if seq-lastSeq < interval {
				continue
			}
			if err := takeSnapshot(ctx, engine, snapMgr, metrics); err != nil {
				log.Warn().Err(err).Msg("periodic snapshot failed")
				continue
			}
			lastSeq = seq
			log.Info().Int64("sequence", seq).Msg("periodic snapshot saved")
		}
	}
}

func takeSnapshot(
	ctx context.Context,
	engine *core.Engine,
	snapMgr *persistence.SnapshotManager,
	metrics *observability.Metrics,
) error {
	data, seq, hash, err := engine.Export()
	if err != nil {
		return err
	}
	if err := snapMgr.Save(ctx, seq, hash[:], data); err != nil {
		return err
	}
	metrics.SnapshotTaken.Inc()
	metrics.SnapshotLastSeq.Set(float64(seq))
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
