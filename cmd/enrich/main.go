package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2ms-classifier/internal/enricher"
	"github.com/goodnatureofminers/p2ms-classifier/internal/metrics"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
	"github.com/goodnatureofminers/p2ms-classifier/internal/rpcnode"
	"github.com/goodnatureofminers/p2ms-classifier/internal/store"
)

type config struct {
	DBPath            string        `long:"db-path" env:"P2MS_ENRICH_DB_PATH" description:"path to the SQLite store" default:"p2ms.db"`
	MigrationsDir     string        `long:"migrations-dir" env:"P2MS_ENRICH_MIGRATIONS_DIR" description:"path to SQLite migration files" default:"internal/store/migrations"`
	RPCURL            string        `long:"rpc-url" env:"P2MS_ENRICH_RPC_URL" description:"Bitcoin node RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser           string        `long:"rpc-user" env:"P2MS_ENRICH_RPC_USER" description:"Bitcoin node RPC username"`
	RPCPassword       string        `long:"rpc-password" env:"P2MS_ENRICH_RPC_PASSWORD" description:"Bitcoin node RPC password"`
	RequestsPerSecond int           `long:"requests-per-second" env:"P2MS_ENRICH_RPS" description:"Node Client rate limit" default:"20"`
	MaxInFlight       int           `long:"max-in-flight" env:"P2MS_ENRICH_MAX_IN_FLIGHT" description:"Node Client bounded concurrency" default:"8"`
	WorkerCount       int           `long:"worker-count" env:"P2MS_ENRICH_WORKER_COUNT" description:"Stage 2 worker pool size" default:"8"`
	BatchSize         int           `long:"batch-size" env:"P2MS_ENRICH_BATCH_SIZE" description:"txids per checkpoint batch" default:"500"`
	HTTPTimeout       time.Duration `long:"http-timeout" env:"P2MS_ENRICH_HTTP_TIMEOUT" description:"Node Client Config.Timeout (not applied to RPC requests)" default:"60s"`
	MetricsAddr       string        `long:"metrics-addr" env:"P2MS_ENRICH_METRICS_ADDR" description:"address for metrics server" default:":2113"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("enricher stage failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	if err := store.RunMigrations(cfg.DBPath, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	st, err := store.Open(cfg.DBPath, metrics.NewStore())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("close store", zap.Error(err))
		}
	}()

	node, err := newNodeClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("init node client: %w", err)
	}

	resume, found, err := st.LoadCheckpoint(ctx, model.StageEnrich)
	if err != nil {
		return fmt.Errorf("load enrich checkpoint: %w", err)
	}
	if found {
		logger.Info("resuming enrich stage", zap.String("last_txid", resume.LastTxID))
	}

	enricherCfg := enricher.DefaultConfig()
	if cfg.WorkerCount > 0 {
		enricherCfg.WorkerCount = cfg.WorkerCount
	}
	if cfg.BatchSize > 0 {
		enricherCfg.BatchSize = cfg.BatchSize
	}

	return enricher.Run(ctx, st, node, metrics.NewEnricher(), resume, enricherCfg, logger)
}

func newNodeClient(cfg config, logger *zap.Logger) (*rpcnode.Client, error) {
	connCfg, err := rpcnode.NewConnConfig(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return nil, fmt.Errorf("build rpc conn config: %w", err)
	}
	rpc, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("dial rpc node: %w", err)
	}

	nodeCfg := rpcnode.DefaultConfig()
	nodeCfg.URL = cfg.RPCURL
	nodeCfg.User = cfg.RPCUser
	nodeCfg.Password = cfg.RPCPassword
	if cfg.HTTPTimeout > 0 {
		nodeCfg.Timeout = cfg.HTTPTimeout
	}
	if cfg.RequestsPerSecond > 0 {
		nodeCfg.RequestsPerSecond = cfg.RequestsPerSecond
	}
	if cfg.MaxInFlight > 0 {
		nodeCfg.MaxInFlight = cfg.MaxInFlight
	}

	return rpcnode.NewClient(rpc, nodeCfg, metrics.NewNodeClient(), logger), nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
