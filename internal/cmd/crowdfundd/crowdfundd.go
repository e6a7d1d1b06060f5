// Package crowdfundd parses daemon configuration and runs the crowdfund
// ledger behind its gRPC service.
package crowdfundd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blockberries/crowdfund/engine"
	crowdfundgrpc "github.com/blockberries/crowdfund/grpc"
	"github.com/blockberries/crowdfund/internal/config"
	"github.com/blockberries/crowdfund/internal/otel"
	"github.com/blockberries/crowdfund/internal/persist"
	"github.com/blockberries/crowdfund/server"
	"github.com/blockberries/crowdfund/store"
	"github.com/blockberries/crowdfund/store/leveldb"
	"github.com/blockberries/crowdfund/store/memory"
	"github.com/blockberries/crowdfund/store/redis"
	"github.com/blockberries/crowdfund/store/sqlite"
	"github.com/blockberries/crowdfund/types"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	serviceName            = "crowdfundd"
	defaultShutdownTimeout = 5 * time.Second
)

// Store backends.
const (
	StoreMemory  = "memory"
	StoreLevelDB = "leveldb"
	StoreSQLite  = "sqlite"
	StoreRedis   = "redis"
)

// Config holds daemon configuration.
type Config struct {
	Addr string `env:"CROWDFUND_ADDR" envDefault:"127.0.0.1:7070"`

	Store          string `env:"CROWDFUND_STORE" envDefault:"memory"`
	StorePath      string `env:"CROWDFUND_STORE_PATH" envDefault:"data/crowdfund"`
	SnapshotRetain int    `env:"CROWDFUND_SNAPSHOT_RETAIN" envDefault:"16"`

	RedisAddr     string `env:"CROWDFUND_REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"CROWDFUND_REDIS_PASSWORD"`
	RedisDB       int    `env:"CROWDFUND_REDIS_DB" envDefault:"0"`
	RedisKey      string `env:"CROWDFUND_REDIS_KEY" envDefault:"crowdfund:snapshot"`

	RewardNumerator   uint64 `env:"CROWDFUND_REWARD_NUMERATOR" envDefault:"1"`
	RewardDenominator uint64 `env:"CROWDFUND_REWARD_DENOMINATOR" envDefault:"1"`

	SnapshotInterval time.Duration `env:"CROWDFUND_SNAPSHOT_INTERVAL" envDefault:"5s"`

	LogLevel string `env:"CROWDFUND_LOG_LEVEL" envDefault:"info"`

	OTel otel.Config
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "gRPC listen address")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "snapshot store: memory, leveldb, sqlite or redis")
	fs.StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "path for leveldb and sqlite stores")
	fs.DurationVar(&cfg.SnapshotInterval, "snapshot-interval", cfg.SnapshotInterval, "how often pending changes are persisted")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RewardRate returns the configured reward ratio.
func (c Config) RewardRate() types.Ratio {
	return types.Ratio{Numerator: c.RewardNumerator, Denominator: c.RewardDenominator}
}

// Daemon hosts the ledger, its persister and the gRPC server.
type Daemon struct {
	cfg        Config
	logger     *slog.Logger
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	ledger     *engine.Engine
	persister  *persist.Persister
	store      store.Store
}

// New builds a daemon: it opens the store, recovers the latest
// snapshot and binds the listener. Serve starts handling requests.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	p := persist.New(st, persist.WithInterval(cfg.SnapshotInterval), persist.WithLogger(logger))
	ledger, err := engine.New(
		engine.WithRewardRate(cfg.RewardRate()),
		engine.WithLogger(logger),
		engine.WithEventHook(p.Notify),
	)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if _, err := p.Recover(ctx, ledger); err != nil {
		_ = st.Close()
		return nil, err
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	// Clients select the cramberry codec by content subtype; the health
	// service keeps protobuf.
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	crowdfundgrpc.NewGRPCServer(ledger, server.WithLogger(logger)).Register(grpcServer)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(crowdfundgrpc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Daemon{
		cfg:        cfg,
		logger:     logger,
		listener:   lis,
		grpcServer: grpcServer,
		health:     healthServer,
		ledger:     ledger,
		persister:  p,
		store:      st,
	}, nil
}

// Addr returns the listener address.
func (d *Daemon) Addr() string {
	return d.listener.Addr().String()
}

// Ledger returns the engine served by the daemon.
func (d *Daemon) Ledger() *engine.Engine {
	return d.ledger
}

// Serve handles requests until ctx is cancelled, then drains the
// server and persists pending changes.
func (d *Daemon) Serve(ctx context.Context) error {
	d.persister.Start(ctx, d.ledger)
	defer d.close()

	d.logger.Info("crowdfund server listening", "addr", d.Addr(), "store", d.cfg.Store)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- d.grpcServer.Serve(d.listener)
	}()

	select {
	case <-ctx.Done():
		d.health.Shutdown()
		d.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

func (d *Daemon) close() {
	d.health.Shutdown()
	d.grpcServer.Stop()
	d.persister.Stop()
	if err := d.store.Close(); err != nil {
		d.logger.Error("close store", "error", err)
	}
}

// Run starts the daemon with tracing until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	shutdown, err := otel.Setup(ctx, serviceName, cfg.OTel)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("otel shutdown", "error", err)
		}
	}()

	d, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return d.Serve(ctx)
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case StoreMemory, "":
		return memory.New(), nil
	case StoreLevelDB:
		if err := ensureParent(cfg.StorePath); err != nil {
			return nil, err
		}
		return leveldb.Open(cfg.StorePath)
	case StoreSQLite:
		if err := ensureParent(cfg.StorePath); err != nil {
			return nil, err
		}
		return sqlite.Open(cfg.StorePath, cfg.SnapshotRetain)
	case StoreRedis:
		return redis.Open(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func ensureParent(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	return nil
}
