package crowdfundd

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	crowdfundgrpc "github.com/blockberries/crowdfund/grpc"
	"github.com/blockberries/crowdfund/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CROWDFUND_STORE", "sqlite")
	t.Setenv("CROWDFUND_REWARD_NUMERATOR", "3")
	t.Setenv("CROWDFUND_REWARD_DENOMINATOR", "2")
	t.Setenv("CROWDFUND_OTEL_ENDPOINT", "http://collector:4318")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", "127.0.0.1:9999", "-snapshot-interval", "1s"})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9999" {
		t.Fatalf("expected flag addr, got %q", cfg.Addr)
	}
	if cfg.Store != StoreSQLite {
		t.Fatalf("expected env store, got %q", cfg.Store)
	}
	if cfg.SnapshotInterval != time.Second {
		t.Fatalf("expected 1s interval, got %v", cfg.SnapshotInterval)
	}
	if r := cfg.RewardRate(); r != (types.Ratio{Numerator: 3, Denominator: 2}) {
		t.Fatalf("unexpected reward rate %v", r)
	}
	if cfg.OTel.Endpoint != "http://collector:4318" || !cfg.OTel.Enabled {
		t.Fatalf("unexpected otel config %+v", cfg.OTel)
	}
}

func TestParseConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("CROWDFUND_SNAPSHOT_INTERVAL", "often")
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = "tape"
	if _, err := New(context.Background(), cfg, quiet); err == nil {
		t.Fatal("expected error for unknown store")
	}
}

func TestNewRejectsZeroDenominator(t *testing.T) {
	cfg := testConfig(t)
	cfg.RewardDenominator = 0
	if _, err := New(context.Background(), cfg, quiet); err == nil {
		t.Fatal("expected error for zero reward denominator")
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger("debug"); err != nil {
		t.Fatalf("newLogger(debug): %v", err)
	}
	if _, err := newLogger("chatty"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Addr:              "127.0.0.1:0",
		Store:             StoreSQLite,
		StorePath:         filepath.Join(t.TempDir(), "state", "crowdfund.db"),
		RewardNumerator:   1,
		RewardDenominator: 1,
		SnapshotInterval:  time.Hour,
		LogLevel:          "info",
	}
}

// serve runs a daemon until the returned stop function is called.
func serve(t *testing.T, cfg Config) (*Daemon, func()) {
	t.Helper()
	d, err := New(context.Background(), cfg, quiet)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()
	return d, func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for daemon shutdown")
		}
	}
}

func TestDaemonServesAndRecovers(t *testing.T) {
	cfg := testConfig(t)
	creator := types.TestIdentity(1)

	d, stop := serve(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := crowdfundgrpc.Dial(ctx, d.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	res, err := client.CreateCampaign(ctx, types.CreateCampaignRequest{
		Creator: creator, Title: "durable", Goal: 10, DurationSeconds: 3600,
	})
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if res.ID != 1 {
		t.Fatalf("expected id 1, got %d", res.ID)
	}

	conn, err := grpc.NewClient(d.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial health: %v", err)
	}
	hc, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{
		Service: crowdfundgrpc.ServiceName,
	})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if hc.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", hc.GetStatus())
	}
	_ = conn.Close()
	_ = client.Close()
	stop()

	// A second daemon on the same store picks up where the first stopped.
	d2, stop2 := serve(t, cfg)
	defer stop2()
	c, err := d2.Ledger().Campaign(ctx, 1)
	if err != nil {
		t.Fatalf("Campaign after restart: %v", err)
	}
	if c.Title != "durable" || c.Creator != creator {
		t.Fatalf("unexpected recovered campaign %+v", c)
	}
}
