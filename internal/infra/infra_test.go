package infra

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/payfast/payfast/internal/config"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Fatalf("expected value to reach miniredis, got %q", got)
	}
}

func TestNewRedisClientRequiresURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestNewPostgresPoolRequiresURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
	if err := Migrate(""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestPoolConfigAppliesOptions(t *testing.T) {
	cfg, err := poolConfig("postgres://payfast@localhost:5432/payfast",
		PoolOptionsFrom(config.Config{DBMaxConns: 12, DBMinConns: 3})...)
	if err != nil {
		t.Fatalf("pool config: %v", err)
	}
	if cfg.MaxConns != 12 || cfg.MinConns != 3 {
		t.Fatalf("unexpected pool size %d/%d", cfg.MinConns, cfg.MaxConns)
	}
	if cfg.MaxConnLifetime != time.Hour || cfg.HealthCheckPeriod != time.Minute {
		t.Fatalf("unexpected lifetimes %s %s", cfg.MaxConnLifetime, cfg.HealthCheckPeriod)
	}

	cfg, err = poolConfig("postgres://payfast@localhost:5432/payfast?pool_max_conns=7", WithMaxConns(0), WithConnLifetime(5*time.Minute))
	if err != nil {
		t.Fatalf("pool config: %v", err)
	}
	if cfg.MaxConns != 7 || cfg.MaxConnLifetime != 5*time.Minute {
		t.Fatalf("zero max conns should keep the url setting, got %d %s", cfg.MaxConns, cfg.MaxConnLifetime)
	}

	if _, err := poolConfig("postgres://payfast@localhost:5432/payfast", WithMaxConns(2), WithMinConns(5)); err == nil {
		t.Fatal("expected min conns above max conns to fail")
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Fatalf("expected paired migrations, got %d up and %d down", ups, downs)
	}
}
