package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"NewsBroadcaster/internal/config"
	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
	"NewsBroadcaster/internal/usecase"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("NEWS_BROADCASTER_CONFIG", "")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", Migrate: true}
	cfg.LLM.APIKey = ""
	cfg.Gateways.IPROG.APIToken = ""
	cfg.Gateways.Semaphore.APIKey = ""
	cfg.Status = config.StatusConfig{}
	cfg.Notifications = config.NotificationConfig{}
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWiresAnEmptyStore(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	stats, err := a.Stats(ctx)
	if err != nil || stats.Total != 0 {
		t.Fatalf("unexpected stats %+v (%v)", stats, err)
	}
	if a.DefaultGateway() != gateway.IPROG {
		t.Fatalf("unexpected default gateway %v", a.DefaultGateway())
	}
	if _, err := a.LookupStatus(ctx, "123"); !errors.Is(err, ErrStatusLookupDisabled) {
		t.Fatalf("expected ErrStatusLookupDisabled, got %v", err)
	}
	if _, err := a.RecentStatuses(ctx, 5); !errors.Is(err, ErrStatusLookupDisabled) {
		t.Fatalf("expected ErrStatusLookupDisabled for recent, got %v", err)
	}

	report, err := a.Pipeline().Announce(ctx, "Walay klase bukas.", domain.AllRecipients(), gateway.SIM800C, nil)
	if !errors.Is(err, domain.ErrNoRecipients) || report.Stage != domain.StageAborted {
		t.Fatalf("expected an aborted announcement, got %v (%s)", err, report.Stage)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gateways.Default = "pigeon"
	if _, err := New(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatalf("expected config error")
	}

	cfg = testConfig(t)
	cfg.Database.Driver = "oracle"
	if _, err := New(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatalf("expected storage error")
	}
}

func TestSchedulesFromFallsBackToDefaultGateway(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gateways.Default = "semaphore"
	cfg.Schedules = []config.ScheduleConfig{
		{Name: "morning", Cron: "0 7 * * *", Message: "a"},
		{Name: "evening", Cron: "0 19 * * *", Message: "b", Gateway: "modem", Recipients: []int64{2}},
	}

	got := schedulesFrom(cfg)
	if len(got) != 2 {
		t.Fatalf("expected 2 schedules, got %d", len(got))
	}
	if got[0].Gateway != gateway.Semaphore || got[1].Gateway != gateway.SIM800C {
		t.Fatalf("unexpected gateways %v %v", got[0].Gateway, got[1].Gateway)
	}
	if got[1].Selector().Mode != domain.SelectOne {
		t.Fatalf("unexpected selector %+v", got[1].Selector())
	}
}

func TestThrottleFrom(t *testing.T) {
	if _, ok := throttleFrom(config.ThrottleConfig{Delay: time.Second}).(usecase.FixedDelay); !ok {
		t.Fatalf("expected a fixed delay")
	}
	if _, ok := throttleFrom(config.ThrottleConfig{RatePerSecond: 0.5, Burst: 2}).(*usecase.TokenBucket); !ok {
		t.Fatalf("expected a token bucket")
	}
}
