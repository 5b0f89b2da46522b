package engine

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/config"
)

type noopSink struct{}

func (noopSink) Send(string) error { return nil }

func TestNewAssemblesEngineWithoutError(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{TickSeconds: 1, Workers: 0},
		Monitor:   config.MonitorConfig{TickSeconds: 60},
		OVH:       config.OVHConfig{HTTPTimeoutSeconds: 10},
		Paths:     config.PathsConfig{DataDir: dir, CacheDir: dir, LogDir: dir},
	}

	eng, err := New(cfg, zerolog.Nop(), noopSink{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if eng.Scheduler == nil || eng.Monitor == nil {
		t.Fatal("expected scheduler and monitor to be constructed")
	}
}

func TestSchedulerWorkerCount(t *testing.T) {
	cases := []struct {
		accounts int
		want     int
	}{
		{0, 2},
		{1, 2},
		{3, 6},
		{16, 32},
		{100, 32},
	}
	for _, c := range cases {
		if got := schedulerWorkerCount(c.accounts); got != c.want {
			t.Errorf("schedulerWorkerCount(%d) = %d, want %d", c.accounts, got, c.want)
		}
	}
}
