package gateway_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"wiretap/internal/gateway"
	"wiretap/internal/ipc"
	"wiretap/internal/logging"
	"wiretap/internal/testsupport"
	"wiretap/internal/wiretap"
)

func newDaemon(t *testing.T) *gateway.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	d, err := gateway.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func startOrSkip(t *testing.T, d *gateway.Daemon) {
	t.Helper()
	if err := d.Start(context.Background()); err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping gateway test: %v", err)
		}
		t.Fatalf("Start failed: %v", err)
	}
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)
	startOrSkip(t, d)

	status := d.Status()
	if !status.Running || status.Address == "" {
		t.Fatalf("expected running gateway with address, got %+v", status)
	}

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}

	client, err := ipc.Dial(context.Background(), status.Address, time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()
	if _, err := client.Hello(context.Background(), "2018.3", "localhost"); err != nil {
		t.Fatalf("Hello failed: %v", err)
	}
	if _, err := client.Lookup(context.Background(), wiretap.VolumesPath); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected gateway to be stopped")
	}
}

func TestSecondDaemonSharingLockFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := gateway.New(cfg, nil)
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	t.Cleanup(first.Stop)
	startOrSkip(t, first)

	second, err := gateway.New(cfg, nil)
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	if err := second.Start(context.Background()); !errors.Is(err, gateway.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	d := newDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !d.Status().Running {
		select {
		case err := <-done:
			if err != nil && strings.Contains(err.Error(), "operation not permitted") {
				t.Skipf("skipping gateway test: %v", err)
			}
			t.Fatalf("Run returned early: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("gateway did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if d.Status().Running {
		t.Fatal("expected gateway to be stopped")
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := gateway.New(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	cfg := testsupport.NewConfig(t)
	cfg.Gateway.LockFile = " "
	if _, err := gateway.New(cfg, nil); err == nil {
		t.Fatal("expected error for empty lock file")
	}
}
