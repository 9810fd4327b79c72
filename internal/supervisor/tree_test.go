// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root supervisor is nil")
	}
	if got := tree.Config(); got != DefaultTreeConfig() {
		t.Errorf("Config() = %+v, want defaults %+v", got, DefaultTreeConfig())
	}

	custom, _ := NewSupervisorTree(nil, TreeConfig{FailureThreshold: 2, ShutdownTimeout: time.Second})
	if custom.Config().FailureThreshold != 2 || custom.Config().ShutdownTimeout != time.Second {
		t.Errorf("explicit values overridden: %+v", custom.Config())
	}
	if custom.Config().FailureDecay != 30 {
		t.Errorf("FailureDecay = %v, want default 30", custom.Config().FailureDecay)
	}
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})

	layers := []struct {
		name string
		add  func(suture.Service) suture.ServiceToken
		svc  *MockService
	}{
		{"data", tree.AddDataService, NewMockService("recorder")},
		{"engine", tree.AddEngineService, NewMockService("scheduler")},
		{"api", tree.AddAPIService, NewMockService("http-server")},
	}
	for _, l := range layers {
		l.add(l.svc)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for _, l := range layers {
		for l.svc.StartCount() < 1 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if l.svc.StartCount() < 1 {
			t.Errorf("%s layer service was not started", l.name)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}

	for _, l := range layers {
		if l.svc.StopCount() != l.svc.StartCount() {
			t.Errorf("%s: starts = %d, stops = %d", l.name, l.svc.StartCount(), l.svc.StopCount())
		}
	}
	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport() error = %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestSupervisorTree_RestartIsolatedToLayer(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	flaky := NewMockService("flaky-scheduler")
	flaky.SetFailCount(2)
	stable := NewMockService("http-server")

	tree.AddEngineService(flaky)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	for flaky.StartCount() < 3 && ctx.Err() == nil {
		time.Sleep(5 * time.Millisecond)
	}
	if flaky.StartCount() < 3 {
		t.Errorf("flaky service starts = %d, want >= 3", flaky.StartCount())
	}
	if stable.StartCount() != 1 {
		t.Errorf("stable service starts = %d, want exactly 1", stable.StartCount())
	}

	cancel()
	<-errCh
}

func TestSupervisorTree_EngineLayerOutlastsShutdownTimeout(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		ShutdownTimeout:       100 * time.Millisecond,
		EngineShutdownTimeout: 2 * time.Second,
	})
	if got := tree.Config().EngineShutdownTimeout; got != 2*time.Second {
		t.Fatalf("EngineShutdownTimeout = %s", got)
	}

	scheduler := NewMockService("scheduler")
	scheduler.SetDrain(500 * time.Millisecond)
	tree.AddEngineService(scheduler)
	tree.AddAPIService(NewMockService("http-server"))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for scheduler.StartCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not shut down in time")
	}

	if !scheduler.Drained() {
		t.Error("tree returned before the engine service finished its work")
	}
	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport() error = %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestNewSupervisorTree_EngineTimeoutNeverBelowShutdown(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		ShutdownTimeout:       5 * time.Second,
		EngineShutdownTimeout: time.Second,
	})
	if got := tree.Config().EngineShutdownTimeout; got != 5*time.Second {
		t.Errorf("EngineShutdownTimeout = %s, want 5s", got)
	}
}

func TestMockService_SetError(t *testing.T) {
	svc := NewMockService("broken")
	want := errors.New("boom")
	svc.SetError(want)

	if err := svc.Serve(context.Background()); !errors.Is(err, want) {
		t.Errorf("Serve() error = %v, want %v", err, want)
	}
	if svc.String() != "broken" {
		t.Errorf("String() = %q", svc.String())
	}
	if svc.StartCount() != 1 || svc.StopCount() != 1 {
		t.Errorf("counts = %d/%d, want 1/1", svc.StartCount(), svc.StopCount())
	}
}
