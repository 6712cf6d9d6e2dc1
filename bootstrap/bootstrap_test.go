package bootstrap

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kbukum/voxkit/config"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/observability"
)

type testConfig struct {
	config.ServiceConfig
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	status   observability.HealthStatus
	started  bool
	stopped  bool
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	m.started = true
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopped = true
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) observability.Health {
	status := m.status
	if status == "" {
		status = observability.HealthStatusUp
	}
	return observability.Health{Name: m.name, Status: status}
}

func newApp(t *testing.T) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "voxkit", Version: "1.0.0"}}
	app, err := NewApp(cfg, WithLogger(logger.Nop()), WithGracefulTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newApp(t)
	if app.Name != "voxkit" || app.Version != "1.0.0" {
		t.Errorf("unexpected app identity %s %s", app.Name, app.Version)
	}
	if app.Cfg.Environment != "development" {
		t.Errorf("expected defaults applied, got environment %q", app.Cfg.Environment)
	}
	if app.gracefulTimeout != time.Second {
		t.Errorf("expected graceful timeout option applied, got %s", app.gracefulTimeout)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	_, err := NewApp(&testConfig{}, WithLogger(logger.Nop()))
	if err == nil {
		t.Fatal("expected validation error for missing name")
	}
}

func TestRunTask_Lifecycle(t *testing.T) {
	app := newApp(t)
	c := &mockComponent{name: "models"}
	if err := app.RegisterComponent(c); err != nil {
		t.Fatal(err)
	}
	var order []string
	app.OnStart(func(context.Context) error { order = append(order, "start"); return nil })
	app.OnReady(func(context.Context) error { order = append(order, "ready"); return nil })
	app.OnStop(func(context.Context) error { order = append(order, "stop"); return nil })

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		if !c.started {
			t.Error("component should be started before the task")
		}
		order = append(order, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !c.stopped {
		t.Error("component should be stopped after the task")
	}
	if got := fmt.Sprint(order); got != "[start ready task stop]" {
		t.Errorf("expected [start ready task stop], got %s", got)
	}
}

func TestRunTask_TaskErrorWins(t *testing.T) {
	app := newApp(t)
	app.RegisterComponent(&mockComponent{name: "models", stopErr: fmt.Errorf("close failed")})

	taskErr := fmt.Errorf("transcription failed")
	if err := app.RunTask(context.Background(), func(context.Context) error { return taskErr }); err != taskErr {
		t.Fatalf("expected task error, got %v", err)
	}
}

func TestRunTask_StartFailureStopsStarted(t *testing.T) {
	app := newApp(t)
	first := &mockComponent{name: "models"}
	app.RegisterComponent(first)
	app.RegisterComponent(&mockComponent{name: "kafka", startErr: fmt.Errorf("no brokers")})

	ran := false
	err := app.RunTask(context.Background(), func(context.Context) error { ran = true; return nil })
	if err == nil {
		t.Fatal("expected start error")
	}
	if ran {
		t.Error("task must not run when startup fails")
	}
	if !first.stopped {
		t.Error("started components should be stopped after a failed startup")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	app := newApp(t)
	c := &mockComponent{name: "http-server"}
	app.RegisterComponent(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !c.stopped {
		t.Error("expected component stopped")
	}
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  observability.HealthStatus
		wantErr bool
	}{
		{"up", observability.HealthStatusUp, false},
		{"degraded", observability.HealthStatusDegraded, false},
		{"down", observability.HealthStatusDown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(t)
			app.RegisterComponent(&mockComponent{name: "models", status: tt.status})
			err := app.ReadyCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("ReadyCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHookError(t *testing.T) {
	app := newApp(t)
	app.OnStart(func(context.Context) error { return fmt.Errorf("boom") })
	if err := app.RunTask(context.Background(), func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected hook error")
	}
}
