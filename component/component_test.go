package component

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/voxkit/observability"
	"github.com/kbukum/voxkit/provider"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	optional   bool
	startErr   error
	stopErr    error
	health     observability.Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string   { return m.name }
func (m *mockComponent) Optional() bool { return m.optional }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) observability.Health {
	return m.health
}

func up(name string) observability.Health {
	return observability.Health{Name: name, Status: observability.HealthStatusUp}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(&mockComponent{name: "models"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "models"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockComponent{name: "models"})

	got := r.Get("models")
	if got == nil || got.Name() != "models" {
		t.Fatalf("expected registered component, got %v", got)
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unregistered component")
	}
}

func TestStartAll_Order(t *testing.T) {
	r := NewRegistry(nil)
	order := []string{}
	r.Register(&mockComponent{name: "models", startOrder: &order})
	r.Register(&mockComponent{name: "http-server", startOrder: &order})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if len(order) != 2 || order[0] != "models" || order[1] != "http-server" {
		t.Errorf("expected start order [models, http-server], got %v", order)
	}
}

func TestStartAll_StopsAtFirstError(t *testing.T) {
	r := NewRegistry(nil)
	order := []string{}
	stops := []string{}
	r.Register(&mockComponent{name: "models", startOrder: &order, stopOrder: &stops})
	r.Register(&mockComponent{name: "kafka", startOrder: &order, startErr: fmt.Errorf("connection refused")})
	r.Register(&mockComponent{name: "http-server", startOrder: &order})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected error from StartAll")
	}
	if len(order) != 2 {
		t.Errorf("expected start to stop after kafka, got %v", order)
	}

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(stops) != 1 || stops[0] != "models" {
		t.Errorf("expected only models to be stopped, got %v", stops)
	}
}

func TestStopAll_ReverseOrder(t *testing.T) {
	r := NewRegistry(nil)
	order := []string{}
	r.Register(&mockComponent{name: "models", stopOrder: &order})
	r.Register(&mockComponent{name: "kafka", stopOrder: &order})
	r.Register(&mockComponent{name: "http-server", stopOrder: &order})

	r.StartAll(context.Background())
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 3 || order[0] != "http-server" || order[1] != "kafka" || order[2] != "models" {
		t.Errorf("expected reverse stop order, got %v", order)
	}
}

func TestStopAll_SkipsUnstarted(t *testing.T) {
	r := NewRegistry(nil)
	order := []string{}
	r.Register(&mockComponent{name: "models", stopOrder: &order})

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected 0 stops for unstarted components, got %d", len(order))
	}
}

func TestStopAll_JoinsErrors(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&mockComponent{name: "models", stopErr: fmt.Errorf("close failed")})
	r.Register(&mockComponent{name: "kafka", stopErr: fmt.Errorf("flush failed")})
	r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected error from StopAll")
	}
	if msg := err.Error(); !strings.Contains(msg, "models") || !strings.Contains(msg, "kafka") {
		t.Errorf("expected both failures in %q", msg)
	}
}

func TestServiceHealth(t *testing.T) {
	tests := []struct {
		name       string
		components []*mockComponent
		want       observability.HealthStatus
	}{
		{
			name:       "all up",
			components: []*mockComponent{{name: "models", health: up("models")}, {name: "http-server", health: up("http-server")}},
			want:       observability.HealthStatusUp,
		},
		{
			name: "required down",
			components: []*mockComponent{
				{name: "models", health: observability.Health{Name: "models", Status: observability.HealthStatusDown}},
				{name: "http-server", health: up("http-server")},
			},
			want: observability.HealthStatusDown,
		},
		{
			name: "optional down degrades",
			components: []*mockComponent{
				{name: "models", health: up("models")},
				{name: "kafka", optional: true, health: observability.Health{Name: "kafka", Status: observability.HealthStatusDown}},
			},
			want: observability.HealthStatusDegraded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil)
			for _, c := range tt.components {
				r.Register(c)
			}
			sh := r.ServiceHealth(context.Background(), "voxkit", "dev")
			if sh.Status != tt.want {
				t.Errorf("expected %s, got %s", tt.want, sh.Status)
			}
			if len(sh.Components) != len(tt.components) {
				t.Errorf("expected %d components, got %d", len(tt.components), len(sh.Components))
			}
			if got := len(r.HealthAll(context.Background())); got != len(tt.components) {
				t.Errorf("HealthAll returned %d entries", got)
			}
		})
	}
}

func TestFuncs(t *testing.T) {
	started := false
	f := &Funcs{
		ComponentName: "telemetry",
		IsOptional:    true,
		OnStart:       func(context.Context) error { started = true; return nil },
	}
	if err := f.Start(context.Background()); err != nil || !started {
		t.Fatalf("expected OnStart to run, err=%v", err)
	}
	if err := f.Stop(context.Background()); err != nil {
		t.Errorf("nil OnStop should be a no-op, got %v", err)
	}
	h := f.Health(context.Background())
	if h.Name != "telemetry" || h.Status != observability.HealthStatusUp {
		t.Errorf("unexpected default health %+v", h)
	}
	if !isOptional(f) {
		t.Error("expected Funcs to report optional")
	}
}

func TestFromProviderHealth(t *testing.T) {
	tests := []struct {
		in   provider.Status
		want observability.HealthStatus
	}{
		{provider.StatusHealthy, observability.HealthStatusUp},
		{provider.StatusDegraded, observability.HealthStatusDegraded},
		{provider.StatusUnavailable, observability.HealthStatusDown},
	}
	for _, tt := range tests {
		h := FromProviderHealth("models", provider.HealthStatus{Status: tt.in, Message: "m"})
		if h.Status != tt.want || h.Name != "models" || h.Message != "m" {
			t.Errorf("%s: got %+v", tt.in, h)
		}
	}
}
