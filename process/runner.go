package process

import (
	"context"
	"os/exec"
	"time"

	"github.com/kbukum/voxkit/provider"
)

// RunnerConfig configures a Runner bound to one binary.
type RunnerConfig struct {
	// Binary is the executable every command of this runner uses.
	Binary string `yaml:"binary" mapstructure:"binary"`
	// Timeout bounds each run. Zero leaves only the caller's deadline.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// GracePeriod is applied to commands that do not set their own.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

// Runner runs one binary repeatedly through a persistent resilience chain,
// so repeated crashes trip its circuit breaker. It is a provider.Provider
// whose availability is whether the binary can be found.
type Runner struct {
	config RunnerConfig
	state  *provider.ResilienceState
}

// NewRunner creates a Runner. An empty resilience config runs commands directly.
func NewRunner(cfg RunnerConfig, res provider.ResilienceConfig) *Runner {
	return &Runner{config: cfg, state: provider.BuildResilience(res)}
}

// Name returns the binary name.
func (r *Runner) Name() string {
	return r.config.Binary
}

// IsAvailable reports whether the binary resolves on PATH.
func (r *Runner) IsAvailable(_ context.Context) bool {
	_, err := exec.LookPath(r.config.Binary)
	return err == nil
}

// Health reports availability along with the circuit breaker state.
func (r *Runner) Health(ctx context.Context) provider.HealthStatus {
	details := map[string]any{"circuit": r.state.CircuitState().String()}
	path, err := exec.LookPath(r.config.Binary)
	if err != nil {
		return provider.HealthStatus{Status: provider.StatusUnavailable, Message: err.Error(), Details: details}
	}
	details["path"] = path
	return provider.HealthStatus{Status: provider.StatusHealthy, Details: details}
}

// Run executes the runner's binary with args.
func (r *Runner) Run(ctx context.Context, args ...string) (*Result, error) {
	return r.RunCommand(ctx, Command{Args: args})
}

// RunCommand executes cmd, forcing the runner's binary and defaults.
func (r *Runner) RunCommand(ctx context.Context, cmd Command) (*Result, error) {
	cmd.Binary = r.config.Binary
	if cmd.GracePeriod == 0 {
		cmd.GracePeriod = r.config.GracePeriod
	}
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	return provider.ExecuteWithResilience(ctx, r.state, func() (*Result, error) {
		return Run(ctx, cmd)
	})
}
