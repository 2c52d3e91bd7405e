// Package health runs dependency checks concurrently and serves the result
// as liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Status represents the health state of a component or the system overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

const defaultCheckTimeout = 2 * time.Second

// Check probes a single dependency.
type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the aggregated result of all component checks.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type registration struct {
	check    Check
	optional bool
}

// Checker manages registered health checks and runs them concurrently.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]registration
	timeout time.Duration
	logger  *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]registration),
		timeout: defaultCheckTimeout,
		logger:  slog.Default().With("component", "health"),
	}
}

// SetTimeout bounds each individual check.
func (c *Checker) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// Register adds a check whose failure takes the service down.
func (c *Checker) Register(name string, check Check) {
	c.register(name, check, false)
}

// RegisterOptional adds a check for a dependency the service can run
// without, such as the result cache. Down is reported as degraded.
func (c *Checker) RegisterOptional(name string, check Check) {
	c.register(name, check, true)
}

func (c *Checker) register(name string, check Check, optional bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registration{check: check, optional: optional}
}

// Run executes all registered checks concurrently. The overall status is
// the worst component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]registration, len(c.checks))
	for name, reg := range c.checks {
		checks[name] = reg
	}
	timeout := c.timeout
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, reg := range checks {
		wg.Add(1)
		go func(name string, reg registration) {
			defer wg.Done()
			result := c.runOne(ctx, timeout, reg.check)
			if reg.optional && result.Status == StatusDown {
				result.Status = StatusDegraded
			}
			if result.Status != StatusUp {
				c.logger.Warn("health check failing", "check", name, "status", result.Status, "message", result.Message)
			}
			mu.Lock()
			report.Components[name] = result
			mu.Unlock()
		}(name, reg)
	}
	wg.Wait()

	for _, comp := range report.Components {
		switch comp.Status {
		case StatusDown:
			report.Status = StatusDown
			return report
		case StatusDegraded:
			report.Status = StatusDegraded
		}
	}
	return report
}

func (c *Checker) runOne(ctx context.Context, timeout time.Duration, check Check) ComponentHealth {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	done := make(chan ComponentHealth, 1)
	go func() { done <- check(ctx) }()

	var result ComponentHealth
	select {
	case result = <-done:
	case <-ctx.Done():
		result = ComponentHealth{Status: StatusDown, Message: fmt.Sprintf("check timed out: %v", ctx.Err())}
	}
	result.Latency = time.Since(start).Round(time.Millisecond).String()
	return result
}

// PingCheck adapts a dependency's ping function into a Check.
func PingCheck(ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// LiveHandler answers liveness probes. It reports alive whenever the process
// can serve HTTP.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers readiness probes: 200 only when every check is up.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status != StatusUp {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
