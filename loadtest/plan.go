package loadtest

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultURL is the target used when a plan names none.
	DefaultURL = "http://localhost:8000/time"
	// DefaultRequests matches the number of requests fired by default.
	DefaultRequests = 100
	// DefaultConcurrency is the default number of requests in flight.
	DefaultConcurrency = 100
	// DefaultTimeout bounds each request.
	DefaultTimeout = 10 * time.Second
)

var (
	// ErrInvalidPlan is returned when a plan fails validation.
	ErrInvalidPlan = errors.New("invalid plan")
)

// Plan describes one load-test run.
type Plan struct {
	URL         string            `yaml:"url" json:"url"`
	Requests    int               `yaml:"requests" json:"requests"`
	Concurrency int               `yaml:"concurrency" json:"concurrency"`
	Timeout     time.Duration     `yaml:"timeout" json:"timeout"`
	KeepAlive   bool              `yaml:"keep_alive" json:"keep_alive"`
	Headers     map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// WithDefaults returns a copy of the plan with zero values replaced.
func (p Plan) WithDefaults() Plan {
	if p.URL == "" {
		p.URL = DefaultURL
	}
	if p.Requests <= 0 {
		p.Requests = DefaultRequests
	}
	if p.Concurrency <= 0 {
		p.Concurrency = DefaultConcurrency
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	return p
}

// Validate checks the target URL.
func (p Plan) Validate() error {
	u, err := url.Parse(p.URL)
	if err != nil {
		return fmt.Errorf("%w: url: %w", ErrInvalidPlan, err)
	}
	if u.Scheme != "http" {
		return fmt.Errorf("%w: url must start with http://", ErrInvalidPlan)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrInvalidPlan)
	}
	return nil
}

// LoadPlan reads a YAML plan file.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("parse plan: %w", err)
	}
	return p, nil
}

// Save writes the plan as YAML.
func (p Plan) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}
