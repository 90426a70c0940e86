// Package loadtest fires concurrent GET requests at a hearth server and
// summarizes status codes, throughput and latency.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Runner executes plans.
type Runner struct {
	httpClient *http.Client
}

// Option configures a Runner.
type Option func(*Runner)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) {
		r.httpClient = client
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result summarizes a run.
type Result struct {
	URL         string         `json:"url"`
	Requests    int            `json:"requests"`
	Concurrency int            `json:"concurrency"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	StatusCodes map[int]int    `json:"status_codes"`
	Errors      map[string]int `json:"errors,omitempty"`
	Bytes       int64          `json:"bytes"`
	Elapsed     time.Duration  `json:"elapsed"`
	Latency     Latency        `json:"latency"`
}

// RequestsPerSecond returns the completed request rate over the run.
func (r *Result) RequestsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Succeeded+r.Failed) / r.Elapsed.Seconds()
}

// Latency holds request latency statistics.
type Latency struct {
	Min  time.Duration `json:"min"`
	Mean time.Duration `json:"mean"`
	P50  time.Duration `json:"p50"`
	P99  time.Duration `json:"p99"`
	Max  time.Duration `json:"max"`
}

type sample struct {
	status  int
	bytes   int64
	latency time.Duration
	err     error
}

// Run sends plan.Requests GET requests with at most plan.Concurrency in
// flight. Individual request failures are counted, not returned; Run only
// fails on an invalid plan or a cancelled context.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Result, error) {
	plan = plan.WithDefaults()
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	client := r.httpClient
	if client == nil {
		client = &http.Client{
			Timeout: plan.Timeout,
			Transport: &http.Transport{
				DisableKeepAlives:   !plan.KeepAlive,
				MaxIdleConnsPerHost: plan.Concurrency,
			},
		}
	}

	var (
		mu      sync.Mutex
		samples = make([]sample, 0, plan.Requests)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(plan.Concurrency)

	start := time.Now()
	for range plan.Requests {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s := r.hit(gctx, client, plan)
			mu.Lock()
			samples = append(samples, s)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load test interrupted: %w", err)
	}

	return summarize(plan, samples, elapsed), nil
}

func (r *Runner) hit(ctx context.Context, client *http.Client, plan Plan) sample {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, plan.URL, nil)
	if err != nil {
		return sample{err: err}
	}
	for k, v := range plan.Headers {
		req.Header.Set(k, v)
	}
	if plan.KeepAlive {
		req.Header.Set("Connection", "keep-alive")
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return sample{err: err, latency: time.Since(start)}
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.Copy(io.Discard, resp.Body)
	return sample{status: resp.StatusCode, bytes: n, latency: time.Since(start), err: err}
}

func summarize(plan Plan, samples []sample, elapsed time.Duration) *Result {
	res := &Result{
		URL:         plan.URL,
		Requests:    plan.Requests,
		Concurrency: plan.Concurrency,
		StatusCodes: make(map[int]int),
		Errors:      make(map[string]int),
		Elapsed:     elapsed,
	}

	latencies := make([]time.Duration, 0, len(samples))
	var total time.Duration
	for _, s := range samples {
		if s.err != nil {
			res.Failed++
			res.Errors[s.err.Error()]++
			continue
		}
		res.Succeeded++
		res.StatusCodes[s.status]++
		res.Bytes += s.bytes
		latencies = append(latencies, s.latency)
		total += s.latency
	}

	if len(latencies) > 0 {
		slices.Sort(latencies)
		res.Latency = Latency{
			Min:  latencies[0],
			Mean: total / time.Duration(len(latencies)),
			P50:  percentile(latencies, 50),
			P99:  percentile(latencies, 99),
			Max:  latencies[len(latencies)-1],
		}
	}
	return res
}

// percentile uses the nearest-rank method on sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
