package portal

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// StatusClient is the part of the CKAN client the checker needs.
type StatusClient interface {
	StatusShow(ctx context.Context, serverURL string) (json.RawMessage, error)
}

// Result is the outcome of one status_show check.
type Result struct {
	Portal   string        `json:"portal"`
	URL      string        `json:"url"`
	OK       bool          `json:"ok"`
	Version  string        `json:"ckan_version,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Checker calls status_show on every registered portal and logs which ones
// answer. Results are not persisted.
type Checker struct {
	registry *Registry
	client   StatusClient
	logger   *slog.Logger
	interval time.Duration
}

// NewChecker creates a Checker that will check portals every interval.
func NewChecker(registry *Registry, client StatusClient, logger *slog.Logger, interval time.Duration) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		registry: registry,
		client:   client,
		logger:   logger,
		interval: interval,
	}
}

// Start runs an immediate check then repeats every interval until ctx is cancelled.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)
	if c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll checks every portal in registry order and returns the results.
func (c *Checker) CheckAll(ctx context.Context) []Result {
	portals := c.registry.Portals()
	if len(portals) == 0 {
		return nil
	}

	results := make([]Result, 0, len(portals))
	var ok, failed int
	for _, p := range portals {
		if ctx.Err() != nil {
			break
		}

		res := c.checkOne(ctx, p)
		results = append(results, res)

		if res.OK {
			ok++
		} else {
			failed++
			c.logger.Warn("portal unreachable",
				"portal", p.Name,
				"url", p.APIURL,
				"error", res.Error,
			)
		}
	}

	c.logger.Info("portal check complete", "total", ok+failed, "ok", ok, "failed", failed)
	return results
}

func (c *Checker) checkOne(ctx context.Context, p Portal) Result {
	start := time.Now()
	raw, err := c.client.StatusShow(ctx, p.APIURL)
	res := Result{
		Portal:   p.Name,
		URL:      p.APIURL,
		Duration: time.Since(start),
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}

	var status struct {
		CKANVersion string `json:"ckan_version"`
	}
	_ = json.Unmarshal(raw, &status)
	res.OK = true
	res.Version = status.CKANVersion
	return res
}
