package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// PrometheusSource reads node utilization from a Prometheus server using a
// configurable instant query.
type PrometheusSource struct {
	client v1.API
	url    string
	query  string
}

// NewPrometheusSource creates a Prometheus-backed utilization source. The
// query must evaluate to a vector whose samples sum to a 0..1 fraction.
func NewPrometheusSource(url, query string) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{
		Address: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &PrometheusSource{
		client: v1.NewAPI(client),
		url:    url,
		query:  query,
	}, nil
}

// Utilization evaluates the configured query and clamps the result to 0..1.
func (p *PrometheusSource) Utilization(ctx context.Context) (float64, error) {
	u, err := p.querySingle(ctx, p.query)
	if err != nil {
		return 0, err
	}

	if u < 0 {
		u = 0
	}
	if u > 1 {
		u = 1
	}
	return u, nil
}

func (p *PrometheusSource) querySingle(ctx context.Context, query string) (float64, error) {
	result, warnings, err := p.client.Query(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}

	if len(warnings) > 0 {
		fmt.Printf("[WARN] Prometheus: %v\n", warnings)
	}

	vector, ok := result.(model.Vector)
	if !ok || len(vector) == 0 {
		return 0, fmt.Errorf("no data for query: %s", query)
	}

	sum := 0.0
	for _, sample := range vector {
		sum += float64(sample.Value)
	}

	return sum, nil
}

// IsAvailable reports whether the Prometheus server answers a trivial query.
func (p *PrometheusSource) IsAvailable(ctx context.Context) bool {
	_, _, err := p.client.Query(ctx, "up", time.Now())
	return err == nil
}

func (p *PrometheusSource) Name() string {
	return "Prometheus"
}
