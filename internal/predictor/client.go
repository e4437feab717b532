// Package predictor talks to the external scoring models.
//
// The models are served over HTTP, one endpoint per capability. Every
// request carries the schema version and field names of the vector so the
// server can refuse a vector it was not fit against.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"finadvisor/internal/breaker"
	"finadvisor/internal/core"
	"finadvisor/internal/features"
)

// Endpoint paths relative to the predictor base URL.
const (
	PathBillDue         = "/score/bill_due"
	PathExpenseCategory = "/score/expense_category"
	PathLowBalance      = "/score/low_balance"
)

const maxResponseBytes = 1 << 20

// ScoreRequest is the JSON body sent to every endpoint.
type ScoreRequest struct {
	SchemaVersion string    `json:"schema_version"`
	Fields        []string  `json:"fields"`
	Values        []float64 `json:"values"`
	Scaled        bool      `json:"scaled"`
}

// ScoreResponse is the JSON body returned by the endpoints. Binary models
// fill Probability, the category model fills Probabilities.
type ScoreResponse struct {
	SchemaVersion string    `json:"schema_version,omitempty"`
	Probability   *float64  `json:"probability,omitempty"`
	Probabilities []float64 `json:"probabilities,omitempty"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Config configures the HTTP client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Breaker breaker.Config
}

// Client scores vectors against the remote models. It checks every vector
// against its schema before sending it and fails fast through a circuit
// breaker when the service keeps failing.
type Client struct {
	base    string
	schema  features.Schema
	h       *http.Client
	breaker *breaker.Breaker
}

// NewClient creates a client bound to schema.
func NewClient(cfg Config, schema features.Schema) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("predictor base URL is required")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base:    base,
		schema:  schema,
		h:       &http.Client{Timeout: timeout},
		breaker: breaker.New("predictor", cfg.Breaker),
	}, nil
}

// ScoreBillDue implements services.Predictor.
func (c *Client) ScoreBillDue(ctx context.Context, v features.Vector) (float64, error) {
	resp, err := c.score(ctx, PathBillDue, v)
	if err != nil {
		return 0, err
	}
	return probability(PathBillDue, resp)
}

// ScoreExpenseCategory implements services.Predictor.
func (c *Client) ScoreExpenseCategory(ctx context.Context, v features.Vector) ([]float64, error) {
	resp, err := c.score(ctx, PathExpenseCategory, v)
	if err != nil {
		return nil, err
	}
	if len(resp.Probabilities) == 0 {
		return nil, fmt.Errorf("%s: %w: response has no probabilities", PathExpenseCategory, core.ErrPredictorUnavailable)
	}
	return resp.Probabilities, nil
}

// ScoreLowBalance implements services.Predictor.
func (c *Client) ScoreLowBalance(ctx context.Context, v features.Vector) (float64, error) {
	resp, err := c.score(ctx, PathLowBalance, v)
	if err != nil {
		return 0, err
	}
	return probability(PathLowBalance, resp)
}

// Ready reports whether the circuit to the predictor service is closed.
func (c *Client) Ready() bool {
	return !c.breaker.IsOpen()
}

func (c *Client) score(ctx context.Context, path string, v features.Vector) (ScoreResponse, error) {
	if v.Scaled {
		if v.SchemaVersion != c.schema.Version || v.Len() != c.schema.Len() {
			return ScoreResponse{}, fmt.Errorf("%s: %w: scaled vector does not match schema %s",
				path, core.ErrSchemaMismatch, c.schema.Version)
		}
	} else if err := features.CheckSchema(v, c.schema); err != nil {
		return ScoreResponse{}, fmt.Errorf("%s: %w", path, err)
	}

	body, err := json.Marshal(ScoreRequest{
		SchemaVersion: v.SchemaVersion,
		Fields:        v.Fields,
		Values:        v.Values,
		Scaled:        v.Scaled,
	})
	if err != nil {
		return ScoreResponse{}, fmt.Errorf("%s: marshal request: %w", path, err)
	}

	var (
		out      ScoreResponse
		rejected error
	)
	start := time.Now()
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.post(ctx, path, body)
		if errors.Is(err, core.ErrSchemaMismatch) {
			// The model is up; it refused the vector.
			rejected = err
			return nil
		}
		return err
	})
	if err == nil {
		err = rejected
	}
	if err != nil {
		slog.WarnContext(ctx, "Predictor call failed",
			"path", path,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		if errors.Is(err, core.ErrSchemaMismatch) {
			return ScoreResponse{}, fmt.Errorf("%s: %w", path, err)
		}
		return ScoreResponse{}, fmt.Errorf("%s: %w: %w", path, core.ErrPredictorUnavailable, err)
	}

	if out.SchemaVersion != "" && out.SchemaVersion != v.SchemaVersion {
		return ScoreResponse{}, fmt.Errorf("%s: %w: model answered for schema %q, sent %q",
			path, core.ErrSchemaMismatch, out.SchemaVersion, v.SchemaVersion)
	}

	slog.DebugContext(ctx, "Predictor call",
		"path", path,
		"duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (ScoreResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return ScoreResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.h.Do(req)
	if err != nil {
		return ScoreResponse{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ScoreResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.Unmarshal(data, &e)
		if e.Code == core.CodeSchemaMismatch {
			return ScoreResponse{}, fmt.Errorf("%w: %s", core.ErrSchemaMismatch, e.Error)
		}
		return ScoreResponse{}, fmt.Errorf("predictor %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out ScoreResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return ScoreResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func probability(path string, resp ScoreResponse) (float64, error) {
	if resp.Probability == nil {
		return 0, fmt.Errorf("%s: %w: response has no probability", path, core.ErrPredictorUnavailable)
	}
	return *resp.Probability, nil
}
