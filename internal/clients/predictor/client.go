package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/observability"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/envutil"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type Options struct {
	BaseURL string
	APIKey  string

	Timeout    time.Duration
	MaxRetries int

	HTTPClient *http.Client
	Metrics    *observability.Metrics
}

// Client talks to the match predictor service. It implements
// allocation.Predictor.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int

	httpClient *http.Client
	metrics    *observability.Metrics
}

var _ allocation.Predictor = (*Client)(nil)

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		timeout:    timeout,
		maxRetries: maxRetries,
		httpClient: hc,
		metrics:    opts.Metrics,
	}, nil
}

// NewFromEnv returns (nil, nil) when PREDICTOR_BASE_URL is unset; the
// engine then runs rule-only.
func NewFromEnv(log *logger.Logger, metrics *observability.Metrics) (*Client, error) {
	baseURL := envutil.String("PREDICTOR_BASE_URL", "", log)
	if baseURL == "" {
		return nil, nil
	}
	return New(Options{
		BaseURL:    baseURL,
		APIKey:     envutil.String("PREDICTOR_API_KEY", "", nil),
		Timeout:    time.Duration(envutil.Int("PREDICTOR_TIMEOUT_SECONDS", 5, log)) * time.Second,
		MaxRetries: envutil.Int("PREDICTOR_MAX_RETRIES", 1, log),
		Metrics:    metrics,
	})
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Predict(ctx context.Context, features allocation.Features) (allocation.Prediction, error) {
	preds, err := c.PredictBatch(ctx, []allocation.Features{features})
	if err != nil {
		return allocation.Prediction{}, err
	}
	return preds[0], nil
}

// PredictBatch scores many pairs in one round trip. The response must
// hold exactly one prediction per input, in order.
func (c *Client) PredictBatch(ctx context.Context, features []allocation.Features) ([]allocation.Prediction, error) {
	if len(features) == 0 {
		return []allocation.Prediction{}, nil
	}
	start := time.Now()
	var resp predictResponse
	err := c.doJSON(ctx, c.timeout, http.MethodPost, "/v1/predict", predictRequest{Pairs: features, IncludeConfidence: true}, &resp)
	if err == nil && len(resp.Predictions) != len(features) {
		err = fmt.Errorf("predict response length mismatch: got %d want %d", len(resp.Predictions), len(features))
	}
	c.metrics.ObservePredictor(predictStatus(err), time.Since(start))
	if err != nil {
		var herr *HTTPError
		if errors.As(err, &herr) && herr.StatusCode == http.StatusServiceUnavailable {
			return nil, fmt.Errorf("%w: %v", ErrModelNotTrained, err)
		}
		return nil, err
	}
	out := make([]allocation.Prediction, len(resp.Predictions))
	for i, p := range resp.Predictions {
		out[i] = allocation.Prediction{Score: p.Score, Confidence: p.Confidence}
	}
	return out, nil
}

// Status reports whether the predictor is reachable and has a trained
// model. A transport failure is reported as unavailable, not as an error.
func (c *Client) Status(ctx context.Context) Status {
	var resp statusResponse
	if err := c.doJSON(ctx, c.timeout, http.MethodGet, "/v1/status", nil, &resp); err != nil {
		return Status{Configured: true, BaseURL: c.baseURL, Error: err.Error()}
	}
	return Status{
		Configured:   true,
		Available:    true,
		BaseURL:      c.baseURL,
		ModelTrained: resp.ModelTrained,
		ModelVersion: strings.TrimSpace(resp.ModelVersion),
		Metrics:      resp.Metrics,
	}
}

func predictStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) doJSON(ctx context.Context, timeout time.Duration, method string, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	ctx2 := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx2, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx2.Err() != nil {
			return ctx2.Err()
		}

		req, err := http.NewRequestWithContext(ctx2, method, c.baseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return err
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				return readErr
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = parseHTTPError(resp.StatusCode, raw)
				// 4xx will not improve on retry.
				if resp.StatusCode < 500 {
					return lastErr
				}
			} else {
				if out == nil {
					return nil
				}
				return json.Unmarshal(raw, out)
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx2.Done():
				return ctx2.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return lastErr
}
