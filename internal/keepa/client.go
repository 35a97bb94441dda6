package keepa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"keepa-tools/internal/batch"
	"keepa-tools/internal/governor"
	"keepa-tools/internal/model"
)

// DefaultBaseURL is the public provider endpoint.
const DefaultBaseURL = "https://api.keepa.com"

// Options parameterise the provider client.
type Options struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	// HTTPClient overrides the transport; the governor owns per-call timeouts.
	HTTPClient *http.Client
}

// Client talks to the provider. Every request passes through the governor;
// identifier lists are chunked by the batch requester.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	http    *http.Client
	baseURL string
	gov     *governor.Governor
	batcher *batch.Requester
}

// NewClient constructs a provider client.
func NewClient(opts Options, gov *governor.Governor, batcher *batch.Requester, logger zerolog.Logger) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "keepa_client").Logger(),
		http:    httpClient,
		baseURL: baseURL,
		gov:     gov,
		batcher: batcher,
	}
}

// APIError is a non-success reply other than quota exhaustion.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("keepa api error (%d) %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("keepa api error (%d): %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the provider failed transiently.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// get issues one GET through the governor and decodes the reply into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, cost int, out any) error {
	return c.gov.Do(ctx, path, cost, func(ctx context.Context) (governor.Report, error) {
		requestID := uuid.NewString()
		status, body, err := c.do(ctx, path, params, requestID)
		if err != nil {
			return governor.Report{}, err
		}

		var env envelope
		envErr := json.Unmarshal(body, &env)
		report := governor.Report{Budget: env.budget()}

		if status == http.StatusTooManyRequests {
			report.Exhausted = true
			c.logger.Debug().Str("request_id", requestID).Str("path", path).Msg("token budget exhausted")
			return report, nil
		}
		if status != http.StatusOK {
			return report, parseHTTPError(status, body)
		}
		if envErr != nil {
			return report, &model.DecodeError{Field: path, Reason: envErr.Error()}
		}
		if env.Error != nil {
			return report, &APIError{StatusCode: status, Type: env.Error.Type, Message: env.Error.Message, Body: body}
		}
		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return report, &model.DecodeError{Field: path, Reason: err.Error()}
			}
		}

		evt := c.logger.Debug().
			Str("request_id", requestID).
			Str("path", path).
			Int("cost", cost).
			Int("consumed", env.TokensConsumed)
		if report.Budget != nil {
			evt = evt.Int("tokens_left", report.Budget.TokensLeft).Dur("refill_in", report.Budget.RefillIn)
		}
		evt.Msg("provider call completed")
		return report, nil
	})
}

func (c *Client) do(ctx context.Context, path string, params url.Values, requestID string) (int, []byte, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("key", c.opts.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "keepa-tools/1.0")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: read response: %w", path, err)
	}
	return resp.StatusCode, body, nil
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func parseHTTPError(status int, payload []byte) error {
	var env struct {
		Error *errorBody `json:"error"`
	}
	if err := json.Unmarshal(payload, &env); err == nil && env.Error != nil {
		msg := env.Error.Message
		if msg == "" {
			msg = env.Error.Details
		}
		return &APIError{StatusCode: status, Type: env.Error.Type, Message: msg, Body: payload}
	}
	msg := strings.TrimSpace(string(payload))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg, Body: payload}
}
