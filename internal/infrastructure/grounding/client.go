package grounding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/superpoupe/backend/internal/domain"
)

const (
	// DefaultBaseURL is the Gemini REST endpoint
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultModel is the model used for grounded catalog queries
	DefaultModel = "gemini-2.5-flash"

	maxAttempts      = 3
	maxResponseBytes = 4 << 20
	maxErrorBytes    = 2048
)

// storeSites maps each retailer to the site the model is asked to search
var storeSites = map[domain.StoreID]string{
	domain.StoreContinente: "continente.pt",
	domain.StorePingoDoce:  "pingodoce.pt",
	domain.StoreLidl:       "lidl.pt",
	domain.StoreAldi:       "aldi.pt",
	domain.StoreMakro:      "makro.pt",
}

// Config holds configuration for the grounding client
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
}

// Client queries Gemini with Google Search grounding
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	logger      zerolog.Logger
}

// NewClient creates a new grounding client
func NewClient(config Config, logger zerolog.Logger) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	rpm := config.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      config.APIKey,
		baseURL:     baseURL,
		model:       model,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rpm)/60), 2),
		backoff:     exponentialBackoff,
		logger:      logger.With().Str("component", "grounding").Logger(),
	}
}

type part struct {
	Text string `json:"text,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Tools    []tool    `json:"tools,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content           content `json:"content"`
		GroundingMetadata struct {
			GroundingChunks []struct {
				Web struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// QueryCatalog asks the model to list a store section (or to find the product
// named by TargetHint) and returns its raw text with the cited sources.
func (c *Client) QueryCatalog(ctx context.Context, query domain.GroundingQuery) (*domain.GroundingResponse, error) {
	if c.apiKey == "" {
		return nil, domain.ErrGroundingDisabled
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: buildPrompt(query)}}}},
		Tools:    []tool{{GoogleSearch: &struct{}{}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, endpoint, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("grounding request failed")
			lastErr = err
			if !c.wait(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		data, readErr := readLimitedBody(resp.Body, maxResponseBytes)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: reading response: %v", domain.ErrGroundingFailure, readErr)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := classifyError(resp.StatusCode, data)
			c.logger.Warn().
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Err(apiErr).
				Msg("grounding API error")
			if !shouldRetry(resp.StatusCode) {
				return nil, apiErr
			}
			lastErr = apiErr
			if !c.wait(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		var decoded generateResponse
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrGroundingFailure, err)
		}

		result := toGroundingResponse(&decoded)
		c.logger.Debug().
			Str("store", string(query.Store)).
			Str("category", query.Category).
			Int("sources", len(result.Sources)).
			Msg("grounding answer received")
		return result, nil
	}

	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, endpoint string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("User-Agent", "SuperPoupe/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGroundingFailure, err)
	}
	return resp, nil
}

// wait sleeps for the backoff of attempt; false means ctx ended first
func (c *Client) wait(ctx context.Context, attempt int) bool {
	if attempt >= maxAttempts {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.backoff(attempt)):
		return true
	}
}

// shouldRetry reports whether a status is transient. 429 means the quota is
// spent and is not retried.
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func classifyError(statusCode int, body []byte) error {
	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	if statusCode == http.StatusTooManyRequests || apiErr.Error.Status == "RESOURCE_EXHAUSTED" {
		return fmt.Errorf("%w: %s", domain.ErrQuotaExhausted, apiErr.Error.Message)
	}

	msg := apiErr.Error.Message
	if msg == "" {
		msg = string(body)
		if len(msg) > maxErrorBytes {
			msg = msg[:maxErrorBytes]
		}
	}
	return fmt.Errorf("%w: status %d: %s", domain.ErrGroundingFailure, statusCode, msg)
}

func toGroundingResponse(resp *generateResponse) *domain.GroundingResponse {
	result := &domain.GroundingResponse{}
	if len(resp.Candidates) == 0 {
		return result
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, p := range candidate.Content.Parts {
		text.WriteString(p.Text)
	}
	result.Text = text.String()

	seen := make(map[string]bool)
	for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
		if chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		result.Sources = append(result.Sources, domain.Citation{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return result
}

func buildPrompt(query domain.GroundingQuery) string {
	site := storeSites[query.Store]
	if site == "" {
		site = string(query.Store)
	}

	const format = `[{"name": "string", "price": number, "unit": "string", "code": "string"}]`
	if hint := strings.TrimSpace(query.TargetHint); hint != "" {
		return fmt.Sprintf("Utilize o Google Search para localizar este artigo no site %s: %q. Responda APENAS com um JSON Array: %s", site, hint, format)
	}
	return fmt.Sprintf("Utilize o Google Search para listar artigos da categoria %q no site %s, com o preço atual. Responda APENAS com um JSON Array: %s", query.Category, site, format)
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
