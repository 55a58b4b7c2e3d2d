package grounding

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superpoupe/backend/internal/domain"
)

const answer = `{
  "candidates": [{
    "content": {"role": "model", "parts": [{"text": "` + "```json\\n" + `[{\"name\": \"Leite Meio Gordo\", \"price\": 0.85}]"}, {"text": "\n` + "```" + `"}]},
    "groundingMetadata": {"groundingChunks": [
      {"web": {"uri": "https://www.continente.pt/leite", "title": "continente.pt"}},
      {"web": {"uri": "https://www.continente.pt/leite", "title": "continente.pt"}},
      {"web": {"uri": "https://www.continente.pt/lacticinios", "title": "Laticínios"}}
    ]}
  }]
}`

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := NewClient(Config{APIKey: "test-key", BaseURL: baseURL, RequestsPerMinute: 6000}, zerolog.Nop())
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{APIKey: "k"}, zerolog.Nop())

	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, DefaultModel, client.model)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestQueryCatalog_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/"+DefaultModel+":generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "continente.pt")
		assert.Contains(t, req.Contents[0].Parts[0].Text, `"Laticínios e Ovos"`)
		require.Len(t, req.Tools, 1)
		assert.NotNil(t, req.Tools[0].GoogleSearch)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, answer)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.QueryCatalog(context.Background(), domain.GroundingQuery{
		Store:    domain.StoreContinente,
		Category: "Laticínios e Ovos",
	})

	require.NoError(t, err)
	assert.Contains(t, resp.Text, "Leite Meio Gordo")
	assert.Equal(t, []domain.Citation{
		{Title: "continente.pt", URI: "https://www.continente.pt/leite"},
		{Title: "Laticínios", URI: "https://www.continente.pt/lacticinios"},
	}, resp.Sources)

	parsed, ok := ParseRecords(resp.Text).(Parsed)
	require.True(t, ok)
	require.Len(t, parsed.Records, 1)
	assert.Equal(t, "0.85", parsed.Records[0].Price.String())
}

func TestQueryCatalog_TargetHintPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt := req.Contents[0].Parts[0].Text
		assert.Contains(t, prompt, "lidl.pt")
		assert.Contains(t, prompt, `"Azeite Gallo 750 ml"`)
		io.WriteString(w, `{"candidates": []}`)
	}))
	defer server.Close()

	resp, err := newTestClient(t, server.URL).QueryCatalog(context.Background(), domain.GroundingQuery{
		Store:      domain.StoreLidl,
		TargetHint: "Azeite Gallo 750 ml",
	})

	require.NoError(t, err)
	assert.Empty(t, resp.Text)
}

func TestQueryCatalog_ServerError_Retries(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, answer)
	}))
	defer server.Close()

	resp, err := newTestClient(t, server.URL).QueryCatalog(context.Background(), domain.GroundingQuery{Store: domain.StoreAldi})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueryCatalog_AllRetriesFail(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	resp, err := newTestClient(t, server.URL).QueryCatalog(context.Background(), domain.GroundingQuery{Store: domain.StoreAldi})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrGroundingFailure)
	assert.Equal(t, int32(maxAttempts), atomic.LoadInt32(&attempts))
}

func TestQueryCatalog_QuotaExhausted_NoRetry(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "429", status: http.StatusTooManyRequests, body: `{"error": {"code": 429, "message": "Quota exceeded", "status": "RESOURCE_EXHAUSTED"}}`},
		{name: "status field only", status: http.StatusForbidden, body: `{"error": {"code": 403, "message": "out of quota", "status": "RESOURCE_EXHAUSTED"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL).QueryCatalog(context.Background(), domain.GroundingQuery{Store: domain.StoreMakro})

			assert.ErrorIs(t, err, domain.ErrQuotaExhausted)
			assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
		})
	}
}

func TestQueryCatalog_ClientError_NoRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).QueryCatalog(context.Background(), domain.GroundingQuery{Store: domain.StoreMakro})

	assert.ErrorIs(t, err, domain.ErrGroundingFailure)
	assert.Contains(t, err.Error(), "API key not valid")
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestQueryCatalog_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "invalid json")
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).QueryCatalog(context.Background(), domain.GroundingQuery{Store: domain.StoreLidl})

	assert.ErrorIs(t, err, domain.ErrGroundingFailure)
}

func TestQueryCatalog_NoAPIKey(t *testing.T) {
	client := NewClient(Config{}, zerolog.Nop())

	_, err := client.QueryCatalog(context.Background(), domain.GroundingQuery{Store: domain.StoreLidl})

	assert.ErrorIs(t, err, domain.ErrGroundingDisabled)
}

func TestQueryCatalog_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, answer)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, server.URL).QueryCatalog(ctx, domain.GroundingQuery{Store: domain.StoreLidl})

	assert.Error(t, err)
}

func TestReadLimitedBody(t *testing.T) {
	body, err := readLimitedBody(strings.NewReader(strings.Repeat("0123456789", 100)), 100)
	require.NoError(t, err)
	assert.Len(t, body, 100)
}
