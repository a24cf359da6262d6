package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"controltower/internal/backoff"
	"controltower/internal/models"

	"golang.org/x/time/rate"
)

// HTTPConfig configures the live search index client
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	RateLimit  float64 // requests per second, 0 disables
	Policy     backoff.Policy
	ImportURIs []string
}

// HTTPBackend talks to a Discovery-Engine style REST search service
type HTTPBackend struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	limiter    *rate.Limiter
	policy     backoff.Policy
	importURIs []string
}

// NewHTTPBackend creates a live index client
func NewHTTPBackend(cfg HTTPConfig) (*HTTPBackend, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("search backend URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid search backend URL: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &HTTPBackend{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		client:     &http.Client{},
		limiter:    limiter,
		policy:     cfg.Policy,
		importURIs: cfg.ImportURIs,
	}, nil
}

type searchRequest struct {
	Query             string            `json:"query"`
	PageSize          int               `json:"pageSize"`
	ContentSearchSpec contentSearchSpec `json:"contentSearchSpec"`
}

type contentSearchSpec struct {
	SnippetSpec struct {
		ReturnSnippet bool `json:"returnSnippet"`
	} `json:"snippetSpec"`
	ExtractiveContentSpec struct {
		MaxExtractiveAnswerCount int `json:"maxExtractiveAnswerCount"`
	} `json:"extractiveContentSpec"`
}

type searchResponse struct {
	Results []struct {
		Document wireDocument `json:"document"`
	} `json:"results"`
}

type listResponse struct {
	Documents []wireDocument `json:"documents"`
}

type wireDocument struct {
	ID         string `json:"id"`
	StructData struct {
		Title string `json:"title"`
	} `json:"structData"`
	DerivedStructData struct {
		Snippets []json.RawMessage `json:"snippets"`
		Link     string            `json:"link"`
	} `json:"derivedStructData"`
	Content struct {
		URI string `json:"uri"`
	} `json:"content"`
}

// snippets accepts both {"snippet": "..."} objects and bare strings
func (d wireDocument) snippets() []string {
	var out []string
	for _, raw := range d.DerivedStructData.Snippets {
		var obj struct {
			Snippet string `json:"snippet"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil {
			out = append(out, obj.Snippet)
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// Search runs one query against the index
func (b *HTTPBackend) Search(ctx context.Context, query string, limit int) ([]RawHit, error) {
	body := searchRequest{Query: query, PageSize: limit}
	body.ContentSearchSpec.SnippetSpec.ReturnSnippet = true
	body.ContentSearchSpec.ExtractiveContentSpec.MaxExtractiveAnswerCount = 1

	return backoff.Do(ctx, b.policy, "index search", func(ctx context.Context) ([]RawHit, error) {
		var resp searchResponse
		if err := b.do(ctx, http.MethodPost, "/search", body, &resp); err != nil {
			return nil, err
		}

		hits := make([]RawHit, 0, len(resp.Results))
		for _, r := range resp.Results {
			d := r.Document
			hits = append(hits, RawHit{
				ID:          d.ID,
				StructTitle: d.StructData.Title,
				Snippets:    d.snippets(),
				ContentURI:  d.Content.URI,
				DerivedLink: d.DerivedStructData.Link,
			})
		}
		return hits, nil
	})
}

// List returns up to max indexed documents
func (b *HTTPBackend) List(ctx context.Context, max int) ([]models.IndexedDocument, error) {
	path := "/documents?pageSize=" + strconv.Itoa(max)

	return backoff.Do(ctx, b.policy, "index list", func(ctx context.Context) ([]models.IndexedDocument, error) {
		var resp listResponse
		if err := b.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}

		docs := make([]models.IndexedDocument, 0, len(resp.Documents))
		for _, d := range resp.Documents {
			if max > 0 && len(docs) >= max {
				break
			}
			title := d.StructData.Title
			if title == "" {
				title = "No Title"
			}
			uri := d.Content.URI
			if uri == "" {
				uri = "No URI"
			}
			docs = append(docs, models.IndexedDocument{ID: d.ID, Title: title, URI: uri})
		}
		return docs, nil
	})
}

// Import starts an incremental import of the configured source URIs.
// Not retried: a duplicate import request starts a second long-running operation.
func (b *HTTPBackend) Import(ctx context.Context) (string, error) {
	body := map[string]interface{}{
		"gcsSource": map[string]interface{}{
			"inputUris":  b.importURIs,
			"dataSchema": "content",
		},
		"reconciliationMode": "INCREMENTAL",
	}

	return backoff.Do(ctx, b.policy.Once(), "index import", func(ctx context.Context) (string, error) {
		var resp struct {
			Name string `json:"name"`
		}
		if err := b.do(ctx, http.MethodPost, "/documents:import", body, &resp); err != nil {
			return "", err
		}
		return resp.Name, nil
	})
}

// Ping checks the index answers a minimal listing
func (b *HTTPBackend) Ping(ctx context.Context) error {
	return b.do(ctx, http.MethodGet, "/documents?pageSize=1", nil, nil)
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, in, out interface{}) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("%w: index returned %d: %s", models.ErrBackendUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Warn("index response could not be decoded", "path", path, "error", err)
		return backoff.Permanent(fmt.Errorf("decode index response: %w", err))
	}
	return nil
}
