// Package nlu is a client for the Watson Natural Language Understanding
// analyze endpoint, limited to the concepts and keywords features.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/okian/boxskill/internal/domain/model"
	"github.com/okian/boxskill/internal/httputil"
	"github.com/okian/boxskill/pkg/logger"
	"github.com/okian/boxskill/pkg/metrics"
)

const (
	// DefaultVersion is the API version date sent with every call.
	DefaultVersion = "2019-05-16"

	defaultLanguage = "en"
	analyzePath     = "/v1/analyze"
)

// Features selects what to extract. A limit of zero leaves the service default.
type Features struct {
	Concepts     bool
	ConceptLimit int
	Keywords     bool
	KeywordLimit int
}

// Analyzer extracts concepts and keywords from text.
type Analyzer interface {
	Analyze(ctx context.Context, text string, features Features) (model.Enrichment, error)
}

// Client calls the NLU service.
type Client struct {
	baseURL    string
	apiKey     string
	iamURL     string
	version    string
	language   string
	attempts   int
	httpClient *http.Client
	tokens     oauth2.TokenSource
	logger     logger.Logger
}

var _ Analyzer = (*Client)(nil)

// NewClient creates a client for the service instance at serviceURL. apiKey
// is exchanged for IAM tokens unless WithTokenSource is given.
func NewClient(serviceURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(serviceURL, "/"),
		apiKey:     apiKey,
		iamURL:     DefaultIAMURL,
		version:    DefaultVersion,
		language:   defaultLanguage,
		attempts:   1,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = NewIAMTokenSource(c.iamURL, c.apiKey, c.httpClient, c.attempts)
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}
	return c
}

type limit struct {
	Limit int `json:"limit,omitempty"`
}

type analyzeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Features struct {
		Concepts *limit `json:"concepts,omitempty"`
		Keywords *limit `json:"keywords,omitempty"`
	} `json:"features"`
}

type textItem struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Language string     `json:"language"`
	Concepts []textItem `json:"concepts"`
	Keywords []textItem `json:"keywords"`
}

// Analyze sends text in a single call and returns the texts of the returned
// concepts and keywords in service order. Results for a disabled feature are
// dropped.
func (c *Client) Analyze(ctx context.Context, text string, f Features) (model.Enrichment, error) {
	if !f.Concepts && !f.Keywords {
		return model.Enrichment{}, ErrNoFeature
	}

	var body analyzeRequest
	body.Text = text
	body.Language = c.language
	if f.Concepts {
		body.Features.Concepts = &limit{Limit: f.ConceptLimit}
	}
	if f.Keywords {
		body.Features.Keywords = &limit{Limit: f.KeywordLimit}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return model.Enrichment{}, fmt.Errorf("%w: %w", ErrAnalyze, err)
	}

	endpoint := c.baseURL + analyzePath + "?" + url.Values{"version": {c.version}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return model.Enrichment{}, fmt.Errorf("%w: %w", ErrAnalyze, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), c.tokens)

	start := time.Now()
	resp, err := httputil.Do(ctx, client, req, c.attempts, func(n uint, err error) {
		c.logger.Warn(ctx, "retrying nlu analyze", logger.Int("attempt", int(n)+1), logger.Error(err))
	})
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordRemoteCall("nlu", "analyze", "error", elapsed)
		return model.Enrichment{}, fmt.Errorf("%w: %w", ErrAnalyze, err)
	}
	defer resp.Body.Close()
	metrics.RecordRemoteCall("nlu", "analyze", "ok", elapsed)

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.Enrichment{}, fmt.Errorf("%w: decode response: %w", ErrAnalyze, err)
	}

	var e model.Enrichment
	if f.Concepts {
		e.Concepts = texts(out.Concepts)
	}
	if f.Keywords {
		e.Keywords = texts(out.Keywords)
	}
	c.logger.Debug(ctx, "nlu analyze done",
		logger.Int("text_len", len(text)),
		logger.Int("concepts", len(e.Concepts)),
		logger.Int("keywords", len(e.Keywords)),
	)
	return e, nil
}

func texts(items []textItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Text)
	}
	return out
}
