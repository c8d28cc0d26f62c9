package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/okian/boxskill/internal/domain/cards"
	"github.com/okian/boxskill/internal/domain/model"
	"github.com/okian/boxskill/internal/httputil"
	"github.com/okian/boxskill/pkg/logger"
	"github.com/okian/boxskill/pkg/metrics"
)

const (
	// DefaultBaseURL is the Box content API.
	DefaultBaseURL = "https://api.box.com/2.0"

	metadataScope   = "global"
	jsonPatchMedia  = "application/json-patch+json"
	metricsService  = "box"
	resultOK        = "ok"
	resultError     = "error"
	defaultAttempts = 1
)

// Box talks to the Box content API with per-call bearer tokens.
type Box struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
	attempts   int
}

var _ Storage = (*Box)(nil)

// NewBox creates a Box client.
func NewBox(opts ...Option) *Box {
	b := &Box{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		attempts:   defaultAttempts,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Nop()
	}
	return b
}

// patchOp is one RFC 6902 operation.
type patchOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

// Download fetches the file content into dir, named after the file.
func (b *Box) Download(ctx context.Context, file model.FileRef, token, dir string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: %w: read token", ErrDownload, ErrMissingToken)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.fileURL(file.ID.String(), "content"), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownload, err)
	}

	resp, err := b.do(ctx, token, "download", req)
	if err != nil {
		return "", fmt.Errorf("%w: file %s: %w", ErrDownload, file.ID, err)
	}
	defer resp.Body.Close()

	path := filepath.Join(dir, localName(file))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownload, err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: write %s: %w", ErrDownload, path, err)
	}

	metrics.RecordDownloadedBytes(n)
	b.logger.Debug(ctx, "file downloaded",
		logger.String("file_id", file.ID.String()),
		logger.String("path", path),
		logger.Any("bytes", n),
	)
	return path, nil
}

// UpsertMetadata creates the skill-card instance, or on failure reads the
// existing one and replaces each top-level key of payload with a JSON Patch.
func (b *Box) UpsertMetadata(ctx context.Context, fileID, token string, payload any) (UpsertOutcome, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("encode metadata: %w", err)
	}
	log := b.logger.With(logger.String("file_id", fileID))

	createErr := b.createMetadata(ctx, fileID, token, body)
	if createErr == nil {
		metrics.RecordMetadataWrite(string(OutcomeCreated))
		log.Info(ctx, "skill cards created")
		return OutcomeCreated, nil
	}
	log.Debug(ctx, "metadata create failed, updating existing instance", logger.Error(createErr))

	if err := b.updateMetadata(ctx, fileID, token, body); err != nil {
		metrics.RecordMetadataWrite(string(OutcomeFailed))
		log.Error(ctx, "metadata update failed", logger.Error(err), logger.Any("create_error", createErr.Error()))
		return OutcomeFailed, nil
	}
	metrics.RecordMetadataWrite(string(OutcomeUpdated))
	log.Info(ctx, "skill cards updated")
	return OutcomeUpdated, nil
}

func (b *Box) createMetadata(ctx context.Context, fileID, token string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.metadataURL(fileID), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return b.discard(ctx, token, "metadata_create", req)
}

func (b *Box) updateMetadata(ctx context.Context, fileID, token string, body []byte) error {
	get, err := http.NewRequestWithContext(ctx, http.MethodGet, b.metadataURL(fileID), nil)
	if err != nil {
		return err
	}
	if err := b.discard(ctx, token, "metadata_get", get); err != nil {
		return fmt.Errorf("read existing metadata: %w", err)
	}

	patch, err := addOps(body)
	if err != nil {
		return err
	}
	put, err := http.NewRequestWithContext(ctx, http.MethodPut, b.metadataURL(fileID), bytes.NewReader(patch))
	if err != nil {
		return err
	}
	put.Header.Set("Content-Type", jsonPatchMedia)
	return b.discard(ctx, token, "metadata_update", put)
}

// addOps turns a JSON object into one "add" op per key, sorted by key.
func addOps(body []byte) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("metadata payload must be an object: %w", err)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ops := make([]patchOp, 0, len(keys))
	for _, k := range keys {
		ops = append(ops, patchOp{Op: "add", Path: "/" + escapePointer(k), Value: fields[k]})
	}
	return json.Marshal(ops)
}

// escapePointer escapes a JSON Pointer reference token.
func escapePointer(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

func (b *Box) discard(ctx context.Context, token, op string, req *http.Request) error {
	resp, err := b.do(ctx, token, op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// do sends req with token as bearer and records the call.
func (b *Box) do(ctx context.Context, token, op string, req *http.Request) (*http.Response, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, b.httpClient),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
	)

	start := time.Now()
	resp, err := httputil.Do(ctx, client, req, b.attempts, func(n uint, err error) {
		b.logger.Warn(ctx, "retrying box call",
			logger.String("operation", op),
			logger.Int("attempt", int(n)+1),
			logger.Error(err),
		)
	})
	result := resultOK
	if err != nil {
		result = resultError
	}
	metrics.RecordRemoteCall(metricsService, op, result, float64(time.Since(start).Milliseconds()))
	return resp, err
}

func (b *Box) fileURL(fileID string, parts ...string) string {
	return b.baseURL + "/files/" + url.PathEscape(fileID) + "/" + strings.Join(parts, "/")
}

func (b *Box) metadataURL(fileID string) string {
	return b.fileURL(fileID, "metadata", metadataScope, cards.MetadataTemplate)
}

// localName picks a safe file name inside the download directory.
func localName(file model.FileRef) string {
	name := filepath.Base(filepath.Clean("/" + file.Name))
	if name == "/" || name == "." {
		return filepath.Base(filepath.Clean("/" + file.ID.String()))
	}
	return name
}
