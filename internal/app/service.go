// Package service runs one skill invocation: download the uploaded file,
// extract its text, enrich it with NLU and write the results back as skill
// cards.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/okian/boxskill/internal/adapters/nlu"
	"github.com/okian/boxskill/internal/adapters/storage"
	"github.com/okian/boxskill/internal/config"
	"github.com/okian/boxskill/internal/domain/cards"
	"github.com/okian/boxskill/internal/domain/docx"
	"github.com/okian/boxskill/internal/domain/model"
	"github.com/okian/boxskill/pkg/logger"
	"github.com/okian/boxskill/pkg/metrics"
)

// Card titles and the fixed duration written on document cards.
const (
	TitleConcepts = "Concepts"
	TitleKeywords = "Keywords"
	cardDuration  = 1
)

// Invocation outcomes recorded in metrics.
const (
	outcomeSuccess = "success"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

// Service implements the invocation pipeline.
type Service struct {
	cfg        *config.Config
	storageFor StorageFactory
	analyzer   nlu.Analyzer
	formatter  *cards.Formatter
	newID      func() string
	logger     logger.Logger
}

// New constructs a Service from cfg. Remote clients are built from cfg unless
// replaced by options.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:    cfg,
		newID:  uuid.NewString,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	if s.storageFor == nil {
		s.storageFor = func(backend string) (storage.Storage, error) {
			return storage.New(backend,
				storage.WithBaseURL(cfg.BoxAPIURL),
				storage.WithHTTPClient(httpClient),
				storage.WithRetryAttempts(cfg.RetryAttempts),
				storage.WithLogger(s.logger.Named("box")),
			)
		}
	}
	if s.analyzer == nil {
		s.analyzer = nlu.NewClient(cfg.URL, cfg.NLUIAMKey,
			nlu.WithIAMURL(cfg.IAMURL),
			nlu.WithVersion(cfg.NLUVersion),
			nlu.WithHTTPClient(httpClient),
			nlu.WithRetryAttempts(cfg.RetryAttempts),
			nlu.WithLogger(s.logger.Named("nlu")),
		)
	}
	if s.formatter == nil {
		s.formatter = cards.NewFormatter(cards.WithLogger(s.logger.Named("cards")))
	}
	return s
}

// Invoke processes one uploaded file. It returns success whenever the file
// could be downloaded; extraction, enrichment and metadata update problems
// are logged and counted but do not fail the invocation.
func (s *Service) Invoke(ctx context.Context, inv model.Invocation) (model.Result, error) {
	start := time.Now()
	res, err := s.invoke(ctx, inv)
	metrics.RecordStageLatency("total", float64(time.Since(start).Milliseconds()))

	switch {
	case err == nil:
		metrics.RecordInvocation(outcomeSuccess)
	case errors.Is(err, model.ErrMissingFileID):
		metrics.RecordInvocation(outcomeInvalid)
	default:
		metrics.RecordInvocation(outcomeError)
	}
	return res, err
}

func (s *Service) invoke(ctx context.Context, inv model.Invocation) (model.Result, error) {
	if err := inv.Validate(); err != nil {
		return model.Result{}, err
	}
	fileID := inv.Source.ID.String()
	log := s.logger.With(
		logger.String("invocation_id", s.newID()),
		logger.String("file_id", fileID),
	)
	log.Info(ctx, "invocation started", logger.String("file_name", inv.Source.Name))

	store, err := s.storageFor(s.cfg.Storage)
	if err != nil {
		log.Error(ctx, "storage backend unavailable", logger.Error(err))
		return model.Result{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	dir, err := os.MkdirTemp(s.cfg.WorkDir, "boxskill-")
	if err != nil {
		return model.Result{}, fmt.Errorf("%w: staging dir: %w", ErrDownload, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn(ctx, "remove staged file", logger.String("dir", dir), logger.Error(err))
		}
	}()

	stage := time.Now()
	path, err := store.Download(ctx, inv.Source, inv.Token.Read.AccessToken, dir)
	s.observe("download", stage)
	if err != nil {
		log.Error(ctx, "download failed", logger.Error(err))
		return model.Result{}, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	list, err := s.buildCards(ctx, log, path, fileID)
	if err != nil {
		return model.Result{}, err
	}

	stage = time.Now()
	outcome, err := store.UpsertMetadata(ctx, fileID, inv.Token.Write.AccessToken, cards.Payload{Cards: list})
	s.observe("publish", stage)
	if err != nil {
		log.Error(ctx, "publish skill cards", logger.Error(err))
		return model.Result{}, fmt.Errorf("%w: %w", ErrPublish, err)
	}

	log.Info(ctx, "invocation finished",
		logger.Int("cards", len(list)),
		logger.String("metadata", string(outcome)),
	)
	return model.Success(), nil
}

// buildCards extracts and enriches the document at path. A file that is not a
// Word document, or one without text, yields no cards.
func (s *Service) buildCards(ctx context.Context, log logger.Logger, path, fileID string) ([]cards.Card, error) {
	list := []cards.Card{}

	stage := time.Now()
	text, err := docx.ExtractText(path)
	s.observe("extract", stage)
	if errors.Is(err, docx.ErrNotDocument) {
		metrics.RecordSoftFailure("not_docx")
		log.Warn(ctx, "file is not a .docx document and cannot be processed", logger.Error(err))
		return list, nil
	}
	if err != nil {
		log.Error(ctx, "text extraction failed", logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrExtract, err)
	}
	if text == "" {
		metrics.RecordSoftFailure("empty_text")
		log.Info(ctx, "document has no text, skipping enrichment")
		return list, nil
	}
	log.Debug(ctx, "text extracted", logger.Int("chars", len(text)))

	e := &enricher{
		analyzer: s.analyzer,
		features: nlu.Features{
			Concepts:     s.cfg.Concepts,
			ConceptLimit: s.cfg.ConceptLimit,
			Keywords:     s.cfg.Keywords,
			KeywordLimit: s.cfg.KeywordLimit,
		},
		logger: log,
	}
	e.run(ctx, text)

	if len(e.result.Concepts) > 0 {
		list = append(list, s.formatter.Keyword(e.result.Concepts, TitleConcepts, fileID, cardDuration))
		metrics.RecordCard(TitleConcepts)
	}
	if len(e.result.Keywords) > 0 {
		list = append(list, s.formatter.Keyword(e.result.Keywords, TitleKeywords, fileID, cardDuration))
		metrics.RecordCard(TitleKeywords)
	}
	return list, nil
}

func (s *Service) observe(stage string, start time.Time) {
	metrics.RecordStageLatency(stage, float64(time.Since(start).Milliseconds()))
}
