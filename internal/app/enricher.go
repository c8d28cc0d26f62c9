package service

import (
	"context"
	"time"

	"github.com/okian/boxskill/internal/adapters/nlu"
	"github.com/okian/boxskill/internal/domain/model"
	"github.com/okian/boxskill/pkg/logger"
	"github.com/okian/boxskill/pkg/metrics"
)

// enricher runs the NLU call for one invocation and accumulates its results.
// It is used by a single goroutine.
type enricher struct {
	analyzer nlu.Analyzer
	features nlu.Features
	logger   logger.Logger
	result   model.Enrichment
}

// run analyzes text and appends the results. Failures are logged and leave
// the accumulated results unchanged.
func (e *enricher) run(ctx context.Context, text string) {
	start := time.Now()
	defer func() { metrics.RecordStageLatency("enrich", float64(time.Since(start).Milliseconds())) }()

	got, err := e.analyzer.Analyze(ctx, text, e.features)
	if err != nil {
		metrics.RecordSoftFailure("nlu")
		e.logger.Error(ctx, "nlu analyze failed, continuing without results", logger.Error(err))
		return
	}
	e.result.Append(got)
	metrics.RecordExtracted("concept", len(got.Concepts))
	metrics.RecordExtracted("keyword", len(got.Keywords))
}
