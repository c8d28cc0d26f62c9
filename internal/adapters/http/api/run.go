package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/boxskill/internal/domain/model"
	"github.com/okian/boxskill/pkg/logger"
)

// maxPayloadBytes bounds a /run request body.
const maxPayloadBytes = 1 << 20

// RunHandler serves the action runtime endpoints.
type RunHandler struct {
	invoker Invoker
	logger  logger.Logger
}

// NewRunHandler creates a run handler.
func NewRunHandler(invoker Invoker, log logger.Logger) *RunHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RunHandler{invoker: invoker, logger: log}
}

type initResponse struct {
	OK bool `json:"ok"`
}

// HandleInit handles POST /init. The skill needs no code loading, so the
// request is acknowledged as-is.
func (h *RunHandler) HandleInit(w http.ResponseWriter, r *http.Request) {
	const op = "api.init"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, maxPayloadBytes))
	writeJSON(w, http.StatusOK, initResponse{OK: true})
}

// HandleRun handles POST /run. The body is the invocation payload, either
// bare or wrapped as {"value": ...}.
func (h *RunHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.run"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrBadRequest, err))
		return
	}
	inv, err := model.DecodeInvocation(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.invoker.Invoke(r.Context(), inv)
	if err != nil {
		h.logger.Error(r.Context(), "invocation failed",
			logger.String("file_id", inv.Source.ID.String()),
			logger.Error(err),
		)
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrMissingFileID) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "invocation_failed", WrapKind(op, ErrInvocation, fmt.Errorf("file %s: %w", inv.Source.ID, err)))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
