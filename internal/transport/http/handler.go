package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"xhuma/internal/orchestrator"
	dErrors "xhuma/pkg/domain-errors"
	"xhuma/pkg/platform/httputil"
)

// CorrelationHeader carries the correlation id on every transaction response.
const CorrelationHeader = "X-Correlation-ID"

// maxBodyBytes bounds a transaction request body.
const maxBodyBytes = 64 << 10

// Service is the transaction orchestrator as seen by the handlers.
type Service interface {
	Demographics(ctx context.Context, req orchestrator.DemographicsRequest) (*orchestrator.DemographicsResult, error)
	StructuredRecord(ctx context.Context, req orchestrator.StructuredRecordRequest) (*orchestrator.StructuredRecordResult, error)
	Retrieve(ctx context.Context, req orchestrator.RetrieveRequest) (*orchestrator.RetrieveResult, error)
}

// Handler serves the ITI transaction endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

func NewHandler(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the transaction routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/iti47", h.handleDemographics)
	r.Post("/iti38", h.handleStructuredRecord)
	r.Post("/iti39", h.handleRetrieve)
}

func (h *Handler) handleDemographics(w http.ResponseWriter, r *http.Request) {
	var req demographicsRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Demographics(r.Context(), req.toService())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	w.Header().Set(CorrelationHeader, res.CorrelationID)
	httputil.WriteJSON(w, http.StatusOK, demographicsResponse{
		CorrelationID: res.CorrelationID,
		IsNew:         res.IsNew,
		State:         res.State.String(),
		Demographics:  res.Demographics,
	})
}

func (h *Handler) handleStructuredRecord(w http.ResponseWriter, r *http.Request) {
	var req structuredRecordRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.StructuredRecord(r.Context(), req.toService())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	w.Header().Set(CorrelationHeader, res.CorrelationID)
	httputil.WriteJSON(w, http.StatusOK, structuredRecordResponse{
		CorrelationID: res.CorrelationID,
		DocumentID:    res.Document.DocumentID,
		CacheHit:      res.CacheHit,
		SectionCount:  res.Document.SectionCount,
		Warnings:      res.Document.Warnings,
		Document:      res.Document.XML,
	})
}

func (h *Handler) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Retrieve(r.Context(), req.toService())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	w.Header().Set(CorrelationHeader, res.CorrelationID)
	httputil.WriteJSON(w, http.StatusOK, retrieveResponse{
		CorrelationID: res.CorrelationID,
		DocumentID:    res.Document.DocumentID,
		Status:        "confirmed",
		Regenerated:   res.Regenerated,
		Document:      res.Document.XML,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid transaction request", "path", r.URL.Path, "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// writeFailure relies on the orchestrator having logged the failure.
func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	correlationID := ""
	if f, ok := orchestrator.AsFailure(err); ok {
		correlationID = f.CorrelationID
	}
	httputil.WriteFailure(w, err, correlationID)
}
