package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reconcile/internal/contact/models"
	id "reconcile/pkg/domain"
	dErrors "reconcile/pkg/domain-errors"
	"reconcile/pkg/platform/httputil"
	"reconcile/pkg/requestcontext"
)

// Service defines the interface for contact reconciliation operations.
type Service interface {
	Identify(ctx context.Context, obs models.Observation) (*models.ConsolidatedView, error)
	View(ctx context.Context, contactID id.ContactID) (*models.ConsolidatedView, error)
}

// Handler wires contact endpoints to the contact service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a contact handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts contact endpoints on the router. identifyMiddleware wraps
// only POST /identify (rate limiting, content-type checks).
func (h *Handler) Register(r chi.Router, identifyMiddleware ...func(http.Handler) http.Handler) {
	r.With(identifyMiddleware...).Post("/identify", h.HandleIdentify)
	r.Get("/contacts/{id}", h.HandleGetContact)
}

// HandleIdentify handles POST /identify requests.
func (h *Handler) HandleIdentify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[IdentifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	obs := req.Observation()

	h.logger.InfoContext(ctx, "identify request received",
		"request_id", requestID,
		"has_email", obs.HasEmail(),
		"has_phone", obs.HasPhone(),
	)

	view, err := h.service.Identify(ctx, obs)
	if err != nil {
		h.logFailure(ctx, "identify failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identify resolved",
		"request_id", requestID,
		"primary_id", view.PrimaryID,
		"secondary_count", len(view.SecondaryIDs),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromView(view))
}

// HandleGetContact handles GET /contacts/{id} requests.
func (h *Handler) HandleGetContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	contactID, err := id.ParseContactID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "contact id must be a positive integer"))
		return
	}

	view, err := h.service.View(ctx, contactID)
	if err != nil {
		h.logFailure(ctx, "get contact failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromView(view))
}

func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error) {
	level := slog.LevelError
	if dErrors.HTTPStatus(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestID,
		"error", err,
	)
}
