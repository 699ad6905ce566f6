package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/salon-scheduler/internal/application"
)

type blockageService interface {
	CreateBlockage(ctx context.Context, params application.CreateBlockageParams) (application.Blockage, error)
	DeleteBlockage(ctx context.Context, id string) error
	ListBlockages(ctx context.Context, from, to time.Time) ([]application.Blockage, error)
}

// BlockageHandler lets staff close periods of the calendar.
type BlockageHandler struct {
	service   blockageService
	loc       *time.Location
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

func NewBlockageHandler(service blockageService, loc *time.Location, now func() time.Time, logger *slog.Logger) *BlockageHandler {
	if now == nil {
		now = time.Now
	}
	base := defaultLogger(logger)
	return &BlockageHandler{service: service, loc: locationOrLocal(loc), now: now, responder: newResponder(base), logger: base}
}

// List handles GET /blockages?from=&to=. Both bounds are inclusive dates and
// default to the current month.
func (h *BlockageHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	from, to, ok := parseDateRange(r, h.loc, h.now())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	blockages, err := h.service.ListBlockages(r.Context(), from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBlockagesResponse{Blockages: toBlockageDTOs(blockages, h.loc)})
}

// Create handles POST /blockages.
func (h *BlockageHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req blockageRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	params := application.CreateBlockageParams{Weekday: req.Weekday, Reason: strings.TrimSpace(req.Reason)}
	if req.Start != "" {
		start, ok := parseInstant(req.Start, h.loc)
		if !ok {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		params.Start = &start
	}
	if req.End != "" {
		end, ok := parseInstant(req.End, h.loc)
		if !ok {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		params.End = &end
	}

	blockage, err := h.service.CreateBlockage(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "BlockageHandler", "Create", "blockage_id", blockage.ID).
		InfoContext(r.Context(), "blockage created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBlockageDTO(blockage, h.loc))
}

// Delete handles DELETE /blockages/{id}.
func (h *BlockageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := h.service.DeleteBlockage(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type blockageRequest struct {
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	Weekday *int   `json:"weekday,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type blockageDTO struct {
	ID      string  `json:"id"`
	Start   *string `json:"start,omitempty"`
	End     *string `json:"end,omitempty"`
	Weekday *int    `json:"weekday,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

type listBlockagesResponse struct {
	Blockages []blockageDTO `json:"blockages"`
}

func toBlockageDTO(blockage application.Blockage, loc *time.Location) blockageDTO {
	dto := blockageDTO{ID: blockage.ID, Reason: blockage.Reason}
	if blockage.Start != nil {
		start := blockage.Start.In(loc).Format(time.RFC3339)
		dto.Start = &start
	}
	if blockage.End != nil {
		end := blockage.End.In(loc).Format(time.RFC3339)
		dto.End = &end
	}
	if blockage.Weekday != nil {
		weekday := int(*blockage.Weekday)
		dto.Weekday = &weekday
	}
	return dto
}

func toBlockageDTOs(blockages []application.Blockage, loc *time.Location) []blockageDTO {
	out := make([]blockageDTO, 0, len(blockages))
	for _, b := range blockages {
		out = append(out, toBlockageDTO(b, loc))
	}
	return out
}
