package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/salon-scheduler/internal/application"
)

type procedureService interface {
	ListProcedures(ctx context.Context, category string) ([]application.Procedure, error)
	Categories(ctx context.Context) ([]string, error)
}

// ProcedureHandler serves the public service catalog.
type ProcedureHandler struct {
	service   procedureService
	responder responder
}

func NewProcedureHandler(service procedureService, logger *slog.Logger) *ProcedureHandler {
	return &ProcedureHandler{service: service, responder: newResponder(defaultLogger(logger))}
}

// List handles GET /procedures?category=.
func (h *ProcedureHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	procedures, err := h.service.ListProcedures(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]procedureDTO, 0, len(procedures))
	for _, p := range procedures {
		out = append(out, procedureDTO{
			ID:              p.ID,
			Name:            p.Name,
			Category:        p.Category,
			PriceCents:      p.PriceCents,
			DurationMinutes: p.DurationMinutes,
			Description:     p.Description,
			IsPackage:       p.IsPackage,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listProceduresResponse{Procedures: out})
}

// Categories handles GET /procedures/categories.
func (h *ProcedureHandler) Categories(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, categoriesResponse{Categories: categories})
}

type procedureDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	PriceCents      int64   `json:"price_cents"`
	DurationMinutes int     `json:"duration_minutes"`
	Description     *string `json:"description,omitempty"`
	IsPackage       bool    `json:"is_package"`
}

type listProceduresResponse struct {
	Procedures []procedureDTO `json:"procedures"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}
