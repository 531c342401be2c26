package ical

import (
	"net/http"

	"github.com/klokku/planner/internal/rest"
	"github.com/klokku/planner/internal/utils"
	"github.com/klokku/planner/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	calendar calendar.Reader
	clock    utils.Clock
}

func NewHandler(calendar calendar.Reader, clock utils.Clock) *Handler {
	return &Handler{calendar: calendar, clock: clock}
}

// Export godoc
// @Summary Export all events as iCalendar
// @Produce text/calendar
// @Router /api/calendar/export.ics [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	items, err := h.calendar.ListEventDetails(r.Context())
	if err != nil {
		log.Errorf("failed to list events for export: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal error", "")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="planner.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(Export(items, h.clock.Now()))); err != nil {
		log.Errorf("failed to write calendar export: %v", err)
	}
}
