package reminder

import (
	"net/http"

	"github.com/klokku/planner/internal/rest"
	"github.com/klokku/planner/internal/timeparse"
	log "github.com/sirupsen/logrus"
)

type NextReminderDTO struct {
	EventId       int    `json:"eventId"`
	Title         string `json:"title"`
	Start         string `json:"start"`
	MinutesBefore int    `json:"minutesBefore"`
	MinutesLeft   int    `json:"minutesLeft"`
	Due           bool   `json:"due"`
	Message       string `json:"message,omitempty"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetNext godoc
// @Summary Next upcoming occurrence with a reminder
// @Produce json
// @Success 200 {object} NextReminderDTO
// @Success 204 "No upcoming reminder"
// @Router /api/reminder/next [get]
func (h *Handler) GetNext(w http.ResponseWriter, r *http.Request) {
	next, found, err := h.service.Next(r.Context())
	if err != nil {
		log.Errorf("failed to find next reminder: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal error", "")
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	dto := NextReminderDTO{
		EventId:       next.EventId,
		Title:         next.Title,
		Start:         timeparse.FormatDateTime(next.StartTime),
		MinutesBefore: next.MinutesBefore,
		MinutesLeft:   next.MinutesLeft,
		Due:           next.IsDue(),
	}
	if dto.Due {
		dto.Message = next.Message()
	}
	rest.WriteJSON(w, http.StatusOK, dto)
}
