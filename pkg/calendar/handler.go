package calendar

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/planner/internal/rest"
	"github.com/klokku/planner/internal/timeparse"
	"github.com/klokku/planner/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	calendar *Service
}

type RecurrenceDTO struct {
	Interval string `json:"interval"`
	Times    int    `json:"times"`
	EndDate  string `json:"endDate,omitempty"`
}

type EventDTO struct {
	Id              int            `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Start           string         `json:"start"`
	End             string         `json:"end"`
	Recurrence      *RecurrenceDTO `json:"recurrence,omitempty"`
	ReminderMinutes *int           `json:"reminderMinutes,omitempty"`
}

type EventRequestDTO struct {
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Start            string         `json:"start"`
	End              string         `json:"end"`
	Recurrence       *RecurrenceDTO `json:"recurrence,omitempty"`
	RemoveRecurrence bool           `json:"removeRecurrence"`
	ReminderMinutes  *int           `json:"reminderMinutes,omitempty"`
	RemoveReminder   bool           `json:"removeReminder"`
}

type ConflictRequestDTO struct {
	EventRequestDTO
	IgnoreId int `json:"ignoreId"`
}

type OccurrenceDTO struct {
	EventId int    `json:"eventId"`
	Title   string `json:"title"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type DayDTO struct {
	Date        string          `json:"date"`
	Occurrences []OccurrenceDTO `json:"occurrences"`
}

type ConflictDTO struct {
	Conflict  bool           `json:"conflict"`
	Candidate *OccurrenceDTO `json:"candidate,omitempty"`
	Existing  *OccurrenceDTO `json:"existing,omitempty"`
}

func NewHandler(s *Service) *Handler {
	return &Handler{s}
}

// GetOccurrences godoc
// @Summary Occurrences grouped by date
// @Produce json
// @Param from query string true "First date (YYYY-MM-DD), inclusive"
// @Param to query string true "Last date (YYYY-MM-DD), inclusive"
// @Success 200 {array} DayDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid date format"
// @Router /api/calendar/occurrence [get]
func (h *Handler) GetOccurrences(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}

	grouped, err := h.calendar.OccurrencesBetween(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	days := make([]DayDTO, 0, len(grouped))
	for _, date := range SortedDates(grouped) {
		occurrences := make([]OccurrenceDTO, 0, len(grouped[date]))
		for _, o := range grouped[date] {
			occurrences = append(occurrences, occurrenceToDTO(o))
		}
		days = append(days, DayDTO{Date: timeparse.FormatDate(date), Occurrences: occurrences})
	}
	rest.WriteJSON(w, http.StatusOK, days)
}

// Search godoc
// @Summary Search occurrences by title, description and recurrence
// @Produce json
// @Param from query string true "First date (YYYY-MM-DD), inclusive"
// @Param to query string true "Last date (YYYY-MM-DD), inclusive"
// @Param title query string false "Case-insensitive title fragment"
// @Param description query string false "Case-insensitive description fragment"
// @Param recurring query bool false "Only recurring events"
// @Success 200 {array} OccurrenceDTO
// @Router /api/calendar/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	recurringOnly := false
	if value := query.Get("recurring"); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid recurring flag", "'recurring' must be true or false")
			return
		}
		recurringOnly = parsed
	}

	found, err := h.calendar.Search(r.Context(), Filter{
		From:          from,
		To:            to,
		Title:         query.Get("title"),
		Description:   query.Get("description"),
		RecurringOnly: recurringOnly,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]OccurrenceDTO, 0, len(found))
	for _, o := range found {
		dtos = append(dtos, occurrenceToDTO(o))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.calendar.ListEventDetails(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventId, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	event, err := h.calendar.GetEvent(r.Context(), eventId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(event))
}

// CreateEvent godoc
// @Summary Create an event, optionally recurring and with a reminder
// @Accept json
// @Produce json
// @Success 201 {object} EventDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} rest.ErrorResponse "Event conflicts with an existing event"
// @Router /api/calendar/event [post]
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var request EventRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	input, err := request.toInput()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	created, err := h.calendar.CreateEvent(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, eventToDTO(created))
}

// UpdateEvent godoc
// @Summary Update an event. Omitting the recurrence keeps the current rule.
// @Accept json
// @Produce json
// @Param eventId path int true "Event id"
// @Success 200 {object} EventDTO
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Failure 409 {object} rest.ErrorResponse "Event conflicts with an existing event"
// @Router /api/calendar/event/{eventId} [put]
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventId, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	var request EventRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	input, err := request.toInput()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	updated, err := h.calendar.UpdateEvent(r.Context(), eventId, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(updated))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventId, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	if err := h.calendar.DeleteEvent(r.Context(), eventId); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckConflict godoc
// @Summary Check whether an event would conflict without saving it
// @Accept json
// @Produce json
// @Success 200 {object} ConflictDTO
// @Router /api/calendar/conflict [post]
func (h *Handler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	var request ConflictRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	input, err := request.toInput()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	conflict, found, err := h.calendar.CheckConflict(r.Context(), request.IgnoreId, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response := ConflictDTO{Conflict: found}
	if found {
		candidate := occurrenceToDTO(conflict.Candidate)
		existing := occurrenceToDTO(conflict.Existing)
		response.Candidate = &candidate
		response.Existing = &existing
	}
	rest.WriteJSON(w, http.StatusOK, response)
}

func (d EventRequestDTO) toInput() (EventInput, error) {
	start, err := timeparse.ParseDateTime(d.Start)
	if err != nil {
		return EventInput{}, err
	}
	end, err := timeparse.ParseDateTime(d.End)
	if err != nil {
		return EventInput{}, err
	}
	input := EventInput{
		Title:           d.Title,
		Description:     d.Description,
		StartTime:       start,
		EndTime:         end,
		Recurrence:      Keep(),
		ReminderMinutes: d.ReminderMinutes,
		RemoveReminder:  d.RemoveReminder,
	}
	if d.RemoveRecurrence {
		input.Recurrence = Remove()
	} else if d.Recurrence != nil {
		input.Recurrence = Set(d.Recurrence.Interval, d.Recurrence.Times, d.Recurrence.EndDate)
	}
	return input, nil
}

func parseWindow(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	from, err := timeparse.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid from (date) format", "'from' must be in YYYY-MM-DD format")
		return from, to, false
	}
	to, err = timeparse.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid to (date) format", "'to' must be in YYYY-MM-DD format")
		return from, to, false
	}
	return from, to, true
}

func eventIdFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	eventId, err := strconv.Atoi(mux.Vars(r)["eventId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event id", "")
		return 0, false
	}
	return eventId, true
}

// writeServiceError maps domain errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recurrence.ErrInvalidFormat), errors.Is(err, timeparse.ErrInvalidFormat):
		rest.WriteError(w, http.StatusBadRequest, "Invalid format", err.Error())
	case errors.Is(err, recurrence.ErrInvalidRule):
		rest.WriteError(w, http.StatusBadRequest, "Invalid recurrence", err.Error())
	case errors.Is(err, ErrInvalidEvent):
		rest.WriteError(w, http.StatusBadRequest, "Invalid event", err.Error())
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found", err.Error())
	case errors.Is(err, ErrConflict):
		rest.WriteError(w, http.StatusConflict, "Event conflicts with an existing event", err.Error())
	default:
		log.Errorf("calendar request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal error", "")
	}
}

func eventToDTO(e EventDetails) EventDTO {
	dto := EventDTO{
		Id:              e.Event.Id,
		Title:           e.Event.Title,
		Description:     e.Event.Description,
		Start:           timeparse.FormatDateTime(e.Event.StartTime),
		End:             timeparse.FormatDateTime(e.Event.EndTime),
		ReminderMinutes: e.ReminderMinutes,
	}
	if rule, ok := e.Recurrence.Get(); ok {
		dto.Recurrence = &RecurrenceDTO{Interval: rule.IntervalText(), Times: rule.Times}
		if rule.HasEndDate() {
			dto.Recurrence.EndDate = rule.EndDateText()
		}
	}
	return dto
}

func occurrenceToDTO(o Occurrence) OccurrenceDTO {
	return OccurrenceDTO{
		EventId: o.EventId,
		Title:   o.Title,
		Start:   timeparse.FormatDateTime(o.StartTime),
		End:     timeparse.FormatDateTime(o.EndTime),
	}
}
