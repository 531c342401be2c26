package backup

import (
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/klokku/planner/internal/rest"
	"github.com/klokku/planner/pkg/calendar"
	"github.com/klokku/planner/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

type SavedBackupDTO struct {
	File string `json:"file"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Download godoc
// @Summary Download the whole calendar as a backup file
// @Produce text/csv
// @Router /api/backup [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="planner-backup.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := Write(w, h.service.calendar.Snapshot(r.Context())); err != nil {
		log.Errorf("failed to stream backup: %v", err)
	}
}

// Save godoc
// @Summary Save a timestamped backup into the backup directory
// @Produce json
// @Success 201 {object} SavedBackupDTO
// @Failure 409 {object} rest.ErrorResponse "Backup file is in use"
// @Router /api/backup [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	path, err := h.service.BackupToDir(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, SavedBackupDTO{File: filepath.Base(path)})
}

// Restore godoc
// @Summary Restore the calendar from a backup
// @Description The backup is read from the request body, or from the backup directory when file is given.
// @Accept text/csv
// @Param mode query string false "replace (default) or merge"
// @Param file query string false "Name of a backup in the backup directory"
// @Success 204
// @Failure 400 {object} rest.ErrorResponse "Invalid backup"
// @Router /api/backup/restore [post]
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	var replace bool
	switch r.URL.Query().Get("mode") {
	case "", "replace":
		replace = true
	case "merge":
		replace = false
	default:
		rest.WriteError(w, http.StatusBadRequest, "Invalid mode", "mode must be replace or merge")
		return
	}

	var err error
	if name := r.URL.Query().Get("file"); name != "" {
		path, resolveErr := h.service.ResolveName(name)
		if resolveErr != nil {
			writeError(w, resolveErr)
			return
		}
		err = h.service.RestoreFromFile(r.Context(), path, replace)
	} else {
		err = h.service.RestoreFrom(r.Context(), r.Body, replace)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidBackup),
		errors.Is(err, recurrence.ErrInvalidFormat),
		errors.Is(err, recurrence.ErrInvalidRule),
		errors.Is(err, calendar.ErrInvalidEvent),
		errors.Is(err, calendar.ErrEventNotFound):
		rest.WriteError(w, http.StatusBadRequest, "Invalid backup", err.Error())
	case errors.Is(err, ErrFileInUse):
		rest.WriteError(w, http.StatusConflict, "Backup file is in use", err.Error())
	case errors.Is(err, fs.ErrNotExist):
		rest.WriteError(w, http.StatusNotFound, "Backup not found", "")
	default:
		log.Errorf("backup request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal error", "")
	}
}
