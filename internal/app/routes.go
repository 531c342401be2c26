package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Calendar
	r.HandleFunc("/api/calendar/occurrence", deps.CalendarHandler.GetOccurrences).Queries("from", "{from}", "to", "{to}").Methods("GET")
	r.HandleFunc("/api/calendar/search", deps.CalendarHandler.Search).Methods("GET")
	r.HandleFunc("/api/calendar/event", deps.CalendarHandler.ListEvents).Methods("GET")
	r.HandleFunc("/api/calendar/event", deps.CalendarHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/calendar/event/{eventId}", deps.CalendarHandler.GetEvent).Methods("GET")
	r.HandleFunc("/api/calendar/event/{eventId}", deps.CalendarHandler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/calendar/event/{eventId}", deps.CalendarHandler.DeleteEvent).Methods("DELETE")
	r.HandleFunc("/api/calendar/conflict", deps.CalendarHandler.CheckConflict).Methods("POST")
	r.HandleFunc("/api/calendar/export.ics", deps.IcalHandler.Export).Methods("GET")

	// Stats
	r.HandleFunc("/api/stats", deps.StatsHandler.GetStats).Methods("GET")

	// Reminders
	r.HandleFunc("/api/reminder/next", deps.ReminderHandler.GetNext).Methods("GET")

	// Backup
	r.HandleFunc("/api/backup", deps.BackupHandler.Download).Methods("GET")
	r.HandleFunc("/api/backup", deps.BackupHandler.Save).Methods("POST")
	r.HandleFunc("/api/backup/restore", deps.BackupHandler.Restore).Methods("POST")
}
