package handlers

import (
	"net/http"
	"time"
)

type logStats interface {
	Len() int
	Observers() int
}

type sessionCounter interface {
	Active() int
}

type clientCounter interface {
	Clients() int
}

type HealthHandler struct {
	log      logStats
	sessions sessionCounter
	clients  clientCounter
	started  time.Time
}

func NewHealthHandler(log logStats, sessions sessionCounter, clients clientCounter) *HealthHandler {
	return &HealthHandler{log: log, sessions: sessions, clients: clients, started: time.Now()}
}

// Health reports the size of the activity log, how many log observers and
// live feed clients are attached, and the number of open reading sessions.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"events":          h.log.Len(),
		"observers":       h.log.Observers(),
		"ws_clients":      h.clients.Clients(),
		"active_sessions": h.sessions.Active(),
		"uptime_seconds":  int(time.Since(h.started).Seconds()),
	})
}
