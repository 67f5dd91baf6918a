package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/opsdesk/internal/websocket"
)

// Broadcaster receives change notifications after successful mutations.
type Broadcaster interface {
	Broadcast(websocket.Message)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(websocket.Message) {}

func orNop(b Broadcaster) Broadcaster {
	if b == nil {
		return nopBroadcaster{}
	}
	return b
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseLocalTime accepts RFC 3339 or a zone-less "2006-01-02T15:04" read in
// loc. An empty string yields nil.
func parseLocalTime(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", s, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q", s)
	}
	return &t, nil
}
