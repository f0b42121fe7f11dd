package daemon

import (
	"net/http"
	"os"
)

// Health answers without auth so clients can probe a daemon they do not
// yet hold a token for. The pid lets a client address a stale daemon and
// the session count gives probes a cheap liveness summary.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"version":  a.Version,
		"pid":      os.Getpid(),
		"sessions": len(a.Engine.ListSessions()),
	})
}
