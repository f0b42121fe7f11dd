package daemon

import (
	"io"
	"net/http"

	"github.com/MatthewUtzig/lightcode/internal/engine"
)

// AutoDriveSequence replays a controller operation batch without a session.
// The reply carries the step list inline and nothing is recorded anywhere,
// which makes the endpoint safe for dry runs against arbitrary states.
func (a *API) AutoDriveSequence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeServiceError(w, invalidError("read request body", err))
		return
	}
	writeJSON(w, http.StatusOK, engine.ReplaySequence(body))
}
