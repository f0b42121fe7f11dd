package daemon

import (
	"net/http"

	"github.com/MatthewUtzig/lightcode/internal/engine"
)

func (a *API) UsageReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, UsageResponse{
		Status: engine.StatusOK,
		Usage:  a.Engine.Usage(),
	})
}
