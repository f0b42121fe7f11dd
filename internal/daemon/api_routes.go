package daemon

import "net/http"

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", a.Health)
	mux.HandleFunc("/v1/sessions", a.Sessions)
	mux.HandleFunc("/v1/sessions/", a.SessionByID)
	mux.HandleFunc("/v1/autodrive/sequence", a.AutoDriveSequence)
	mux.HandleFunc("/v1/usage", a.UsageReport)
	mux.HandleFunc("/v1/shutdown", a.ShutdownDaemon)
}
