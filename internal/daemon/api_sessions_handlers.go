package daemon

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/MatthewUtzig/lightcode/internal/engine"
	"github.com/MatthewUtzig/lightcode/internal/logging"
)

// writeReason reports a session-level failure in the submission result shape.
// These ride HTTP 200: the transport worked, the submission did not.
func writeReason(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusOK, engine.SubmitResult{Status: engine.StatusError, Reason: reason})
}

func (a *API) Sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, ListSessionsResponse{
			Status:   engine.StatusOK,
			Sessions: a.Engine.ListSessions(),
		})
	case http.MethodPost:
		// The create body carries no options; it is intentionally ignored.
		id := a.Engine.StartSession()
		writeJSON(w, http.StatusOK, CreateSessionResponse{
			Status:    engine.StatusOK,
			SessionID: id,
		})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) SessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeServiceError(w, notFoundError("not found"))
		return
	}

	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		writeReason(w, engine.ReasonInvalidSessionID)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodDelete {
			writeMethodNotAllowed(w)
			return
		}
		a.closeSession(w, id)
		return
	}

	switch parts[1] {
	case "turns":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		a.submitTurn(w, r, id)
	case "events":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		a.pollEvents(w, r, id)
	default:
		writeServiceError(w, notFoundError("not found"))
	}
}

func (a *API) submitTurn(w http.ResponseWriter, r *http.Request, id uint64) {
	reqID := logging.NewRequestID()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeServiceError(w, invalidError("read request body", err))
		return
	}
	if a.Logger != nil && a.Logger.Enabled(logging.Debug) {
		a.Logger.Debug("turn received",
			logging.F("req_id", reqID),
			logging.F("session_id", id),
			logging.F("bytes", len(body)),
		)
	}

	result := a.Engine.SubmitTurn(r.Context(), id, body)
	if a.Logger != nil {
		if result.Status == engine.StatusOK {
			a.Logger.Info("turn accepted",
				logging.F("req_id", reqID),
				logging.F("session_id", id),
				logging.F("steps", len(result.Steps)),
			)
		} else {
			a.Logger.Warn("turn rejected",
				logging.F("req_id", reqID),
				logging.F("session_id", id),
				logging.F("reason", result.Reason),
			)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) pollEvents(w http.ResponseWriter, r *http.Request, id uint64) {
	cursor := uint64(0)
	if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeReason(w, engine.ReasonInvalidSubmission)
			return
		}
		cursor = parsed
	}

	events, next, err := a.Engine.PollEvents(id, cursor)
	if err != nil {
		writeReason(w, engine.ReasonSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, EventsResponse{
		Status:     engine.StatusOK,
		Events:     events,
		NextCursor: next,
	})
}

func (a *API) closeSession(w http.ResponseWriter, id uint64) {
	if err := a.Engine.CloseSession(id); err != nil {
		writeReason(w, engine.ReasonSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, engine.SubmitResult{Status: engine.StatusOK})
}
