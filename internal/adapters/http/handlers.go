package web

import (
	"errors"
	"fmt"
	"net/http"

	"leadtracker/internal/adapters/http/middleware"
)

// maxFormBytes caps request bodies, multipart included.
const maxFormBytes = 1 << 20

// handleExec dispatches the action endpoint.
// GET carries the action and its parameters in the query string; POST in
// form fields (urlencoded or multipart). Every response is an envelope.
func (a *api) handleExec(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeEnvelope(w, http.StatusMethodNotAllowed, envelope{Message: "Method not allowed"})
		return
	}
	if err := parseForm(w, r); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Message: "Invalid form"})
		return
	}

	name := r.Form.Get("action")
	if name == "" && r.Method == http.MethodGet {
		writeEnvelope(w, http.StatusOK, envelope{Success: true, Message: "CRM API is running"})
		return
	}

	act, err := ParseAction(name)
	if err != nil {
		middleware.SetRouteLabel(r.Context(), "invalid_action")
		writeError(w, err)
		return
	}
	middleware.SetRouteLabel(r.Context(), string(act))

	if r.Method != act.Method() {
		writeEnvelope(w, http.StatusMethodNotAllowed, envelope{
			Message: fmt.Sprintf("%s requires %s", act, act.Method()),
		})
		return
	}

	res, err := a.routes[act](r.Context(), r.Form)
	if err != nil {
		writeError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Message: res.message, Data: res.data})
}

// parseForm fills r.Form from the query string and, for POST, the body.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return r.ParseForm()
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	err := r.ParseMultipartForm(maxFormBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}
