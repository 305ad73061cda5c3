package crud

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Pagination describes the window a list response covers.
// Pages is ceil(Total / Limit).
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// Response is the envelope every handler writes, success or failure.
// On failure Error is always a short human-readable message; Details
// carries the raw cause for diagnostic clients such as the admin UI.
type Response struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Details    any         `json:"details,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// reject writes a client-attributable failure (bad input, missing row).
// These are not server faults and are not logged as errors.
func reject(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg})
}

// fail writes a failure backed by a data-layer or runtime error. The raw
// cause is preserved in Details and logged with the request id.
func (rs *Resource) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	rs.logger.Errorw(msg,
		"request_id", middleware.GetReqID(r.Context()),
		"table", rs.table,
		"status", status,
		"error", err,
	)

	resp := Response{Success: false, Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
