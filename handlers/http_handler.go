// Package handlers provides the HTTP handlers of the medication lookup API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/giygas/medlookup-api/entities"
	"github.com/giygas/medlookup-api/interfaces"
	"github.com/giygas/medlookup-api/logging"
	"github.com/giygas/medlookup-api/lookup"
	"github.com/go-chi/chi/v5"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	lookuper  interfaces.Lookuper
	validator interfaces.QueryValidator
	health    interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(lookuper interfaces.Lookuper, validator interfaces.QueryValidator, health interfaces.HealthChecker) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		lookuper:  lookuper,
		validator: validator,
		health:    health,
	}
}

// HealthResponse keeps the /health fields in a stable order
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details"`
}

// RespondWithJSON writes payload as JSON with the given status code
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	h.RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// LookupMedication serves GET /v1/medications/{name}
func (h *HTTPHandlerImpl) LookupMedication(w http.ResponseWriter, r *http.Request) {
	// chi hands back the escaped segment when the request carried a raw path
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, lookup.MsgEmptyQuery)
		return
	}
	h.lookup(w, r, name)
}

// SearchMedication serves GET /v1/medications?name=
func (h *HTTPHandlerImpl) SearchMedication(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, r.URL.Query().Get("name"))
}

func (h *HTTPHandlerImpl) lookup(w http.ResponseWriter, r *http.Request, name string) {
	if strings.TrimSpace(name) == "" {
		h.RespondWithError(w, http.StatusBadRequest, lookup.MsgEmptyQuery)
		return
	}

	if err := h.validator.ValidateInput(name); err != nil {
		logging.Debug("Rejected drug name", "error", err)
		h.RespondWithError(w, http.StatusBadRequest, lookup.MsgEmptyQuery)
		return
	}

	outcome, err := h.lookuper.Lookup(r.Context(), name)
	switch {
	case errors.Is(err, lookup.ErrEmptyQuery):
		h.RespondWithError(w, http.StatusBadRequest, lookup.MsgEmptyQuery)
		return
	case err != nil:
		logging.Error("Lookup returned an unexpected error", "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, lookup.MsgLookupFailed)
		return
	}

	h.RespondWithJSON(w, statusCode(outcome.Status), outcome)
}

// statusCode maps a lookup status to its HTTP code
func statusCode(status entities.Status) int {
	switch status {
	case entities.StatusResolved:
		return http.StatusOK
	case entities.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// HealthCheck serves GET /health
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, code := h.health.HealthCheck()
	h.RespondWithJSON(w, code, HealthResponse{Status: status, Details: details})
}
