package http

import (
	"encoding/json"
	"errors"
	"net/http"

	applog "billtrack/internal/log"
	"billtrack/internal/services"
	"billtrack/internal/storage"
)

// errorBody is the JSON shape of every failure: {"error": "..."}.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// errorStatus maps service and storage errors to a status and the message
// shown to clients. Unknown errors are reported as 500 with a generic text.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrRowNotFound):
		return http.StatusNotFound, "Row not found"
	case errors.Is(err, storage.ErrIndexOutOfRange):
		return http.StatusBadRequest, "Index out of range"
	case errors.Is(err, services.ErrNotEditable),
		errors.Is(err, services.ErrNoStoredPDF),
		errors.Is(err, services.ErrEmptyUpload):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrStoredPDFMissing):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// fail logs 5xx failures with the request-scoped logger and writes the
// mapped error body.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, op, applog.FieldError, err)
	}
	writeError(w, status, msg)
}

func writePDF(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
