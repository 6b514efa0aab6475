/*
Package resp provides helpers for writing the standardized HTTP JSON envelope
{code, message, data} used by every HTTP endpoint of the lobby server.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"lobby/internal/pkg/errs"
	"lobby/internal/pkg/logx"
)

// JSONResponse is the envelope returned by all HTTP endpoints.
type JSONResponse struct {
	// Code is 0 on success, otherwise an errs code.
	Code int `json:"code"`

	Message string `json:"message"`

	Data any `json:"data,omitempty"`
}

// RespondJSON marshals payload and writes it with the given status.
func RespondJSON(w http.ResponseWriter, httpStatus int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus)
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(httpStatus)

	if _, err := w.Write(body); err != nil {
		logx.Warn("Failed to write response body", "error", err.Error())
	}
}

// RespondSuccess writes a 200 response carrying data.
func RespondSuccess(w http.ResponseWriter, data any) {
	RespondJSON(w, http.StatusOK, JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// RespondError writes customErr using its own HTTP status. A nil error is reported as ErrUnknown.
func RespondError(w http.ResponseWriter, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, customErr.Status, JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}
