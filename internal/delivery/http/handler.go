package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"careercompass/pkg/apperr"

	"go.uber.org/zap"
)

// Response is the uniform envelope every endpoint returns.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// writeError maps the error taxonomy to a status code. Internal causes are
// logged and replaced with a generic message so nothing leaks to clients.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	code := apperr.CodeOf(err)
	status := apperr.HTTPStatus(code)

	message := "internal server error"
	var ae *apperr.Error
	if errors.As(err, &ae) && code != apperr.CodeInternal {
		message = ae.Message
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	}

	writeJSON(w, status, Response{Success: false, Message: message})
}
