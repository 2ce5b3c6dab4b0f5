package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

// apiResponse is the JSON envelope every API endpoint speaks.
type apiResponse struct {
	Result  bool   `json:"result"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, apiResponse{Result: true, Message: "ok", Data: data})
}

// writeError maps the service error taxonomy onto HTTP statuses. Not-found
// and expired stay one message so the API never confirms what exists.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
		message = "invalid or expired share"
	case errors.Is(err, common.ErrorSessionNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, common.ErrInvalidToken):
		status = http.StatusForbidden
		message = "invalid token"
	case errors.Is(err, common.ErrorTooLarge):
		status = http.StatusRequestEntityTooLarge
		message = err.Error()
	case errors.Is(err, common.ErrorEmptyContent),
		errors.Is(err, common.ErrorBadChunk):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, common.ErrorIncompleteUpload),
		errors.Is(err, common.ErrorExhausted):
		// Retryable with fresh parameters.
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, common.ErrorUnauthorized):
		status = http.StatusUnauthorized
		message = "unauthorized"
	}

	writeJSON(w, status, apiResponse{Result: false, Message: message})
}
