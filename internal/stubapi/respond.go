// Copyright (c) 2026 Howkings. All rights reserved.

package stubapi

import (
	"encoding/json"
	"net/http"

	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/pkg/pagination"
)

// envelope is the uniform response body. Every endpoint, success or failure,
// writes this shape so the SDK's interceptor chain can parse it blindly.
type envelope struct {
	Status  string           `json:"status"`
	Message string           `json:"message,omitempty"`
	Data    any              `json:"data,omitempty"`
	Tokens  any              `json:"tokens,omitempty"`
	Meta    *pagination.Meta `json:"meta,omitempty"`
}

// writeJSON writes any payload with the given status code.
func writeJSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// ok writes a success envelope.
func ok(writer http.ResponseWriter, message string, data any) {
	writeJSON(writer, http.StatusOK, envelope{
		Status:  constants.StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// created writes a 201 success envelope.
func created(writer http.ResponseWriter, message string, data any) {
	writeJSON(writer, http.StatusCreated, envelope{
		Status:  constants.StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// paginated writes a success envelope with a meta block.
func paginated(writer http.ResponseWriter, data any, meta pagination.Meta) {
	writeJSON(writer, http.StatusOK, envelope{
		Status: constants.StatusSuccess,
		Data:   data,
		Meta:   &meta,
	})
}

// fail writes an error envelope with the given status code.
func fail(writer http.ResponseWriter, statusCode int, message string) {
	writeJSON(writer, statusCode, envelope{
		Status:  constants.StatusError,
		Message: message,
	})
}

// unauthenticated writes the exact body marker the SDK keys its re-auth
// flow on.
func unauthenticated(writer http.ResponseWriter) {
	fail(writer, http.StatusUnauthorized, constants.UnauthenticatedMessage)
}
