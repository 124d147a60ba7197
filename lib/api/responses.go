package api

import (
	"encoding/json"
	"net/http"
)

// DataResponse wraps response data in the standard format
type DataResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse wraps an error message in the standard format
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondJSON sends a JSON response wrapped in the standard format
func RespondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(DataResponse{Data: data})
}

// RespondOK sends a 200 OK response with data
func RespondOK(w http.ResponseWriter, data interface{}) {
	RespondJSON(w, http.StatusOK, data)
}

// RespondError sends an error response with the given status code
func RespondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// RespondValidationError sends a 400 Bad Request response
func RespondValidationError(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusBadRequest, message)
}

// RespondInternalError sends a 500 Internal Server Error response
func RespondInternalError(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusInternalServerError, message)
}

// RespondBadGateway sends a 502 Bad Gateway response (upstream list fetch
// problems)
func RespondBadGateway(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusBadGateway, message)
}
