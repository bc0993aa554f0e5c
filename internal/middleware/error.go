package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination interface{} `json:"pagination,omitempty"`
}

// respondWithError sends a failure envelope
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, Response{
		Success: false,
		Message: message,
	})
}

// RespondWithError sends a failure envelope
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithError(w, statusCode, message)
}

// RespondWithValidationErrors sends the field errors in the data slot
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	writeJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Message: "validation failed",
		Data:    map[string]interface{}{"validation_errors": errors},
	})
}

// RespondWithData sends a success envelope
func RespondWithData(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithPage sends a success envelope with a pagination block
func RespondWithPage(w http.ResponseWriter, statusCode int, data, pagination interface{}) {
	writeJSON(w, statusCode, Response{
		Success:    true,
		Data:       data,
		Pagination: pagination,
	})
}

// RespondWithMessage sends a success envelope carrying only a message
func RespondWithMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, Response{
		Success: true,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					respondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
