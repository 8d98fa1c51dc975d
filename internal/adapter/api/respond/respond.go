// Package respond writes the gateway's JSON responses.
package respond

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/V4T54L/compliance-gate/internal/pkg/reqctx"
)

// InternalErrorMessage is the only message a client ever sees for a fault.
const InternalErrorMessage = "Internal server error"

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v as a JSON body with status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": message} with status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Error: message})
}

// Internal logs err with its Go type and writes the generic 500 body. The
// error itself never reaches the client.
func Internal(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.Error("request failed",
		"error_type", fmt.Sprintf("%T", err),
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", reqctx.RequestID(r.Context()),
	)
	Error(w, http.StatusInternalServerError, InternalErrorMessage)
}
