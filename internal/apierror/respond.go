package apierror

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// body is the client-facing JSON shape for any error response.
type body struct {
	Error string `json:"error"`
	Kind  Kind   `json:"kind"`
}

// Respond writes err to w as a JSON error body, mapping its Kind to the
// appropriate status code. It never writes the wrapped cause to the
// response body; that detail goes to the provided logger only.
func Respond(w http.ResponseWriter, log *slog.Logger, err error) {
	apiErr := As(err)

	if log != nil {
		log.Error("request failed",
			"kind", apiErr.Kind,
			"status", apiErr.HTTPStatus(),
			"error", apiErr.Error(),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus())
	_ = json.NewEncoder(w).Encode(body{Error: apiErr.Message, Kind: apiErr.Kind})
}
