package api

import (
	"encoding/json"
	"net/http"

	"github.com/xraph/carpark"
)

// envelope wraps every successful response.
type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// errorBody is returned for every failure. Error names the failure kind.
type errorBody struct {
	Message  string `json:"message"`
	Error    string `json:"error"`
	Expected string `json:"expected,omitempty"`
	Received string `json:"received,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errchkjson // client went away
}

func respond(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Message: "OK", Data: data})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind carpark.Kind) int {
	switch kind {
	case carpark.KindInvalidInput:
		return http.StatusBadRequest
	case carpark.KindInvalidDuration:
		return http.StatusUnprocessableEntity
	case carpark.KindNotFound:
		return http.StatusNotFound
	case carpark.KindAlreadyClosed:
		return http.StatusConflict
	case carpark.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response for err. Server-side failures are logged
// and their detail withheld from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := carpark.KindOf(err)
	status := statusFor(kind)
	h.metrics.ErrorsTotal.WithLabelValues(string(kind)).Inc()

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		LoggerFromContext(r.Context(), h.logger).Error("request failed",
			"path", r.URL.Path,
			"kind", kind,
			"error", err,
		)
		msg = http.StatusText(status)
	}

	writeJSON(w, status, errorBody{Message: msg, Error: string(kind)})
}

// enforce rejects a request whose method is not want with 405 and reports
// false.
func enforce(w http.ResponseWriter, r *http.Request, want string) bool {
	if r.Method == want {
		return true
	}
	w.Header().Set("Allow", want)
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{
		Message:  "Method Not Allowed",
		Error:    "method_not_allowed",
		Expected: want,
		Received: r.Method,
	})
	return false
}
