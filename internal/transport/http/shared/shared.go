// Package shared holds transport helpers used by every feature handler:
// JSON rendering and the single place where domain error codes become HTTP
// statuses.
package shared

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "cdcvoucher/pkg/domain-errors"
)

// statusFor maps domain error codes to HTTP statuses. Structural request
// problems are 400, semantic ones 422; a spent voucher is a 409 conflict, not
// a client mistake.
func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeFormat:
		return http.StatusBadRequest
	case dErrors.CodeValidation, dErrors.CodeEmptyBundle:
		return http.StatusUnprocessableEntity
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeAlreadyRedeemed, dErrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// WriteError translates a domain error into the JSON error envelope. The
// message is echoed to the client except for internal errors, which keep
// infrastructure details out of responses.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)

	body := map[string]string{"error": string(code)}
	var domainErr *dErrors.Error
	if status != http.StatusInternalServerError && errors.As(err, &domainErr) {
		body["error_description"] = domainErr.Message
	}
	WriteJSON(w, status, body)
}

// DecodeJSON parses the request body into v, returning a coded error the
// caller passes straight to WriteError.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
