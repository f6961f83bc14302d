package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"coloc/internal/core"
)

type errorResponse struct {
	Error    string `json:"error"`
	GapCents *int64 `json:"gap_cents,omitempty"`
	Phase    string `json:"phase,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encoding failed", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses. Closure gaps carry the
// signed remaining amount so clients can display it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var allocErr *core.AllocationError
	switch {
	case errors.As(err, &allocErr):
		status = http.StatusUnprocessableEntity
		gap := allocErr.Gap.Cents
		resp.GapCents = &gap
		resp.Phase = string(allocErr.Phase)
	case errors.Is(err, core.ErrMonthNotFound), errors.Is(err, core.ErrTransactionNotFound), errors.Is(err, core.ErrMemberNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrMonthExists), errors.Is(err, core.ErrMemberExists), errors.Is(err, core.ErrMonthClosed):
		status = http.StatusConflict
	case errors.Is(err, core.ErrReopenDenied):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyDescription), errors.Is(err, core.ErrEmptyMember),
		errors.Is(err, core.ErrInvalidType), errors.Is(err, core.ErrInvalidMonthKey),
		errors.Is(err, core.ErrUnknownMonth), errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidRule), errors.Is(err, core.ErrDescriptionTooLong):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "url", r.URL.Path, "error", err)
	}
	writeJSON(w, status, resp)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
