package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/logger"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes; anything unknown is a 500 and gets logged.
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrEmailNotVerified):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrNoteNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrNoGeneratedQuiz):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyNote),
		errors.Is(err, domain.ErrNoNotes),
		errors.Is(err, domain.ErrNotEnoughContent),
		errors.Is(err, domain.ErrInvalidScope),
		errors.Is(err, domain.ErrAvatarNotImage),
		errors.Is(err, domain.ErrOptionOutOfRange),
		errors.Is(err, domain.ErrUnknownQuizSource),
		errors.Is(err, domain.ErrEmptyQuiz),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAvatarTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrSessionFinished),
		errors.Is(err, domain.ErrSessionNotFinished),
		errors.Is(err, domain.ErrAlreadySelected),
		errors.Is(err, domain.ErrNoSelection),
		errors.Is(err, domain.ErrAlreadySaved):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("invalid request body")

// decodeJSON reads a bounded JSON body. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errBadRequest
}
