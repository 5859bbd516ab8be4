package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/lessonlift/backend/internal/contextkeys"
	"github.com/lessonlift/backend/internal/domain"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	var body []byte
	if data != nil {
		var err error
		if body, err = json.Marshal(data); err != nil {
			status = http.StatusInternalServerError
			body = []byte(`{"error":"internal server error"}`)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_, _ = w.Write(append(body, '\n'))
	}
}

// Error writes an error JSON response, using AppError status codes when available.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := resolve(r, err)
	JSON(w, code, map[string]string{"error": msg})
}

// Failure writes the {success:false, error} body used by the function endpoints.
func Failure(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := resolve(r, err)
	JSON(w, code, map[string]interface{}{"success": false, "error": msg})
}

func resolve(r *http.Request, err error) (int, string) {
	log := zerolog.Ctx(r.Context())
	if appErr, ok := domain.AsAppError(err); ok {
		if appErr.Code >= http.StatusInternalServerError || appErr.Err != nil {
			log.Error().Err(err).Int("status", appErr.Code).Msg("request failed")
		}
		return appErr.Code, appErr.Message
	}
	log.Error().Err(err).Msg("unhandled error")
	return http.StatusInternalServerError, "internal server error"
}

// MaxBodyBytes caps request bodies read by DecodeJSON.
const MaxBodyBytes = 64 << 10

// DecodeJSON decodes a JSON request body into the given struct.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &domain.AppError{Code: http.StatusRequestEntityTooLarge, Message: "request body too large"}
		}
		return domain.ErrBadRequest("invalid JSON body")
	}
	return nil
}

// sessionFrom rebuilds the caller's session from the values the auth
// middleware stored on the request context.
func sessionFrom(r *http.Request) (*domain.Session, bool) {
	ctx := r.Context()
	userID, ok := ctx.Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		return nil, false
	}
	email, _ := ctx.Value(contextkeys.UserEmail).(string)
	role, _ := ctx.Value(contextkeys.UserRole).(string)
	return &domain.Session{UserID: userID, Email: email, Role: role}, true
}
