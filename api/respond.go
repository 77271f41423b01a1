package api

import (
	"errors"
	"net/http"

	"meal-admin/auth"
	"meal-admin/services"
	"meal-admin/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/hlog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const loginPath = "/login"

type errorBody struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// authFailure rejects the request, clears the session and points the client
// back to the login page.
func authFailure(w http.ResponseWriter, status int, msg string) {
	auth.ClearCookie(w)
	writeJSON(w, status, errorBody{Error: msg, Redirect: loginPath})
}

// fail maps err to a response. Validation errors are 400 with the reason,
// missing rows 404; anything else is logged and answered with msg as a 500.
func fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidMeal),
		errors.Is(err, storage.ErrNotImage),
		errors.Is(err, storage.ErrTooLarge):
		badRequest(w, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	default:
		hlog.FromRequest(r).Error().Err(err).Msg(msg)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msg})
	}
}

// validID reports whether id is a UUID and answers 400 if it is not.
func validID(w http.ResponseWriter, id string) bool {
	if _, err := uuid.Parse(id); err != nil {
		badRequest(w, "invalid id")
		return false
	}
	return true
}
