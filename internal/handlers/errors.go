package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/auth"
	"github.com/petermazzocco/go-catalog-api/internal/store"
)

// WriteError is the terminal error writer. Classified errors keep their
// status and message; anything else becomes a 500 whose cause is only shown
// in debug mode.
func (a *API) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	log := zap.L().With(
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)

	e := classify(err)
	if e == nil {
		log.Error("unhandled error")
		body := map[string]any{"msg": "internal server error"}
		if a.debug {
			body["originalError"] = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}

	if e.Status >= http.StatusInternalServerError {
		log.Error(e.Message, zap.Stringer("kind", e.Kind))
	} else {
		log.Info(e.Message, zap.Stringer("kind", e.Kind), zap.Int("status", e.Status))
	}
	writeJSON(w, e.Status, a.errorBody(e))
}

func classify(err error) *apperr.Error {
	if e, ok := apperr.As(err); ok {
		return e
	}
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return apperr.Validation(validationMessage(verrs))
	case errors.Is(err, auth.ErrDuplicateUser):
		return apperr.DuplicateUser()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperr.InvalidCredentials()
	case errors.Is(err, auth.ErrPasswordTooLong):
		return apperr.Validation(fmt.Sprintf(`"password" length must be less than or equal to %d characters long`, auth.MaxPasswordBytes))
	case errors.Is(err, auth.ErrInvalidToken):
		return apperr.Unauthorized("Invalid or missing token")
	case errors.Is(err, store.ErrInvalidID):
		return apperr.InvalidID("Invalid ID format")
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Not found")
	}
	return nil
}

func (a *API) errorBody(e *apperr.Error) map[string]any {
	key := "error"
	switch e.Kind {
	case apperr.KindDuplicateUser, apperr.KindInvalidCredentials, apperr.KindUnauthorized:
		key = "msg"
	case apperr.KindValidation:
		key = "message"
	}
	if e.Key != "" {
		key = e.Key
	}

	body := map[string]any{key: e.Message}
	switch {
	case e.Details != "":
		body["details"] = e.Details
	case a.debug && e.Err != nil:
		body["details"] = e.Err.Error()
	}
	return body
}
