// Package handlers holds the HTTP controllers. Every controller returns an
// error instead of writing failures itself; Wrap hands those errors to the
// terminal error writer.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/auth"
	"github.com/petermazzocco/go-catalog-api/internal/blob"
	"github.com/petermazzocco/go-catalog-api/internal/mail"
	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/internal/upload"
)

const maxJSONBody = 1 << 20

type Deps struct {
	Products  store.ProductStore
	Images    store.ImageStore
	Enquiries store.EnquiryStore
	Auth      *auth.Service
	Uploads   *upload.Uploader
	Blobs     blob.Store
	Notifier  mail.Notifier

	// PathPrefix is inserted between the host and the stored relative path
	// when absolute URLs are built, e.g. "/app1".
	PathPrefix string
	Debug      bool
}

type API struct {
	products   store.ProductStore
	images     store.ImageStore
	enquiries  store.EnquiryStore
	auth       *auth.Service
	uploads    *upload.Uploader
	blobs      blob.Store
	notifier   mail.Notifier
	validate   *validator.Validate
	pathPrefix string
	debug      bool
}

func New(d Deps) *API {
	notifier := d.Notifier
	if notifier == nil {
		notifier = mail.Nop{}
	}
	return &API{
		products:   d.Products,
		images:     d.Images,
		enquiries:  d.Enquiries,
		auth:       d.Auth,
		uploads:    d.Uploads,
		blobs:      d.Blobs,
		notifier:   notifier,
		validate:   NewValidator(),
		pathPrefix: strings.TrimRight(d.PathPrefix, "/"),
		debug:      d.Debug,
	}
}

// HandlerFunc is a controller that reports failures by returning them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Wrap adapts fn to http.HandlerFunc, sending returned errors to WriteError.
func (a *API) Wrap(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			a.WriteError(w, r, err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// decodeJSON reads a JSON object from the request body into v. An empty body
// leaves v untouched so that validation reports the missing fields. With
// strict set, unknown keys are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if strict {
		dec.DisallowUnknownFields()
	}
	err := dec.Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperr.Validation(fmt.Sprintf("%q must be a %s", typeErr.Field, jsonType(typeErr.Type)))
	}
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return apperr.Validation(fmt.Sprintf("%s is not allowed", field))
	}
	return apperr.InvalidInput("Invalid JSON body").WithErr(err)
}

func jsonType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	}
	return "number"
}
