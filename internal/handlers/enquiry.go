package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/models"
)

type enquiryRequest struct {
	Businessname *string        `json:"businessname"`
	Price        *string        `json:"price"`
	Reservations *string        `json:"reservations"`
	Name         string         `json:"name" validate:"required,min=3,max=30"`
	Phoneno      string         `json:"phoneno" validate:"required,len=10"`
	Email        string         `json:"email" validate:"required,email"`
	Message      optionalString `json:"message"`
}

// optionalString tells an omitted key apart from an explicit null.
type optionalString struct {
	Value *string
	Set   bool
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// check accepts an omitted key and rejects null or an empty string.
func (o optionalString) check(field string) error {
	switch {
	case !o.Set:
		return nil
	case o.Value == nil:
		return apperr.Validation(fmt.Sprintf("%q must be a string", field))
	case *o.Value == "":
		return apperr.Validation(fmt.Sprintf("%q is not allowed to be empty", field))
	}
	return nil
}

// RegisterEnquiry validates and stores a quick enquiry, then notifies the
// sales inbox. A failed notification does not fail the request.
func (a *API) RegisterEnquiry(w http.ResponseWriter, r *http.Request) error {
	var req enquiryRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	if err := req.Message.check("message"); err != nil {
		return err
	}

	enquiry := &models.QuickEnquiry{
		Businessname: req.Businessname,
		Price:        req.Price,
		Reservations: req.Reservations,
		Name:         req.Name,
		Phoneno:      req.Phoneno,
		Email:        req.Email,
		Message:      req.Message.Value,
	}
	ctx := r.Context()
	if err := a.enquiries.CreateEnquiry(ctx, enquiry); err != nil {
		return apperr.Persistence("Error saving enquiry", err)
	}

	if err := a.notifier.EnquiryReceived(ctx, enquiry); err != nil {
		zap.L().Warn("failed to send enquiry notification", zap.String("enquiry_id", enquiry.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Data inserted successfully"})
	return nil
}
