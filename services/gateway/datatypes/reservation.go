// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Field-Level Error Strings
// =============================================================================

// Client-facing validation messages. The frontend matches on these
// verbatim, so they are part of the wire contract.
const (
	ReservationErrNoData       = "Malformatted or missing reservation data"
	ReservationErrCake         = "Incorrect or missing cake type"
	ReservationErrName         = "Incorrect or missing recipient's name"
	ReservationErrBirthdayDate = "Incorrect or missing birthday date"
	ReservationErrBirthday     = "Cake can be reserved 1 day before the birthday!"
	ReservationErrAddress      = "Incorrect or missing recipient's address"
	ReservationErrCity         = "Incorrect or missing delivery city"
	ReservationErrCityName     = "Delivery is available only in Helsinki, Espoo or Vantaa"
	ReservationErrMessage      = "Incorrect greeting message"
)

// DeliveryCities are the accepted delivery destinations, lowercase.
var DeliveryCities = []string{"helsinki", "espoo", "vantaa"}

// =============================================================================
// Shared Validator Instance
// =============================================================================

// reservationValidate is the validator instance for reservation bodies.
// Initialized in init() with the custom validators below.
var reservationValidate *validator.Validate

func init() {
	reservationValidate = validator.New()

	// Report struct fields by their json names so "field is missing"
	// messages use the wire-level names.
	reservationValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = reservationValidate.RegisterValidation("notblank", validateNotBlank)
	_ = reservationValidate.RegisterValidation("bdate", validateBirthdayDate)
	_ = reservationValidate.RegisterValidation("nextday", validateNextDay)
	_ = reservationValidate.RegisterValidation("deliverycity", validateDeliveryCity)
}

// validateNotBlank rejects strings that are empty after trimming.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateBirthdayDate checks that the value parses as a date.
func validateBirthdayDate(fl validator.FieldLevel) bool {
	_, err := parseBirthdayValue(fl.Field().String())
	return err == nil
}

// validateNextDay checks the one-day-before reservation rule.
func validateNextDay(fl validator.FieldLevel) bool {
	birthday, err := parseBirthdayValue(fl.Field().String())
	if err != nil {
		return false
	}
	return isNextDay(birthday, time.Now())
}

// validateDeliveryCity checks membership in DeliveryCities, ignoring case.
func validateDeliveryCity(fl validator.FieldLevel) bool {
	city := strings.ToLower(strings.TrimSpace(fl.Field().String()))
	for _, c := range DeliveryCities {
		if city == c {
			return true
		}
	}
	return false
}

// parseBirthdayValue accepts an RFC 3339 timestamp or a plain date.
func parseBirthdayValue(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// isNextDay reports whether the birthday, moved into the current year,
// falls within the next 24 hours on a different calendar day. Cakes are
// baked overnight, so a reservation is accepted exactly one day ahead.
func isNextDay(birthday, now time.Time) bool {
	b := time.Date(now.Year(), birthday.Month(), birthday.Day(),
		birthday.Hour(), birthday.Minute(), birthday.Second(), 0, now.Location())
	diff := b.Sub(now)
	return b.Day() != now.Day() && diff > 0 && diff <= 24*time.Hour
}

// =============================================================================
// Reservation Body
// =============================================================================

// ReservationBody is the validated payload of a cake reservation: the cake
// selection plus delivery details.
//
// # Description
//
// The body arrives as a JSON document or a multipart form. Validate
// normalizes the fields in place (trimming, unsafe-character stripping,
// city lowercasing, birthday reduced to a plain date) and returns the
// list of field-level problems, empty when the body is acceptable.
//
// Image is not part of the submitted body; the upload handler sets it to
// the stored artifact name after a successful image upload.
type ReservationBody struct {
	Cake     string `json:"cake" form:"cake" validate:"required,notblank"`
	Name     string `json:"name" form:"name" validate:"required,notblank"`
	Birthday string `json:"birthday" form:"birthday" validate:"required,bdate,nextday"`
	Address  string `json:"address" form:"address" validate:"required,notblank"`
	City     string `json:"city" form:"city" validate:"required,notblank,deliverycity"`
	Message  string `json:"message,omitempty" form:"message"`
	Image    string `json:"-" form:"-"`
}

// Validate sanitizes the body and returns client-facing error messages.
//
// # Outputs
//
//   - []string: One message per invalid field, in struct order. Empty
//     when the body is valid. On success the body has been normalized.
func (b *ReservationBody) Validate() []string {
	b.Cake = sanitize(b.Cake)
	b.Name = sanitize(b.Name)
	b.Birthday = strings.TrimSpace(b.Birthday)
	b.Address = sanitize(b.Address)
	b.City = strings.TrimSpace(b.City)
	b.Message = sanitize(b.Message)

	err := reservationValidate.Struct(b)
	if err == nil {
		b.normalize()
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{ReservationErrNoData}
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, fieldMessage(fe))
	}
	return messages
}

// normalize rewrites validated fields into their canonical form.
func (b *ReservationBody) normalize() {
	birthday, _ := parseBirthdayValue(b.Birthday)
	b.Birthday = birthday.Format("2006-01-02")
	b.City = strings.ToLower(b.City)
}

// BirthdayParts splits the normalized birthday into year, month and day.
// Valid only after a successful Validate.
func (b *ReservationBody) BirthdayParts() (year, month, day string) {
	parts := strings.SplitN(b.Birthday, "-", 3)
	if len(parts) != 3 {
		return "", "", ""
	}
	return parts[0], parts[1], parts[2]
}

// fieldMessage maps a validator failure to the client-facing string.
func fieldMessage(fe validator.FieldError) string {
	if fe.Tag() == "required" {
		return fmt.Sprintf("%s field is missing", fe.Field())
	}

	switch fe.Field() {
	case "cake":
		return ReservationErrCake
	case "name":
		return ReservationErrName
	case "birthday":
		if fe.Tag() == "bdate" {
			return ReservationErrBirthdayDate
		}
		return ReservationErrBirthday
	case "address":
		return ReservationErrAddress
	case "city":
		if fe.Tag() == "deliverycity" {
			return ReservationErrCityName
		}
		return ReservationErrCity
	case "message":
		return ReservationErrMessage
	default:
		return fmt.Sprintf("%s field is invalid", fe.Field())
	}
}

// sanitize trims the value and strips characters that could smuggle
// markup into pages where reservations are displayed.
func sanitize(value string) string {
	value = strings.TrimSpace(value)
	return strings.Map(func(r rune) rune {
		switch r {
		case '&', '<', '>', ';', '"', '\'':
			return -1
		}
		return r
	}, value)
}
