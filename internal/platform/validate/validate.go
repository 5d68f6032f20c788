// Copyright (c) 2026 Howkings. All rights reserved.

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// All rules are evaluated client-side, before any network call. The signup
// form runs individual rules on every field change for immediate feedback,
// and the full chain again on step transitions and submission.
package validate

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/howkings/howkings-go/internal/platform/apperr"
	"github.com/howkings/howkings-go/pkg/phone"
)

// Password policy bounds.
const (
	PasswordMinLength = 8

	// NameMinLength and NameMaxLength bound person and organization names.
	NameMinLength = 2
	NameMaxLength = 50
)

// passwordSpecials is the set of characters that satisfy the special-character rule.
const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// ErrInvalidJSON is returned when a request body cannot be decoded.
var ErrInvalidJSON = apperr.Validation("Invalid JSON payload")

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the Unicode character count exceeds max.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// MinLen fails if the Unicode character count is below min.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.add(field, fmt.Sprintf("Minimum %d characters", min))
	}
	return v
}

// Name fails unless the value is a plausible person or organization name:
// non-empty and within [NameMinLength, NameMaxLength] runes.
//
// # Normalization
//
// The value is NFC-normalized before counting so composed and decomposed
// accents (common when pasting Lithuanian names) measure the same.
func (v *Validator) Name(field, value string) *Validator {
	normalized := norm.NFC.String(strings.TrimSpace(value))

	count := utf8.RuneCountInString(normalized)
	switch {
	case count < NameMinLength:
		v.add(field, fmt.Sprintf("Minimum %d characters", NameMinLength))
	case count > NameMaxLength:
		v.add(field, fmt.Sprintf("Maximum %d characters", NameMaxLength))
	}
	return v
}

// Email fails if the value is not a valid RFC 5322 email address.
func (v *Validator) Email(field, value string) *Validator {
	if _, err := mail.ParseAddress(value); err != nil {
		v.add(field, "Must be a valid email address")
	}
	return v
}

// Phone fails if the value cannot be normalized to international format.
func (v *Validator) Phone(field, value string) *Validator {
	if !phone.Valid(value) {
		v.add(field, "Must be a valid international phone number")
	}
	return v
}

// Password enforces the composed password policy: minimum length plus at
// least one uppercase letter, one digit, and one special character.
//
// Each missing property reports its own field error so the form can show
// the user everything that is still wrong at once.
func (v *Validator) Password(field, value string) *Validator {
	if utf8.RuneCountInString(value) < PasswordMinLength {
		v.add(field, fmt.Sprintf("Minimum %d characters", PasswordMinLength))
	}

	var hasUpper, hasDigit, hasSpecial bool
	for _, r := range value {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		v.add(field, "Must contain an uppercase letter")
	}
	if !hasDigit {
		v.add(field, "Must contain a digit")
	}
	if !hasSpecial {
		v.add(field, "Must contain a special character")
	}
	return v
}

// True fails with the message unless the condition holds.
//
// # Example
//
//	v.True("consent", form.Consent, "Consent is required")
func (v *Validator) True(field string, condition bool, message string) *Validator {
	if !condition {
		v.add(field, message)
	}
	return v
}

// OneOf fails if the value is not in the allowed set of strings.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.add(field, fmt.Sprintf("Must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Err returns an [apperr.AppError] (VALIDATION_ERROR) if any rules failed,
// or nil if all rules passed.
//
// This is the only output method; call it at the end of the chain.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.Validation("Validation failed", v.errs...)
}

// HasErrors reports whether any validation rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// Fields returns the accumulated field errors.
func (v *Validator) Fields() []apperr.FieldError {
	return v.errs
}

// add appends an [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
