// Copyright (c) 2026 Howkings. All rights reserved.

// Package phone validates and normalizes phone numbers to international form.
//
// # Scope
//
// This is a syntactic check only: the backend is the authority on whether a
// number is reachable. The client needs numbers in one canonical shape
// ("+" followed by 7-15 digits, per E.164 length rules) so that drafts,
// validation, and the registration payload all agree.
package phone

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalid is returned when the input cannot be interpreted as an
// international phone number.
var ErrInvalid = errors.New("phone: not a valid international number")

// E.164 bounds: country code plus subscriber number.
const (
	minDigits = 7
	maxDigits = 15
)

// Normalize converts free-form input into canonical international format.
//
// # Accepted Input
//
// Formatting runes (spaces, dots, hyphens, parentheses) are stripped. The
// international prefix may be written as "+" or "00". Purely national
// numbers (no prefix) are rejected; the caller cannot guess the country.
//
// Examples:
//
//	Normalize("+370 600 12345")  // "+37060012345"
//	Normalize("00370-600-12345") // "+37060012345"
//	Normalize("860012345")       // ErrInvalid
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalid
	}

	hasPlus := strings.HasPrefix(trimmed, "+")
	if hasPlus {
		trimmed = trimmed[1:]
	}

	var digits strings.Builder
	for _, r := range trimmed {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			// Formatting noise.
		default:
			return "", ErrInvalid
		}
	}

	number := digits.String()

	// "00" is the dialled form of the international prefix.
	if !hasPlus {
		if !strings.HasPrefix(number, "00") {
			return "", ErrInvalid
		}
		number = strings.TrimPrefix(number, "00")
	}

	if len(number) < minDigits || len(number) > maxDigits {
		return "", ErrInvalid
	}

	// A country code never starts with zero.
	if number[0] == '0' {
		return "", ErrInvalid
	}

	return "+" + number, nil
}

// Valid reports whether raw normalizes to an international number.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}
