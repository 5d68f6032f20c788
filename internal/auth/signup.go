// Copyright (c) 2026 Howkings. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/howkings/howkings-go/internal/platform/apperr"
	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/internal/platform/kv"
	"github.com/howkings/howkings-go/internal/platform/validate"
	"github.com/howkings/howkings-go/pkg/phone"
)

// Step is a stage of the signup wizard.
type Step int

const (
	// StepBasicInfo collects names (or organization name) and the password.
	StepBasicInfo Step = iota

	// StepContacts collects email and phone.
	StepContacts

	// StepConfirmation reviews the data and collects consent.
	StepConfirmation
)

// Signup form field names. They match the backend's validation error keys so
// server-side failures merge into the same error map.
const (
	FieldAccountType      = "accountType"
	FieldFirstName        = "firstName"
	FieldLastName         = "lastName"
	FieldOrganizationName = "organizationName"
	FieldEmail            = "email"
	FieldPhone            = "phone"
	FieldPassword         = "password"
	FieldConsent          = "consent"
)

// signupDraft is the persisted form snapshot. The password is never part of
// it: the json tag is absent and the field does not exist here at all.
type signupDraft struct {
	AccountType      AccountType `json:"account_type"`
	FirstName        string      `json:"first_name,omitempty"`
	LastName         string      `json:"last_name,omitempty"`
	OrganizationName string      `json:"organization_name,omitempty"`
	Email            string      `json:"email,omitempty"`
	Phone            string      `json:"phone,omitempty"`
	Step             Step        `json:"step"`
}

// SignupForm is the stateful multi-step registration wizard.
//
// # Behavior
//
//   - Every field change is validated individually and the draft is saved,
//     so an abandoned signup resumes where it left off. The password is
//     excluded from the draft unconditionally.
//   - Advancing a step validates only that step's fields. Going back never
//     validates.
//   - Submission re-validates the confirmation step and requires consent.
type SignupForm struct {
	mu     sync.Mutex
	store  kv.Store
	logger *slog.Logger

	step        Step
	accountType AccountType

	firstName        string
	lastName         string
	organizationName string
	email            string
	phoneNumber      string
	password         string
	consent          bool

	fieldErrors map[string][]string
}

// NewSignupForm creates an empty wizard for the given account type.
func NewSignupForm(store kv.Store, accountType AccountType, logger *slog.Logger) *SignupForm {
	if accountType == "" {
		accountType = AccountIndividual
	}
	return &SignupForm{
		store:       store,
		logger:      logger,
		step:        StepBasicInfo,
		accountType: accountType,
		fieldErrors: make(map[string][]string),
	}
}

// Current returns the active step.
func (form *SignupForm) Current() Step {
	form.mu.Lock()
	defer form.mu.Unlock()
	return form.step
}

// Errors returns a copy of the field error map.
func (form *SignupForm) Errors() map[string][]string {
	form.mu.Lock()
	defer form.mu.Unlock()

	out := make(map[string][]string, len(form.fieldErrors))
	for field, messages := range form.fieldErrors {
		out[field] = append([]string(nil), messages...)
	}
	return out
}

// # Field Updates

// SetField updates one field, validates it in isolation, and saves the
// draft. The per-field validation result replaces any previous errors for
// that field only.
func (form *SignupForm) SetField(ctx context.Context, field, value string) {
	form.mu.Lock()

	switch field {
	case FieldFirstName:
		form.firstName = value
	case FieldLastName:
		form.lastName = value
	case FieldOrganizationName:
		form.organizationName = value
	case FieldEmail:
		form.email = value
	case FieldPhone:
		form.phoneNumber = value
	case FieldPassword:
		form.password = value
	default:
		form.mu.Unlock()
		return
	}

	form.setErrorsLocked(field, form.validateFieldLocked(field))
	form.mu.Unlock()

	form.saveDraft(ctx)
}

// SetConsent records the confirmation-step consent checkbox.
func (form *SignupForm) SetConsent(consent bool) {
	form.mu.Lock()
	defer form.mu.Unlock()

	form.consent = consent
	if consent {
		delete(form.fieldErrors, FieldConsent)
	}
}

func (form *SignupForm) validateFieldLocked(field string) []apperr.FieldError {
	var v validate.Validator
	switch field {
	case FieldFirstName:
		v.Required(field, form.firstName).Name(field, form.firstName)
	case FieldLastName:
		v.Required(field, form.lastName).Name(field, form.lastName)
	case FieldOrganizationName:
		v.Required(field, form.organizationName).Name(field, form.organizationName)
	case FieldEmail:
		v.Required(field, form.email).Email(field, form.email)
	case FieldPhone:
		v.Required(field, form.phoneNumber).Phone(field, form.phoneNumber)
	case FieldPassword:
		v.Password(field, form.password)
	}
	return v.Fields()
}

// # Step Transitions

// Next validates the active step and advances on success.
func (form *SignupForm) Next() error {
	form.mu.Lock()
	defer form.mu.Unlock()

	if form.step >= StepConfirmation {
		return nil
	}

	if err := form.validateStepLocked(form.step); err != nil {
		return err
	}

	form.step++
	return nil
}

// Back moves to the previous step. It never validates: the user must always
// be able to retreat from a half-filled step.
func (form *SignupForm) Back() {
	form.mu.Lock()
	defer form.mu.Unlock()

	if form.step > StepBasicInfo {
		form.step--
	}
}

func (form *SignupForm) validateStepLocked(step Step) error {
	var v validate.Validator

	switch step {
	case StepBasicInfo:
		if form.accountType == AccountOrganization {
			v.Required(FieldOrganizationName, form.organizationName).
				Name(FieldOrganizationName, form.organizationName)
		} else {
			v.Required(FieldFirstName, form.firstName).
				Name(FieldFirstName, form.firstName).
				Required(FieldLastName, form.lastName).
				Name(FieldLastName, form.lastName)
		}
		v.Password(FieldPassword, form.password)

	case StepContacts:
		v.Required(FieldEmail, form.email).
			Email(FieldEmail, form.email).
			Required(FieldPhone, form.phoneNumber).
			Phone(FieldPhone, form.phoneNumber)

	case StepConfirmation:
		v.True(FieldConsent, form.consent, "You must accept the terms to register")
	}

	form.mergeLocked(v.Fields())
	return v.Err()
}

// # Submission

// Submit finalizes the wizard and returns the registration input.
//
// The confirmation step is re-validated (consent included) and the phone
// number is normalized to international format. Submission does not clear
// the draft; call [SignupForm.ClearDraft] once registration succeeds.
func (form *SignupForm) Submit() (RegisterInput, error) {
	form.mu.Lock()
	defer form.mu.Unlock()

	if form.step != StepConfirmation {
		return RegisterInput{}, apperr.Validation("Complete all steps before submitting")
	}

	if err := form.validateStepLocked(StepConfirmation); err != nil {
		return RegisterInput{}, err
	}

	normalized, err := phone.Normalize(form.phoneNumber)
	if err != nil {
		form.setErrorsLocked(FieldPhone, []apperr.FieldError{
			{Field: FieldPhone, Message: "Must be a valid international phone number"},
		})
		return RegisterInput{}, apperr.Validation("Validation failed",
			apperr.FieldError{Field: FieldPhone, Message: "Must be a valid international phone number"})
	}

	return RegisterInput{
		Type:             form.accountType,
		FirstName:        form.firstName,
		LastName:         form.lastName,
		OrganizationName: form.organizationName,
		Email:            form.email,
		Phone:            normalized,
		Password:         form.password,
	}, nil
}

// ApplyServerErrors merges backend validation failures into the same error
// map the client-side rules write to, so the form renders both identically.
func (form *SignupForm) ApplyServerErrors(details []apperr.FieldError) {
	form.mu.Lock()
	defer form.mu.Unlock()
	form.mergeLocked(details)
}

// # Draft Persistence

// LoadDraft restores a previously saved form. A missing or corrupt draft
// leaves the form empty.
func (form *SignupForm) LoadDraft(ctx context.Context) {
	raw, err := form.store.Get(ctx, constants.StorageKeySignupDraft)
	if err != nil {
		return
	}

	var draft signupDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		form.logger.Warn("signup_draft_corrupt", slog.Any("error", err))
		return
	}

	form.mu.Lock()
	defer form.mu.Unlock()

	if draft.AccountType != "" {
		form.accountType = draft.AccountType
	}
	form.firstName = draft.FirstName
	form.lastName = draft.LastName
	form.organizationName = draft.OrganizationName
	form.email = draft.Email
	form.phoneNumber = draft.Phone
	if draft.Step >= StepBasicInfo && draft.Step <= StepConfirmation {
		form.step = draft.Step
	}
}

// ClearDraft removes the persisted draft.
func (form *SignupForm) ClearDraft(ctx context.Context) {
	if err := form.store.Delete(ctx, constants.StorageKeySignupDraft); err != nil {
		form.logger.Warn("signup_draft_clear_failed", slog.Any("error", err))
	}
}

func (form *SignupForm) saveDraft(ctx context.Context) {
	form.mu.Lock()
	draft := signupDraft{
		AccountType:      form.accountType,
		FirstName:        form.firstName,
		LastName:         form.lastName,
		OrganizationName: form.organizationName,
		Email:            form.email,
		Phone:            form.phoneNumber,
		Step:             form.step,
	}
	form.mu.Unlock()

	raw, err := json.Marshal(draft)
	if err != nil {
		return
	}
	if err := form.store.Set(ctx, constants.StorageKeySignupDraft, string(raw)); err != nil {
		form.logger.Warn("signup_draft_save_failed", slog.Any("error", err))
	}
}

// # Error Map Maintenance

func (form *SignupForm) setErrorsLocked(field string, errs []apperr.FieldError) {
	delete(form.fieldErrors, field)
	for _, fieldErr := range errs {
		form.fieldErrors[fieldErr.Field] = append(form.fieldErrors[fieldErr.Field], fieldErr.Message)
	}
}

func (form *SignupForm) mergeLocked(errs []apperr.FieldError) {
	touched := make(map[string]bool, len(errs))
	for _, fieldErr := range errs {
		if !touched[fieldErr.Field] {
			delete(form.fieldErrors, fieldErr.Field)
			touched[fieldErr.Field] = true
		}
		form.fieldErrors[fieldErr.Field] = append(form.fieldErrors[fieldErr.Field], fieldErr.Message)
	}
}
