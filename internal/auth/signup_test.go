// Copyright (c) 2026 Howkings. All rights reserved.

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/howkings/howkings-go/internal/auth"
	"github.com/howkings/howkings-go/internal/platform/apperr"
	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/internal/platform/kv"
)

// fillBasicInfo completes the first wizard step with valid values.
func fillBasicInfo(ctx context.Context, form *auth.SignupForm) {
	form.SetField(ctx, auth.FieldFirstName, "Greta")
	form.SetField(ctx, auth.FieldLastName, "Kazlauskaitė")
	form.SetField(ctx, auth.FieldPassword, "Slaptazodis9!")
}

// fillContacts completes the second wizard step with valid values.
func fillContacts(ctx context.Context, form *auth.SignupForm) {
	form.SetField(ctx, auth.FieldEmail, "greta@example.com")
	form.SetField(ctx, auth.FieldPhone, "+370 698 76543")
}

/*
TestSignupForm_StepGating advances only past a valid step, and Back never
validates.
*/
func TestSignupForm_StepGating(t *testing.T) {
	ctx := context.Background()
	form := auth.NewSignupForm(kv.NewMemoryStore(), auth.AccountIndividual, discardLogger())

	// Empty basic info blocks the first transition.
	err := form.Next()
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Equal(t, auth.StepBasicInfo, form.Current())

	fillBasicInfo(ctx, form)
	require.NoError(t, form.Next())
	assert.Equal(t, auth.StepContacts, form.Current())

	// A bad email blocks the second transition.
	form.SetField(ctx, auth.FieldEmail, "not-an-email")
	form.SetField(ctx, auth.FieldPhone, "+37069876543")
	require.Error(t, form.Next())
	assert.Equal(t, auth.StepContacts, form.Current())

	form.SetField(ctx, auth.FieldEmail, "greta@example.com")
	require.NoError(t, form.Next())
	assert.Equal(t, auth.StepConfirmation, form.Current())

	// Retreating works even from a step that would no longer validate.
	form.Back()
	form.SetField(ctx, auth.FieldEmail, "")
	form.Back()
	assert.Equal(t, auth.StepBasicInfo, form.Current())
}

/*
TestSignupForm_DraftExcludesPassword never persists the password.
*/
func TestSignupForm_DraftExcludesPassword(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	form := auth.NewSignupForm(store, auth.AccountIndividual, discardLogger())

	form.SetField(ctx, auth.FieldFirstName, "Greta")
	form.SetField(ctx, auth.FieldPassword, "Slaptazodis9!")

	raw, err := store.Get(ctx, constants.StorageKeySignupDraft)
	require.NoError(t, err)
	assert.Contains(t, raw, "Greta")
	assert.NotContains(t, raw, "Slaptazodis9!")
	assert.NotContains(t, raw, "password")
}

/*
TestSignupForm_Submit requires consent and normalizes the phone number.
*/
func TestSignupForm_Submit(t *testing.T) {
	ctx := context.Background()
	form := auth.NewSignupForm(kv.NewMemoryStore(), auth.AccountIndividual, discardLogger())

	fillBasicInfo(ctx, form)
	require.NoError(t, form.Next())
	fillContacts(ctx, form)
	require.NoError(t, form.Next())
	require.Equal(t, auth.StepConfirmation, form.Current())

	// No consent, no submission.
	_, err := form.Submit()
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	form.SetConsent(true)
	input, err := form.Submit()
	require.NoError(t, err)

	assert.Equal(t, auth.AccountIndividual, input.Type)
	assert.Equal(t, "Greta", input.FirstName)
	assert.Equal(t, "+37069876543", input.Phone)
	assert.Equal(t, "Slaptazodis9!", input.Password)
}

/*
TestSignupForm_SubmitRequiresConfirmationStep rejects early submission.
*/
func TestSignupForm_SubmitRequiresConfirmationStep(t *testing.T) {
	form := auth.NewSignupForm(kv.NewMemoryStore(), auth.AccountIndividual, discardLogger())

	_, err := form.Submit()
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

/*
TestSignupForm_OrganizationPath validates the organization name instead of
person names.
*/
func TestSignupForm_OrganizationPath(t *testing.T) {
	ctx := context.Background()
	form := auth.NewSignupForm(kv.NewMemoryStore(), auth.AccountOrganization, discardLogger())

	form.SetField(ctx, auth.FieldOrganizationName, "Vilnius Makerspace")
	form.SetField(ctx, auth.FieldPassword, "Slaptazodis9!")
	require.NoError(t, form.Next())

	fillContacts(ctx, form)
	require.NoError(t, form.Next())
	form.SetConsent(true)

	input, err := form.Submit()
	require.NoError(t, err)
	assert.Equal(t, auth.AccountOrganization, input.Type)
	assert.Equal(t, "Vilnius Makerspace", input.OrganizationName)
}

/*
TestSignupForm_DraftRestore resumes an abandoned signup.
*/
func TestSignupForm_DraftRestore(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	abandoned := auth.NewSignupForm(store, auth.AccountIndividual, discardLogger())
	fillBasicInfo(ctx, abandoned)
	require.NoError(t, abandoned.Next())
	abandoned.SetField(ctx, auth.FieldEmail, "greta@example.com")

	resumed := auth.NewSignupForm(store, auth.AccountIndividual, discardLogger())
	resumed.LoadDraft(ctx)

	assert.Equal(t, auth.StepContacts, resumed.Current())

	// The password never survives a restore; the rest does.
	resumed.SetField(ctx, auth.FieldPhone, "+37069876543")
	require.Error(t, func() error { resumed.Back(); return resumed.Next() }())
}

/*
TestSignupForm_ApplyServerErrors merges backend failures into the same map.
*/
func TestSignupForm_ApplyServerErrors(t *testing.T) {
	ctx := context.Background()
	form := auth.NewSignupForm(kv.NewMemoryStore(), auth.AccountIndividual, discardLogger())
	form.SetField(ctx, auth.FieldEmail, "greta@example.com")

	form.ApplyServerErrors([]apperr.FieldError{
		{Field: auth.FieldEmail, Message: "Already taken"},
	})

	errs := form.Errors()
	require.Contains(t, errs, auth.FieldEmail)
	assert.Equal(t, []string{"Already taken"}, errs[auth.FieldEmail])
}

/*
TestSignupForm_ClearDraft removes the stored draft.
*/
func TestSignupForm_ClearDraft(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	form := auth.NewSignupForm(store, auth.AccountIndividual, discardLogger())

	form.SetField(ctx, auth.FieldFirstName, "Greta")
	form.ClearDraft(ctx)

	_, err := store.Get(ctx, constants.StorageKeySignupDraft)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}
