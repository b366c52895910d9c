package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageIncludesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := Wrap(cause, ErrCodeInternal, "load farm")

	assert.Equal(t, "load farm: connection refused", err.Error())
	assert.Equal(t, cause, err.Unwrap())

	bare := NotFound("farm not found")
	assert.Equal(t, "farm not found", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestConstructorsSetTheirCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  *AppError
		code ErrorCode
	}{
		{"not_found", NotFound("plot not found"), ErrCodeNotFound},
		{"not_found_f", NotFoundf("harvest %s not found", "h-1"), ErrCodeNotFound},
		{"conflict", Conflict("email already registered"), ErrCodeConflict},
		{"conflict_f", Conflictf("setting %q already exists", "daily_wage"), ErrCodeConflict},
		{"validation", Validation("area must be positive"), ErrCodeValidation},
		{"validation_f", Validationf("role %q is not valid", "viewer"), ErrCodeValidation},
		{"foreign_key", ForeignKey("farm has dependent plots"), ErrCodeForeignKey},
		{"foreign_key_f", ForeignKeyf("plot %s belongs to another farm", "p-1"), ErrCodeForeignKey},
		{"unauthorized", Unauthorized("session expired"), ErrCodeUnauthorized},
		{"precondition", Precondition("no farm selected"), ErrCodePrecondition},
		{"internal", Internal("unexpected state"), ErrCodeInternal},
		{"internal_f", Internalf("export failed for farm %s", "f-1"), ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.code, tc.err.Code)
			assert.NotEmpty(t, tc.err.Message)
		})
	}
}

func TestValidationFieldCarriesField(t *testing.T) {
	t.Parallel()

	err := ValidationField("email", "email is required")
	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Equal(t, "email", err.Field)
	assert.Equal(t, "email", GetField(err))

	assert.Empty(t, GetField(errors.New("plain")))
	assert.Empty(t, GetField(NotFound("no field set")))
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := Precondition("no farm selected")
	wrapped := fmt.Errorf("create harvest: %w", inner)

	assert.True(t, IsPrecondition(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, ErrCodePrecondition, GetCode(wrapped))
}

func TestPredicatesMatchOnlyTheirCode(t *testing.T) {
	t.Parallel()

	preds := []struct {
		name  string
		check func(error) bool
		err   error
	}{
		{"IsNotFound", IsNotFound, NotFound("x")},
		{"IsConflict", IsConflict, Conflict("x")},
		{"IsValidation", IsValidation, Validation("x")},
		{"IsForeignKey", IsForeignKey, ForeignKey("x")},
		{"IsUnauthorized", IsUnauthorized, Unauthorized("x")},
		{"IsPrecondition", IsPrecondition, Precondition("x")},
		{"IsInternal", IsInternal, Internal("x")},
		{"IsTimeout", IsTimeout, &AppError{Code: ErrCodeTimeout, Message: "x"}},
		{"IsCanceled", IsCanceled, &AppError{Code: ErrCodeCanceled, Message: "x"}},
	}

	for i, p := range preds {
		assert.True(t, p.check(p.err), "%s should match its own error", p.name)
		other := preds[(i+1)%len(preds)]
		assert.False(t, p.check(other.err), "%s should reject %s", p.name, other.name)
		assert.False(t, p.check(nil), "%s should reject nil", p.name)
		assert.False(t, p.check(errors.New("plain")), "%s should reject plain errors", p.name)
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
	assert.Nil(t, WrapTemplate(nil, ErrCodeInternal, Messagef("ignored %d", 1)))
}

func TestWrapfFormatsMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("row scan failed")
	err := Wrapf(cause, ErrCodeInternal, "list harvests for farm %s", "f-42")

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInternal, err.Code)
	assert.Equal(t, "list harvests for farm f-42", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestMessagefWithoutArgsKeepsFormatVerbatim(t *testing.T) {
	t.Parallel()

	// A literal percent must survive when there is nothing to format.
	mt := Messagef("quantity is 100%")
	assert.Equal(t, "quantity is 100%", mt.String())

	withArgs := Messagef("plot %s", "p-9")
	assert.Equal(t, "plot p-9", withArgs.String())
}

func TestGetCodeNonAppError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}
