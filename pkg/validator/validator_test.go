package validator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/kapsula/pkg/validator"
)

func TestValidateCapsule(t *testing.T) {
	assert.False(t, validator.ValidateCapsule("summer 2030").HasErrors())
	assert.True(t, validator.ValidateCapsule("").HasErrors())
	assert.True(t, validator.ValidateCapsule("   ").HasErrors())

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'x'
	}
	assert.True(t, validator.ValidateCapsule(string(long)).HasErrors())
}

func TestValidateOpenDate(t *testing.T) {
	got, errs := validator.ValidateOpenDate("2031-01-01T00:00:00Z")
	require.False(t, errs.HasErrors())
	assert.Equal(t, time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC), got)

	_, errs = validator.ValidateOpenDate("")
	assert.True(t, errs.HasErrors())

	_, errs = validator.ValidateOpenDate("next tuesday")
	assert.True(t, errs.HasErrors())

	// Past dates parse fine here; the lifecycle service rejects them.
	_, errs = validator.ValidateOpenDate("2001-01-01T00:00:00Z")
	assert.False(t, errs.HasErrors())
}

func TestValidateRegister(t *testing.T) {
	errs := validator.ValidateRegister("a@example.com", "alice", "Alice", "Sup3rSecret")
	assert.False(t, errs.HasErrors())

	errs = validator.ValidateRegister("not-an-email", "a", "", "short")
	assert.True(t, errs.HasErrors())
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "display_name")
	assert.Contains(t, errs, "password")
}
