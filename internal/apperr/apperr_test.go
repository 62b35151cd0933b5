package apperr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
	}{
		{Validation("bad input"), KindValidation},
		{NotFound("entity %s", "abc"), KindNotFound},
		{Conflict("duplicate"), KindConflict},
		{Unbalanced("off by %s", "0.02"), KindUnbalanced},
		{Permission("denied"), KindPermission},
		{fmt.Errorf("plain"), Kind("")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, KindOf(tt.err))
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("posting entry: %w", Conflict("entry already reversed"))
	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
}

func TestMessageFormat(t *testing.T) {
	err := NotFound("account %s not found in entity %s", "1000", "e1")
	assert.Equal(t, "not_found: account 1000 not found in entity e1", err.Error())
}
