package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "leaseguard/pkg/domain-errors"
)

func TestParseRole(t *testing.T) {
	t.Run("accepts supported roles", func(t *testing.T) {
		for _, s := range []string{"applicant", "reviewer", "admin"} {
			role, err := ParseRole(s)
			require.NoError(t, err)
			assert.Equal(t, s, role.String())
		}
	})

	t.Run("rejects empty role", func(t *testing.T) {
		_, err := ParseRole("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := ParseRole("superuser")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// TestCapabilities_FailClosed pins the capability table. A role absent from a
// row must come out false - additions here require a deliberate edit.
func TestCapabilities_FailClosed(t *testing.T) {
	tests := []struct {
		role       Role
		create     bool
		list       bool
		decide     bool
		viewAny    bool
	}{
		{RoleApplicant, true, false, false, false},
		{RoleReviewer, false, true, true, true},
		{RoleAdmin, true, true, true, true},
		{Role("unknown"), false, false, false, false},
		{Role(""), false, false, false, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			assert.Equal(t, tc.create, tc.role.CanCreateApplication())
			assert.Equal(t, tc.list, tc.role.CanListApplications())
			assert.Equal(t, tc.decide, tc.role.CanRecordDecision())
			assert.Equal(t, tc.viewAny, tc.role.CanViewAny())
		})
	}
}
