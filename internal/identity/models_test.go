package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registra/pkg/platform/sentinel"
)

func TestParseRole(t *testing.T) {
	for raw, want := range map[string]Role{
		"student":  RoleStudent,
		"TEACHER":  RoleTeacher,
		"  Admin ": RoleAdmin,
	} {
		got, err := ParseRole(raw)
		require.NoError(t, err, "raw %q", raw)
		assert.Equal(t, want, got)
	}

	for _, raw := range []string{"", "principal", "admin2"} {
		_, err := ParseRole(raw)
		assert.Error(t, err, "raw %q", raw)
	}
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus("Blocked")
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, got)

	_, err = ParseStatus("deleted")
	assert.Error(t, err)
}

func TestHonorific(t *testing.T) {
	assert.Equal(t, "Admin", RoleAdmin.Honorific())
	assert.Equal(t, "Teacher", RoleTeacher.Honorific())
	assert.Equal(t, "Student", RoleStudent.Honorific())
	assert.Equal(t, "User", Role("whatever").Honorific())
}

func TestDisplay(t *testing.T) {
	ident := Identity{
		ID:             uuid.New(),
		ExternalID:     "S123",
		FirstName:      "Maya",
		LastName:       "Gold",
		Email:          "maya@school.example",
		Role:           RoleStudent,
		Status:         StatusActive,
		CredentialHash: "secret-hash",
	}

	display := ident.Display()
	assert.Equal(t, DisplayFields{
		ExternalID: "S123",
		FirstName:  "Maya",
		LastName:   "Gold",
		Email:      "maya@school.example",
		Role:       RoleStudent,
	}, display)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ident := Identity{ID: uuid.New(), ExternalID: "T001", Role: RoleTeacher, Status: StatusActive}
	store.Seed(ident)

	t.Run("find by external id", func(t *testing.T) {
		found, err := store.FindByExternalID(ctx, "T001")
		require.NoError(t, err)
		assert.Equal(t, ident.ID, found.ID)
	})

	t.Run("find by id", func(t *testing.T) {
		found, err := store.FindByID(ctx, ident.ID)
		require.NoError(t, err)
		assert.Equal(t, "T001", found.ExternalID)
	})

	t.Run("misses return the sentinel", func(t *testing.T) {
		_, err := store.FindByExternalID(ctx, "NOBODY")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = store.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
