package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"registra/internal/identity"
)

func TestActionSentence(t *testing.T) {
	tests := []struct {
		code ActionCode
		want string
	}{
		{ActionLoginSuccess, "User logged in successfully"},
		{ActionCreateUser, "A new user was created"},
		{ActionDeleteAllGrades, "All grades were deleted"},
		{ActionRemoveUserFromGroup, "User(s) were removed from a group"},
		{ActionCancelSubject, "A subject was cancelled"},
		{ActionCode("SOMETHING_ELSE"), "Unknown action"},
		{ActionCode(""), "Unknown action"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.Sentence(), "code %s", tt.code)
	}
}

func TestActionCategory(t *testing.T) {
	tests := []struct {
		code ActionCode
		want Category
	}{
		{ActionCreateUser, CategoryCreate},
		{ActionAddUserToGroup, CategoryCreate},
		{ActionDeleteGroup, CategoryDelete},
		{ActionRemoveUserFromGroup, CategoryDelete},
		{ActionCancelSubject, CategoryDelete},
		{ActionModifySubject, CategoryUpdate},
		{ActionChangeRole, CategoryUpdate},
		// CREATE outranks other matches when a code carries several words.
		{ActionCode("CREATE_THEN_DELETE"), CategoryCreate},
		// No rule matches: excluded from the rollup buckets.
		{ActionBlockUser, CategoryUnknown},
		{ActionLoginSuccess, CategoryUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.Category(), "code %s", tt.code)
	}
}

func TestEventDescription(t *testing.T) {
	t.Run("honorific plus first name plus fragment", func(t *testing.T) {
		e := Event{
			ActorRole:      identity.RoleTeacher,
			ActorFirstName: "Noa",
			Message:        "created an assessment.",
		}
		assert.Equal(t, "Teacher Noa created an assessment.", e.Description())
	})

	t.Run("unknown role falls back to the generic honorific", func(t *testing.T) {
		e := Event{
			ActorRole:      identity.Role("ghost"),
			ActorFirstName: "Noa",
			Message:        "did something.",
		}
		assert.Equal(t, "User Noa did something.", e.Description())
	})

	t.Run("missing first name is skipped, not doubled-spaced", func(t *testing.T) {
		e := Event{
			ActorRole: identity.RoleAdmin,
			Message:   "purged all groups.",
		}
		assert.Equal(t, "Admin purged all groups.", e.Description())
	})
}
