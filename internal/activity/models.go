// Package activity implements the audit trail: asynchronous enrichment and
// persistence of every privileged action, and the tokenized, paginated
// search/reporting engine over the persisted records.
package activity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"registra/internal/enrichment"
	"registra/internal/identity"
)

// ActionCode is the closed enumeration of auditable business actions.
type ActionCode string

const (
	// User actions.
	ActionLoginSuccess   ActionCode = "LOGIN_SUCCESS"
	ActionLoginFailure   ActionCode = "LOGIN_FAILURE"
	ActionPasswordChange ActionCode = "PASSWORD_CHANGE"
	ActionChangeRole     ActionCode = "CHANGE_ROLE"
	ActionCreateUser     ActionCode = "CREATE_USER"
	ActionModifyProfile  ActionCode = "MODIFY_PROFILE"
	ActionBlockUser      ActionCode = "BLOCK_USER"
	ActionUnblockUser    ActionCode = "UNBLOCK_USER"

	// Subject actions.
	ActionCreateSubject     ActionCode = "CREATE_SUBJECT"
	ActionDeleteOneSubject  ActionCode = "DELETE_ONE_SUBJECT"
	ActionDeleteAllSubjects ActionCode = "DELETE_ALL_SUBJECTS"
	ActionModifySubject     ActionCode = "MODIFY_SUBJECT"
	ActionCancelSubject     ActionCode = "CANCEL_SUBJECT"

	// Group actions.
	ActionCreateGroup         ActionCode = "CREATE_GROUP"
	ActionAddUserToGroup      ActionCode = "ADD_USER_TO_GROUP"
	ActionDeleteGroup         ActionCode = "DELETE_GROUP"
	ActionDeleteAllGroups     ActionCode = "DELETE_ALL_GROUPS"
	ActionRemoveUserFromGroup ActionCode = "DELETE_USER"
	ActionModifyGroup         ActionCode = "MODIFY_GROUP"

	// Assessment actions.
	ActionCreateAssessment     ActionCode = "CREATE_ASSESSMENT"
	ActionModifyAssessment     ActionCode = "MODIFY_ASSESSMENT"
	ActionDeleteAssessment     ActionCode = "DELETE_ASSESSMENT"
	ActionDeleteAllAssessments ActionCode = "DELETE_ALL_ASSESSMENTS"

	// Grade actions.
	ActionCreateGrade     ActionCode = "CREATE_GRADE"
	ActionModifyGrade     ActionCode = "MODIFY_GRADE"
	ActionDeleteGrade     ActionCode = "DELETE_GRADE"
	ActionDeleteAllGrades ActionCode = "DELETE_ALL_GRADES"
)

// actionSentences maps each code to its canonical human sentence. The table
// is built once at init and never mutated.
var actionSentences = map[ActionCode]string{
	ActionLoginSuccess:   "User logged in successfully",
	ActionLoginFailure:   "User login failed",
	ActionPasswordChange: "User changed their password",
	ActionChangeRole:     "User role was changed",
	ActionCreateUser:     "A new user was created",
	ActionModifyProfile:  "User profile was modified",
	ActionBlockUser:      "A user was blocked",
	ActionUnblockUser:    "A user was unblocked",

	ActionCreateSubject:     "A new subject was created",
	ActionDeleteOneSubject:  "A subject was deleted",
	ActionDeleteAllSubjects: "All subjects were deleted",
	ActionModifySubject:     "A subject was modified",
	ActionCancelSubject:     "A subject was cancelled",

	ActionCreateGroup:         "A new group was created",
	ActionAddUserToGroup:      "User(s) were added to a group",
	ActionDeleteGroup:         "A group was deleted",
	ActionDeleteAllGroups:     "All groups were deleted",
	ActionRemoveUserFromGroup: "User(s) were removed from a group",
	ActionModifyGroup:         "A group was modified",

	ActionCreateAssessment:     "A new assessment was created",
	ActionModifyAssessment:     "An assessment was modified",
	ActionDeleteAssessment:     "An assessment was deleted",
	ActionDeleteAllAssessments: "All assessments were deleted",

	ActionCreateGrade:     "A new grade was created",
	ActionModifyGrade:     "A grade was modified",
	ActionDeleteGrade:     "A grade was deleted",
	ActionDeleteAllGrades: "All grades were deleted",
}

// Sentence translates the code to its canonical human sentence. Unknown codes
// translate rather than fail.
func (c ActionCode) Sentence() string {
	if s, ok := actionSentences[c]; ok {
		return s
	}
	return "Unknown action"
}

// Category is one of the three rollup buckets.
type Category string

const (
	CategoryCreate  Category = "Creates"
	CategoryUpdate  Category = "Updates"
	CategoryDelete  Category = "Deletes"
	CategoryUnknown Category = ""
)

// categoryRules classify a code by substring membership, first match wins so
// every code lands in exactly one bucket or stays out of the rollup.
var categoryRules = []struct {
	words    []string
	category Category
}{
	{[]string{"CREATE", "ADD"}, CategoryCreate},
	{[]string{"DELETE", "REMOVE", "CANCEL"}, CategoryDelete},
	{[]string{"MODIFY", "CHANGE"}, CategoryUpdate},
}

// Category classifies the code for the rollup report. Codes matching no rule
// (e.g. BLOCK_USER) are excluded from the per-category tallies but still
// count toward the total.
func (c ActionCode) Category() Category {
	for _, rule := range categoryRules {
		for _, word := range rule.words {
			if strings.Contains(string(c), word) {
				return rule.category
			}
		}
	}
	return CategoryUnknown
}

// Record is one persisted, enriched audit entry. Immutable once created:
// append-only, never updated or deleted by this service. ActorID weakly
// references an identity and may dangle if the identity is later removed.
type Record struct {
	ID               uuid.UUID           `json:"id"`
	ActorID          *uuid.UUID          `json:"actorId"`
	ActorRole        string              `json:"role"`
	Action           ActionCode          `json:"action"`
	TranslatedAction string              `json:"translatedAction"`
	Description      string              `json:"description"`
	Entity           string              `json:"entity"`
	IP               string              `json:"ip,omitempty"`
	Geo              enrichment.Geo      `json:"geo"`
	Browser          string              `json:"browser,omitempty"`
	OS               string              `json:"os,omitempty"`
	Device           string              `json:"device"`
	CreatedAt        time.Time           `json:"createdAt"`
}

// JoinedRecord is a record with its actor resolved at query time. Actor is
// nil when the reference dangles or the record was written without one.
type JoinedRecord struct {
	Record
	Actor *identity.DisplayFields `json:"user,omitempty"`
}

// Event is what handlers emit when a privileged action happens. Everything
// else on the record is derived by the recorder.
type Event struct {
	ActorID        *uuid.UUID
	ActorRole      identity.Role
	ActorFirstName string
	Action         ActionCode
	// Message is the caller-supplied fragment appended to the honorific and
	// first name, e.g. "created an assessment with ID X."
	Message string
	Entity  string
}

// Description renders the human description for the event, combining the
// role honorific, the actor's first name, and the message fragment.
func (e Event) Description() string {
	parts := make([]string, 0, 3)
	if h := e.ActorRole.Honorific(); h != "" {
		parts = append(parts, h)
	}
	if e.ActorFirstName != "" {
		parts = append(parts, e.ActorFirstName)
	}
	parts = append(parts, e.Message)
	return strings.Join(parts, " ")
}
