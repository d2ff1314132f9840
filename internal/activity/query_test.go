package activity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"registra/internal/identity"
	"registra/pkg/platform/sentinel"
)

type QueryEngineSuite struct {
	suite.Suite
	ctx        context.Context
	identities *identity.MemoryStore
	store      *MemoryStore
	engine     *QueryEngine

	admin   identity.Identity
	teacher identity.Identity
}

func TestQueryEngineSuite(t *testing.T) {
	suite.Run(t, new(QueryEngineSuite))
}

func (s *QueryEngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.identities = identity.NewMemoryStore()
	s.store = NewMemoryStore(s.identities)
	s.engine = NewQueryEngine(s.store, nil)

	s.admin = identity.Identity{
		ID:         uuid.New(),
		ExternalID: "A001",
		FirstName:  "Rivka",
		LastName:   "Stern",
		Email:      "rivka@school.example",
		Role:       identity.RoleAdmin,
		Status:     identity.StatusActive,
	}
	s.teacher = identity.Identity{
		ID:         uuid.New(),
		ExternalID: "T017",
		FirstName:  "Yoav",
		LastName:   "Baron",
		Email:      "yoav@school.example",
		Role:       identity.RoleTeacher,
		Status:     identity.StatusActive,
	}
	s.identities.Seed(s.admin, s.teacher)
}

func (s *QueryEngineSuite) insert(actor *identity.Identity, action ActionCode, desc string, at time.Time) Record {
	rec := Record{
		ID:               uuid.New(),
		Action:           action,
		TranslatedAction: action.Sentence(),
		Description:      desc,
		Entity:           "Users",
		Device:           "desktop",
		Browser:          "Firefox",
		CreatedAt:        at,
	}
	if actor != nil {
		id := actor.ID
		rec.ActorID = &id
		rec.ActorRole = string(actor.Role)
	}
	s.Require().NoError(s.store.Insert(s.ctx, rec))
	return rec
}

func (s *QueryEngineSuite) TestSummarize() {
	base := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

	s.Run("classifies creates, updates, and deletes", func() {
		s.insert(&s.admin, ActionCreateUser, "Admin Rivka created a user.", base)
		s.insert(&s.admin, ActionDeleteGroup, "Admin Rivka deleted a group.", base.Add(time.Minute))
		s.insert(&s.teacher, ActionModifySubject, "Teacher Yoav modified a subject.", base.Add(2*time.Minute))

		summary, err := s.engine.Summarize(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, summary.Stats.Creates)
		s.Equal(1, summary.Stats.Updates)
		s.Equal(1, summary.Stats.Deletes)
		s.Equal(3, summary.Stats.Total)
		s.Len(summary.Activities, 3)
	})

	s.Run("unclassified actions count toward the total only", func() {
		s.insert(&s.admin, ActionBlockUser, "Admin Rivka blocked a user.", base.Add(3*time.Minute))

		summary, err := s.engine.Summarize(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, summary.Stats.Creates)
		s.Equal(1, summary.Stats.Updates)
		s.Equal(1, summary.Stats.Deletes)
		s.Equal(4, summary.Stats.Total)
	})

	s.Run("recent activities come back newest first, capped at fifty", func() {
		for i := 0; i < 60; i++ {
			s.insert(&s.teacher, ActionCreateGrade, "Teacher Yoav posted a grade.", base.Add(time.Duration(10+i)*time.Minute))
		}

		summary, err := s.engine.Summarize(s.ctx)
		s.Require().NoError(err)
		s.Len(summary.Activities, 50)
		s.Equal(64, summary.Stats.Total)
		for i := 1; i < len(summary.Activities); i++ {
			s.False(summary.Activities[i].CreatedAt.After(summary.Activities[i-1].CreatedAt),
				"activities must be ordered newest first")
		}
	})
}

func (s *QueryEngineSuite) TestSearchTokens() {
	base := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	s.insert(&s.admin, ActionCreateUser, "Admin Rivka created a user.", base)
	s.insert(&s.teacher, ActionCreateGrade, "Teacher Yoav posted a grade.", base.Add(time.Minute))
	s.insert(&s.teacher, ActionDeleteGrade, "Teacher Yoav removed a grade.", base.Add(2*time.Minute))

	s.Run("empty query matches everything", func() {
		result, err := s.engine.Search(s.ctx, QueryParams{})
		s.Require().NoError(err)
		s.Len(result.Results, 3)
	})

	s.Run("a token can match the joined actor name", func() {
		result, err := s.engine.Search(s.ctx, QueryParams{Q: "rivka"})
		s.Require().NoError(err)
		s.Require().Len(result.Results, 1)
		s.Equal(ActionCreateUser, result.Results[0].Action)
		s.Require().NotNil(result.Results[0].Actor)
		s.Equal("A001", result.Results[0].Actor.ExternalID)
	})

	s.Run("every token must match somewhere", func() {
		// "yoav" matches two records, "delete" narrows to one.
		result, err := s.engine.Search(s.ctx, QueryParams{Q: "yoav delete"})
		s.Require().NoError(err)
		s.Require().Len(result.Results, 1)
		s.Equal(ActionDeleteGrade, result.Results[0].Action)
	})

	s.Run("tokens may match different fields of the same record", func() {
		result, err := s.engine.Search(s.ctx, QueryParams{Q: "firefox rivka"})
		s.Require().NoError(err)
		s.Len(result.Results, 1)
	})

	s.Run("an unmatched token empties the page but keeps the envelope", func() {
		result, err := s.engine.Search(s.ctx, QueryParams{Q: "yoav zzzzz"})
		s.Require().NoError(err)
		s.Empty(result.Results)
		s.NotNil(result.Results, "results must encode as [] not null")
		s.Equal(1, result.Pagination.TotalPages)
		s.False(result.Pagination.HasMore)
	})

	s.Run("matching is case-insensitive", func() {
		result, err := s.engine.Search(s.ctx, QueryParams{Q: "RIVKA"})
		s.Require().NoError(err)
		s.Len(result.Results, 1)
	})
}

func (s *QueryEngineSuite) TestSearchDateWindow() {
	may9 := time.Date(2025, 5, 9, 23, 30, 0, 0, time.UTC)
	may10 := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	may11 := time.Date(2025, 5, 11, 0, 30, 0, 0, time.UTC)
	s.insert(&s.admin, ActionCreateUser, "early", may9)
	s.insert(&s.admin, ActionCreateUser, "middle", may10)
	s.insert(&s.admin, ActionCreateUser, "late", may11)

	s.Run("to is inclusive of the whole calendar day", func() {
		result, err := s.engine.Search(s.ctx, QueryParams{From: "2025-05-10", To: "2025-05-10"})
		s.Require().NoError(err)
		s.Require().Len(result.Results, 1)
		s.Equal("middle", result.Results[0].Description)
	})

	s.Run("from alone drops older records", func() {
		result, err := s.engine.Search(s.ctx, QueryParams{From: "2025-05-10"})
		s.Require().NoError(err)
		s.Len(result.Results, 2)
	})

	s.Run("malformed dates are ignored, not rejected", func() {
		result, err := s.engine.Search(s.ctx, QueryParams{From: "not-a-date", To: "10/05/2025"})
		s.Require().NoError(err)
		s.Len(result.Results, 3)
	})
}

func (s *QueryEngineSuite) TestSearchPagination() {
	base := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		s.insert(&s.admin, ActionCreateUser, "record", base.Add(time.Duration(i)*time.Minute))
	}

	s.Run("pages are disjoint and ordered newest first", func() {
		page1, err := s.engine.Search(s.ctx, QueryParams{Page: 1, Limit: 3})
		s.Require().NoError(err)
		page2, err := s.engine.Search(s.ctx, QueryParams{Page: 2, Limit: 3})
		s.Require().NoError(err)

		s.Len(page1.Results, 3)
		s.Len(page2.Results, 3)
		s.True(page1.Results[2].CreatedAt.After(page2.Results[0].CreatedAt))

		s.Equal(Pagination{CurrentPage: 1, TotalPages: 3, HasMore: true}, page1.Pagination)
		s.Equal(Pagination{CurrentPage: 2, TotalPages: 3, HasMore: true}, page2.Pagination)
	})

	s.Run("last page is short and has no more", func() {
		page3, err := s.engine.Search(s.ctx, QueryParams{Page: 3, Limit: 3})
		s.Require().NoError(err)
		s.Len(page3.Results, 1)
		s.Equal(Pagination{CurrentPage: 3, TotalPages: 3, HasMore: false}, page3.Pagination)
	})

	s.Run("page past the end keeps the true total", func() {
		page9, err := s.engine.Search(s.ctx, QueryParams{Page: 9, Limit: 3})
		s.Require().NoError(err)
		s.Empty(page9.Results)
		s.Equal(Pagination{CurrentPage: 9, TotalPages: 3, HasMore: false}, page9.Pagination)
	})

	s.Run("zero and negative page coerce to one", func() {
		result, err := s.engine.Search(s.ctx, QueryParams{Page: -2, Limit: 3})
		s.Require().NoError(err)
		s.Equal(1, result.Pagination.CurrentPage)
	})

	s.Run("limit is clamped to the maximum", func() {
		result, err := s.engine.Search(s.ctx, QueryParams{Limit: 5000})
		s.Require().NoError(err)
		s.Len(result.Results, 7)
		s.Equal(1, result.Pagination.TotalPages)
	})
}

func (s *QueryEngineSuite) TestFindByID() {
	base := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	rec := s.insert(&s.admin, ActionCreateUser, "Admin Rivka created a user.", base)

	s.Run("resolves the record with its actor joined", func() {
		joined, err := s.engine.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(rec.ID, joined.ID)
		s.Require().NotNil(joined.Actor)
		s.Equal("Rivka", joined.Actor.FirstName)
	})

	s.Run("unknown id maps to a not-found error", func() {
		_, err := s.engine.FindByID(s.ctx, uuid.New())
		s.Error(err)
		s.NotErrorIs(err, sentinel.ErrNotFound, "store sentinel must not leak through the engine")
	})

	s.Run("dangling actor reference yields a nil actor", func() {
		ghost := uuid.New()
		orphan := Record{ID: uuid.New(), ActorID: &ghost, Action: ActionCreateUser, CreatedAt: base}
		s.Require().NoError(s.store.Insert(s.ctx, orphan))

		joined, err := s.engine.FindByID(s.ctx, orphan.ID)
		s.Require().NoError(err)
		s.Nil(joined.Actor)
	})
}

func (s *QueryEngineSuite) TestListByActor() {
	base := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	s.insert(&s.admin, ActionCreateUser, "one", base)
	s.insert(&s.teacher, ActionCreateGrade, "two", base.Add(time.Minute))
	s.insert(&s.admin, ActionDeleteGroup, "three", base.Add(2*time.Minute))

	s.Run("returns only that actor's records, newest first", func() {
		records, err := s.engine.ListByActor(s.ctx, s.admin.ID)
		s.Require().NoError(err)
		s.Require().Len(records, 2)
		s.Equal("three", records[0].Description)
		s.Equal("one", records[1].Description)
	})

	s.Run("unknown actor yields an empty slice", func() {
		records, err := s.engine.ListByActor(s.ctx, uuid.New())
		s.Require().NoError(err)
		s.NotNil(records)
		s.Empty(records)
	})
}
