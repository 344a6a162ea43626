package repository_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
	"thesis-eval/internal/repository"
	"thesis-eval/internal/service"
	"thesis-eval/internal/testutil"
)

type seeded struct {
	template  *models.RubricTemplate
	content   *models.RubricCriterion
	delivery  *models.RubricCriterion
	group     *models.ThesisGroup
	schedule  *models.DefenseSchedule
	fixtures  *testutil.Fixtures
	rubrics   *repository.RubricRepository
	groups    *repository.GroupRepository
	schedules *repository.ScheduleRepository
}

func seed(t *testing.T, tc *testutil.TestContainers) *seeded {
	t.Helper()
	ctx := context.Background()
	fx := testutil.SetupFixtures(t, tc.DB)

	s := &seeded{
		fixtures:  fx,
		rubrics:   repository.NewRubricRepository(tc.DB),
		groups:    repository.NewGroupRepository(tc.DB),
		schedules: repository.NewScheduleRepository(tc.DB),
	}

	s.template = &models.RubricTemplate{Name: "Capstone", Version: 1, Active: true}
	require.NoError(t, s.rubrics.CreateTemplate(ctx, s.template))

	s.content = &models.RubricCriterion{TemplateID: s.template.ID, Criterion: "Content", Weight: 1, MinScore: 0, MaxScore: 10}
	require.NoError(t, s.rubrics.CreateCriterion(ctx, s.content))
	s.delivery = &models.RubricCriterion{TemplateID: s.template.ID, Criterion: "Delivery", Weight: 1, MinScore: 0, MaxScore: 10}
	require.NoError(t, s.rubrics.CreateCriterion(ctx, s.delivery))

	s.group = &models.ThesisGroup{
		Title:     "Edge caching",
		AdviserID: &fx.Staff.ID,
		MemberIDs: []uuid.UUID{fx.Student.ID, fx.Student2.ID},
	}
	require.NoError(t, s.groups.Create(ctx, s.group))

	s.schedule = &models.DefenseSchedule{
		GroupID:          s.group.ID,
		ScheduledAt:      time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
		Room:             "B-201",
		Status:           models.ScheduleScheduled,
		RubricTemplateID: &s.template.ID,
		PanelistIDs:      []uuid.UUID{fx.Staff.ID, fx.Staff2.ID},
	}
	require.NoError(t, s.schedules.Create(ctx, s.schedule))

	return s
}

func TestRepositories(t *testing.T) {
	tc := testutil.SetupPostgres(t)
	defer tc.Cleanup(t)

	s := seed(t, tc)
	ctx := context.Background()

	t.Run("criteria keep insertion order", func(t *testing.T) {
		criteria, err := s.rubrics.ListCriteria(ctx, s.template.ID)
		require.NoError(t, err)
		require.Len(t, criteria, 2)
		assert.Equal(t, "Content", criteria[0].Criterion)
		assert.Equal(t, "Delivery", criteria[1].Criterion)
		assert.Less(t, criteria[0].Position, criteria[1].Position)
	})

	t.Run("fractional weight round trip", func(t *testing.T) {
		tpl := &models.RubricTemplate{Name: "Weights", Version: 1, Active: true}
		require.NoError(t, s.rubrics.CreateTemplate(ctx, tpl))

		c := &models.RubricCriterion{TemplateID: tpl.ID, Criterion: "Method", Weight: 0.12345, MaxScore: 10}
		require.NoError(t, s.rubrics.CreateCriterion(ctx, c))
		assert.Equal(t, 0.12345, c.Weight)

		c.Weight = 0.00001
		require.NoError(t, s.rubrics.UpdateCriterion(ctx, c))
		assert.Equal(t, 0.00001, c.Weight)

		c.Weight = 2e6
		require.NoError(t, s.rubrics.UpdateCriterion(ctx, c))

		got, err := s.rubrics.GetCriterion(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 2e6, got.Weight)
	})

	t.Run("oversized max score is a validation error", func(t *testing.T) {
		c := &models.RubricCriterion{TemplateID: s.template.ID, Criterion: "Huge", Weight: 1, MaxScore: 1 << 40}
		err := s.rubrics.CreateCriterion(ctx, c)
		assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
	})

	t.Run("template search and count", func(t *testing.T) {
		list, total, err := s.rubrics.ListTemplates(ctx, "caps", models.Page{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, list, 1)
		assert.Equal(t, s.template.ID, list[0].ID)
	})

	t.Run("missing template is not found", func(t *testing.T) {
		_, err := s.rubrics.GetTemplate(ctx, uuid.New())
		assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)
	})

	t.Run("group membership round trip", func(t *testing.T) {
		got, err := s.groups.GetByID(ctx, s.group.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, s.group.MemberIDs, got.MemberIDs)

		byMember, err := s.groups.ListByMember(ctx, s.fixtures.Student2.ID)
		require.NoError(t, err)
		require.Len(t, byMember, 1)
		assert.Equal(t, s.group.ID, byMember[0].ID)
	})

	t.Run("schedule filter by group", func(t *testing.T) {
		list, total, err := s.schedules.List(ctx, service.ScheduleFilter{GroupIDs: []uuid.UUID{s.group.ID}})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, list, 1)
		assert.ElementsMatch(t, s.schedule.PanelistIDs, list[0].PanelistIDs)

		_, total, err = s.schedules.List(ctx, service.ScheduleFilter{GroupIDs: []uuid.UUID{uuid.New()}})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})

	t.Run("user roles and names", func(t *testing.T) {
		users := repository.NewUserRepository(tc.DB)

		roles, err := users.GetRoles(ctx, s.fixtures.Admin.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{models.RoleAdmin, models.RoleStaff}, roles)

		names, err := users.GetNames(ctx, []uuid.UUID{s.fixtures.Staff.ID, s.fixtures.Staff2.ID})
		require.NoError(t, err)
		assert.Equal(t, "Sam Staff", names[s.fixtures.Staff.ID])

		byEmail, err := users.GetByEmail(ctx, "STAFF@test.com")
		require.NoError(t, err)
		assert.Equal(t, s.fixtures.Staff.ID, byEmail.ID)

		err = users.AssignRole(ctx, s.fixtures.Staff.ID, "dean")
		assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)
	})
}

func TestEvaluationRepository(t *testing.T) {
	tc := testutil.SetupPostgres(t)
	defer tc.Cleanup(t)

	s := seed(t, tc)
	ctx := context.Background()
	evals := repository.NewEvaluationRepository(tc.DB)

	e := &models.Evaluation{
		ScheduleID:  s.schedule.ID,
		EvaluatorID: s.fixtures.Staff.ID,
		Status:      models.StatusPending,
		MembersOverall: map[uuid.UUID]models.MemberOverall{
			s.fixtures.Student.ID: {Score: 9, Comment: "clear"},
		},
	}
	require.NoError(t, evals.Create(ctx, e))

	t.Run("duplicate evaluator is conflict", func(t *testing.T) {
		dup := &models.Evaluation{ScheduleID: s.schedule.ID, EvaluatorID: s.fixtures.Staff.ID, Status: models.StatusPending}
		err := evals.Create(ctx, dup)
		assert.True(t, apperror.Is(err, apperror.KindConflict), "got %v", err)
	})

	t.Run("members overall round trip", func(t *testing.T) {
		got, err := evals.GetByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, 9.0, got.MembersOverall[s.fixtures.Student.ID].Score)
		assert.Equal(t, "clear", got.MembersOverall[s.fixtures.Student.ID].Comment)
	})

	t.Run("upsert overwrites and is ordered by criterion", func(t *testing.T) {
		_, err := evals.UpsertScores(ctx, e.ID, []models.EvaluationScore{
			{CriterionID: s.delivery.ID, Score: 7},
			{CriterionID: s.content.ID, Score: 5},
		}, nil)
		require.NoError(t, err)

		_, err = evals.UpsertScores(ctx, e.ID, []models.EvaluationScore{{CriterionID: s.content.ID, Score: 8, Comment: "better"}}, nil)
		require.NoError(t, err)

		scores, err := evals.ListScores(ctx, e.ID)
		require.NoError(t, err)
		require.Len(t, scores, 2)
		assert.Equal(t, s.content.ID, scores[0].CriterionID)
		assert.Equal(t, 8, scores[0].Score)
		assert.Equal(t, "better", scores[0].Comment)
		assert.Equal(t, 7, scores[1].Score)
	})

	t.Run("failed check writes nothing", func(t *testing.T) {
		_, err := evals.UpsertScores(ctx, e.ID, []models.EvaluationScore{{CriterionID: s.content.ID, Score: 1}},
			func(*models.Evaluation) error { return apperror.Locked("evaluation") })
		assert.True(t, apperror.Is(err, apperror.KindLocked), "got %v", err)

		scores, err := evals.ListScores(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, scores[0].Score)
	})

	t.Run("unknown criterion rolls back the batch", func(t *testing.T) {
		_, err := evals.UpsertScores(ctx, e.ID, []models.EvaluationScore{
			{CriterionID: s.content.ID, Score: 2},
			{CriterionID: uuid.New(), Score: 2},
		}, nil)
		require.Error(t, err)

		scores, err := evals.ListScores(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, scores[0].Score)
	})

	t.Run("upsert on missing evaluation", func(t *testing.T) {
		_, err := evals.UpsertScores(ctx, uuid.New(), nil, nil)
		assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)
	})

	t.Run("conditional update", func(t *testing.T) {
		now := time.Now()
		e.Status = models.StatusSubmitted
		e.SubmittedAt = &now
		require.NoError(t, evals.Update(ctx, e, models.StatusPending))

		// Stale expectation loses
		err := evals.Update(ctx, e, models.StatusPending)
		assert.True(t, apperror.Is(err, apperror.KindConflict), "got %v", err)

		missing := &models.Evaluation{ID: uuid.New(), Status: models.StatusLocked}
		err = evals.Update(ctx, missing, models.StatusSubmitted)
		assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)
	})

	t.Run("concurrent transitions have one winner", func(t *testing.T) {
		other := &models.Evaluation{ScheduleID: s.schedule.ID, EvaluatorID: s.fixtures.Staff2.ID, Status: models.StatusPending}
		require.NoError(t, evals.Create(ctx, other))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				copyEval := *other
				copyEval.Status = models.StatusSubmitted
				errs[i] = evals.Update(ctx, &copyEval, models.StatusPending)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.True(t, apperror.Is(err, apperror.KindConflict), "got %v", err)
			}
		}
		assert.Equal(t, 1, succeeded)
	})

	t.Run("list by status", func(t *testing.T) {
		list, total, err := evals.List(ctx, service.EvaluationFilter{
			ScheduleID: &s.schedule.ID,
			Statuses:   []models.EvaluationStatus{models.StatusSubmitted},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, list, 2)
	})

	t.Run("delete cascades scores", func(t *testing.T) {
		require.NoError(t, evals.Delete(ctx, e.ID))
		scores, err := evals.ListScores(ctx, e.ID)
		require.NoError(t, err)
		assert.Empty(t, scores)

		err = evals.Delete(ctx, e.ID)
		assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)
	})
}

func TestStudentEvaluationAndTokens(t *testing.T) {
	tc := testutil.SetupPostgres(t)
	defer tc.Cleanup(t)

	s := seed(t, tc)
	ctx := context.Background()

	t.Run("student evaluation answers", func(t *testing.T) {
		repo := repository.NewStudentEvaluationRepository(tc.DB)
		se := &models.StudentEvaluation{
			ScheduleID: s.schedule.ID,
			StudentID:  s.fixtures.Student.ID,
			Status:     models.StatusPending,
			Answers:    json.RawMessage(`{"q1":"yes"}`),
		}
		require.NoError(t, repo.Create(ctx, se))

		got, err := repo.GetByID(ctx, se.ID)
		require.NoError(t, err)
		assert.JSONEq(t, `{"q1":"yes"}`, string(got.Answers))

		list, total, err := repo.List(ctx, service.StudentEvaluationFilter{StudentID: &s.fixtures.Student.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Len(t, list, 1)

		got.Status = models.StatusLocked
		err = repo.Update(ctx, got, models.StatusSubmitted)
		assert.True(t, apperror.Is(err, apperror.KindConflict), "got %v", err)
	})

	t.Run("password reset tokens", func(t *testing.T) {
		tokens := repository.NewTokenRepository(tc.DB)
		token := &models.PasswordResetToken{
			UserID:    s.fixtures.Student.ID,
			Token:     "hashed-token",
			ExpiresAt: time.Now().Add(-2 * time.Hour),
		}
		require.NoError(t, tokens.CreatePasswordResetToken(ctx, token))

		_, err := tokens.ResetPassword(ctx, token.ID, uuid.New(), "new-hash", time.Now())
		assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)
		stored, err := tokens.GetPasswordResetToken(ctx, "hashed-token")
		require.NoError(t, err)
		assert.Nil(t, stored.UsedAt, "failed update must roll back the consume")

		ok, err := tokens.ResetPassword(ctx, token.ID, s.fixtures.Student.ID, "new-hash", time.Now())
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tokens.ResetPassword(ctx, token.ID, s.fixtures.Student.ID, "other-hash", time.Now())
		require.NoError(t, err)
		assert.False(t, ok, "second reset must fail")

		deleted, err := tokens.DeleteExpiredTokens(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = tokens.GetPasswordResetToken(ctx, "hashed-token")
		assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)
	})

	t.Run("audit log filters", func(t *testing.T) {
		audit := repository.NewAuditRepository(tc.DB)
		actor := s.fixtures.Admin.ID
		for _, action := range []string{"evaluation.created", "evaluation.locked"} {
			require.NoError(t, audit.Create(ctx, &models.AuditLog{
				ActorID:  &actor,
				Action:   action,
				Entity:   "evaluation",
				EntityID: &s.schedule.ID,
			}))
		}

		list, total, err := audit.List(ctx, models.AuditFilter{Action: "evaluation.locked", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, list, 1)
		assert.JSONEq(t, `{}`, string(list[0].Details))

		_, total, err = audit.List(ctx, models.AuditFilter{ActorID: &actor})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
	})
}
