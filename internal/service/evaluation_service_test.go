package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
)

func TestCreateEvaluation(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	panelist := staffActor(d.panelistA.ID)

	e, err := f.eval.Create(ctx, panelist, CreateEvaluationInput{ScheduleID: d.schedule.ID, EvaluatorID: d.panelistA.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, e.Status)
	assert.Nil(t, e.SubmittedAt)
	assert.Equal(t, ActionEvaluationCreated, f.auditStore.last().Action)
	assert.Empty(t, f.publisher.keys())

	_, err = f.eval.Create(ctx, panelist, CreateEvaluationInput{ScheduleID: d.schedule.ID, EvaluatorID: d.panelistA.ID})
	assert.True(t, apperror.Is(err, apperror.KindConflict), "duplicate pair: %v", err)
}

func TestCreateEvaluationRejections(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	outsider := f.users.add(models.User{Email: "x@example.com"}, models.RoleStaff)

	_, err := f.eval.Create(ctx, f.admin, CreateEvaluationInput{ScheduleID: uuid.New(), EvaluatorID: d.panelistA.ID})
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "unknown schedule: %v", err)

	_, err = f.eval.Create(ctx, f.admin, CreateEvaluationInput{ScheduleID: d.schedule.ID, EvaluatorID: outsider.ID})
	assert.True(t, apperror.Is(err, apperror.KindValidation), "not a panelist: %v", err)

	_, err = f.eval.Create(ctx, staffActor(d.panelistB.ID), CreateEvaluationInput{ScheduleID: d.schedule.ID, EvaluatorID: d.panelistA.ID})
	assert.True(t, apperror.Is(err, apperror.KindForbidden), "on behalf of another panelist: %v", err)
}

func TestCreateEvaluationInitialSubmittedStampsTime(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()

	e, err := f.eval.Create(context.Background(), f.admin, CreateEvaluationInput{
		ScheduleID:  d.schedule.ID,
		EvaluatorID: d.panelistA.ID,
		Status:      ptr(models.StatusSubmitted),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, e.Status)
	assert.NotNil(t, e.SubmittedAt)
	assert.Equal(t, []string{"evaluation.submitted"}, f.publisher.keys())
}

// Scores {Content:8, Delivery:7} then submit
func TestScoreThenSubmitScenario(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	panelist := staffActor(d.panelistA.ID)

	e, err := f.eval.Create(ctx, panelist, CreateEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)

	_, err = f.eval.UpsertScores(ctx, panelist, e.ID, []ScoreInput{
		{CriterionID: d.content.ID, Score: 8},
		{CriterionID: d.delivery.ID, Score: 7},
	})
	require.NoError(t, err)

	submitted, err := f.eval.Submit(ctx, panelist, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	firstSubmittedAt := *submitted.SubmittedAt

	auditCount := len(f.auditStore.actions())
	again, err := f.eval.Submit(ctx, panelist, e.ID)
	require.NoError(t, err)
	assert.Equal(t, firstSubmittedAt, *again.SubmittedAt)
	assert.Len(t, f.auditStore.actions(), auditCount, "idempotent submit writes no audit entry")
	assert.Equal(t, []string{"evaluation.submitted"}, f.publisher.keys())
}

func TestUpsertScoreOverwrites(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	panelist := staffActor(d.panelistA.ID)

	e, err := f.eval.Create(ctx, panelist, CreateEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = f.eval.UpsertScore(ctx, panelist, e.ID, ScoreInput{CriterionID: d.content.ID, Score: 6, Comment: "clear"})
		require.NoError(t, err)
	}
	_, err = f.eval.UpsertScore(ctx, panelist, e.ID, ScoreInput{CriterionID: d.content.ID, Score: 9, Comment: "excellent"})
	require.NoError(t, err)

	scores, err := f.eval.ListScores(ctx, panelist, e.ID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 9, scores[0].Score)
	assert.Equal(t, "excellent", scores[0].Comment)
}

func TestUpsertScoreRange(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	panelist := staffActor(d.panelistA.ID)

	e, err := f.eval.Create(ctx, panelist, CreateEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)

	for _, score := range []int{-1, 11} {
		_, err = f.eval.UpsertScore(ctx, panelist, e.ID, ScoreInput{CriterionID: d.content.ID, Score: score})
		assert.True(t, apperror.Is(err, apperror.KindValidation), "score %d: %v", score, err)
	}
	for _, score := range []int{0, 10} {
		_, err = f.eval.UpsertScore(ctx, panelist, e.ID, ScoreInput{CriterionID: d.content.ID, Score: score})
		assert.NoError(t, err, "score %d", score)
	}

	_, err = f.eval.UpsertScore(ctx, panelist, e.ID, ScoreInput{CriterionID: uuid.New(), Score: 5})
	assert.True(t, apperror.Is(err, apperror.KindValidation), "foreign criterion: %v", err)
}

func TestBulkUpsertIsAllOrNothing(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	panelist := staffActor(d.panelistA.ID)

	e, err := f.eval.Create(ctx, panelist, CreateEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)

	_, err = f.eval.UpsertScores(ctx, panelist, e.ID, []ScoreInput{
		{CriterionID: d.content.ID, Score: 8},
		{CriterionID: d.delivery.ID, Score: 42},
	})
	require.Error(t, err)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, "items[1].score", appErr.Fields[0].Field)

	scores, err := f.eval.ListScores(ctx, panelist, e.ID)
	require.NoError(t, err)
	assert.Empty(t, scores, "no item of a rejected batch is written")
}

func TestBulkUpsertRejectsEmptyAndDuplicates(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	panelist := staffActor(d.panelistA.ID)

	e, err := f.eval.Create(ctx, panelist, CreateEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)

	_, err = f.eval.UpsertScores(ctx, panelist, e.ID, nil)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.eval.UpsertScores(ctx, panelist, e.ID, []ScoreInput{
		{CriterionID: d.content.ID, Score: 8},
		{CriterionID: d.content.ID, Score: 3},
	})
	require.Error(t, err)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "items[1].criterionId", appErr.Fields[0].Field)
}

func TestLockedEvaluationRejectsMutation(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	panelist := staffActor(d.panelistA.ID)

	e, err := f.eval.Create(ctx, panelist, CreateEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)

	locked, err := f.eval.Lock(ctx, f.admin, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLocked, locked.Status)
	assert.NotNil(t, locked.LockedAt)

	_, err = f.eval.UpsertScore(ctx, panelist, e.ID, ScoreInput{CriterionID: d.content.ID, Score: 5})
	assert.True(t, apperror.Is(err, apperror.KindLocked), "score upsert: %v", err)

	_, err = f.eval.Submit(ctx, panelist, e.ID)
	assert.True(t, apperror.Is(err, apperror.KindLocked), "submit: %v", err)

	_, err = f.eval.Patch(ctx, panelist, e.ID, PatchEvaluationInput{SystemScore: ptr(4.5)})
	assert.True(t, apperror.Is(err, apperror.KindLocked), "systemScore edit: %v", err)

	_, err = f.eval.Patch(ctx, f.admin, e.ID, PatchEvaluationInput{Status: ptr(models.StatusPending)})
	assert.True(t, apperror.Is(err, apperror.KindLocked), "reopen: %v", err)
}

func TestLockOnLockedIsNoOp(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()

	e, err := f.eval.Create(ctx, f.admin, CreateEvaluationInput{ScheduleID: d.schedule.ID, EvaluatorID: d.panelistA.ID})
	require.NoError(t, err)

	first, err := f.eval.Lock(ctx, f.admin, e.ID)
	require.NoError(t, err)
	auditCount := len(f.auditStore.actions())

	second, err := f.eval.Lock(ctx, f.admin, e.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.LockedAt, *second.LockedAt)
	assert.Len(t, f.auditStore.actions(), auditCount)
	assert.Equal(t, []string{"evaluation.locked"}, f.publisher.keys())
}

func TestConcurrentTransitionConflicts(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	panelist := staffActor(d.panelistA.ID)

	e, err := f.eval.Create(ctx, panelist, CreateEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)

	// another request locks the row between our read and our write
	f.evaluations.beforeUpdate = func(id uuid.UUID) {
		f.evaluations.beforeUpdate = nil
		f.evaluations.mu.Lock()
		row := f.evaluations.evaluations[id]
		row.Status = models.StatusLocked
		f.evaluations.evaluations[id] = row
		f.evaluations.mu.Unlock()
	}

	_, err = f.eval.Submit(ctx, panelist, e.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict), "got %v", err)
}

func TestPatchMembersOverallRequiresGroupMember(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	panelist := staffActor(d.panelistA.ID)

	e, err := f.eval.Create(ctx, panelist, CreateEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)

	_, err = f.eval.Patch(ctx, panelist, e.ID, PatchEvaluationInput{
		MembersOverall: map[uuid.UUID]models.MemberOverall{uuid.New(): {Score: 8}},
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	updated, err := f.eval.Patch(ctx, panelist, e.ID, PatchEvaluationInput{
		SystemScore:    ptr(4.0),
		MembersOverall: map[uuid.UUID]models.MemberOverall{d.studentOne.ID: {Score: 9, Comment: "led the demo"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4.0, *updated.SystemScore)
	assert.Equal(t, 9.0, updated.MembersOverall[d.studentOne.ID].Score)
	assert.Equal(t, ActionEvaluationUpdated, f.auditStore.last().Action)
}

func TestEvaluationAccess(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()

	e, err := f.eval.Create(ctx, staffActor(d.panelistA.ID), CreateEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)

	_, err = f.eval.Get(ctx, staffActor(d.panelistB.ID), e.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = f.eval.Get(ctx, f.admin, e.ID)
	assert.NoError(t, err)

	list, total, err := f.eval.List(ctx, staffActor(d.panelistB.ID), EvaluationFilter{Page: defaultTestPage()})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	err = f.eval.Delete(ctx, staffActor(d.panelistA.ID), e.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestDeleteEvaluationCascadesScores(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()

	e, err := f.eval.Create(ctx, f.admin, CreateEvaluationInput{ScheduleID: d.schedule.ID, EvaluatorID: d.panelistA.ID})
	require.NoError(t, err)
	_, err = f.eval.UpsertScore(ctx, f.admin, e.ID, ScoreInput{CriterionID: d.content.ID, Score: 5})
	require.NoError(t, err)

	require.NoError(t, f.eval.Delete(ctx, f.admin, e.ID))
	assert.Empty(t, f.evaluations.scores[e.ID])

	_, err = f.eval.Get(ctx, f.admin, e.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestPublishFailureDoesNotFailSubmit(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	f.publisher.fail = true

	e, err := f.eval.Create(ctx, f.admin, CreateEvaluationInput{ScheduleID: d.schedule.ID, EvaluatorID: d.panelistA.ID})
	require.NoError(t, err)

	submitted, err := f.eval.Submit(ctx, f.admin, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, submitted.Status)
}
