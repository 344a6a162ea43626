package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
)

func TestCreateStudentEvaluation(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	student := studentActor(d.studentOne.ID)

	e, err := f.student.Create(ctx, student, CreateStudentEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)
	assert.Equal(t, d.studentOne.ID, e.StudentID)
	assert.Equal(t, models.StatusPending, e.Status)
	assert.JSONEq(t, `{}`, string(e.Answers))

	_, err = f.student.Create(ctx, student, CreateStudentEvaluationInput{ScheduleID: d.schedule.ID})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestCreateStudentEvaluationRejections(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	outsider := f.users.add(models.User{Email: "o@example.com"}, models.RoleStudent)

	_, err := f.student.Create(ctx, studentActor(outsider.ID), CreateStudentEvaluationInput{ScheduleID: d.schedule.ID})
	assert.True(t, apperror.Is(err, apperror.KindValidation), "non-member: %v", err)

	_, err = f.student.Create(ctx, studentActor(d.studentOne.ID), CreateStudentEvaluationInput{
		ScheduleID: d.schedule.ID,
		StudentID:  d.studentTwo.ID,
	})
	assert.True(t, apperror.Is(err, apperror.KindForbidden), "for another student: %v", err)

	_, err = f.student.Create(ctx, studentActor(d.studentOne.ID), CreateStudentEvaluationInput{
		ScheduleID: d.schedule.ID,
		Answers:    json.RawMessage(`"just a string"`),
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation), "scalar answers: %v", err)
}

func TestStudentEvaluationAnswersAreSealedAtRest(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	svc := NewStudentEvaluationService(f.studentEval, f.schedules, f.groups, prefixSealer{}, f.audit, f.publisher)
	student := studentActor(d.studentOne.ID)

	e, err := svc.Create(ctx, student, CreateStudentEvaluationInput{
		ScheduleID: d.schedule.ID,
		Answers:    json.RawMessage(`{"q1":"the demo went well"}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"q1":"the demo went well"}`, string(e.Answers))

	stored := f.studentEval.records[e.ID]
	assert.JSONEq(t, `{"sealed":"{\"q1\":\"the demo went well\"}"}`, string(stored.Answers))

	got, err := svc.Get(ctx, student, e.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"q1":"the demo went well"}`, string(got.Answers))
}

func TestStudentEvaluationSubmitBackfill(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	student := studentActor(d.studentOne.ID)

	e, err := f.student.Create(ctx, student, CreateStudentEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)

	clientTime := time.Date(2026, 6, 1, 10, 30, 0, 0, time.UTC)
	submitted, err := f.student.Patch(ctx, student, e.ID, PatchStudentEvaluationInput{
		Status:      ptr(models.StatusSubmitted),
		SubmittedAt: &clientTime,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	assert.True(t, clientTime.Equal(*submitted.SubmittedAt))

	later := clientTime.Add(time.Hour)
	again, err := f.student.Patch(ctx, student, e.ID, PatchStudentEvaluationInput{SubmittedAt: &later})
	require.NoError(t, err)
	assert.True(t, clientTime.Equal(*again.SubmittedAt), "submittedAt is kept once set")
	assert.Equal(t, ActionStudentEvaluationSubmitted, f.auditStore.last().Action)
}

func TestStudentEvaluationLockRules(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()
	student := studentActor(d.studentOne.ID)

	e, err := f.student.Create(ctx, student, CreateStudentEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)

	_, err = f.student.Patch(ctx, student, e.ID, PatchStudentEvaluationInput{Status: ptr(models.StatusLocked)})
	assert.True(t, apperror.Is(err, apperror.KindForbidden), "student lock: %v", err)

	locked, err := f.student.Patch(ctx, staffActor(d.panelistA.ID), e.ID, PatchStudentEvaluationInput{Status: ptr(models.StatusLocked)})
	require.NoError(t, err)
	assert.NotNil(t, locked.LockedAt)

	_, err = f.student.Patch(ctx, student, e.ID, PatchStudentEvaluationInput{Answers: json.RawMessage(`{"q1":"late edit"}`)})
	assert.True(t, apperror.Is(err, apperror.KindLocked), "answers on locked: %v", err)

	assert.Equal(t, []string{"student_evaluation.locked"}, f.publisher.keys())
}

func TestStudentEvaluationAnswersOwnerOnly(t *testing.T) {
	f := newFixture()
	d := f.seedDefense()
	ctx := context.Background()

	e, err := f.student.Create(ctx, studentActor(d.studentOne.ID), CreateStudentEvaluationInput{ScheduleID: d.schedule.ID})
	require.NoError(t, err)

	_, err = f.student.Patch(ctx, staffActor(d.panelistA.ID), e.ID, PatchStudentEvaluationInput{Answers: json.RawMessage(`{}`)})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = f.student.Get(ctx, studentActor(d.studentTwo.ID), e.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	list, total, err := f.student.List(ctx, studentActor(d.studentTwo.ID), StudentEvaluationFilter{Page: defaultTestPage()})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestNormalizeAnswers(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", `{}`, false},
		{"null", `{}`, false},
		{` {"a":1} `, `{"a":1}`, false},
		{`[1,2]`, `[1,2]`, false},
		{`42`, "", true},
		{`{"a":`, "", true},
	}

	for _, tt := range tests {
		got, err := normalizeAnswers(json.RawMessage(tt.in))
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, string(got))
	}
}
