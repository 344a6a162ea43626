package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"thesis-eval/internal/models"
)

// RubricStore persists rubric templates and their criteria
type RubricStore interface {
	CreateTemplate(ctx context.Context, t *models.RubricTemplate) error
	GetTemplate(ctx context.Context, id uuid.UUID) (*models.RubricTemplate, error)
	ListTemplates(ctx context.Context, q string, page models.Page) ([]models.RubricTemplate, int, error)
	UpdateTemplate(ctx context.Context, t *models.RubricTemplate) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	CreateCriterion(ctx context.Context, c *models.RubricCriterion) error
	GetCriterion(ctx context.Context, id uuid.UUID) (*models.RubricCriterion, error)
	ListCriteria(ctx context.Context, templateID uuid.UUID) ([]models.RubricCriterion, error)
	UpdateCriterion(ctx context.Context, c *models.RubricCriterion) error
	DeleteCriterion(ctx context.Context, id uuid.UUID) error
}

// GroupStore persists thesis groups and their membership
type GroupStore interface {
	Create(ctx context.Context, g *models.ThesisGroup) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ThesisGroup, error)
	List(ctx context.Context, page models.Page) ([]models.ThesisGroup, int, error)
	ListByMember(ctx context.Context, studentID uuid.UUID) ([]models.ThesisGroup, error)
	Update(ctx context.Context, g *models.ThesisGroup) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ScheduleFilter narrows a schedule listing
type ScheduleFilter struct {
	GroupIDs []uuid.UUID
	Page     models.Page
}

// ScheduleStore persists defense schedules and their panelists
type ScheduleStore interface {
	Create(ctx context.Context, s *models.DefenseSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DefenseSchedule, error)
	List(ctx context.Context, filter ScheduleFilter) ([]models.DefenseSchedule, int, error)
	Update(ctx context.Context, s *models.DefenseSchedule) error
}

// EvaluationFilter narrows an evaluation listing
type EvaluationFilter struct {
	ScheduleID  *uuid.UUID
	EvaluatorID *uuid.UUID
	Statuses    []models.EvaluationStatus
	Page        models.Page
}

// EvaluationStore persists panelist evaluations and their scores
type EvaluationStore interface {
	Create(ctx context.Context, e *models.Evaluation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Evaluation, error)
	List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, int, error)
	// Update writes e only if the stored status still equals expected.
	// A lost race yields a conflict error.
	Update(ctx context.Context, e *models.Evaluation, expected models.EvaluationStatus) error
	Delete(ctx context.Context, id uuid.UUID) error

	ListScores(ctx context.Context, evaluationIDs ...uuid.UUID) ([]models.EvaluationScore, error)
	// UpsertScores locks the evaluation row, runs check against it and
	// writes every score in one transaction.
	UpsertScores(ctx context.Context, evaluationID uuid.UUID, scores []models.EvaluationScore, check func(*models.Evaluation) error) ([]models.EvaluationScore, error)
}

// StudentEvaluationFilter narrows a student evaluation listing
type StudentEvaluationFilter struct {
	ScheduleID *uuid.UUID
	StudentID  *uuid.UUID
	Page       models.Page
}

// StudentEvaluationStore persists student feedback submissions
type StudentEvaluationStore interface {
	Create(ctx context.Context, e *models.StudentEvaluation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StudentEvaluation, error)
	List(ctx context.Context, filter StudentEvaluationFilter) ([]models.StudentEvaluation, int, error)
	// Update writes e only if the stored status still equals expected
	Update(ctx context.Context, e *models.StudentEvaluation, expected models.EvaluationStatus) error
}

// AuditStore appends and lists audit log entries
type AuditStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
}

// UserStore reads and updates user accounts
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	GetRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// TokenStore persists password reset tokens
type TokenStore interface {
	CreatePasswordResetToken(ctx context.Context, t *models.PasswordResetToken) error
	GetPasswordResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	// ResetPassword marks an unused token used and sets the user's password
	// hash atomically. Returns false when the token was already used.
	ResetPassword(ctx context.Context, tokenID, userID uuid.UUID, passwordHash string, at time.Time) (bool, error)
}

// AnswerSealer protects student answers at rest
type AnswerSealer interface {
	Seal(ctx context.Context, plaintext []byte) ([]byte, error)
	Open(ctx context.Context, stored []byte) ([]byte, error)
}

// EventPublisher emits domain events for downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Mailer delivers transactional email
type Mailer interface {
	SendPasswordResetEmail(to, name, token string) error
}
