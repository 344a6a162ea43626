package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role names
const (
	RoleAdmin   = "admin"
	RoleStaff   = "staff"
	RoleStudent = "student"
)

// EvaluationStatus is the lifecycle state shared by evaluations and student evaluations
type EvaluationStatus string

const (
	StatusPending   EvaluationStatus = "pending"
	StatusSubmitted EvaluationStatus = "submitted"
	StatusLocked    EvaluationStatus = "locked"
)

// Valid reports whether s is one of the known lifecycle states
func (s EvaluationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusLocked:
		return true
	}
	return false
}

// ScheduleStatus is the state of a defense schedule
type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "scheduled"
	ScheduleCompleted ScheduleStatus = "completed"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// Valid reports whether s is a known schedule status
func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleScheduled, ScheduleCompleted, ScheduleCancelled:
		return true
	}
	return false
}

// User represents a user in the system
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FullName     string     `json:"fullName" db:"full_name"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// UserWithRoles extends User with role names
type UserWithRoles struct {
	User
	Roles []string `json:"roles"`
}

// PasswordResetToken represents a token for password reset
type PasswordResetToken struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"userId" db:"user_id"`
	Token     string     `json:"-" db:"token"`
	ExpiresAt time.Time  `json:"expiresAt" db:"expires_at"`
	UsedAt    *time.Time `json:"usedAt,omitempty" db:"used_at"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

// ThesisGroup is a set of students defending one thesis
type ThesisGroup struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	AdviserID   *uuid.UUID  `json:"adviserId,omitempty" db:"adviser_id"`
	MemberIDs   []uuid.UUID `json:"memberIds"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

// HasMember reports whether studentID belongs to the group
func (g *ThesisGroup) HasMember(studentID uuid.UUID) bool {
	for _, id := range g.MemberIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// DefenseSchedule binds a group, a rubric template and panelists to a defense slot
type DefenseSchedule struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	GroupID          uuid.UUID      `json:"groupId" db:"group_id"`
	ScheduledAt      time.Time      `json:"scheduledAt" db:"scheduled_at"`
	Room             string         `json:"room" db:"room"`
	Status           ScheduleStatus `json:"status" db:"status"`
	RubricTemplateID *uuid.UUID     `json:"rubricTemplateId,omitempty" db:"rubric_template_id"`
	PanelistIDs      []uuid.UUID    `json:"panelistIds"`
	CreatedAt        time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time      `json:"updatedAt" db:"updated_at"`
}

// HasPanelist reports whether staffID is assigned to the schedule
func (s *DefenseSchedule) HasPanelist(staffID uuid.UUID) bool {
	for _, id := range s.PanelistIDs {
		if id == staffID {
			return true
		}
	}
	return false
}

// RubricTemplate is a named, versioned set of scoring criteria
type RubricTemplate struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Version     int       `json:"version" db:"version"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// RubricCriterion is one scored dimension within a template
type RubricCriterion struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TemplateID  uuid.UUID `json:"templateId" db:"template_id"`
	Criterion   string    `json:"criterion" db:"criterion"`
	Description string    `json:"description" db:"description"`
	Weight      float64   `json:"weight" db:"weight"`
	MinScore    int       `json:"minScore" db:"min_score"`
	MaxScore    int       `json:"maxScore" db:"max_score"`
	Position    int64     `json:"position" db:"position"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// MemberOverall is an evaluator's overall score for one group member
type MemberOverall struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment,omitempty"`
}

// Evaluation is one panelist's scored review of a defense schedule
type Evaluation struct {
	ID             uuid.UUID                   `json:"id" db:"id"`
	ScheduleID     uuid.UUID                   `json:"scheduleId" db:"schedule_id"`
	EvaluatorID    uuid.UUID                   `json:"evaluatorId" db:"evaluator_id"`
	Status         EvaluationStatus            `json:"status" db:"status"`
	SystemScore    *float64                    `json:"systemScore" db:"system_score"`
	MembersOverall map[uuid.UUID]MemberOverall `json:"membersOverall" db:"members_overall"`
	SubmittedAt    *time.Time                  `json:"submittedAt" db:"submitted_at"`
	LockedAt       *time.Time                  `json:"lockedAt" db:"locked_at"`
	CreatedAt      time.Time                   `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time                   `json:"updatedAt" db:"updated_at"`
}

// EvaluationScore is the score one evaluation gives one criterion
type EvaluationScore struct {
	EvaluationID uuid.UUID `json:"evaluationId" db:"evaluation_id"`
	CriterionID  uuid.UUID `json:"criterionId" db:"criterion_id"`
	Score        int       `json:"score" db:"score"`
	Comment      string    `json:"comment" db:"comment"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// StudentEvaluation is a student's own feedback submission for a defense
type StudentEvaluation struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	ScheduleID  uuid.UUID        `json:"scheduleId" db:"schedule_id"`
	StudentID   uuid.UUID        `json:"studentId" db:"student_id"`
	Status      EvaluationStatus `json:"status" db:"status"`
	Answers     json.RawMessage  `json:"answers" db:"answers"`
	SubmittedAt *time.Time       `json:"submittedAt" db:"submitted_at"`
	LockedAt    *time.Time       `json:"lockedAt" db:"locked_at"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	ActorID   *uuid.UUID      `json:"actorId,omitempty" db:"actor_id"`
	Action    string          `json:"action" db:"action"`
	Entity    string          `json:"entity" db:"entity"`
	EntityID  *uuid.UUID      `json:"entityId,omitempty" db:"entity_id"`
	Details   json.RawMessage `json:"details" db:"details"`
	IPAddress string          `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent string          `json:"userAgent,omitempty" db:"user_agent"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// AuditFilter narrows an audit log listing
type AuditFilter struct {
	Entity  string
	Action  string
	ActorID *uuid.UUID
	Limit   int
	Offset  int
}

// Page is the shared limit/offset pair for list operations. A zero Limit
// means no limit.
type Page struct {
	Limit  int
	Offset int
}

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID    uuid.UUID
	Roles     []string
	IPAddress string
	UserAgent string
}

// HasRole reports whether the actor holds role
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsStaff reports whether the actor may evaluate or manage evaluations
func (a Actor) IsStaff() bool {
	return a.HasRole(RoleAdmin) || a.HasRole(RoleStaff)
}
