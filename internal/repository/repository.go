// Package repository implements the service stores on PostgreSQL with raw SQL.
package repository

import "thesis-eval/internal/service"

var (
	_ service.RubricStore            = (*RubricRepository)(nil)
	_ service.GroupStore             = (*GroupRepository)(nil)
	_ service.ScheduleStore          = (*ScheduleRepository)(nil)
	_ service.EvaluationStore        = (*EvaluationRepository)(nil)
	_ service.StudentEvaluationStore = (*StudentEvaluationRepository)(nil)
	_ service.AuditStore             = (*AuditRepository)(nil)
	_ service.UserStore              = (*UserRepository)(nil)
	_ service.TokenStore             = (*TokenRepository)(nil)
)
