package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"thesis-eval/internal/models"
)

// LifecycleEvent is published when an evaluation or student evaluation
// is submitted or locked
type LifecycleEvent struct {
	Entity     string                  `json:"entity"`
	ID         uuid.UUID               `json:"id"`
	ScheduleID uuid.UUID               `json:"scheduleId"`
	SubjectID  uuid.UUID               `json:"subjectId"`
	ActorID    uuid.UUID               `json:"actorId"`
	Status     models.EvaluationStatus `json:"status"`
	OccurredAt time.Time               `json:"occurredAt"`
}

// RoutingKey is "<entity>.<status>", e.g. "evaluation.locked"
func (e LifecycleEvent) RoutingKey() string {
	return e.Entity + "." + string(e.Status)
}

// publishLifecycle is best-effort: a broker failure never fails the request
func publishLifecycle(ctx context.Context, pub EventPublisher, evt LifecycleEvent) {
	if pub == nil {
		return
	}
	if err := pub.Publish(context.WithoutCancel(ctx), evt.RoutingKey(), evt); err != nil {
		slog.Warn("Failed to publish lifecycle event",
			"routing_key", evt.RoutingKey(),
			"id", evt.ID,
			"error", err,
		)
	}
}
