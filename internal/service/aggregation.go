package service

import (
	"sort"

	"github.com/google/uuid"

	"thesis-eval/internal/models"
)

// ScoredEvaluation is one evaluation with its criterion scores
type ScoredEvaluation struct {
	Evaluation    models.Evaluation
	Scores        []models.EvaluationScore
	EvaluatorName string
}

// CriterionBreakdown is one criterion row of a panelist breakdown
type CriterionBreakdown struct {
	CriterionID uuid.UUID `json:"criterionId"`
	Criterion   string    `json:"criterion"`
	Weight      float64   `json:"weight"`
	MaxScore    int       `json:"maxScore"`
	Score       int       `json:"score"`
	Comment     string    `json:"comment,omitempty"`
}

// PanelistBreakdown is what one evaluator contributed to a summary
type PanelistBreakdown struct {
	EvaluatorID   uuid.UUID               `json:"evaluatorId"`
	EvaluatorName string                  `json:"evaluatorName"`
	Status        models.EvaluationStatus `json:"status"`
	RawTotal      float64                 `json:"rawTotal"`
	WeightedTotal float64                 `json:"weightedTotal"`
	SystemScore   *float64                `json:"systemScore"`
	Personal      *models.MemberOverall   `json:"personal"`
	Criteria      []CriterionBreakdown    `json:"criteria"`
}

// DisplayScores holds the 0-100 presentation values of the aggregates
type DisplayScores struct {
	GroupPercent         *float64 `json:"groupPercent"`
	WeightedGroupPercent *float64 `json:"weightedGroupPercent"`
	SystemPercent        *float64 `json:"systemPercent"`
	PersonalPercent      *float64 `json:"personalPercent"`
}

// Aggregate is the derived score view of one student for one schedule
type Aggregate struct {
	GroupScore         *float64            `json:"groupScore"`
	WeightedGroupScore *float64            `json:"weightedGroupScore"`
	SystemScore        *float64            `json:"systemScore"`
	PersonalScore      *float64            `json:"personalScore"`
	Display            DisplayScores       `json:"display"`
	Panelists          []PanelistBreakdown `json:"panelists"`
}

// counted reports whether an evaluation contributes to aggregates
func counted(status models.EvaluationStatus) bool {
	return status == models.StatusSubmitted || status == models.StatusLocked
}

// ComputeAggregate derives group, weighted, system and personal scores for
// studentID. Only submitted and locked evaluations count. A missing
// criterion is weighted 1. The result does not depend on input order.
func ComputeAggregate(studentID uuid.UUID, evals []ScoredEvaluation, criteria map[uuid.UUID]models.RubricCriterion) Aggregate {
	var (
		rawTotals      []float64
		weightedTotals []float64
		systemScores   []float64
		personalScores []float64
		panelists      = make([]PanelistBreakdown, 0, len(evals))
	)

	for _, se := range evals {
		if !counted(se.Evaluation.Status) {
			continue
		}

		p := PanelistBreakdown{
			EvaluatorID:   se.Evaluation.EvaluatorID,
			EvaluatorName: se.EvaluatorName,
			Status:        se.Evaluation.Status,
			SystemScore:   se.Evaluation.SystemScore,
			Criteria:      make([]CriterionBreakdown, 0, len(se.Scores)),
		}

		for _, sc := range se.Scores {
			weight := 1.0
			row := CriterionBreakdown{CriterionID: sc.CriterionID, Score: sc.Score, Comment: sc.Comment}
			if c, ok := criteria[sc.CriterionID]; ok {
				weight = c.Weight
				row.Criterion = c.Criterion
				row.MaxScore = c.MaxScore
			}
			row.Weight = weight
			p.RawTotal += float64(sc.Score)
			p.WeightedTotal += float64(sc.Score) * weight
			p.Criteria = append(p.Criteria, row)
		}
		sort.Slice(p.Criteria, func(i, j int) bool {
			return criterionOrder(criteria, p.Criteria[i].CriterionID, p.Criteria[j].CriterionID)
		})

		rawTotals = append(rawTotals, p.RawTotal)
		weightedTotals = append(weightedTotals, p.WeightedTotal)

		if se.Evaluation.SystemScore != nil {
			systemScores = append(systemScores, *se.Evaluation.SystemScore)
		}
		if entry, ok := se.Evaluation.MembersOverall[studentID]; ok {
			e := entry
			p.Personal = &e
			personalScores = append(personalScores, entry.Score)
		}

		panelists = append(panelists, p)
	}

	sort.Slice(panelists, func(i, j int) bool {
		return panelists[i].EvaluatorID.String() < panelists[j].EvaluatorID.String()
	})

	agg := Aggregate{
		GroupScore:         mean(rawTotals),
		WeightedGroupScore: mean(weightedTotals),
		SystemScore:        mean(systemScores),
		PersonalScore:      mean(personalScores),
		Panelists:          panelists,
	}
	agg.Display = DisplayScores{
		GroupPercent:         percentOf(agg.GroupScore),
		WeightedGroupPercent: percentOf(agg.WeightedGroupScore),
		SystemPercent:        percentOf(agg.SystemScore),
		PersonalPercent:      percentOf(agg.PersonalScore),
	}
	return agg
}

// Percent maps a raw value onto 0-100 for display, guessing the scale:
// up to 5 is out of 5, up to 10 is out of 10, anything else out of 100.
// It is a presentation heuristic and not a grading rule.
func Percent(x float64) float64 {
	scale := 100.0
	switch {
	case x <= 5:
		scale = 5
	case x <= 10:
		scale = 10
	}
	p := x / scale * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func percentOf(x *float64) *float64 {
	if x == nil {
		return nil
	}
	p := Percent(*x)
	return &p
}

// mean sorts a copy first so float summation is order-independent
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	m := sum / float64(len(sorted))
	return &m
}

func criterionOrder(criteria map[uuid.UUID]models.RubricCriterion, a, b uuid.UUID) bool {
	ca, okA := criteria[a]
	cb, okB := criteria[b]
	switch {
	case okA && okB && ca.Position != cb.Position:
		return ca.Position < cb.Position
	case okA != okB:
		return okA
	}
	return a.String() < b.String()
}
