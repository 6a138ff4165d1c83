package proctoring

import "github.com/SAP-F-2025/proctoring-service/internal/models"

// Deduction is the number of integrity points a logged event of the given severity costs
func Deduction(severity models.Severity) int {
	switch severity {
	case models.SeverityHigh:
		return 10
	case models.SeverityMedium:
		return 5
	case models.SeverityLow:
		return 2
	default:
		panic("proctoring: unknown severity " + string(severity))
	}
}

// Scorer keeps the integrity score. It only ever moves down and stops at zero.
type Scorer struct {
	score int
}

func NewScorer() *Scorer {
	return &Scorer{score: initialIntegrity}
}

func (s *Scorer) Score() int {
	return s.score
}

func (s *Scorer) Apply(severity models.Severity) int {
	s.score = max(minimumIntegrity, s.score-Deduction(severity))
	return s.score
}
