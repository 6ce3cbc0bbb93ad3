package scenario

import (
	"fmt"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
)

// buildReport computes the assessment scoring for a completed execution:
// score is the percentage of scenario steps that finished completed
// (skipped/failed steps reduce it), passed requires score >= 80. An empty
// scenario scores 100.
func buildReport(totalSteps, passedSteps int) *domain.Report {
	score := 100
	if totalSteps > 0 {
		score = int((100*passedSteps + totalSteps/2) / totalSteps)
	}
	passed := score >= 80
	return &domain.Report{
		Score:   score,
		Passed:  passed,
		Summary: fmt.Sprintf("Executed %d steps. %d passed.", totalSteps, passedSteps),
	}
}
