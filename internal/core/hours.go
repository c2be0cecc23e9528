package core

import (
	"math"
	"time"

	"attendance.service/internal/core/model"
)

// WorkedHours is the result of an hour computation for a single TimeEntry.
type WorkedHours struct {
	Total    float64
	Regular  float64
	Overtime float64
}

// ComputeHours derives total/regular/overtime hours for the span clockIn..clockOut
// with the given closed breaks deducted. Pure, no I/O; callers pass the current
// time as clockOut while an entry is still active so the derived fields always
// reflect "hours so far minus closed breaks so far".
//
// clockOut before clockIn is a caller error and is not clamped here; the break
// deduction alone can never drive the result below zero.
func ComputeHours(clockIn, clockOut time.Time, closedBreaks []*model.BreakInterval, overtimeThresholdHours float64) WorkedHours {
	breakMinutes := 0
	for _, b := range closedBreaks {
		if b.DurationMinutes != nil {
			breakMinutes += *b.DurationMinutes
		}
	}

	workedMinutes := clockOut.Sub(clockIn).Minutes() - float64(breakMinutes)
	total := math.Max(0, workedMinutes) / 60

	regular := math.Min(total, overtimeThresholdHours)
	overtime := math.Max(total-overtimeThresholdHours, 0)

	return WorkedHours{
		Total:    round2(total),
		Regular:  round2(regular),
		Overtime: round2(overtime),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
