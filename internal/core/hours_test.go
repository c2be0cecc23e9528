package core

import (
	"testing"
	"time"

	"attendance.service/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func closedBreak(number, minutes int) *model.BreakInterval {
	d := minutes
	end := testDay.Add(time.Duration(minutes) * time.Minute)
	return &model.BreakInterval{
		BreakNumber:     number,
		BreakStart:      testDay,
		BreakEnd:        &end,
		DurationMinutes: &d,
	}
}

func TestComputeHours_FullDayWithLunch(t *testing.T) {
	// 08:00 -> 17:00 with a 30 minute lunch is 8.5 hours, 0.5 of it overtime.
	hours := ComputeHours(at(8, 0), at(17, 0), []*model.BreakInterval{closedBreak(1, 30)}, 8.0)

	assert.Equal(t, 8.5, hours.Total)
	assert.Equal(t, 8.0, hours.Regular)
	assert.Equal(t, 0.5, hours.Overtime)
}

func TestComputeHours_NoBreaks(t *testing.T) {
	hours := ComputeHours(at(9, 0), at(17, 0), nil, 8.0)

	assert.Equal(t, 8.0, hours.Total)
	assert.Equal(t, 8.0, hours.Regular)
	assert.Equal(t, 0.0, hours.Overtime)
}

func TestComputeHours_UnderThreshold(t *testing.T) {
	hours := ComputeHours(at(9, 0), at(13, 15), []*model.BreakInterval{closedBreak(1, 30)}, 8.0)

	assert.Equal(t, 3.75, hours.Total)
	assert.Equal(t, 3.75, hours.Regular)
	assert.Equal(t, 0.0, hours.Overtime)
}

func TestComputeHours_MultipleBreakCycles(t *testing.T) {
	breaks := []*model.BreakInterval{
		closedBreak(1, 30),
		closedBreak(2, 5),
		closedBreak(3, 10),
	}
	hours := ComputeHours(at(8, 0), at(18, 0), breaks, 8.0)

	assert.Equal(t, 9.25, hours.Total)
	assert.Equal(t, 8.0, hours.Regular)
	assert.Equal(t, 1.25, hours.Overtime)
}

func TestComputeHours_NeverNegative(t *testing.T) {
	// Breaks longer than the worked span clamp to zero rather than going negative.
	hours := ComputeHours(at(8, 0), at(8, 10), []*model.BreakInterval{closedBreak(1, 45)}, 8.0)

	assert.Equal(t, 0.0, hours.Total)
	assert.Equal(t, 0.0, hours.Regular)
	assert.Equal(t, 0.0, hours.Overtime)
}

func TestComputeHours_TotalSplitsIntoRegularAndOvertime(t *testing.T) {
	for _, minutes := range []int{0, 13, 30, 47, 61} {
		hours := ComputeHours(at(7, 30), at(18, 7), []*model.BreakInterval{closedBreak(1, minutes)}, 8.0)

		assert.GreaterOrEqual(t, hours.Total, 0.0)
		assert.InDelta(t, hours.Total, hours.Regular+hours.Overtime, 0.001)
	}
}
