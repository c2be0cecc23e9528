package model

import (
	"time"
)

// EntryStatus defines the lifecycle state of a TimeEntry.
type EntryStatus string

const (
	StatusActive        EntryStatus = "ACTIVE"
	StatusCompleted     EntryStatus = "COMPLETED"
	StatusPendingReview EntryStatus = "PENDING_REVIEW"
	StatusApproved      EntryStatus = "APPROVED"
	StatusRejected      EntryStatus = "REJECTED"
)

// BreakType distinguishes the duration-gated first break from later ones.
type BreakType string

const (
	BreakTypeLunch   BreakType = "LUNCH"
	BreakTypeRegular BreakType = "REGULAR"
)

// TimeEntry is one employee's clock-in-to-clock-out span. The hour fields are
// derived and recomputed on every mutation that touches the entry or its breaks.
type TimeEntry struct {
	ID            string      `json:"id"`
	TenantID      string      `json:"tenantId"`
	EmployeeID    string      `json:"employeeId"`
	ClockInTime   time.Time   `json:"clockInTime"`
	ClockOutTime  *time.Time  `json:"clockOutTime,omitempty"`
	TotalHours    float64     `json:"totalHours"`
	RegularHours  float64     `json:"regularHours"`
	OvertimeHours float64     `json:"overtimeHours"`
	Status        EntryStatus `json:"status"`

	RequiresVerification bool       `json:"requiresVerification"`
	EvidenceIn           *string    `json:"evidenceIn,omitempty"`
	EvidenceOut          *string    `json:"evidenceOut,omitempty"`
	VerifiedBy           *string    `json:"verifiedBy,omitempty"`
	VerifiedAt           *time.Time `json:"verifiedAt,omitempty"`

	// Policy snapshot taken at clock-in time. Later policy changes never
	// re-validate an entry or a break already in progress.
	MinimumFirstBreakMinutes int     `json:"minimumFirstBreakMinutes"`
	OvertimeThresholdHours   float64 `json:"overtimeThresholdHours"`
}

// BreakInterval is an unpaid pause nested under a TimeEntry. Break #1 is the
// lunch break; it is the only one with a minimum duration.
type BreakInterval struct {
	ID              string     `json:"id"`
	TimeEntryID     string     `json:"timeEntryId"`
	TenantID        string     `json:"tenantId"`
	EmployeeID      string     `json:"employeeId"`
	BreakNumber     int        `json:"breakNumber"`
	BreakStart      time.Time  `json:"breakStart"`
	BreakEnd        *time.Time `json:"breakEnd,omitempty"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
	BreakType       BreakType  `json:"breakType"`
	IsPaid          bool       `json:"isPaid"`
	EvidenceStart   *string    `json:"evidenceStart,omitempty"`
	EvidenceEnd     *string    `json:"evidenceEnd,omitempty"`
}

// Open reports whether the break has not been ended yet.
func (b *BreakInterval) Open() bool {
	return b.BreakEnd == nil
}

// Close stamps the break end and derives duration_minutes (whole minutes).
func (b *BreakInterval) Close(at time.Time) {
	end := at
	b.BreakEnd = &end
	minutes := int(at.Sub(b.BreakStart).Minutes())
	b.DurationMinutes = &minutes
}

// Policy is the per-employee attendance policy resolved from the directory
// when a TimeEntry is opened.
type Policy struct {
	MinimumFirstBreakMinutes   int     `json:"minimumFirstBreakMinutes"`
	OvertimeThresholdHours     float64 `json:"overtimeThresholdHours"`
	RequiresManualVerification bool    `json:"requiresManualVerification"`
}

const (
	DefaultMinimumFirstBreakMinutes = 30
	DefaultOvertimeThresholdHours   = 8.0
)

// DefaultPolicy is the fallback used when the policy directory is unreachable.
func DefaultPolicy() Policy {
	return Policy{
		MinimumFirstBreakMinutes: DefaultMinimumFirstBreakMinutes,
		OvertimeThresholdHours:   DefaultOvertimeThresholdHours,
	}
}
