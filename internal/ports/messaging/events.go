package messaging

import "time"

// Entity types carried by change events.
const (
	EntityTimeEntry     = "time_entry"
	EntityBreakInterval = "break_interval"
)

// ChangeEvent is the JSON payload published to the events queue after every
// successful mutation. Dashboards consume it for live refresh; delivery is
// at-least-once and subscribers must tolerate duplicates.
type ChangeEvent struct {
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	TenantID   string    `json:"tenantId"`
	EmployeeID string    `json:"employeeId"`
	NewStatus  string    `json:"newStatus"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ReviewEvent is published to the review queue when a TimeEntry enters
// PENDING_REVIEW, so the review worker can notify a supervisor.
type ReviewEvent struct {
	TimeEntryID string    `json:"timeEntryId"`
	TenantID    string    `json:"tenantId"`
	EmployeeID  string    `json:"employeeId"`
	TotalHours  float64   `json:"totalHours"`
	OccurredAt  time.Time `json:"occurredAt"`
}
