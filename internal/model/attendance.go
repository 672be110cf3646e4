package model

import "time"

// Work modes recorded on an attendance row.
const (
	WorkModeOffice = "office"
	WorkModeWFH    = "wfh"
	WorkModeClient = "client"
	WorkModeField  = "field"
	WorkModeTravel = "travel"
)

// WFH approval states.  Rows that are not work-from-home carry WFHNotApplicable.
const (
	WFHNotApplicable = "n/a"
	WFHPending       = "pending_approval"
	WFHApproved      = "approved"
	WFHRejected      = "rejected"
)

// ValidWorkMode reports whether m is a known work mode.
func ValidWorkMode(m string) bool {
	switch m {
	case WorkModeOffice, WorkModeWFH, WorkModeClient, WorkModeField, WorkModeTravel:
		return true
	}
	return false
}

// AttendanceLog is one employee's attendance for one calendar day.  There
// is at most one row per (EmployeeID, WorkDate).
type AttendanceLog struct {
	ID            string     `json:"id"`
	EmployeeID    string     `json:"employee_id"`
	WorkDate      string     `json:"date"` // YYYY-MM-DD, UTC
	TimeIn        *time.Time `json:"time_in,omitempty"`
	TimeOut       *time.Time `json:"time_out,omitempty"`
	TotalHours    float64    `json:"total_hours"`
	WorkMode      string     `json:"work_mode"`
	WFHStatus     string     `json:"wfh_status"`
	ApproverID    string     `json:"approver_id,omitempty"`
	ApprovalTime  *time.Time `json:"approval_time,omitempty"`
	ApprovalNotes string     `json:"approval_notes,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ESSRequest is an employee self-service request (leave, letters,
// document updates and the like).  Payload carries the type-specific fields.
type ESSRequest struct {
	ID          string            `json:"id"`
	EmployeeID  string            `json:"employee_id"`
	Type        string            `json:"type"`
	Status      string            `json:"status"`
	Payload     map[string]string `json:"payload,omitempty"`
	Attachments []string          `json:"attachments,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ESSStatuses are the accepted values of ESSRequest.Status.
var ESSStatuses = map[string]bool{"open": true, "in_progress": true, "approved": true, "rejected": true, "closed": true}
