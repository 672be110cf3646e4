package model

import "time"

// Policy is a distributed company policy document.  Status moves through
// draft → review → approved → published; employees acknowledge a specific
// version.
type Policy struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Version       string    `json:"version"`
	Category      string    `json:"category"`
	Status        string    `json:"status"`
	Owner         string    `json:"owner"`
	EffectiveDate string    `json:"effective_date"` // YYYY-MM-DD
	FileURL       string    `json:"file_url"`
	Summary       string    `json:"summary"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PolicyStatuses are the accepted values of Policy.Status.
var PolicyStatuses = map[string]bool{"draft": true, "review": true, "approved": true, "published": true}

// PolicyAck records that an employee acknowledged a policy version.
type PolicyAck struct {
	ID         string    `json:"id"`
	PolicyID   string    `json:"policy_id"`
	EmployeeID string    `json:"employee_id"`
	Version    string    `json:"version"`
	AckAt      time.Time `json:"ack_at"`
}

// TemplateDoc is a downloadable HR document template.
type TemplateDoc struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	FileURL     string    `json:"file_url"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}
