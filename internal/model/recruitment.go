package model

import "time"

// RecruitmentRequest (RR) is an open role the company is hiring for.
// Candidates, availability slots and interviews all reference an RR.
//
// Fields:
//
//	ID              – primary key.
//	Title           – role title.
//	Department      – owning department.
//	Location        – work location.
//	Level           – seniority level.
//	SalaryRange     – free-form salary band.
//	JDURL           – link to the job description.
//	Status          – open, on_hold, closed or filled.
//	HiringManagerID – employee id of the hiring manager.
//	AgencyIDs       – recruitment agencies engaged for the role.
type RecruitmentRequest struct {
	ID              string    `json:"id"`                // recruitment_requests.id
	Title           string    `json:"title"`             // recruitment_requests.title
	Department      string    `json:"department"`        // recruitment_requests.department
	Location        string    `json:"location"`          // recruitment_requests.location
	Level           string    `json:"level"`             // recruitment_requests.level
	SalaryRange     string    `json:"salary_range"`      // recruitment_requests.salary_range
	JDURL           string    `json:"jd_url"`            // recruitment_requests.jd_url
	Status          string    `json:"status"`            // recruitment_requests.status
	HiringManagerID string    `json:"hiring_manager_id"` // recruitment_requests.hiring_manager_id
	AgencyIDs       []string  `json:"agency_ids"`        // recruitment_requests.agency_ids (JSON array)
	CreatedAt       time.Time `json:"created_at"`        // recruitment_requests.created_at
	UpdatedAt       time.Time `json:"updated_at"`        // recruitment_requests.updated_at
}

// RRStatuses are the accepted values of RecruitmentRequest.Status.
var RRStatuses = map[string]bool{"open": true, "on_hold": true, "closed": true, "filled": true}

// Candidate is an applicant in the pipeline for one RR.
type Candidate struct {
	ID           string            `json:"id"`
	RRID         string            `json:"rr_id"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	ResumeURL    string            `json:"resume_url"`
	Source       string            `json:"source"`
	CurrentStage string            `json:"current_stage"`
	Notes        map[string]string `json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// CandidateStages are the accepted pipeline stages, in pipeline order.
var CandidateStages = []string{"applied", "screening", "interview", "offer", "hired", "rejected"}

// ValidStage reports whether s is a known candidate stage.
func ValidStage(s string) bool {
	for _, v := range CandidateStages {
		if v == s {
			return true
		}
	}
	return false
}
