package model

import "time"

// SlotStatus is the booking state of an availability slot.
//
//	open → held → booked
//	held → open            (hold window elapsed or explicit release)
//	open|held → expired    (start time passed)
//	booked → open|expired  (interview cancelled)
type SlotStatus string

const (
	SlotOpen    SlotStatus = "open"
	SlotHeld    SlotStatus = "held"
	SlotBooked  SlotStatus = "booked"
	SlotExpired SlotStatus = "expired"
)

// AvailabilitySlot represents an interviewer's bookable time window for a
// requisition.  A held slot always carries HoldExpiresAt; once that
// instant passes the slot is treated as open again on the next access.
//
// Fields:
//
//	ID              – primary key.
//	RRID            – recruitment request the slot belongs to.
//	InterviewerID   – interviewer who offered the slot.
//	StartTime       – UTC start of the slot.
//	DurationMinutes – length of the slot.
//	Mode            – video, in_person, phone.
//	Location        – room or meeting link.
//	Status          – open, held, booked or expired.
//	HeldBy          – candidate holding or booked into the slot.
//	HoldExpiresAt   – end of the hold window (nil unless held).
//	CreatedAt       – creation timestamp.
type AvailabilitySlot struct {
	ID              string     `json:"id"`               // availability_slots.id
	RRID            string     `json:"rr_id"`            // availability_slots.rr_id
	InterviewerID   string     `json:"interviewer_id"`   // availability_slots.interviewer_id
	StartTime       time.Time  `json:"start_time"`       // availability_slots.start_time
	DurationMinutes int        `json:"duration_minutes"` // availability_slots.duration_minutes
	Mode            string     `json:"mode"`             // availability_slots.mode
	Location        string     `json:"location"`         // availability_slots.location
	Status          SlotStatus `json:"status"`           // availability_slots.status
	HeldBy          *string    `json:"held_by,omitempty"`
	HoldExpiresAt   *time.Time `json:"hold_expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"` // availability_slots.created_at
}

// InterviewStatus is the outcome state of an interview.
type InterviewStatus string

const (
	InterviewScheduled InterviewStatus = "scheduled"
	InterviewCompleted InterviewStatus = "completed"
	InterviewCancelled InterviewStatus = "cancelled"
	InterviewNoShow    InterviewStatus = "no_show"
)

// Interview binds a candidate to a booked slot.  SlotTime, DurationMinutes,
// Mode and Location are snapshots of the slot taken at booking time.
type Interview struct {
	ID              string            `json:"id"`
	CandidateID     string            `json:"candidate_id"`
	RRID            string            `json:"rr_id"`
	InterviewerID   string            `json:"interviewer_id"`
	SlotID          string            `json:"availability_slot_id"`
	SlotTime        time.Time         `json:"slot_time"`
	DurationMinutes int               `json:"duration_minutes"`
	Mode            string            `json:"mode"`
	Location        string            `json:"location"`
	Status          InterviewStatus   `json:"status"`
	Feedback        map[string]string `json:"feedback,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
