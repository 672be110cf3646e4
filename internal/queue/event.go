// Package queue defines the interview events exchanged over RabbitMQ and
// the background consumer that turns them into notifications.
package queue

// Queue names; the routing key equals the queue name on the default exchange.
const (
	InterviewBookedQueue    = "interview.booked"
	InterviewCancelledQueue = "interview.cancelled"
)

// InterviewEvent is published after a booking or cancellation commits.  It
// carries enough for the consumer to notify the candidate without reading
// the primary database.
type InterviewEvent struct {
	Type            string `json:"type"` // one of the queue names
	InterviewID     string `json:"interview_id"`
	CandidateID     string `json:"candidate_id"`
	CandidateName   string `json:"candidate_name"`
	CandidateEmail  string `json:"candidate_email"`
	CandidatePhone  string `json:"candidate_phone"`
	RRID            string `json:"rr_id"`
	RoleTitle       string `json:"role_title"`
	InterviewerID   string `json:"interviewer_id"`
	SlotID          string `json:"availability_slot_id"`
	SlotTime        string `json:"slot_time"` // RFC 3339, UTC
	DurationMinutes int    `json:"duration_minutes"`
	Mode            string `json:"mode"`
	Location        string `json:"location"`
	Actor           string `json:"actor"`
	OccurredAt      string `json:"occurred_at"`
}
