package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hrpass/internal/metrics"
	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/queue"
	"github.com/iliyamo/hrpass/internal/repository"
)

// InterviewFields are the caller-supplied parts of a new interview.  Empty
// mode and location fall back to the slot's values.
type InterviewFields struct {
	Mode     string
	Location string
	Feedback map[string]string
}

// BookingService runs the availability slot workflow:
//
//	open → held → booked
//	held → open            (release, or hold window elapsed)
//	open|held → expired    (start time passed)
//	booked → open|expired  (interview cancelled)
//
// Every operation is one transaction that first applies lazy expiry to the
// slot and then performs a conditional UPDATE, so correctness never
// depends on the background sweeper having run.
type BookingService struct {
	db         *sql.DB
	slots      *repository.SlotRepo
	interviews *repository.InterviewRepo
	candidates *repository.CandidateRepo
	rrs        *repository.RecruitmentRepo
	audit      *repository.AuditRepo
	publisher  Publisher
	holdWindow time.Duration
	retries    int
	log        *slog.Logger
	now        func() time.Time
}

// BookingDeps groups the collaborators of a BookingService.
type BookingDeps struct {
	DB         *sql.DB
	Slots      *repository.SlotRepo
	Interviews *repository.InterviewRepo
	Candidates *repository.CandidateRepo
	RRs        *repository.RecruitmentRepo
	Audit      *repository.AuditRepo
	Publisher  Publisher
	HoldWindow time.Duration
	Retries    int
	Log        *slog.Logger
	Now        func() time.Time
}

// NewBookingService wires a BookingService.
func NewBookingService(d BookingDeps) *BookingService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.HoldWindow <= 0 {
		d.HoldWindow = 10 * time.Minute
	}
	if d.Publisher == nil {
		d.Publisher = NopPublisher{}
	}
	return &BookingService{
		db: d.DB, slots: d.Slots, interviews: d.Interviews, candidates: d.Candidates, rrs: d.RRs,
		audit: d.Audit, publisher: d.Publisher, holdWindow: d.HoldWindow, retries: d.Retries,
		log: d.Log, now: d.Now,
	}
}

func slotResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repository.ErrSlotUnavailable):
		return "unavailable"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrConflict):
		return "conflict"
	}
	return "error"
}

// CreateSlot adds an open slot for a requisition.
func (b *BookingService) CreateSlot(ctx context.Context, actor string, s model.AvailabilitySlot) (model.AvailabilitySlot, error) {
	if s.RRID == "" || s.InterviewerID == "" || s.StartTime.IsZero() {
		return model.AvailabilitySlot{}, fmt.Errorf("%w: rr_id, interviewer_id and start_time are required", ErrValidation)
	}
	if _, err := b.rrs.Get(ctx, s.RRID); err != nil {
		return model.AvailabilitySlot{}, err
	}
	now := b.now()
	if !s.StartTime.After(now) {
		return model.AvailabilitySlot{}, fmt.Errorf("%w: start_time must be in the future", ErrValidation)
	}
	s.ID = uuid.NewString()
	s.Status = model.SlotOpen
	s.CreatedAt = now
	if err := b.slots.Create(ctx, &s); err != nil {
		return model.AvailabilitySlot{}, err
	}
	if err := b.audit.Append(ctx, model.AuditLog{
		Actor: actor, Action: "slot.create", EntityType: "slot", EntityID: s.ID,
		Metadata: map[string]string{"rr_id": s.RRID, "start_time": s.StartTime.Format(time.RFC3339)},
	}); err != nil {
		b.log.Error("audit slot create failed", "error", err)
	}
	return s, nil
}

// ListSlots returns a requisition's slots after applying lazy expiry.
func (b *BookingService) ListSlots(ctx context.Context, rrID string, status model.SlotStatus) ([]model.AvailabilitySlot, error) {
	var out []model.AvailabilitySlot
	err := repository.InTx(ctx, b.db, b.retries, func(tx *sql.Tx) error {
		if err := b.slots.NormalizeRRTx(ctx, tx, rrID, b.now()); err != nil {
			return err
		}
		var err error
		out, err = b.slots.ListByRRTx(ctx, tx, rrID, status)
		return err
	})
	return out, err
}

// GetSlot returns a slot after applying lazy expiry.
func (b *BookingService) GetSlot(ctx context.Context, slotID string) (model.AvailabilitySlot, error) {
	var out model.AvailabilitySlot
	err := repository.InTx(ctx, b.db, b.retries, func(tx *sql.Tx) error {
		if err := b.slots.NormalizeTx(ctx, tx, slotID, b.now()); err != nil {
			return err
		}
		var err error
		out, err = b.slots.GetTx(ctx, tx, slotID)
		return err
	})
	return out, err
}

// Hold reserves an open slot for candidateID for the hold window.
func (b *BookingService) Hold(ctx context.Context, actor, slotID, candidateID string) (model.AvailabilitySlot, error) {
	ctx, span := tracer.Start(ctx, "BookingService.Hold")
	defer span.End()

	if candidateID == "" {
		return model.AvailabilitySlot{}, fmt.Errorf("%w: candidate_id is required", ErrValidation)
	}
	cand, err := b.candidates.Get(ctx, candidateID)
	if err != nil {
		return model.AvailabilitySlot{}, err
	}
	now := b.now()
	var out model.AvailabilitySlot
	err = repository.InTx(ctx, b.db, b.retries, func(tx *sql.Tx) error {
		if err := b.slots.NormalizeTx(ctx, tx, slotID, now); err != nil {
			return err
		}
		s, err := b.slots.HoldTx(ctx, tx, slotID, candidateID, now, now.Add(b.holdWindow))
		if err != nil {
			return err
		}
		if s.RRID != cand.RRID {
			return fmt.Errorf("%w: candidate belongs to a different requisition", ErrValidation)
		}
		out = s
		return b.audit.AppendTx(ctx, tx, model.AuditLog{
			Actor: actor, Action: "slot.hold", EntityType: "slot", EntityID: slotID, CreatedAt: now,
			Metadata: map[string]string{"candidate_id": candidateID, "hold_expires_at": s.HoldExpiresAt.Format(time.RFC3339)},
		})
	})
	metrics.ObserveSlot("hold", slotResult(err))
	return out, err
}

// Release returns a slot held by candidateID to open.
func (b *BookingService) Release(ctx context.Context, actor, slotID, candidateID string) (model.AvailabilitySlot, error) {
	now := b.now()
	var out model.AvailabilitySlot
	err := repository.InTx(ctx, b.db, b.retries, func(tx *sql.Tx) error {
		if err := b.slots.NormalizeTx(ctx, tx, slotID, now); err != nil {
			return err
		}
		s, err := b.slots.ReleaseTx(ctx, tx, slotID, candidateID)
		if err != nil {
			return err
		}
		out = s
		return b.audit.AppendTx(ctx, tx, model.AuditLog{
			Actor: actor, Action: "slot.release", EntityType: "slot", EntityID: slotID, CreatedAt: now,
			Metadata: map[string]string{"candidate_id": candidateID},
		})
	})
	metrics.ObserveSlot("release", slotResult(err))
	return out, err
}

// Book binds candidateID to the slot and creates the interview.  The slot
// must be open, or held by the same candidate.  The slot transition, the
// interview insert and both audit entries commit together; of concurrent
// callers exactly one succeeds and the rest get ErrSlotUnavailable.
func (b *BookingService) Book(ctx context.Context, actor, slotID, candidateID string, f InterviewFields) (model.Interview, error) {
	ctx, span := tracer.Start(ctx, "BookingService.Book")
	defer span.End()

	if candidateID == "" {
		return model.Interview{}, fmt.Errorf("%w: candidate_id is required", ErrValidation)
	}
	cand, err := b.candidates.Get(ctx, candidateID)
	if err != nil {
		return model.Interview{}, err
	}

	now := b.now()
	var iv model.Interview
	err = repository.InTx(ctx, b.db, b.retries, func(tx *sql.Tx) error {
		if err := b.slots.NormalizeTx(ctx, tx, slotID, now); err != nil {
			return err
		}
		s, err := b.slots.BookTx(ctx, tx, slotID, candidateID, now)
		if err != nil {
			return err
		}
		if s.RRID != cand.RRID {
			return fmt.Errorf("%w: candidate belongs to a different requisition", ErrValidation)
		}
		iv = model.Interview{
			ID:              uuid.NewString(),
			CandidateID:     candidateID,
			RRID:            s.RRID,
			InterviewerID:   s.InterviewerID,
			SlotID:          s.ID,
			SlotTime:        s.StartTime,
			DurationMinutes: s.DurationMinutes,
			Mode:            firstNonEmpty(f.Mode, s.Mode),
			Location:        firstNonEmpty(f.Location, s.Location),
			Status:          model.InterviewScheduled,
			Feedback:        f.Feedback,
			CreatedAt:       now,
		}
		if err := b.interviews.InsertTx(ctx, tx, &iv); err != nil {
			return err
		}
		if err := b.audit.AppendTx(ctx, tx, model.AuditLog{
			Actor: actor, Action: "slot.book", EntityType: "slot", EntityID: s.ID, CreatedAt: now,
			Metadata: map[string]string{"candidate_id": candidateID, "interview_id": iv.ID},
		}); err != nil {
			return err
		}
		return b.audit.AppendTx(ctx, tx, model.AuditLog{
			Actor: actor, Action: "interview.schedule", EntityType: "interview", EntityID: iv.ID, CreatedAt: now,
			Metadata: map[string]string{"slot_id": s.ID, "candidate_id": candidateID},
		})
	})
	metrics.ObserveSlot("book", slotResult(err))
	if err != nil {
		return model.Interview{}, err
	}
	b.publish(ctx, queue.InterviewBookedQueue, actor, iv, cand)
	return iv, nil
}

// Cancel cancels a scheduled interview and frees its slot: open again when
// the slot still lies in the future, expired otherwise.
func (b *BookingService) Cancel(ctx context.Context, actor, interviewID string) (model.Interview, error) {
	ctx, span := tracer.Start(ctx, "BookingService.Cancel")
	defer span.End()

	now := b.now()
	var iv model.Interview
	err := repository.InTx(ctx, b.db, b.retries, func(tx *sql.Tx) error {
		var err error
		iv, err = b.interviews.CancelTx(ctx, tx, interviewID, now)
		if err != nil {
			return err
		}
		s, err := b.slots.ReleaseBookedTx(ctx, tx, iv.SlotID, now)
		if err != nil && !errors.Is(err, repository.ErrSlotUnavailable) {
			return err
		}
		if err := b.audit.AppendTx(ctx, tx, model.AuditLog{
			Actor: actor, Action: "interview.cancel", EntityType: "interview", EntityID: iv.ID, CreatedAt: now,
		}); err != nil {
			return err
		}
		return b.audit.AppendTx(ctx, tx, model.AuditLog{
			Actor: actor, Action: "slot.free", EntityType: "slot", EntityID: iv.SlotID, CreatedAt: now,
			Metadata: map[string]string{"status": string(s.Status)},
		})
	})
	metrics.ObserveSlot("cancel", slotResult(err))
	if err != nil {
		return model.Interview{}, err
	}
	if cand, cerr := b.candidates.Get(ctx, iv.CandidateID); cerr == nil {
		b.publish(ctx, queue.InterviewCancelledQueue, actor, iv, cand)
	}
	return iv, nil
}

// UpdateOutcome records completed or no_show with optional feedback.
func (b *BookingService) UpdateOutcome(ctx context.Context, actor, interviewID string, status model.InterviewStatus, feedback map[string]string) (model.Interview, error) {
	if status != model.InterviewCompleted && status != model.InterviewNoShow {
		return model.Interview{}, fmt.Errorf("%w: status must be completed or no_show", ErrValidation)
	}
	now := b.now()
	var iv model.Interview
	err := repository.InTx(ctx, b.db, b.retries, func(tx *sql.Tx) error {
		var err error
		iv, err = b.interviews.UpdateOutcomeTx(ctx, tx, interviewID, status, feedback, now)
		if err != nil {
			return err
		}
		return b.audit.AppendTx(ctx, tx, model.AuditLog{
			Actor: actor, Action: "interview.outcome", EntityType: "interview", EntityID: iv.ID, CreatedAt: now,
			Metadata: map[string]string{"status": string(status)},
		})
	})
	if err != nil {
		return model.Interview{}, err
	}
	return iv, nil
}

// GetInterview returns an interview by id.
func (b *BookingService) GetInterview(ctx context.Context, id string) (model.Interview, error) {
	return b.interviews.Get(ctx, id)
}

// ListInterviews returns interviews matching f.
func (b *BookingService) ListInterviews(ctx context.Context, f repository.InterviewFilter) ([]model.Interview, error) {
	return b.interviews.List(ctx, f)
}

// Sweep applies lazy expiry to every slot at once.
func (b *BookingService) Sweep(ctx context.Context) (expired, released int64, err error) {
	err = repository.InTx(ctx, b.db, b.retries, func(tx *sql.Tx) error {
		var err error
		expired, released, err = b.slots.SweepTx(ctx, tx, b.now())
		return err
	})
	return expired, released, err
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (b *BookingService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, released, err := b.Sweep(ctx)
			if err != nil {
				b.log.Error("slot sweep failed", "error", err)
				continue
			}
			if expired > 0 || released > 0 {
				b.log.Info("slot sweep", "expired", expired, "released", released)
			}
		}
	}
}

// InterviewEvent assembles the notification event for iv.
func (b *BookingService) InterviewEvent(ctx context.Context, kind, actor string, iv model.Interview) (queue.InterviewEvent, error) {
	cand, err := b.candidates.Get(ctx, iv.CandidateID)
	if err != nil {
		return queue.InterviewEvent{}, err
	}
	return b.event(ctx, kind, actor, iv, cand), nil
}

func (b *BookingService) event(ctx context.Context, kind, actor string, iv model.Interview, cand model.Candidate) queue.InterviewEvent {
	ev := queue.InterviewEvent{
		Type:            kind,
		InterviewID:     iv.ID,
		CandidateID:     cand.ID,
		CandidateName:   cand.Name,
		CandidateEmail:  cand.Email,
		CandidatePhone:  cand.Phone,
		RRID:            iv.RRID,
		InterviewerID:   iv.InterviewerID,
		SlotID:          iv.SlotID,
		SlotTime:        iv.SlotTime.UTC().Format(time.RFC3339),
		DurationMinutes: iv.DurationMinutes,
		Mode:            iv.Mode,
		Location:        iv.Location,
		Actor:           actor,
		OccurredAt:      b.now().UTC().Format(time.RFC3339),
	}
	if rr, err := b.rrs.Get(ctx, iv.RRID); err == nil {
		ev.RoleTitle = rr.Title
	}
	return ev
}

// publish sends the post-commit event.  Failures are logged only: the
// booking has already committed.
func (b *BookingService) publish(ctx context.Context, kind, actor string, iv model.Interview, cand model.Candidate) {
	ev := b.event(ctx, kind, actor, iv, cand)
	if err := b.publisher.PublishInterviewEvent(ctx, ev); err != nil {
		b.log.Warn("publish interview event failed", "type", kind, "interview_id", iv.ID, "error", err)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
