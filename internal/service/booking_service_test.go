package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hrpass/internal/model"
	"github.com/iliyamo/hrpass/internal/queue"
	"github.com/iliyamo/hrpass/internal/repository"
)

func TestBooking_ConcurrentBookOneWinner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.requisition(t, "rr1")
	const callers = 8
	for i := range callers {
		e.candidate(t, fmt.Sprintf("c%d", i), "rr1")
	}
	s := e.slot(t, "rr1", 24*time.Hour)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		winners     []string
		unavailable int
	)
	for i := range callers {
		wg.Add(1)
		go func(cand string) {
			defer wg.Done()
			iv, err := e.booking.Book(ctx, cand, s.ID, cand, InterviewFields{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, iv.CandidateID)
			case errors.Is(err, repository.ErrSlotUnavailable):
				unavailable++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(fmt.Sprintf("c%d", i))
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, callers-1, unavailable)

	ivs, err := e.booking.ListInterviews(ctx, repository.InterviewFilter{RRID: "rr1"})
	require.NoError(t, err)
	require.Len(t, ivs, 1)
	assert.Equal(t, winners[0], ivs[0].CandidateID)

	got, err := e.booking.GetSlot(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotBooked, got.Status)
	require.NotNil(t, got.HeldBy)
	assert.Equal(t, winners[0], *got.HeldBy)
	assert.Equal(t, []string{queue.InterviewBookedQueue}, e.published.Types())
}

func TestBooking_HoldThenBook(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.requisition(t, "rr1")
	e.candidate(t, "alice", "rr1")
	e.candidate(t, "bob", "rr1")
	s := e.slot(t, "rr1", 24*time.Hour)

	held, err := e.booking.Hold(ctx, "alice", s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.SlotHeld, held.Status)
	assert.True(t, held.HoldExpiresAt.Equal(e.clock.Now().Add(10*time.Minute)))

	_, err = e.booking.Hold(ctx, "bob", s.ID, "bob")
	assert.ErrorIs(t, err, repository.ErrSlotUnavailable)
	_, err = e.booking.Book(ctx, "bob", s.ID, "bob", InterviewFields{})
	assert.ErrorIs(t, err, repository.ErrSlotUnavailable)

	iv, err := e.booking.Book(ctx, "alice", s.ID, "alice", InterviewFields{Location: "Room 4"})
	require.NoError(t, err)
	assert.Equal(t, model.InterviewScheduled, iv.Status)
	assert.Equal(t, "Room 4", iv.Location)
	assert.Equal(t, "video", iv.Mode, "mode falls back to the slot")
	assert.Equal(t, 45, iv.DurationMinutes)
	assert.True(t, iv.SlotTime.Equal(s.StartTime))

	assert.ElementsMatch(t, []string{"slot.create", "slot.hold", "slot.book"}, e.auditActions(t, "slot", s.ID))
	assert.Equal(t, []string{"interview.schedule"}, e.auditActions(t, "interview", iv.ID))
}

func TestBooking_LazyHoldExpiry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.requisition(t, "rr1")
	e.candidate(t, "alice", "rr1")
	e.candidate(t, "bob", "rr1")
	s := e.slot(t, "rr1", 24*time.Hour)

	_, err := e.booking.Hold(ctx, "alice", s.ID, "alice")
	require.NoError(t, err)

	// No sweeper runs; the next access sees the elapsed hold.
	e.clock.Advance(10 * time.Minute)
	got, err := e.booking.GetSlot(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotOpen, got.Status)
	assert.Nil(t, got.HeldBy)

	held, err := e.booking.Hold(ctx, "bob", s.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", *held.HeldBy)

	_, err = e.booking.Release(ctx, "alice", s.ID, "alice")
	assert.ErrorIs(t, err, repository.ErrSlotUnavailable)
	released, err := e.booking.Release(ctx, "bob", s.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, model.SlotOpen, released.Status)
}

func TestBooking_StartTimePassed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.requisition(t, "rr1")
	e.candidate(t, "alice", "rr1")
	s := e.slot(t, "rr1", time.Hour)
	_, err := e.booking.Hold(ctx, "alice", s.ID, "alice")
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	_, err = e.booking.Book(ctx, "alice", s.ID, "alice", InterviewFields{})
	assert.ErrorIs(t, err, repository.ErrSlotUnavailable)

	list, err := e.booking.ListSlots(ctx, "rr1", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.SlotExpired, list[0].Status)

	open, err := e.booking.ListSlots(ctx, "rr1", model.SlotOpen)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestBooking_Cancel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.requisition(t, "rr1")
	e.candidate(t, "alice", "rr1")
	future := e.slot(t, "rr1", 48*time.Hour)
	soon := e.slot(t, "rr1", time.Hour)

	iv1, err := e.booking.Book(ctx, "alice", future.ID, "alice", InterviewFields{})
	require.NoError(t, err)
	iv2, err := e.booking.Book(ctx, "alice", soon.ID, "alice", InterviewFields{})
	require.NoError(t, err)

	cancelled, err := e.booking.Cancel(ctx, "admin", iv1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InterviewCancelled, cancelled.Status)
	got, err := e.booking.GetSlot(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotOpen, got.Status, "a future slot reopens")

	e.clock.Advance(2 * time.Hour)
	_, err = e.booking.Cancel(ctx, "admin", iv2.ID)
	require.NoError(t, err)
	got, err = e.booking.GetSlot(ctx, soon.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotExpired, got.Status, "a past slot expires")

	_, err = e.booking.Cancel(ctx, "admin", iv1.ID)
	assert.ErrorIs(t, err, repository.ErrConflict)
	_, err = e.booking.Cancel(ctx, "admin", "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// The reopened slot can be booked again.
	_, err = e.booking.Book(ctx, "alice", future.ID, "alice", InterviewFields{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		queue.InterviewBookedQueue, queue.InterviewBookedQueue,
		queue.InterviewCancelledQueue, queue.InterviewCancelledQueue,
		queue.InterviewBookedQueue,
	}, e.published.Types())
}

func TestBooking_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.requisition(t, "rr1")
	e.requisition(t, "rr2")
	e.candidate(t, "alice", "rr1")
	s := e.slot(t, "rr2", time.Hour)

	_, err := e.booking.Book(ctx, "alice", s.ID, "alice", InterviewFields{})
	assert.ErrorIs(t, err, ErrValidation, "candidate of another requisition")
	got, err := e.booking.GetSlot(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotOpen, got.Status, "failed booking rolls back")

	_, err = e.booking.Hold(ctx, "alice", s.ID, "alice")
	assert.ErrorIs(t, err, ErrValidation, "hold for a candidate of another requisition")
	_, err = e.booking.Hold(ctx, "x", s.ID, "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = e.booking.Hold(ctx, "x", s.ID, "")
	assert.ErrorIs(t, err, ErrValidation)
	got, err = e.booking.GetSlot(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotOpen, got.Status, "rejected holds leave the slot open")
	assert.Nil(t, got.HeldBy)

	_, err = e.booking.Book(ctx, "x", s.ID, "", InterviewFields{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.booking.Book(ctx, "x", s.ID, "ghost", InterviewFields{})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = e.booking.CreateSlot(ctx, "admin", model.AvailabilitySlot{RRID: "rr1", InterviewerID: "i", StartTime: e.clock.Now()})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.booking.CreateSlot(ctx, "admin", model.AvailabilitySlot{RRID: "nope", InterviewerID: "i", StartTime: e.clock.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	iv, err := e.booking.Book(ctx, "admin", e.slot(t, "rr1", time.Hour).ID, "alice", InterviewFields{})
	require.NoError(t, err)
	_, err = e.booking.UpdateOutcome(ctx, "admin", iv.ID, model.InterviewCancelled, nil)
	assert.ErrorIs(t, err, ErrValidation)
	done, err := e.booking.UpdateOutcome(ctx, "admin", iv.ID, model.InterviewNoShow, map[string]string{"note": "did not join"})
	require.NoError(t, err)
	assert.Equal(t, model.InterviewNoShow, done.Status)
}

func TestBooking_Sweep(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.requisition(t, "rr1")
	e.candidate(t, "alice", "rr1")
	past := e.slot(t, "rr1", time.Hour)
	held := e.slot(t, "rr1", 24*time.Hour)
	_, err := e.booking.Hold(ctx, "alice", held.ID, "alice")
	require.NoError(t, err)

	e.clock.Advance(2 * time.Hour)
	expired, released, err := e.booking.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)
	assert.EqualValues(t, 1, released)

	got, err := e.booking.GetSlot(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotExpired, got.Status)
}
