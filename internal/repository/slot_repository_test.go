package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hrpass/internal/database/sqlitetest"
	"github.com/iliyamo/hrpass/internal/model"
)

type slotFixture struct {
	db         *sql.DB
	slots      *SlotRepo
	interviews *InterviewRepo
	rrID       string
	candID     string
}

func newSlotFixture(t *testing.T) slotFixture {
	t.Helper()
	db := sqlitetest.Open(t)
	ctx := context.Background()
	rr := model.RecruitmentRequest{ID: "rr1", Title: "Backend Engineer", Status: "open", CreatedAt: t0}
	require.NoError(t, NewRecruitmentRepo(db).Create(ctx, &rr))
	c := model.Candidate{ID: "c1", RRID: "rr1", Name: "Cara", Email: "cara@example.com", CurrentStage: "applied", CreatedAt: t0}
	require.NoError(t, NewCandidateRepo(db).Create(ctx, &c))
	return slotFixture{db: db, slots: NewSlotRepo(db), interviews: NewInterviewRepo(db), rrID: "rr1", candID: "c1"}
}

func (f slotFixture) slot(t *testing.T, id string, start time.Time) {
	t.Helper()
	require.NoError(t, f.slots.Create(context.Background(), &model.AvailabilitySlot{
		ID: id, RRID: f.rrID, InterviewerID: "iv-1", StartTime: start, DurationMinutes: 45,
		Mode: "video", Location: "https://meet.example.com/x", CreatedAt: t0,
	}))
}

func (f slotFixture) liveInterviews(t *testing.T, slotID string) int {
	t.Helper()
	var n int
	require.NoError(t, f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		n, err = f.interviews.CountBySlotTx(ctx, tx, slotID)
		return err
	}))
	return n
}

func (f slotFixture) tx(t *testing.T, fn func(ctx context.Context, tx *sql.Tx) error) error {
	t.Helper()
	var out error
	require.NoError(t, InTx(context.Background(), f.db, 0, func(tx *sql.Tx) error {
		out = fn(context.Background(), tx)
		return nil
	}))
	return out
}

func TestSlotRepo_HoldBookRelease(t *testing.T) {
	f := newSlotFixture(t)
	f.slot(t, "s1", t0.Add(24*time.Hour))

	err := f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		s, err := f.slots.HoldTx(ctx, tx, "s1", "c1", t0, t0.Add(10*time.Minute))
		if err == nil {
			assert.Equal(t, model.SlotHeld, s.Status)
			require.NotNil(t, s.HeldBy)
			assert.Equal(t, "c1", *s.HeldBy)
			require.NotNil(t, s.HoldExpiresAt)
			assert.True(t, s.HoldExpiresAt.Equal(t0.Add(10*time.Minute)))
		}
		return err
	})
	require.NoError(t, err)

	// Another candidate cannot hold or book it.
	err = f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		_, err := f.slots.HoldTx(ctx, tx, "s1", "c2", t0, t0.Add(10*time.Minute))
		return err
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	err = f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		_, err := f.slots.BookTx(ctx, tx, "s1", "c2", t0)
		return err
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// Re-holding by the holder extends the window.
	err = f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		s, err := f.slots.HoldTx(ctx, tx, "s1", "c1", t0.Add(5*time.Minute), t0.Add(15*time.Minute))
		if err == nil {
			assert.True(t, s.HoldExpiresAt.Equal(t0.Add(15*time.Minute)))
		}
		return err
	})
	require.NoError(t, err)

	err = f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		_, err := f.slots.ReleaseTx(ctx, tx, "s1", "c2")
		return err
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable, "only the holder may release")

	err = f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		s, err := f.slots.BookTx(ctx, tx, "s1", "c1", t0)
		if err == nil {
			assert.Equal(t, model.SlotBooked, s.Status)
			assert.Nil(t, s.HoldExpiresAt)
		}
		return err
	})
	require.NoError(t, err)

	err = f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		_, err := f.slots.ReleaseTx(ctx, tx, "s1", "c1")
		return err
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable, "a booked slot is not released by ReleaseTx")

	err = f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		_, err := f.slots.HoldTx(ctx, tx, "missing", "c1", t0, t0.Add(time.Minute))
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSlotRepo_NormalizeOrder(t *testing.T) {
	f := newSlotFixture(t)
	f.slot(t, "past-held", t0.Add(30*time.Minute))
	f.slot(t, "future-held", t0.Add(24*time.Hour))
	f.slot(t, "past-open", t0.Add(30*time.Minute))

	for _, id := range []string{"past-held", "future-held"} {
		require.NoError(t, f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
			_, err := f.slots.HoldTx(ctx, tx, id, "c1", t0, t0.Add(10*time.Minute))
			return err
		}))
	}

	later := t0.Add(time.Hour)
	var expired, released int64
	require.NoError(t, f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		expired, released, err = f.slots.SweepTx(ctx, tx, later)
		return err
	}))
	assert.EqualValues(t, 2, expired)
	assert.EqualValues(t, 1, released)

	want := map[string]model.SlotStatus{
		"past-held":   model.SlotExpired,
		"future-held": model.SlotOpen,
		"past-open":   model.SlotExpired,
	}
	require.NoError(t, f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		list, err := f.slots.ListByRRTx(ctx, tx, f.rrID, "")
		require.NoError(t, err)
		require.Len(t, list, 3)
		for _, s := range list {
			assert.Equal(t, want[s.ID], s.Status, s.ID)
			assert.Nil(t, s.HeldBy, s.ID)
		}
		return nil
	}))
}

func TestSlotRepo_ReleaseBooked(t *testing.T) {
	f := newSlotFixture(t)
	f.slot(t, "s1", t0.Add(2*time.Hour))
	f.slot(t, "s2", t0.Add(2*time.Hour))
	for _, id := range []string{"s1", "s2"} {
		require.NoError(t, f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
			_, err := f.slots.BookTx(ctx, tx, id, "c1", t0)
			return err
		}))
	}

	require.NoError(t, f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		s, err := f.slots.ReleaseBookedTx(ctx, tx, "s1", t0)
		assert.Equal(t, model.SlotOpen, s.Status)
		return err
	}))
	require.NoError(t, f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		s, err := f.slots.ReleaseBookedTx(ctx, tx, "s2", t0.Add(3*time.Hour))
		assert.Equal(t, model.SlotExpired, s.Status)
		return err
	}))
}

func TestInterviewRepo_OneActivePerSlot(t *testing.T) {
	f := newSlotFixture(t)
	f.slot(t, "s1", t0.Add(2*time.Hour))
	ctx := context.Background()

	newIV := func(id string) *model.Interview {
		return &model.Interview{
			ID: id, CandidateID: f.candID, RRID: f.rrID, InterviewerID: "iv-1", SlotID: "s1",
			SlotTime: t0.Add(2 * time.Hour), DurationMinutes: 45, Mode: "video",
			Status: model.InterviewScheduled, CreatedAt: t0,
		}
	}

	require.NoError(t, f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		return f.interviews.InsertTx(ctx, tx, newIV("iv1"))
	}))
	err := f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		return f.interviews.InsertTx(ctx, tx, newIV("iv2"))
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Equal(t, 1, f.liveInterviews(t, "s1"))

	require.NoError(t, f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		iv, err := f.interviews.CancelTx(ctx, tx, "iv1", t0)
		assert.Equal(t, model.InterviewCancelled, iv.Status)
		return err
	}))
	err = f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		_, err := f.interviews.CancelTx(ctx, tx, "iv1", t0)
		return err
	})
	assert.ErrorIs(t, err, ErrConflict, "cancel is not repeatable")
	assert.Equal(t, 0, f.liveInterviews(t, "s1"))

	// The slot is free for a new live interview once the first is cancelled.
	require.NoError(t, f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		return f.interviews.InsertTx(ctx, tx, newIV("iv3"))
	}))
	assert.Equal(t, 1, f.liveInterviews(t, "s1"))
	err = f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		_, err := f.interviews.UpdateOutcomeTx(ctx, tx, "iv1", model.InterviewCompleted, nil, t0)
		return err
	})
	assert.ErrorIs(t, err, ErrConflict, "cancelled interviews take no outcome")

	require.NoError(t, f.tx(t, func(ctx context.Context, tx *sql.Tx) error {
		iv, err := f.interviews.UpdateOutcomeTx(ctx, tx, "iv3", model.InterviewCompleted, map[string]string{"rating": "4"}, t0)
		assert.Equal(t, "4", iv.Feedback["rating"])
		return err
	}))

	list, err := f.interviews.List(ctx, InterviewFilter{CandidateID: f.candID})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	done, err := f.interviews.List(ctx, InterviewFilter{Status: model.InterviewCompleted})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "iv3", done[0].ID)
}
