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

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func insertPass(t *testing.T, db *sql.DB, p model.Pass) {
	t.Helper()
	repo := NewPassRepo(db)
	require.NoError(t, InTx(context.Background(), db, 0, func(tx *sql.Tx) error {
		return repo.InsertTx(context.Background(), tx, &p)
	}))
}

func consume(t *testing.T, repo *PassRepo, id string, now time.Time) (model.Pass, error) {
	t.Helper()
	var (
		p        model.Pass
		stateErr error
	)
	require.NoError(t, InTx(context.Background(), repo.DB(), 0, func(tx *sql.Tx) error {
		p, stateErr = repo.ConsumeTx(context.Background(), tx, id, now)
		return nil
	}))
	return p, stateErr
}

func TestPassRepo_ConsumeToExhaustion(t *testing.T) {
	db := sqlitetest.Open(t)
	repo := NewPassRepo(db)
	insertPass(t, db, model.Pass{
		ID: "p1", Subject: "alice", Type: model.PassTypeVisitor, Scope: []string{"visit"},
		ExpiresAt: t0.Add(time.Hour), MaxUses: 2, Status: model.PassActive, CreatedAt: t0,
		Meta: map[string]string{"host": "bob"},
	})

	p, err := consume(t, repo, "p1", t0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.UsedCount)
	assert.Equal(t, model.PassActive, p.Status)

	p, err = consume(t, repo, "p1", t0)
	require.NoError(t, err)
	assert.Equal(t, 2, p.UsedCount)
	assert.Equal(t, model.PassExhausted, p.Status)

	_, err = consume(t, repo, "p1", t0)
	assert.ErrorIs(t, err, ErrPassExhausted)

	got, err := repo.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsedCount)
	assert.Equal(t, []string{"visit"}, got.Scope)
	assert.Equal(t, "bob", got.Meta["host"])
	assert.True(t, got.ExpiresAt.Equal(t0.Add(time.Hour)))
}

func TestPassRepo_ConsumeClassification(t *testing.T) {
	db := sqlitetest.Open(t)
	repo := NewPassRepo(db)
	insertPass(t, db, model.Pass{ID: "exp", Subject: "a", Type: model.PassTypeVisitor, Scope: []string{},
		ExpiresAt: t0, MaxUses: 3, Status: model.PassActive, CreatedAt: t0.Add(-time.Hour)})
	insertPass(t, db, model.Pass{ID: "rev", Subject: "a", Type: model.PassTypeVisitor, Scope: []string{},
		ExpiresAt: t0.Add(time.Hour), MaxUses: 3, Status: model.PassActive, CreatedAt: t0})

	// Expiry is inclusive: a pass is dead at its expires_at instant.
	_, err := consume(t, repo, "exp", t0)
	assert.ErrorIs(t, err, ErrPassExpired)
	got, err := repo.Get(context.Background(), "exp")
	require.NoError(t, err)
	assert.Equal(t, model.PassExpired, got.Status, "lazy expiry is persisted")
	assert.Equal(t, 0, got.UsedCount)

	require.NoError(t, InTx(context.Background(), db, 0, func(tx *sql.Tx) error {
		changed, err := repo.RevokeTx(context.Background(), tx, "rev")
		assert.True(t, changed)
		return err
	}))
	require.NoError(t, InTx(context.Background(), db, 0, func(tx *sql.Tx) error {
		changed, err := repo.RevokeTx(context.Background(), tx, "rev")
		assert.False(t, changed, "second revoke is a no-op")
		return err
	}))
	_, err = consume(t, repo, "rev", t0)
	assert.ErrorIs(t, err, ErrPassRevoked)

	_, err = consume(t, repo, "missing", t0)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, InTx(context.Background(), db, 0, func(tx *sql.Tx) error {
		_, err := repo.RevokeTx(context.Background(), tx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	}))
}

func TestPassRepo_VerifyDoesNotSpend(t *testing.T) {
	db := sqlitetest.Open(t)
	repo := NewPassRepo(db)
	insertPass(t, db, model.Pass{ID: "p1", Subject: "a", Type: model.PassTypeEmployee, Scope: []string{"employee"},
		ExpiresAt: t0.Add(time.Hour), MaxUses: 1, Status: model.PassActive, CreatedAt: t0})

	require.NoError(t, InTx(context.Background(), db, 0, func(tx *sql.Tx) error {
		p, err := repo.VerifyTx(context.Background(), tx, "p1", t0)
		assert.Equal(t, 0, p.UsedCount)
		return err
	}))
	got, err := repo.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsedCount)
	assert.Equal(t, 1, got.RemainingUses())
}

func TestPassRepo_ListBySubject(t *testing.T) {
	db := sqlitetest.Open(t)
	repo := NewPassRepo(db)
	for i, id := range []string{"a1", "a2", "b1"} {
		subject := "alice"
		if id == "b1" {
			subject = "bob"
		}
		insertPass(t, db, model.Pass{ID: id, Subject: subject, Type: model.PassTypeVisitor, Scope: []string{},
			ExpiresAt: t0.Add(time.Hour), MaxUses: 1, Status: model.PassActive, CreatedAt: t0.Add(time.Duration(i) * time.Minute)})
	}

	ps, err := repo.ListBySubject(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "a2", ps[0].ID, "newest first")

	all, err := repo.ListBySubject(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
