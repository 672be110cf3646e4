package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hrpass/internal/database"
	"github.com/iliyamo/hrpass/internal/database/sqlitetest"
)

func TestMigrate_Idempotent(t *testing.T) {
	db := sqlitetest.Open(t)

	// Open already migrated once; a second run must be a no-op.
	require.NoError(t, database.Migrate(context.Background(), db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 2, n)

	for _, table := range []string{"passes", "admin_users", "audit_logs", "availability_slots", "interviews", "attendance_logs", "policies"} {
		var c int
		err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&c)
		assert.NoError(t, err, table)
	}
}

func TestMigrate_PassCheckConstraint(t *testing.T) {
	db := sqlitetest.Open(t)
	_, err := db.Exec(`INSERT INTO passes (id, subject, pass_type, scope, expires_at, max_uses, used_count, status, created_at)
		VALUES ('p1', 's', 'VISITOR', '[]', '2030-01-01 00:00:00', 1, 2, 'active', '2030-01-01 00:00:00')`)
	assert.Error(t, err, "used_count above max_uses must be rejected")
}
