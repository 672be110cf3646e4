package repository

import (
	"database/sql"
	"encoding/json"
	"time"
)

// JSON-in-TEXT helpers.  Lists and maps are stored as JSON documents in
// TEXT columns so the schema runs unchanged on MySQL and SQLite.

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func stringsFromJSON(s sql.NullString) ([]string, error) {
	out := []string{}
	if !s.Valid || s.String == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func mapFromJSON(s sql.NullString) (map[string]string, error) {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil, nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// dbTime normalizes t for storage: UTC, whole seconds.
func dbTime(t time.Time) time.Time { return t.UTC().Truncate(time.Second) }

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dbTime(*t)
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
