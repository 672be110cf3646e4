package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeed(t *testing.T) {
	sf, err := parseSeed(strings.NewReader(`
admins:
  - email: root@corp.test
    password: correct horse
requisitions:
  - title: Backend Engineer
    department: Platform
    agency_ids: [acme, globex]
    candidates:
      - name: Dana
        email: Dana@Example.com
        source: referral
`))
	require.NoError(t, err)
	require.Len(t, sf.Admins, 1)
	assert.Equal(t, "root@corp.test", sf.Admins[0].Email)
	require.Len(t, sf.Requisitions, 1)
	assert.Equal(t, []string{"acme", "globex"}, sf.Requisitions[0].AgencyIDs)
	require.Len(t, sf.Requisitions[0].Candidates, 1)
	assert.Equal(t, "referral", sf.Requisitions[0].Candidates[0].Source)
}

func TestParseSeed_Empty(t *testing.T) {
	sf, err := parseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, sf.Admins)
}

func TestParseSeed_UnknownField(t *testing.T) {
	_, err := parseSeed(strings.NewReader("admins:\n  - email: a@b.c\n    role: owner\n"))
	assert.Error(t, err)
}
