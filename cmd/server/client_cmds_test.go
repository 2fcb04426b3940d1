package main

import (
	"testing"
	"time"

	"oftalmonet/valeda-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySessionLine(t *testing.T) {
	sessions := domain.DefaultSessions()

	sessions, err := applySessionLine(sessions, "2 2024-05-06 09:30 Laura Gómez")
	require.NoError(t, err)
	require.NotNil(t, sessions[1].Date)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), *sessions[1].Date)
	assert.Equal(t, "09:30", sessions[1].Time)
	assert.Equal(t, "Laura Gómez", sessions[1].Technician)

	sessions, err = applySessionLine(sessions, "2 - -")
	require.NoError(t, err)
	assert.Nil(t, sessions[1].Date)
	assert.Empty(t, sessions[1].Technician)

	sessions, err = applySessionLine(sessions, "10 2024-05-07 10:00")
	require.NoError(t, err)
	assert.Len(t, sessions, domain.DefaultSessionCount+1)

	for _, bad := range []string{"1 2024-05-06", "x 2024-05-06 09:30", "1 06/05/2024 09:30", "1 2024-05-06 25:00"} {
		_, err := applySessionLine(sessions, bad)
		assert.Error(t, err, bad)
	}
}

func TestOfflineBanner(t *testing.T) {
	assert.Equal(t, "offline: showing the last saved snapshot", offlineBanner(time.Time{}))

	savedAt := time.Date(2024, 6, 1, 8, 15, 0, 0, time.Local)
	assert.Equal(t, "offline: showing the snapshot saved 2024-06-01 08:15", offlineBanner(savedAt))
}

func TestParseCLIDate(t *testing.T) {
	got, err := parseCLIDate("", true)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseCLIDate("2024-01-31", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC), *got)

	_, err = parseCLIDate("31/01/2024", false)
	assert.Error(t, err)
}
