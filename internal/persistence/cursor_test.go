package persistence

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/habitboard/internal/habits"
)

func TestCursorRoundTrip(t *testing.T) {
	in := &habits.Cursor{
		LoggedAt: time.Date(2024, 3, 1, 7, 30, 0, 123456000, time.FixedZone("CET", 3600)),
		ID:       "8f9d2c4e-0000-4000-8000-000000000001",
	}
	token := EncodeCursor(in)
	require.NotContains(t, token, "=")

	out, err := DecodeCursor(token)
	require.NoError(t, err)
	require.True(t, in.LoggedAt.Equal(out.LoggedAt))
	require.Equal(t, in.ID, out.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	require.Nil(t, c)
	require.Equal(t, "", EncodeCursor(nil))

	for _, token := range []string{"%%%", "bm8tc2VwYXJhdG9y", "bm90LWEtdGltZXxpZA"} {
		_, err := DecodeCursor(token)
		require.Error(t, err, token)
	}
}

func TestDecodeCursorRejectsNonUUIDID(t *testing.T) {
	token := base64.RawURLEncoding.EncodeToString([]byte("2024-03-01T07:30:00Z|not-a-uuid"))
	_, err := DecodeCursor(token)
	require.ErrorContains(t, err, "invalid cursor id")

	token = base64.RawURLEncoding.EncodeToString([]byte("2024-03-01T07:30:00Z|8f9d2c4e-0000-4000-8000-000000000001"))
	c, err := DecodeCursor(token)
	require.NoError(t, err)
	require.Equal(t, "8f9d2c4e-0000-4000-8000-000000000001", c.ID)
}
