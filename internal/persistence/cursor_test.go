package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/training/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	cursor := &domain.Cursor{
		Date: time.Date(2026, time.July, 4, 6, 30, 0, 0, time.UTC),
		ID:   "sess-42",
	}

	decoded, err := DecodeCursor(EncodeCursor(cursor))
	require.NoError(t, err)
	require.NotNil(t, decoded)
	require.True(t, cursor.Date.Equal(decoded.Date))
	require.Equal(t, cursor.ID, decoded.ID)
}

func TestEncodeNilCursor(t *testing.T) {
	require.Equal(t, "", EncodeCursor(nil))
}

func TestDecodeEmptyToken(t *testing.T) {
	decoded, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestDecodeMalformedToken(t *testing.T) {
	_, err := DecodeCursor("not-base64!!")
	require.Error(t, err)

	_, err = DecodeCursor("bm8tc2VwYXJhdG9y") // "no-separator"
	require.Error(t, err)
}
