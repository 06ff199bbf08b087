package uuid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequestID(t *testing.T) {
	first, second := NewRequestID(), NewRequestID()
	require.NotEqual(t, first, second)

	parsed, err := Parse(first)
	require.NoError(t, err)
	require.EqualValues(t, 7, parsed.Version())
	// v7 ids sort by creation time.
	require.Less(t, first, second)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not-a-uuid")
	require.Error(t, err)
}

func TestMustNewV7(t *testing.T) {
	require.EqualValues(t, 7, MustNewV7().Version())
}
