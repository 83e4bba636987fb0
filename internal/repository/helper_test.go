package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 9, 10, 11, 12, 123456789, time.FixedZone("CST", 8*3600))

	got, err := DecodeCursor(EncodeCursor(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.Error(t, err)

	_, err = DecodeCursor("bm90IGEgdGltZQ==") // "not a time"
	assert.Error(t, err)
}

func TestPageVerify(t *testing.T) {
	for in, want := range map[int64]int64{-1: DefaultPageSize, 0: DefaultPageSize, 5: 5, 100: 100, 1000: MaxPageSize} {
		n := in
		PageVerify(&n)
		assert.Equal(t, want, n, "in=%d", in)
	}
}
