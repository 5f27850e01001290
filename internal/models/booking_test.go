package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBookingState(t *testing.T) {
	t.Run("KnownLiterals", func(t *testing.T) {
		for _, s := range []string{"ALL", "CURRENT", "PAST", "FUTURE", "WAITING", "REJECTED"} {
			st, err := ParseBookingState(s)
			require.NoError(t, err)
			assert.Equal(t, BookingState(s), st)
		}
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		st, err := ParseBookingState("future")
		require.NoError(t, err)
		assert.Equal(t, StateFuture, st)
	})

	t.Run("EmptyMeansAll", func(t *testing.T) {
		st, err := ParseBookingState("")
		require.NoError(t, err)
		assert.Equal(t, StateAll, st)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := ParseBookingState("UNSUPPORTED_STATUS")
		require.Error(t, err)

		var use *UnknownStateError
		require.True(t, errors.As(err, &use))
		assert.Equal(t, "Unknown state: UNSUPPORTED_STATUS", err.Error())
	})
}
