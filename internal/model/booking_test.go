package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBookingTransitions(t *testing.T) {
	require.True(t, BookingPending.CanTransition(BookingPaid))
	require.True(t, BookingPending.CanTransition(BookingCanceled))
	require.True(t, BookingPaid.CanTransition(BookingRefunded))
	require.False(t, BookingPending.CanTransition(BookingRefunded))
	require.False(t, BookingRefunded.CanTransition(BookingPaid))
	require.False(t, BookingCanceled.CanTransition(BookingPending))
	require.False(t, BookingStatus("lost").Valid())
}
