// Package booking holds the pure booking and event rules: capacity
// accounting, the intake decision, booking codes, status transitions,
// session slots and form validation.  Nothing here touches the database;
// the repository layer calls these functions while it holds the event row
// lock so the decision and the insert happen atomically.
package booking

import (
	"math"

	"github.com/iliyamo/event-booking/internal/model"
)

// BookedCount sums the quantity of bookings that occupy capacity
// (confirmed and checked_in).  Pending, waitlisted and cancelled bookings
// never count.
func BookedCount(bookings []*model.Booking) int {
	n := 0
	for _, b := range bookings {
		if b != nil && b.Status.Counts() {
			n += b.Quantity
		}
	}
	return n
}

// Remaining returns capacity minus booked.  It can go negative when an
// admin raised a waitlisted booking over the limit or lowered capacity.
func Remaining(capacity, booked int) int {
	return capacity - booked
}

// DecideStatus assigns the initial status of a new booking.  Approval events
// always produce pending.  Otherwise the request is confirmed when it fits
// the remaining capacity and waitlisted when it does not.
func DecideStatus(bookingType model.BookingType, capacity, booked, quantity int) model.BookingStatus {
	if bookingType == model.BookingApproval {
		return model.StatusPending
	}
	if quantity > Remaining(capacity, booked) {
		return model.StatusWaitlist
	}
	return model.StatusConfirmed
}

// Occupancy returns booked as a whole percentage of capacity, clamped to
// 0..100.  A zero capacity yields 0.
func Occupancy(booked, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	pct := int(math.Round(float64(booked) / float64(capacity) * 100))
	return max(0, min(100, pct))
}
