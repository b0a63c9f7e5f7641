package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "PENDING"
	StatusConfirmed      OrderStatus = "CONFIRMED"
	StatusPreparing      OrderStatus = "PREPARING"
	StatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	StatusPickedUp       OrderStatus = "PICKED_UP"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
	StatusRefunded       OrderStatus = "REFUNDED"
)

// statusTransitions is the authoritative transition table. DELIVERED is
// reachable straight from READY_FOR_PICKUP so pickup and dine-in orders
// can skip the courier leg. REFUNDED is driven by the external payment
// lifecycle, not by user-facing status updates, so it never appears as a
// target here.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReadyForPickup},
	StatusReadyForPickup: {StatusPickedUp, StatusDelivered},
	StatusPickedUp:       {StatusDelivered},
	StatusDelivered:      {},
	StatusCancelled:      {},
	StatusRefunded:       {},
}

func (s OrderStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0 && s.Valid()
}

// ActiveStatuses lists every non-terminal status, for "active orders"
// queries.
func ActiveStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPending, StatusConfirmed, StatusPreparing,
		StatusReadyForPickup, StatusPickedUp,
	}
}

// CanCancel reports whether cancellation is still allowed. After the
// kitchen starts preparing, the order can no longer be cancelled.
func (s OrderStatus) CanCancel() bool {
	return s == StatusPending || s == StatusConfirmed
}

var (
	// ErrTransitionNotAllowed means the requested status is not a legal
	// successor of the current one.
	ErrTransitionNotAllowed = errors.New("status transition not allowed")

	// ErrMissingTimestamp means a derived metric needs a prior transition
	// timestamp that was never recorded. The order is in an inconsistent
	// state; the transition is rejected rather than computing a
	// misleading duration from the current time.
	ErrMissingTimestamp = errors.New("required prior timestamp missing")
)

// ApplyTransition validates the requested transition against the table
// and applies its side effects: the matching timestamp is set exactly
// once, and prep/delivery metrics are derived from stored timestamps.
// The caller persists the mutated order atomically.
func (o *Order) ApplyTransition(next OrderStatus, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, o.Status, next)
	}

	switch next {
	case StatusConfirmed:
		o.ConfirmedAt = &now

	case StatusPreparing:
		o.PreparingAt = &now

	case StatusReadyForPickup:
		// Prep time counts from the later of preparing/confirmed.
		base := o.PreparingAt
		if base == nil {
			base = o.ConfirmedAt
		}
		if base == nil {
			return fmt.Errorf("%w: preparing/confirmed before READY_FOR_PICKUP", ErrMissingTimestamp)
		}
		o.ReadyAt = &now
		prep := minutesBetween(*base, now)
		o.ActualPrepTime = &prep

	case StatusPickedUp:
		o.PickedUpAt = &now

	case StatusDelivered:
		// Pickup and dine-in orders go READY_FOR_PICKUP -> DELIVERED
		// without a courier, so ReadyAt is the documented baseline when
		// PickedUpAt does not exist.
		base := o.PickedUpAt
		if base == nil {
			base = o.ReadyAt
		}
		if base == nil {
			return fmt.Errorf("%w: picked-up/ready before DELIVERED", ErrMissingTimestamp)
		}
		o.DeliveredAt = &now
		del := minutesBetween(*base, now)
		o.ActualDeliveryTime = &del

	case StatusCancelled:
		o.CancelledAt = &now
	}

	o.Status = next
	return nil
}

func minutesBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Minutes()))
}
