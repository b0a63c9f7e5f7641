package models

import "time"

// TimelineStep is one entry of the customer-facing order tracker.
type TimelineStep struct {
	Step      string     `json:"step"`
	Completed bool       `json:"completed"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// BuildTimeline reconstructs the lifecycle from the order's stored
// timestamps. No separate event log is needed: every transition leaves
// its timestamp on the order.
func BuildTimeline(o *Order) []TimelineStep {
	createdAt := o.CreatedAt
	steps := []TimelineStep{
		{Step: "Order Placed", Completed: true, Timestamp: &createdAt},
		{Step: "Confirmed", Completed: o.ConfirmedAt != nil, Timestamp: o.ConfirmedAt},
		{Step: "Preparing", Completed: o.PreparingAt != nil, Timestamp: o.PreparingAt},
	}

	if o.Type == OrderTypeDelivery {
		steps = append(steps,
			TimelineStep{Step: "Ready", Completed: o.ReadyAt != nil, Timestamp: o.ReadyAt},
			TimelineStep{Step: "Out for Delivery", Completed: o.PickedUpAt != nil, Timestamp: o.PickedUpAt},
			TimelineStep{Step: "Delivered", Completed: o.DeliveredAt != nil, Timestamp: o.DeliveredAt},
		)
	} else {
		steps = append(steps,
			TimelineStep{Step: "Ready for Pickup", Completed: o.ReadyAt != nil, Timestamp: o.ReadyAt},
			TimelineStep{Step: "Completed", Completed: o.DeliveredAt != nil, Timestamp: o.DeliveredAt},
		)
	}

	if o.CancelledAt != nil {
		steps = append(steps, TimelineStep{Step: "Cancelled", Completed: true, Timestamp: o.CancelledAt})
	}

	return steps
}
