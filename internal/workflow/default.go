package workflow

// Default returns the graph the service ships with. It mirrors the
// clinic's day-to-day flow: a booked appointment waits for acceptance,
// the patient checks into the waiting room, is called in, and the visit
// ends as completed or a no-show. Cancellation is open from every
// pre-attendance state.
func Default() *Definition {
	return &Definition{
		States: []State{
			{
				Name: "pending", Label: "Pending", Initial: true, Blocking: true,
				Actions: []Action{
					{Target: "accepted", Label: "Accept"},
					{Target: "cancelled", Label: "Cancel", RequiresNote: true},
				},
			},
			{
				Name: "accepted", Label: "Accepted", ReConfirm: true, Blocking: true,
				Actions: []Action{
					{Target: "in_room", Label: "Check in"},
					{Target: "cancelled", Label: "Cancel", RequiresNote: true},
					{Target: "no_show", Label: "Mark no-show"},
				},
			},
			{
				Name: "in_room", Label: "In waiting room", Blocking: true,
				Actions: []Action{
					{Target: "called", Label: "Call patient"},
					{Target: "no_show", Label: "Mark no-show"},
				},
			},
			{
				Name: "called", Label: "Called in", Blocking: true,
				Actions: []Action{
					{Target: "in_room", Label: "Return to room"},
					{Target: "completed", Label: "Complete", RequiresNote: true},
					{Target: "no_show", Label: "Mark no-show"},
				},
			},
			{Name: "completed", Label: "Completed", Category: CategoryCompleted, Blocking: true},
			{Name: "cancelled", Label: "Cancelled", Category: CategoryCancelled},
			{Name: "no_show", Label: "Did not attend", Category: CategoryNoShow},
		},
	}
}
