package schedule

// DefaultMaxVisible is how many events a grid cell shows before collapsing
// the rest into an overflow count.
const DefaultMaxVisible = 3

// Reduced is a grid cell's display slice of a day bucket.
type Reduced struct {
	Visible       []CalendarEvent `json:"visible"`
	OverflowCount int             `json:"overflow_count"`
}

// ReduceForGrid keeps the first maxVisible events and counts the rest.
// maxVisible <= 0 uses DefaultMaxVisible. dayEvents is not modified.
func ReduceForGrid(dayEvents []CalendarEvent, maxVisible int) Reduced {
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisible
	}
	n := min(len(dayEvents), maxVisible)
	visible := make([]CalendarEvent, n)
	copy(visible, dayEvents[:n])
	return Reduced{
		Visible:       visible,
		OverflowCount: len(dayEvents) - n,
	}
}
