package calendar

// ExtendedProps carries non-standard event fields through the widget.
type ExtendedProps struct {
	// FullInfo is the long-form description shown in the hover tooltip.
	FullInfo string `json:"fullInfo,omitempty"`
	Location string `json:"location,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Event is one entry of the remote events source, in the shape the calendar
// widget consumes. Start and End are ISO-8601 strings so the widget places
// them in the page's own timezone.
type Event struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Start         string         `json:"start"`
	End           string         `json:"end,omitempty"`
	AllDay        bool           `json:"allDay,omitempty"`
	ExtendedProps *ExtendedProps `json:"extendedProps,omitempty"`
}

// FullInfo returns the optional long description, or "" when absent.
func (e Event) FullInfo() string {
	if e.ExtendedProps == nil {
		return ""
	}
	return e.ExtendedProps.FullInfo
}
