package calendar

import (
	"strings"

	"apptcal/internal/model"
)

// Tooltip placement, trigger and container used for every calendar entry.
const (
	TooltipPlacement = "top"
	TooltipTrigger   = "hover"
	TooltipContainer = "body"
)

// TooltipConfig describes the tooltip to attach to one rendered event.
// Container is "body" so the calendar's own overflow never clips it.
type TooltipConfig struct {
	Title     string `json:"title"`
	Placement string `json:"placement"`
	Trigger   string `json:"trigger"`
	Container string `json:"container"`
}

// TooltipTemplate is TooltipConfig without the per-event text; the browser
// page receives it once and fills Title per event.
func TooltipTemplate() TooltipConfig {
	return TooltipConfig{
		Placement: TooltipPlacement,
		Trigger:   TooltipTrigger,
		Container: TooltipContainer,
	}
}

// TooltipFor returns the tooltip for ev: fullInfo verbatim when present,
// otherwise the title. Blank values count as absent, and an event with
// neither gets model.DefaultTitle so the tooltip is never empty.
func TooltipFor(ev Event) TooltipConfig {
	cfg := TooltipTemplate()
	switch {
	case strings.TrimSpace(ev.FullInfo()) != "":
		cfg.Title = ev.FullInfo()
	case strings.TrimSpace(ev.Title) != "":
		cfg.Title = ev.Title
	default:
		cfg.Title = model.DefaultTitle
	}
	return cfg
}

// NavigationTarget returns where a click on ev leads. It is the appointment
// list for every event; the clicked event's fields are deliberately unused.
func NavigationTarget(Event) string {
	return DefaultDetailURL
}
