package calendar

// Default widget settings for the appointment calendar page.
const (
	DefaultMountID     = "calendar"
	DefaultInitialView = "dayGridMonth"
	DefaultLocale      = "fr"
	DefaultHeight      = "auto"
	DefaultEventsURL   = "/api/appointments"
	DefaultDetailURL   = "/appointments"
)

// Toolbar arranges the header controls into left/center/right slots.
// Each slot is a FullCalendar button list ("prev,next today", "title", ...).
type Toolbar struct {
	Left   string `json:"left" yaml:"left"`
	Center string `json:"center" yaml:"center"`
	Right  string `json:"right" yaml:"right"`
}

// DefaultToolbar returns navigation on the left, the title in the center and
// the month grid / week list switch on the right.
func DefaultToolbar() Toolbar {
	return Toolbar{
		Left:   "prev,next today",
		Center: "title",
		Right:  "dayGridMonth,listWeek",
	}
}

// Options is the configuration record handed to the calendar widget. The
// JSON form is exactly what the browser widget receives.
type Options struct {
	InitialView   string  `json:"initialView"`
	Locale        string  `json:"locale"`
	Height        string  `json:"height"`
	HeaderToolbar Toolbar `json:"headerToolbar"`

	// Events is the remote events source URL; the widget fetches it itself.
	Events string `json:"events"`
}

// DefaultOptions returns the month grid, French locale, auto height layout
// reading events from eventsURL (DefaultEventsURL when empty).
func DefaultOptions(eventsURL string) Options {
	if eventsURL == "" {
		eventsURL = DefaultEventsURL
	}
	return Options{
		InitialView:   DefaultInitialView,
		Locale:        DefaultLocale,
		Height:        DefaultHeight,
		HeaderToolbar: DefaultToolbar(),
		Events:        eventsURL,
	}
}

// Settings is the user-editable subset of Options plus the page wiring
// around the widget. Zero fields fall back to the defaults above.
type Settings struct {
	MountID     string   `yaml:"mount_id" json:"mount_id"`
	InitialView string   `yaml:"initial_view" json:"initial_view"`
	Locale      string   `yaml:"locale" json:"locale"`
	Height      string   `yaml:"height" json:"height"`
	Toolbar     *Toolbar `yaml:"toolbar,omitempty" json:"toolbar,omitempty"`
	EventsURL   string   `yaml:"events_url" json:"events_url"`
	DetailURL   string   `yaml:"detail_url" json:"detail_url"`
}

// Normalize fills empty settings with defaults.
func (s *Settings) Normalize() {
	if s.MountID == "" {
		s.MountID = DefaultMountID
	}
	if s.InitialView == "" {
		s.InitialView = DefaultInitialView
	}
	if s.Locale == "" {
		s.Locale = DefaultLocale
	}
	if s.Height == "" {
		s.Height = DefaultHeight
	}
	if s.Toolbar == nil {
		tb := DefaultToolbar()
		s.Toolbar = &tb
	}
	if s.EventsURL == "" {
		s.EventsURL = DefaultEventsURL
	}
	if s.DetailURL == "" {
		s.DetailURL = DefaultDetailURL
	}
}

// Options builds the widget configuration record from s.
func (s Settings) Options() Options {
	s.Normalize()
	return Options{
		InitialView:   s.InitialView,
		Locale:        s.Locale,
		Height:        s.Height,
		HeaderToolbar: *s.Toolbar,
		Events:        s.EventsURL,
	}
}
