package calendar

import (
	"errors"
	"fmt"
	"log/slog"

	appLog "apptcal/internal/log"
)

// Element is an opaque handle to a page element (the mount point or a
// rendered event).
type Element interface {
	ID() string
}

// Document resolves page elements by identifier.
type Document interface {
	ElementByID(id string) (Element, bool)
}

// Widget is a live calendar bound to a mount element.
type Widget interface {
	Render() error
}

// WidgetFactory instantiates the calendar widget. The widget owns opts and
// calls back into hooks for the rest of the page's lifetime.
type WidgetFactory interface {
	NewWidget(mount Element, opts Options, hooks Hooks) (Widget, error)
}

// TooltipAttacher attaches a tooltip to a rendered event element.
type TooltipAttacher interface {
	Attach(el Element, cfg TooltipConfig) error
}

// Navigator performs full-page navigation.
type Navigator interface {
	Navigate(target string)
}

// MountInfo is passed to the decoration hook once per rendered event.
type MountInfo struct {
	El    Element
	Event Event
}

// ClickInfo is passed to the navigation hook on each click on an event.
type ClickInfo struct {
	El    Element
	Event Event
}

// Hooks are the two lifecycle callbacks supplied with the widget options.
type Hooks struct {
	EventDidMount func(MountInfo)
	EventClick    func(ClickInfo)
}

// Handle is returned by a successful Initialize and is the only reference to
// the bound widget.
type Handle struct {
	Mount   Element
	Widget  Widget
	Options Options
}

// Binding glues the calendar widget to the page: it resolves the mount
// element, configures and renders the widget, decorates every rendered event
// with a tooltip and turns clicks into navigation.
type Binding struct {
	// MountID is the container element identifier; DefaultMountID when empty.
	MountID string
	Options Options
	// DetailURL overrides NavigationTarget when set.
	DetailURL string

	Widgets   WidgetFactory
	Tooltips  TooltipAttacher
	Navigator Navigator

	// Logger receives diagnostics; the service logger when nil.
	Logger *slog.Logger
}

// ErrNoWidgetFactory is returned when Initialize is called without a factory.
var ErrNoWidgetFactory = errors.New("calendar: widget factory is nil")

// New returns a Binding configured from s.
func New(s Settings, widgets WidgetFactory, tooltips TooltipAttacher, nav Navigator) *Binding {
	s.Normalize()
	return &Binding{
		MountID:   s.MountID,
		Options:   s.Options(),
		DetailURL: s.DetailURL,
		Widgets:   widgets,
		Tooltips:  tooltips,
		Navigator: nav,
	}
}

// Initialize binds the calendar to doc. When the mount element is missing it
// logs one diagnostic and returns (nil, nil): the rest of the page keeps
// working and no widget is created. Otherwise the widget is instantiated
// exactly once and rendered.
func (b *Binding) Initialize(doc Document) (*Handle, error) {
	if b.Widgets == nil {
		return nil, ErrNoWidgetFactory
	}
	mountID := b.MountID
	if mountID == "" {
		mountID = DefaultMountID
	}

	var (
		mount Element
		ok    bool
	)
	if doc != nil {
		mount, ok = doc.ElementByID(mountID)
	}
	if !ok || mount == nil {
		b.logger().Error("calendar mount element not found in page", "mount_id", mountID)
		return nil, nil
	}

	opts := b.Options
	if opts == (Options{}) {
		opts = DefaultOptions("")
	}
	if opts.Events == "" {
		opts.Events = DefaultEventsURL
	}

	w, err := b.Widgets.NewWidget(mount, opts, b.Hooks())
	if err != nil {
		return nil, fmt.Errorf("calendar: create widget: %w", err)
	}
	if err := w.Render(); err != nil {
		return nil, fmt.Errorf("calendar: render: %w", err)
	}

	b.logger().Debug("calendar bound", "mount_id", mountID, "view", opts.InitialView, "events", opts.Events)
	return &Handle{Mount: mount, Widget: w, Options: opts}, nil
}

// Hooks returns the decoration and navigation callbacks of b.
func (b *Binding) Hooks() Hooks {
	return Hooks{
		EventDidMount: b.EventDidMount,
		EventClick:    b.EventClick,
	}
}

// EventDidMount attaches a fresh tooltip to the rendered event element. A
// tooltip failure is logged and otherwise ignored.
func (b *Binding) EventDidMount(info MountInfo) {
	if b.Tooltips == nil || info.El == nil {
		return
	}
	cfg := TooltipFor(info.Event)
	if err := b.Tooltips.Attach(info.El, cfg); err != nil {
		b.logger().Error("tooltip attach failed", "err", err, "event_id", info.Event.ID)
	}
}

// EventClick navigates to the appointment list.
func (b *Binding) EventClick(info ClickInfo) {
	if b.Navigator == nil {
		return
	}
	b.Navigator.Navigate(b.navigationTarget(info.Event))
}

func (b *Binding) navigationTarget(ev Event) string {
	if b.DetailURL != "" {
		return b.DetailURL
	}
	return NavigationTarget(ev)
}

func (b *Binding) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return appLog.Logger()
}
