package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"apptcal/internal/calendar"
	appLog "apptcal/internal/log"
)

// hookBinding is the page-global function the widget calls to reach Go.
const hookBinding = "apptcalHook"

// ExternalBindingParam asks calendar.js to leave the widget to an external
// binder instead of mounting it itself.
const ExternalBindingParam = "binding"

// element is a DOM node addressed by CSS selector.
type element struct {
	id       string
	selector string
}

func (e element) ID() string { return e.id }

// hookPayload is what the widget callbacks send through hookBinding.
type hookPayload struct {
	Hook  string         `json:"hook"`
	El    string         `json:"el"`
	Event calendar.Event `json:"event"`
}

// BrowserPage drives the calendar widget of a live page from Go: it is the
// Document, WidgetFactory, TooltipAttacher and Navigator of a
// calendar.Binding. Navigation is recorded rather than performed so the page
// stays inspectable.
type BrowserPage struct {
	ctx context.Context

	mu          sync.Mutex
	hooks       calendar.Hooks
	navigations []string
	// pending counts hook calls in flight; idle is signalled when it drops to 0.
	pending int
	idle    *sync.Cond
}

// NewBrowserPage attaches to the chromedp tab in ctx and exposes the hook
// binding. Call it before navigating.
func NewBrowserPage(ctx context.Context) (*BrowserPage, error) {
	p := newBrowserPage(ctx)
	chromedp.ListenTarget(ctx, func(ev any) {
		called, ok := ev.(*runtime.EventBindingCalled)
		if !ok || called.Name != hookBinding {
			return
		}
		// Listener callbacks must not block on further CDP calls.
		p.begin()
		go func(payload string) {
			defer p.done()
			p.dispatch(payload)
		}(called.Payload)
	})
	if err := chromedp.Run(ctx, runtime.AddBinding(hookBinding)); err != nil {
		return nil, fmt.Errorf("capture: add binding: %w", err)
	}
	return p, nil
}

func newBrowserPage(ctx context.Context) *BrowserPage {
	p := &BrowserPage{ctx: ctx}
	p.idle = sync.NewCond(&p.mu)
	return p
}

func (p *BrowserPage) begin() {
	p.mu.Lock()
	p.pending++
	p.mu.Unlock()
}

func (p *BrowserPage) done() {
	p.mu.Lock()
	p.pending--
	if p.pending == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()
}

func (p *BrowserPage) dispatch(payload string) {
	var msg hookPayload
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		appLog.Error("capture: bad hook payload", err)
		return
	}
	el := element{id: msg.El, selector: fmt.Sprintf(`[data-apptcal-el=%q]`, msg.El)}

	p.mu.Lock()
	hooks := p.hooks
	p.mu.Unlock()

	switch msg.Hook {
	case "mount":
		if hooks.EventDidMount != nil {
			hooks.EventDidMount(calendar.MountInfo{El: el, Event: msg.Event})
		}
	case "click":
		if hooks.EventClick != nil {
			hooks.EventClick(calendar.ClickInfo{El: el, Event: msg.Event})
		}
	}
}

// ElementByID implements calendar.Document.
func (p *BrowserPage) ElementByID(id string) (calendar.Element, bool) {
	var found bool
	expr := fmt.Sprintf(`document.getElementById(%s) !== null`, jsString(id))
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(expr, &found)); err != nil {
		appLog.Error("capture: element lookup failed", err, "id", id)
		return nil, false
	}
	if !found {
		return nil, false
	}
	return element{id: id, selector: "#" + id}, true
}

const newWidgetJS = `(function (mountId, opts) {
  var el = document.getElementById(mountId);
  var seq = 0;
  function tag(node) {
    if (!node.dataset.apptcalEl) { node.dataset.apptcalEl = 'ev-' + (++seq); }
    return node.dataset.apptcalEl;
  }
  function plain(ev) {
    return { id: ev.id, title: ev.title, start: ev.startStr, extendedProps: ev.extendedProps || {} };
  }
  function send(hook, info) {
    window.%[1]s(JSON.stringify({ hook: hook, el: tag(info.el), event: plain(info.event) }));
  }
  opts.eventDidMount = function (info) { send('mount', info); };
  opts.eventClick = function (info) {
    if (info.jsEvent) { info.jsEvent.preventDefault(); }
    send('click', info);
  };
  opts.loading = function (isLoading) { if (!isLoading) { el.dataset.ready = 'true'; } };
  window.__apptcalCalendar = new FullCalendar.Calendar(el, opts);
  return true;
})(%[2]s, %[3]s)`

type browserWidget struct {
	page *BrowserPage
}

func (w browserWidget) Render() error {
	return chromedp.Run(w.page.ctx, chromedp.Evaluate(`window.__apptcalCalendar.render()`, nil))
}

// NewWidget implements calendar.WidgetFactory.
func (p *BrowserPage) NewWidget(mount calendar.Element, opts calendar.Options, hooks calendar.Hooks) (calendar.Widget, error) {
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.hooks = hooks
	p.mu.Unlock()

	var ok bool
	expr := fmt.Sprintf(newWidgetJS, hookBinding, jsString(mount.ID()), optsJSON)
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return nil, fmt.Errorf("capture: create widget: %w", err)
	}
	return browserWidget{page: p}, nil
}

const attachTooltipJS = `(function (sel, cfg) {
  var node = document.querySelector(sel);
  if (!node) { return false; }
  node.dataset.tooltip = cfg.title;
  new bootstrap.Tooltip(node, cfg);
  return true;
})(%s, %s)`

// Attach implements calendar.TooltipAttacher.
func (p *BrowserPage) Attach(el calendar.Element, cfg calendar.TooltipConfig) error {
	e, ok := el.(element)
	if !ok {
		return fmt.Errorf("capture: foreign element %q", el.ID())
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var attached bool
	expr := fmt.Sprintf(attachTooltipJS, jsString(e.selector), cfgJSON)
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(expr, &attached)); err != nil {
		return err
	}
	if !attached {
		return fmt.Errorf("capture: element %q is gone", e.id)
	}
	return nil
}

// Navigate implements calendar.Navigator by recording target.
func (p *BrowserPage) Navigate(target string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, target)
}

// Navigations returns the recorded navigation targets.
func (p *BrowserPage) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Settle waits until no hook call is in flight, including calls that arrive
// while it waits.
func (p *BrowserPage) Settle() {
	p.mu.Lock()
	for p.pending > 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Report summarizes a calendar bound from Go on a live page.
type Report struct {
	Mounted     bool     `json:"mounted"`
	Events      int      `json:"events"`
	Tooltips    []string `json:"tooltips"`
	Navigations []string `json:"navigations"`
}

// ProbeCalendar opens the calendar page with the in-page binder disabled,
// binds the widget through calendar.Binding configured by settings, then
// reads back the tooltips and clicks the first entry.
func ProbeCalendar(parent context.Context, opts Options, settings calendar.Settings) (Report, error) {
	var report Report
	if err := opts.normalize(); err != nil {
		return report, err
	}
	pageURL, err := url.Parse(opts.URL)
	if err != nil {
		return report, fmt.Errorf("capture: parse URL: %w", err)
	}
	q := pageURL.Query()
	q.Set(ExternalBindingParam, "external")
	pageURL.RawQuery = q.Encode()

	ctx, cancel := newBrowser(parent, opts)
	defer cancel()

	page, err := NewBrowserPage(ctx)
	if err != nil {
		return report, err
	}
	if err := chromedp.Run(ctx,
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(pageURL.String()),
	); err != nil {
		return report, fmt.Errorf("capture: navigate: %w", err)
	}

	binding := calendar.New(settings, page, page, page)
	handle, err := binding.Initialize(page)
	if err != nil {
		return report, err
	}
	if handle == nil {
		return report, nil
	}
	report.Mounted = true

	if err := chromedp.Run(ctx,
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.Sleep(300*time.Millisecond),
	); err != nil {
		return report, fmt.Errorf("capture: wait for calendar: %w", err)
	}
	page.Settle()

	if err := chromedp.Run(ctx,
		chromedp.Evaluate(`document.querySelectorAll('.fc-event').length`, &report.Events),
		chromedp.Evaluate(`Array.from(document.querySelectorAll('.fc-event')).map(el => el.dataset.tooltip || '')`, &report.Tooltips),
	); err != nil {
		return report, fmt.Errorf("capture: read events: %w", err)
	}

	if report.Events > 0 {
		if err := chromedp.Run(ctx,
			chromedp.Click(`.fc-event`, chromedp.ByQuery),
			chromedp.Sleep(200*time.Millisecond),
		); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return report, fmt.Errorf("capture: click event: %w", err)
		}
		page.Settle()
	}
	report.Navigations = page.Navigations()
	return report, nil
}
