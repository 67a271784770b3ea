package capture

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"apptcal/internal/fsutil"
)

// Default capture parameters for the calendar page.
const (
	DefaultWidth   = 1280
	DefaultHeight  = 960
	DefaultTimeout = 30 * time.Second
)

// readySelector matches the mount element once calendar.js has finished the
// first events fetch.
const readySelector = `[data-ready="true"]`

// Options defines a headless Chromium run against the calendar page.
type Options struct {
	// URL of the calendar page, e.g. "http://127.0.0.1:5000/calendrier".
	URL string

	// Width and Height are the viewport size; defaults when zero.
	Width  int
	Height int

	// Timeout bounds the whole run; DefaultTimeout when zero.
	Timeout time.Duration

	// ExecAllocatorOptions replaces chromedp's default browser flags when set
	// (e.g. to add chromedp.NoSandbox inside containers).
	ExecAllocatorOptions []chromedp.ExecAllocatorOption
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// newBrowser starts a browser tab bounded by opts.Timeout.
func newBrowser(parent context.Context, opts Options) (context.Context, context.CancelFunc) {
	allocOpts := opts.ExecAllocatorOptions
	if allocOpts == nil {
		allocOpts = chromedp.DefaultExecAllocatorOptions[:]
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancelTab := chromedp.NewContext(allocCtx)
	ctx, cancelTimeout := context.WithTimeout(ctx, opts.Timeout)
	return ctx, func() {
		cancelTimeout()
		cancelTab()
		cancelAlloc()
	}
}

// run opens the page in a fresh browser, waits for the calendar to signal
// readiness and runs extra.
func run(parent context.Context, opts Options, extra ...chromedp.Action) error {
	if err := opts.normalize(); err != nil {
		return err
	}
	ctx, cancel := newBrowser(parent, opts)
	defer cancel()

	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
	}
	tasks = append(tasks, extra...)

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	return nil
}

// CaptureCalendarPNG screenshots the rendered calendar page to outputPath.
func CaptureCalendarPNG(ctx context.Context, opts Options, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("capture: output path is required")
	}

	var png []byte
	err := run(ctx, opts,
		// Let the last paint land.
		chromedp.Sleep(300*time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	)
	if err != nil {
		return err
	}

	if err := fsutil.WriteAtomic(outputPath, png); err != nil {
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	return nil
}

// BrowserAvailable reports whether a Chrome/Chromium binary can be found.
func BrowserAvailable() bool {
	for _, name := range []string{
		"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell",
	} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}
