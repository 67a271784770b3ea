package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apptcal/internal/calendar"
)

// A self-contained stand-in for the calendar page: no CDN, a minimal
// FullCalendar and bootstrap, and the same "binding=external" switch as the
// real page.
const probePage = `<!doctype html>
<html><body>
<div id="calendar"></div>
<script>
var FEED = [
  { id: 'appt-1', title: 'Cabinet Nord', startStr: '2024-05-02T09:30:00+02:00',
    extendedProps: { fullInfo: '09:30 · Cabinet Nord · Chats : Minou' } },
  { id: 'ics-vet-1', title: 'Vaccin', startStr: '2024-05-03', extendedProps: {} }
];
window.FullCalendar = {
  Calendar: function (el, opts) {
    this.render = function () {
      setTimeout(function () {
        FEED.forEach(function (ev) {
          var a = document.createElement('a');
          a.className = 'fc-event';
          a.href = '#';
          a.textContent = ev.title;
          el.appendChild(a);
          a.addEventListener('click', function (jsEvent) {
            if (opts.eventClick) { opts.eventClick({ el: a, event: ev, jsEvent: jsEvent }); }
          });
          if (opts.eventDidMount) { opts.eventDidMount({ el: a, event: ev }); }
        });
        if (opts.loading) { opts.loading(false); }
      }, 50);
    };
  }
};
window.bootstrap = { Tooltip: function (node, cfg) { node.title = cfg.title; } };
if (new URLSearchParams(location.search).get('binding') !== 'external') {
  var el = document.getElementById('calendar');
  new FullCalendar.Calendar(el, { loading: function () { el.dataset.ready = 'true'; } }).render();
}
</script>
</body></html>`

func requireBrowser(t *testing.T) {
	t.Helper()
	if testing.Short() || !BrowserAvailable() {
		t.Skip("no Chrome/Chromium available")
	}
}

func browserOptions(url string) Options {
	return Options{
		URL:     url,
		Timeout: 20 * time.Second,
		ExecAllocatorOptions: append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.NoSandbox,
		),
	}
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{URL: "http://x"}
	require.NoError(t, o.normalize())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)

	assert.Error(t, (&Options{}).normalize())
}

func TestCaptureRequiresOutputPath(t *testing.T) {
	err := CaptureCalendarPNG(context.Background(), Options{URL: "http://x"}, "")
	assert.Error(t, err)
}

func TestProbeCalendar(t *testing.T) {
	requireBrowser(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(probePage))
	}))
	defer srv.Close()

	report, err := ProbeCalendar(context.Background(), browserOptions(srv.URL), calendar.Settings{})
	require.NoError(t, err)
	assert.True(t, report.Mounted)
	assert.Equal(t, 2, report.Events)
	assert.Equal(t, []string{"09:30 · Cabinet Nord · Chats : Minou", "Vaccin"}, report.Tooltips)
	assert.Equal(t, []string{calendar.DefaultDetailURL}, report.Navigations)
}

func TestProbeCalendarMissingMount(t *testing.T) {
	requireBrowser(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(probePage))
	}))
	defer srv.Close()

	report, err := ProbeCalendar(context.Background(), browserOptions(srv.URL), calendar.Settings{MountID: "agenda"})
	require.NoError(t, err)
	assert.False(t, report.Mounted)
	assert.Zero(t, report.Events)
}

func TestProbeCalendarDetailOverride(t *testing.T) {
	requireBrowser(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(probePage))
	}))
	defer srv.Close()

	report, err := ProbeCalendar(context.Background(), browserOptions(srv.URL), calendar.Settings{DetailURL: "/rdv"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/rdv"}, report.Navigations)
}

func TestCaptureCalendarPNG(t *testing.T) {
	requireBrowser(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(probePage))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "preview.png")
	require.NoError(t, CaptureCalendarPNG(context.Background(), browserOptions(srv.URL), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}
