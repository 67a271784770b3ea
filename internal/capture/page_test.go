package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func settled(p *BrowserPage) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		p.Settle()
		close(ch)
	}()
	return ch
}

func TestSettleWaitsForLateHooks(t *testing.T) {
	p := newBrowserPage(context.Background())

	p.begin()
	ch := settled(p)

	// A hook arriving while Settle already waits is waited for too.
	p.begin()
	p.done()
	select {
	case <-ch:
		t.Fatal("Settle returned with a hook still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	p.done()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("Settle did not return once idle")
	}
}

func TestSettleIdle(t *testing.T) {
	p := newBrowserPage(context.Background())
	select {
	case <-settled(p):
	case <-time.After(time.Second):
		t.Fatal("Settle blocked on an idle page")
	}
}

func TestSettleConcurrentHooks(t *testing.T) {
	p := newBrowserPage(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		p.begin()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.done()
			p.Navigate("/appointments")
		}()
	}
	<-settled(p)
	wg.Wait()
	assert.Len(t, p.Navigations(), 50)
}
