package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/root4loot/goutils/log"
	"github.com/root4loot/worksnap/pkg/browser"
)

// pollInterval is how often Settle samples the DOM.
const pollInterval = 300 * time.Millisecond

// Session is a chromedp backed browser.Session.
type Session struct {
	cfg         browser.Config
	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

var _ browser.Session = (*Session)(nil)

// NewSession starts a browser through an exec allocator and applies the
// device emulation from cfg. The session lives until ctx is done or Close
// is called.
func NewSession(ctx context.Context, cfg browser.Config) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], customFlags(cfg)...)

	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocator, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	cctx, cancelCtx := chromedp.NewContext(allocator)

	s := &Session{
		cfg:         cfg,
		ctx:         cctx,
		cancelAlloc: cancelAlloc,
		cancelCtx:   cancelCtx,
	}

	var tasks chromedp.Tasks
	if cfg.Width != 0 && cfg.Height != 0 {
		var emulate []chromedp.EmulateViewportOption
		if cfg.Mobile {
			emulate = append(emulate, chromedp.EmulateMobile, chromedp.EmulateTouch)
		}
		tasks = append(tasks, chromedp.EmulateViewport(int64(cfg.Width), int64(cfg.Height), emulate...))
	}

	if cfg.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(cfg.UserAgent))
	}

	// The first Run starts the browser.
	if err := chromedp.Run(cctx, tasks); err != nil {
		s.Close()
		return nil, fmt.Errorf("error starting browser: %w", err)
	}

	log.Debugf("Browser session ready (%dx%d, mobile=%v)", cfg.Width, cfg.Height, cfg.Mobile)
	return s, nil
}

func customFlags(cfg browser.Config) []chromedp.ExecAllocatorOption {
	var flags []chromedp.ExecAllocatorOption

	flags = append(flags, chromedp.Flag("headless", cfg.Headless))

	if cfg.Width != 0 && cfg.Height != 0 {
		flags = append(flags, chromedp.WindowSize(cfg.Width, cfg.Height))
	}

	return flags
}

// bind derives a context from the session that also honours ctx's deadline
// and cancellation.
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	var bound context.Context
	var cancel context.CancelFunc

	if deadline, ok := ctx.Deadline(); ok {
		bound, cancel = context.WithDeadline(s.ctx, deadline)
	} else {
		bound, cancel = context.WithCancel(s.ctx)
	}

	stop := context.AfterFunc(ctx, cancel)
	return bound, func() {
		stop()
		cancel()
	}
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	c, cancel := s.bind(ctx)
	defer cancel()

	if err := chromedp.Run(c, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("error navigating to %s: %w", url, err)
	}
	return nil
}

func (s *Session) Settle(ctx context.Context, max time.Duration) error {
	c, cancel := s.bind(ctx)
	defer cancel()

	c, cancelMax := context.WithTimeout(c, max)
	defer cancelMax()

	last := int64(-1)
	for {
		var n int64
		if err := chromedp.Run(c, chromedp.Evaluate(stableJS, &n)); err != nil {
			if ctx.Err() == nil && errors.Is(c.Err(), context.DeadlineExceeded) {
				log.Debugf("Page still changing after %v, continuing", max)
				return nil
			}
			return fmt.Errorf("error checking page state: %w", err)
		}

		if n >= 0 && n == last {
			return nil
		}
		last = n

		select {
		case <-c.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			log.Debugf("Page still changing after %v, continuing", max)
			return nil
		case <-time.After(pollInterval):
		}
	}
}

func (s *Session) Count(ctx context.Context, loc browser.Locator) (int, error) {
	c, cancel := s.bind(ctx)
	defer cancel()

	script, err := locatorScript(countJS, loc)
	if err != nil {
		return 0, err
	}

	var n int
	if err := chromedp.Run(c, chromedp.Evaluate(script, &n)); err != nil {
		return 0, fmt.Errorf("error querying %s: %w", loc, err)
	}
	return n, nil
}

func (s *Session) Fill(ctx context.Context, loc browser.Locator, value string) error {
	c, cancel := s.actionContext(ctx)
	defer cancel()

	err := chromedp.Run(c,
		chromedp.Clear(loc.CSS, chromedp.ByQuery),
		chromedp.SendKeys(loc.CSS, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("error filling %s: %w", loc, err)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, loc browser.Locator) error {
	c, cancel := s.actionContext(ctx)
	defer cancel()

	script, err := locatorScript(clickJS, loc)
	if err != nil {
		return err
	}

	var clicked bool
	if err := chromedp.Run(c, chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("error clicking %s: %w", loc, err)
	}

	if !clicked {
		return fmt.Errorf("no element matches %s", loc)
	}
	return nil
}

func (s *Session) WaitPresent(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	c, cancel := s.bind(ctx)
	defer cancel()

	c, cancelWait := context.WithTimeout(c, timeout)
	defer cancelWait()

	if err := chromedp.Run(c, chromedp.WaitReady(loc.CSS, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%s did not appear within %v: %w", loc, timeout, err)
	}
	return nil
}

func (s *Session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	c, cancel := s.bind(ctx)
	defer cancel()

	var buf []byte
	var action chromedp.Action = chromedp.CaptureScreenshot(&buf)
	if fullPage {
		// quality 100 keeps the PNG encoding
		action = chromedp.FullScreenshot(&buf, 100)
	}

	if err := chromedp.Run(c, action); err != nil {
		return nil, fmt.Errorf("error capturing screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the browser down gracefully and releases the allocator.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("error closing browser: %w", err)
		}
		s.cancelCtx()
		s.cancelAlloc()
	})
	return s.closeErr
}

func (s *Session) actionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	c, cancel := s.bind(ctx)
	if s.cfg.ActionTimeout <= 0 {
		return c, cancel
	}

	c, cancelTimeout := context.WithTimeout(c, s.cfg.ActionTimeout)
	return c, func() {
		cancelTimeout()
		cancel()
	}
}
