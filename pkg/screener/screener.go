package screener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/root4loot/goutils/log"
	"github.com/root4loot/worksnap/pkg/browser"
)

// settleInterval is the window the DOM must stay unchanged for Settle to
// return early.
const settleInterval = 300 * time.Millisecond

// Session is a go-rod backed browser.Session. Each session launches its own
// browser and works inside an incognito context of it.
type Session struct {
	cfg      browser.Config
	launcher *launcher.Launcher
	root     *rod.Browser
	browser  *rod.Browser
	page     *rod.Page

	closeOnce sync.Once
	closeErr  error
}

var _ browser.Session = (*Session)(nil)

// NewSession launches a browser and opens a page emulating the device
// described by cfg. The returned session must be closed by the caller.
func NewSession(ctx context.Context, cfg browser.Config) (*Session, error) {
	path, _ := launcher.LookPath()

	l := launcher.New().
		Headless(cfg.Headless).
		Bin(path).
		NoSandbox(true)

	if cfg.UserAgent != "" {
		l.Set("user-agent", cfg.UserAgent)
	}

	// Context returns a copy; keep the one that owns the process.
	l = l.Context(ctx)
	s := &Session{cfg: cfg, launcher: l}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("error launching browser: %w", err)
	}

	root := rod.New().ControlURL(controlURL).Context(ctx)
	if err := root.Connect(); err != nil {
		s.Close()
		return nil, fmt.Errorf("error connecting to browser: %w", err)
	}
	s.root = root

	if err := s.open(); err != nil {
		s.Close()
		return nil, err
	}

	log.Debugf("Browser session ready (%dx%d, mobile=%v)", cfg.Width, cfg.Height, cfg.Mobile)
	return s, nil
}

func (s *Session) open() error {
	var err error

	s.browser, err = s.root.Incognito()
	if err != nil {
		return fmt.Errorf("error creating browser context: %w", err)
	}

	s.page, err = s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("error opening page: %w", err)
	}

	if s.cfg.Width != 0 && s.cfg.Height != 0 {
		viewport := &proto.EmulationSetDeviceMetricsOverride{
			Width:             s.cfg.Width,
			Height:            s.cfg.Height,
			DeviceScaleFactor: 1,
			Mobile:            s.cfg.Mobile,
		}
		if err := s.page.SetViewport(viewport); err != nil {
			return fmt.Errorf("error setting viewport: %w", err)
		}
	}

	if s.cfg.Mobile {
		if err := (proto.EmulationSetTouchEmulationEnabled{Enabled: true}).Call(s.page); err != nil {
			return fmt.Errorf("error enabling touch emulation: %w", err)
		}
	}

	if s.cfg.UserAgent != "" {
		if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.cfg.UserAgent}); err != nil {
			return fmt.Errorf("error setting user agent: %w", err)
		}
	}

	return nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("error navigating to %s: %w", url, err)
	}

	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("error waiting for %s to load: %w", url, err)
	}

	return nil
}

func (s *Session) Settle(ctx context.Context, max time.Duration) error {
	sctx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	err := s.page.Context(sctx).WaitDOMStable(settleInterval, 0)
	if err != nil && ctx.Err() == nil && errors.Is(sctx.Err(), context.DeadlineExceeded) {
		log.Debugf("Page still changing after %v, continuing", max)
		return nil
	}

	return err
}

func (s *Session) Count(ctx context.Context, loc browser.Locator) (int, error) {
	els, err := s.find(ctx, loc)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (s *Session) Fill(ctx context.Context, loc browser.Locator, value string) error {
	ctx, cancel := s.actionContext(ctx)
	defer cancel()

	el, err := s.page.Context(ctx).Element(loc.CSS)
	if err != nil {
		return fmt.Errorf("error finding %s: %w", loc, err)
	}

	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("error selecting text in %s: %w", loc, err)
	}

	if err := el.Input(value); err != nil {
		return fmt.Errorf("error filling %s: %w", loc, err)
	}

	return nil
}

func (s *Session) Click(ctx context.Context, loc browser.Locator) error {
	ctx, cancel := s.actionContext(ctx)
	defer cancel()

	els, err := s.find(ctx, loc)
	if err != nil {
		return err
	}

	if len(els) == 0 {
		return fmt.Errorf("no element matches %s", loc)
	}

	if err := els[0].Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("error clicking %s: %w", loc, err)
	}

	return nil
}

func (s *Session) WaitPresent(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := s.page.Context(wctx).Element(loc.CSS); err != nil {
		return fmt.Errorf("%s did not appear within %v: %w", loc, timeout, err)
	}

	return nil
}

func (s *Session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	img, err := s.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("error capturing screenshot: %w", err)
	}
	return img, nil
}

// Close disposes the incognito context, closes the browser and removes the
// launcher's temporary profile. It does not depend on the context the session
// was created with, so it also releases the browser after a cancelled run.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.browser != nil {
			if err := s.browser.Context(context.Background()).Close(); err != nil {
				s.closeErr = fmt.Errorf("error closing browser context: %w", err)
			}
		}

		closed := false
		if s.root != nil {
			if err := s.root.Context(context.Background()).Close(); err != nil {
				if s.closeErr == nil {
					s.closeErr = fmt.Errorf("error closing browser: %w", err)
				}
			} else {
				closed = true
			}
		}

		if s.launcher != nil {
			if !closed {
				s.launcher.Kill()
			}
			s.launcher.Cleanup()
		}
	})

	return s.closeErr
}

// find returns the elements matching loc without waiting for them.
func (s *Session) find(ctx context.Context, loc browser.Locator) (rod.Elements, error) {
	els, err := s.page.Context(ctx).Elements(loc.CSS)
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", loc, err)
	}

	if loc.Text == "" {
		return els, nil
	}

	var matched rod.Elements
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			return nil, fmt.Errorf("error reading text of %s: %w", loc, err)
		}
		if loc.MatchesText(text) {
			matched = append(matched, el)
		}
	}

	return matched, nil
}

func (s *Session) actionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.ActionTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.ActionTimeout)
}
