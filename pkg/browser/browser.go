package browser

import (
	"context"
	"strings"
	"time"
)

// Config describes the emulated device a Session is created with.
type Config struct {
	Width         int           // Viewport width (CSS pixels)
	Height        int           // Viewport height (CSS pixels)
	UserAgent     string        // User agent override
	Mobile        bool          // Emulate a mobile device (touch, meta viewport)
	Headless      bool          // Run the browser headless
	ActionTimeout time.Duration // Upper bound for a single fill or click
}

// Locator matches elements by CSS selector and, optionally, by a substring of
// their visible text. Text matching ignores case and collapses whitespace.
// CSS may be a selector list (".a, .b").
type Locator struct {
	CSS  string
	Text string
}

func (l Locator) String() string {
	if l.Text == "" {
		return l.CSS
	}
	return l.CSS + ` :has-text("` + l.Text + `")`
}

// MatchesText reports whether text satisfies the locator's text filter.
func (l Locator) MatchesText(text string) bool {
	return strings.Contains(NormalizeText(text), NormalizeText(l.Text))
}

// NormalizeText lowercases s and collapses runs of whitespace into a single
// space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Session is a scoped browser context owning a single page.
// Close releases every resource the session holds and is safe to call more
// than once.
type Session interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Settle waits until the page stops changing. max bounds the wait;
	// reaching it is not an error.
	Settle(ctx context.Context, max time.Duration) error

	// Count returns the number of elements matching loc right now.
	Count(ctx context.Context, loc Locator) (int, error)

	// Fill replaces the value of the first input matching loc.
	Fill(ctx context.Context, loc Locator, value string) error

	// Click clicks the first element matching loc.
	Click(ctx context.Context, loc Locator) error

	// WaitPresent blocks until an element matching loc is attached to the
	// DOM, failing once timeout elapses.
	WaitPresent(ctx context.Context, loc Locator, timeout time.Duration) error

	// Screenshot captures the page as PNG, either the full scrollable page
	// or only the visible viewport.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	Close() error
}
