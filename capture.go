package worksnap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/root4loot/goutils/log"
	"github.com/root4loot/worksnap/pkg/browser"
	"github.com/root4loot/worksnap/pkg/screener"
	"github.com/root4loot/worksnap/pkg/workflowdebug"
)

// Stage names the step a capture stopped at.
type Stage string

const (
	StageProjects   Stage = "projects"
	StageEstimates  Stage = "estimates"
	StageEditWorks  Stage = "edit-works"
	StageCategories Stage = "categories"
)

// Counts are the work selection elements found on the final screen.
type Counts struct {
	WorkCards     int `json:"workCards"`
	SelectedWorks int `json:"selectedWorks"`
	Checkboxes    int `json:"checkboxes"`
}

// Result describes what a run produced. A run that stopped at a missing UI
// element has StoppedAt set and no Error.
type Result struct {
	URL       string
	StoppedAt Stage    // Step that found nothing to click; empty if the walk completed
	Files     []string // Screenshots written
	Counts    Counts
	Error     error
}

// Completed reports whether both screenshots were written.
func (r Result) Completed() bool {
	return r.Error == nil && r.StoppedAt == "" && len(r.Files) == 2
}

// Run walks the mobile UI to the work selection screen and captures it.
// Missing UI elements stop the walk with a log message. Any other failure is
// logged and returned in Result.Error. The browser session is released
// before Run returns.
func (r *Runner) Run(ctx context.Context) (result Result) {
	result.URL = r.Options.URL
	log.Infof("Capturing work selection screen of %s", r.Options.URL)

	if r.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Options.Timeout)
		defer cancel()
	}

	session, err := r.Launch(ctx, r.Options.BrowserConfig())
	if err != nil {
		result.Error = err
		log.Errorf("Error creating screenshot: %v", err)
		return result
	}

	defer func() {
		if err := session.Close(); err != nil {
			log.Warnf("Could not close browser: %v", err)
		}
		log.Info("Capture finished")
	}()

	if err := r.capture(ctx, session, &result); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			log.Warnf("Timeout exceeded for %s", r.Options.URL)
		}
		result.Error = err
		log.Errorf("Error creating screenshot: %v", err)
	}

	return result
}

func (r *Runner) capture(ctx context.Context, s browser.Session, result *Result) error {
	opts := r.Options
	sel := opts.Selectors

	log.Infof("Opening %s", opts.URL)
	if err := s.Navigate(ctx, opts.URL); err != nil {
		return err
	}
	if err := s.Settle(ctx, opts.StepWait); err != nil {
		return err
	}

	if err := r.login(ctx, s); err != nil {
		return err
	}

	steps := []struct {
		stage Stage
		loc   browser.Locator
		wait  time.Duration
		msg   string
	}{
		{StageProjects, browser.Locator{CSS: sel.Projects}, opts.StepWait, "Selecting project"},
		{StageEstimates, browser.Locator{CSS: sel.Estimates}, opts.StepWait, "Selecting estimate"},
		{StageEditWorks, browser.Locator{CSS: sel.EditButton, Text: sel.EditButtonText}, opts.StepWait, "Opening work editor"},
		{StageCategories, browser.Locator{CSS: sel.Categories}, opts.CategoryWait, "Selecting work category"},
	}

	for _, step := range steps {
		log.Info(step.msg + "...")

		found, err := clickFirst(ctx, s, step.loc, step.wait)
		if err != nil {
			return err
		}
		if !found {
			log.Warnf("No %s found (%s), stopping", step.stage, step.loc)
			result.StoppedAt = step.stage
			return nil
		}

		r.trace(string(step.stage), step.loc)
	}

	log.Debugf("Waiting up to %v for %s", opts.WorkCardTimeout, sel.WorkCard)
	if err := s.WaitPresent(ctx, browser.Locator{CSS: sel.WorkCard}, opts.WorkCardTimeout); err != nil {
		return err
	}

	captures := []struct {
		path     string
		fullPage bool
	}{
		{opts.FullPagePath, true},
		{opts.ViewportPath, false},
	}

	for _, c := range captures {
		img, err := s.Screenshot(ctx, c.fullPage)
		if err != nil {
			return err
		}
		if err := r.save(c.path, img); err != nil {
			return err
		}
		result.Files = append(result.Files, c.path)
		log.Infof("Screenshot saved to %s", c.path)
	}

	counts, err := r.count(ctx, s)
	if err != nil {
		return err
	}
	result.Counts = counts

	log.Infof("Work cards: %d, selected: %d, checked boxes: %d", counts.WorkCards, counts.SelectedWorks, counts.Checkboxes)
	if r.Debug != nil {
		r.Debug.TraceDataFlow(string(StageCategories), "work-selection", counts)
	}

	return nil
}

// login fills and submits the login form if the page shows one.
func (r *Runner) login(ctx context.Context, s browser.Session) error {
	sel := r.Options.Selectors

	n, err := s.Count(ctx, browser.Locator{CSS: sel.LoginForm})
	if err != nil {
		return err
	}
	if n == 0 {
		log.Debug("No login form, skipping login")
		return nil
	}

	log.Infof("Logging in as %s", r.Options.Email)

	if err := s.Fill(ctx, browser.Locator{CSS: sel.Email}, r.Options.Email); err != nil {
		return err
	}
	if err := s.Fill(ctx, browser.Locator{CSS: sel.Password}, r.Options.Password); err != nil {
		return err
	}
	if err := s.Click(ctx, browser.Locator{CSS: sel.Submit}); err != nil {
		return err
	}

	return s.Settle(ctx, r.Options.LoginWait)
}

// clickFirst clicks the first element matching loc and lets the page settle.
// It reports false without clicking when nothing matches.
func clickFirst(ctx context.Context, s browser.Session, loc browser.Locator, wait time.Duration) (bool, error) {
	n, err := s.Count(ctx, loc)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	log.Debugf("Found %d elements matching %s", n, loc)

	if err := s.Click(ctx, loc); err != nil {
		return false, err
	}

	return true, s.Settle(ctx, wait)
}

func (r *Runner) count(ctx context.Context, s browser.Session) (Counts, error) {
	sel := r.Options.Selectors

	var counts Counts
	for _, c := range []struct {
		dst *int
		css string
	}{
		{&counts.WorkCards, sel.WorkCard},
		{&counts.SelectedWorks, sel.SelectedWork},
		{&counts.Checkboxes, sel.CheckedBox},
	} {
		n, err := s.Count(ctx, browser.Locator{CSS: c.css})
		if err != nil {
			return counts, err
		}
		*c.dst = n
	}

	return counts, nil
}

// save writes img to path, overwriting any previous capture. The directory
// must exist.
func (r *Runner) save(path string, img screener.Image) error {
	if r.Options.Imprint {
		var err error
		if img, err = img.AddTextToImage(r.Options.URL); err != nil {
			return fmt.Errorf("error adding text to image: %w", err)
		}
	}

	if r.Options.CompareWithPrevious {
		r.compare(path, img)
	}

	if err := os.WriteFile(path, img, 0o644); err != nil {
		return fmt.Errorf("could not save screenshot: %w", err)
	}

	return nil
}

// compare logs whether img differs from the capture it is about to replace.
func (r *Runner) compare(path string, img screener.Image) {
	previous, err := os.ReadFile(path)
	if err != nil {
		log.Debugf("No previous capture at %s", path)
		return
	}

	similar, score, err := img.IsSimilarTo(previous, r.Options.SimilarityThreshold)
	if err != nil {
		log.Warnf("Could not compare with previous capture: %v", err)
		return
	}

	if similar {
		log.Infof("%s unchanged since last run (score %d)", path, score)
	} else {
		log.Infof("%s changed since last run (score %d)", path, score)
	}
}

func (r *Runner) trace(stage string, data any) {
	if r.Debug == nil {
		return
	}
	r.Debug.Step(workflowdebug.DefaultMarker, "stage "+stage, data)
}
