package worksnap

import (
	"context"

	"github.com/root4loot/goutils/log"
	"github.com/root4loot/worksnap/pkg/browser"
	"github.com/root4loot/worksnap/pkg/cdp"
	"github.com/root4loot/worksnap/pkg/screener"
	"github.com/root4loot/worksnap/pkg/workflowdebug"
)

const Version = "0.1.0"

// LaunchFunc acquires a browser session configured by cfg.
type LaunchFunc func(ctx context.Context, cfg browser.Config) (browser.Session, error)

type Runner struct {
	Options *Options
	Launch  LaunchFunc
	Debug   *workflowdebug.Logger // Optional; traces stage transitions when set
}

func init() {
	log.Init("worksnap")
}

// NewRunner returns a new runner
func NewRunner() *Runner {
	log.Debug("Creating new runner...")

	options := DefaultOptions()
	return &Runner{
		Options: options,
		Launch:  Launcher(options.Driver),
	}
}

// NewRunnerWithOptions returns a new runner with the specified options
func NewRunnerWithOptions(options Options) *Runner {
	SetLogLevel(&options)
	log.Debug("Creating new runner with options...")

	return &Runner{
		Options: &options,
		Launch:  Launcher(options.Driver),
	}
}

// Launcher returns the LaunchFunc for the named driver. Unknown names fall
// back to rod.
func Launcher(driver string) LaunchFunc {
	if driver == DriverChromedp {
		return func(ctx context.Context, cfg browser.Config) (browser.Session, error) {
			s, err := cdp.NewSession(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}

	return func(ctx context.Context, cfg browser.Config) (browser.Session, error) {
		s, err := screener.NewSession(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// BrowserConfig returns the emulated device for the options.
func (o *Options) BrowserConfig() browser.Config {
	return browser.Config{
		Width:         o.CaptureWidth,
		Height:        o.CaptureHeight,
		UserAgent:     o.UserAgent,
		Mobile:        true,
		Headless:      o.Headless,
		ActionTimeout: o.ActionTimeout,
	}
}

// SetLogLevel sets the log level based on the options
func SetLogLevel(options *Options) {
	if options.Silence {
		log.SetLevel(log.FatalLevel)
	} else if options.Verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
