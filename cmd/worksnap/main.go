package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/root4loot/goutils/log"
	"github.com/root4loot/worksnap"
	"github.com/root4loot/worksnap/pkg/workflowdebug"
)

const (
	author = "@danielantonsen"
	usage  = `USAGE:
  worksnap [options]

Walks the mobile estimate UI (login, project, estimate, edit works, category)
and captures the work selection screen.

TARGET:
  -u,   --url                    application URL                                       (Default: http://localhost:5173)
  -e,   --email                  login email                                           (Default: foreman@example.com)
  -p,   --password               login password

CONFIGURATIONS:
        --config                 YAML file with options
        --env-file               env file with WORKSNAP_* variables                    (Default: .env)
  -d,   --driver                 browser driver: rod, chromedp                         (Default: rod)
  -cw,  --capture-width          viewport width                                        (Default: 375)
  -ch,  --capture-height         viewport height                                       (Default: 812)
  -ua,  --user-agent             specify user agent                                    (Default: iPhone Safari UA)
        --headful                show the browser window
  -to,  --timeout                timeout for the whole run                             (Default: 2m)
  -at,  --action-timeout         timeout for a single fill or click                    (Default: 10s)
  -sw,  --step-wait              max settle time after each step                       (Default: 2s)
  -lw,  --login-wait             max settle time after logging in                      (Default: 3s)
  -gw,  --category-wait          max settle time after selecting a category            (Default: 3s)
  -wt,  --work-card-timeout      max wait for the work cards                           (Default: 5s)

OUTPUT:
  -of,  --full-page-out          full-page screenshot path                             (Default: work-selection-screenshot.png)
  -ov,  --viewport-out           viewport screenshot path                              (Default: work-selection-viewport.png)
  -it,  --imprint                add the URL under each screenshot                     (Default: false)
  -cp,  --compare                compare with the screenshots being replaced           (Default: false)
        --dev                    enable workflow debug tracing
  -s,   --silence                silence output
  -v,   --verbose                verbose output
        --version                display version
`
)

type cli struct {
	*worksnap.Runner
	ConfigFile string
	EnvFile    string
	Help       bool
	Version    bool
}

func NewCLI() *cli {
	return &cli{Runner: worksnap.NewRunner(), EnvFile: ".env"}
}

func main() {
	cli := NewCLI()
	if err := cli.parseFlags(os.Args[1:]); err != nil {
		log.Error(err)
		fmt.Print(usage)
		os.Exit(2)
	}
	cli.checkForExits()

	worksnap.SetLogLevel(cli.Options)

	if cli.Options.Dev {
		debug := workflowdebug.New(os.Stderr)
		debug.Enable(workflowdebug.DefaultMarker)
		cli.Debug = debug
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result := cli.Run(ctx)

	switch {
	case result.Error != nil:
		log.Warnf("Capture failed after %v", time.Since(start).Round(time.Millisecond))
	case result.StoppedAt != "":
		log.Warnf("Capture stopped at %s", result.StoppedAt)
	default:
		for _, f := range result.Files {
			log.Resultf("%s", f)
		}
	}
}

// parseFlags builds the options from the config file, the environment and
// the command line, in increasing order of precedence.
func (c *cli) parseFlags(args []string) error {
	// config and env file locations must be known before defaults are read
	pre := flag.NewFlagSet("worksnap", flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	pre.StringVar(&c.ConfigFile, "config", "", "")
	pre.StringVar(&c.EnvFile, "env-file", c.EnvFile, "")
	pre.Usage = func() {}
	_ = pre.Parse(filterFlags(args, "config", "env-file"))

	options := worksnap.DefaultOptions()
	if c.ConfigFile != "" {
		var err error
		if options, err = worksnap.LoadOptionsFile(c.ConfigFile); err != nil {
			return err
		}
	}

	if err := options.ApplyEnv(c.EnvFile); err != nil {
		return err
	}

	var headful bool
	fs := flag.NewFlagSet("worksnap", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "")
	fs.StringVar(&c.EnvFile, "env-file", c.EnvFile, "")

	// TARGET
	fs.StringVar(&options.URL, "url", options.URL, "")
	fs.StringVar(&options.URL, "u", options.URL, "")
	fs.StringVar(&options.Email, "email", options.Email, "")
	fs.StringVar(&options.Email, "e", options.Email, "")
	fs.StringVar(&options.Password, "password", options.Password, "")
	fs.StringVar(&options.Password, "p", options.Password, "")

	// CONFIGURATIONS
	fs.StringVar(&options.Driver, "driver", options.Driver, "")
	fs.StringVar(&options.Driver, "d", options.Driver, "")
	fs.IntVar(&options.CaptureWidth, "capture-width", options.CaptureWidth, "")
	fs.IntVar(&options.CaptureWidth, "cw", options.CaptureWidth, "")
	fs.IntVar(&options.CaptureHeight, "capture-height", options.CaptureHeight, "")
	fs.IntVar(&options.CaptureHeight, "ch", options.CaptureHeight, "")
	fs.StringVar(&options.UserAgent, "user-agent", options.UserAgent, "")
	fs.StringVar(&options.UserAgent, "ua", options.UserAgent, "")
	fs.BoolVar(&headful, "headful", !options.Headless, "")
	fs.DurationVar(&options.Timeout, "timeout", options.Timeout, "")
	fs.DurationVar(&options.Timeout, "to", options.Timeout, "")
	fs.DurationVar(&options.ActionTimeout, "action-timeout", options.ActionTimeout, "")
	fs.DurationVar(&options.ActionTimeout, "at", options.ActionTimeout, "")
	fs.DurationVar(&options.StepWait, "step-wait", options.StepWait, "")
	fs.DurationVar(&options.StepWait, "sw", options.StepWait, "")
	fs.DurationVar(&options.LoginWait, "login-wait", options.LoginWait, "")
	fs.DurationVar(&options.LoginWait, "lw", options.LoginWait, "")
	fs.DurationVar(&options.CategoryWait, "category-wait", options.CategoryWait, "")
	fs.DurationVar(&options.CategoryWait, "gw", options.CategoryWait, "")
	fs.DurationVar(&options.WorkCardTimeout, "work-card-timeout", options.WorkCardTimeout, "")
	fs.DurationVar(&options.WorkCardTimeout, "wt", options.WorkCardTimeout, "")

	// OUTPUT
	fs.StringVar(&options.FullPagePath, "full-page-out", options.FullPagePath, "")
	fs.StringVar(&options.FullPagePath, "of", options.FullPagePath, "")
	fs.StringVar(&options.ViewportPath, "viewport-out", options.ViewportPath, "")
	fs.StringVar(&options.ViewportPath, "ov", options.ViewportPath, "")
	fs.BoolVar(&options.Imprint, "imprint", options.Imprint, "")
	fs.BoolVar(&options.Imprint, "it", options.Imprint, "")
	fs.BoolVar(&options.CompareWithPrevious, "compare", options.CompareWithPrevious, "")
	fs.BoolVar(&options.CompareWithPrevious, "cp", options.CompareWithPrevious, "")
	fs.BoolVar(&options.Dev, "dev", options.Dev, "")
	fs.BoolVar(&options.Silence, "silence", options.Silence, "")
	fs.BoolVar(&options.Silence, "s", options.Silence, "")
	fs.BoolVar(&options.Verbose, "verbose", options.Verbose, "")
	fs.BoolVar(&options.Verbose, "v", options.Verbose, "")
	fs.BoolVar(&c.Help, "help", false, "")
	fs.BoolVar(&c.Help, "h", false, "")
	fs.BoolVar(&c.Version, "version", false, "")

	if err := fs.Parse(args); err != nil {
		return err
	}

	options.Headless = !headful

	if err := options.Validate(); err != nil {
		return err
	}

	c.Options = options
	c.Launch = worksnap.Launcher(options.Driver)
	return nil
}

// checkForExits handles -h|--help and --version
func (c *cli) checkForExits() {
	if c.Help {
		fmt.Print(usage)
		os.Exit(0)
	}

	if c.Version {
		fmt.Println("worksnap", worksnap.Version, "by", author)
		os.Exit(0)
	}
}

// filterFlags keeps only the named flags (and their values) from args.
func filterFlags(args []string, names ...string) []string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want["-"+n] = true
		want["--"+n] = true
	}

	var out []string
	for i := 0; i < len(args); i++ {
		name, _, hasValue := strings.Cut(args[i], "=")
		if !want[name] {
			continue
		}
		out = append(out, args[i])
		if !hasValue && i+1 < len(args) {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}
