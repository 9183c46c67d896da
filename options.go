package worksnap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/root4loot/goutils/log"
	"gopkg.in/yaml.v3"
)

const (
	DriverRod      = "rod"
	DriverChromedp = "chromedp"
)

// Options contains options for the runner
type Options struct {
	URL                 string        `yaml:"url"`                   // Application entry point
	Email               string        `yaml:"email"`                 // Login email
	Password            string        `yaml:"password"`              // Login password
	FullPagePath        string        `yaml:"full_page_path"`        // Output path of the full-page capture
	ViewportPath        string        `yaml:"viewport_path"`         // Output path of the viewport capture
	CaptureWidth        int           `yaml:"capture_width"`         // Viewport width
	CaptureHeight       int           `yaml:"capture_height"`        // Viewport height
	UserAgent           string        `yaml:"user_agent"`            // User agent to use
	Headless            bool          `yaml:"headless"`              // Run in headless mode
	Driver              string        `yaml:"driver"`                // Browser driver (rod, chromedp)
	Timeout             time.Duration `yaml:"timeout"`               // Upper bound for the whole run
	ActionTimeout       time.Duration `yaml:"action_timeout"`        // Upper bound for a single fill or click
	StepWait            time.Duration `yaml:"step_wait"`             // Max settle time after navigation and clicks
	LoginWait           time.Duration `yaml:"login_wait"`            // Max settle time after submitting the login form
	CategoryWait        time.Duration `yaml:"category_wait"`         // Max settle time after selecting a category
	WorkCardTimeout     time.Duration `yaml:"work_card_timeout"`     // Bounded wait for the first work card
	Imprint             bool          `yaml:"imprint"`               // Add the target origin under each capture
	CompareWithPrevious bool          `yaml:"compare_with_previous"` // Compare captures with the files they overwrite
	SimilarityThreshold int           `yaml:"similarity_threshold"`  // Score (1-100) at which captures count as unchanged
	Dev                 bool          `yaml:"dev"`                   // Enable workflow debug tracing
	Silence             bool          `yaml:"silence"`               // Silence output
	Verbose             bool          `yaml:"verbose"`               // Verbose logging
	Selectors           Selectors     `yaml:"selectors"`
}

// Selectors are the UI elements the capture walks through.
type Selectors struct {
	LoginForm      string `yaml:"login_form"`
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	Submit         string `yaml:"submit"`
	Projects       string `yaml:"projects"`
	Estimates      string `yaml:"estimates"`
	EditButton     string `yaml:"edit_button"`
	EditButtonText string `yaml:"edit_button_text"`
	Categories     string `yaml:"categories"`
	WorkCard       string `yaml:"work_card"`
	SelectedWork   string `yaml:"selected_work"`
	CheckedBox     string `yaml:"checked_box"`
}

// DefaultOptions returns default options
func DefaultOptions() *Options {
	log.Debug("Getting default options...")

	return &Options{
		URL:                 "http://localhost:5173",
		Email:               "foreman@example.com",
		Password:            "password123",
		FullPagePath:        "work-selection-screenshot.png",
		ViewportPath:        "work-selection-viewport.png",
		CaptureWidth:        375,
		CaptureHeight:       812,
		UserAgent:           "Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X) AppleWebKit/605.1.15",
		Headless:            true,
		Driver:              DriverRod,
		Timeout:             2 * time.Minute,
		ActionTimeout:       10 * time.Second,
		StepWait:            2 * time.Second,
		LoginWait:           3 * time.Second,
		CategoryWait:        3 * time.Second,
		WorkCardTimeout:     5 * time.Second,
		SimilarityThreshold: 96,
		Selectors:           DefaultSelectors(),
	}
}

// DefaultSelectors returns the selectors rendered by the mobile estimate UI.
func DefaultSelectors() Selectors {
	return Selectors{
		LoginForm:      "form",
		Email:          `input[type="email"]`,
		Password:       `input[type="password"]`,
		Submit:         `button[type="submit"]`,
		Projects:       ".project-card, .mobile-card",
		Estimates:      ".estimate-card, .mobile-list-item",
		EditButton:     "button",
		EditButtonText: "Редактировать работы",
		Categories:     ".category-card, .mobile-list-item",
		WorkCard:       ".work-card",
		SelectedWork:   ".work-card.selected",
		CheckedBox:     ".checkbox.checked",
	}
}

// LoadOptionsFile reads a YAML file on top of the default options. Keys
// missing from the file keep their defaults.
func LoadOptionsFile(path string) (*Options, error) {
	options := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, options); err != nil {
		return nil, fmt.Errorf("error parsing config %s: %w", path, err)
	}

	return options, nil
}

// ApplyEnv overrides options from WORKSNAP_* environment variables. Variables
// found in envFiles (typically ".env") are loaded first without replacing
// variables that are already set; missing files are ignored.
func (o *Options) ApplyEnv(envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if os.IsNotExist(err) {
				log.Debugf("No env file at %s", f)
				continue
			}
			return fmt.Errorf("error loading %s: %w", f, err)
		}
	}

	setString(&o.URL, "WORKSNAP_URL")
	setString(&o.Email, "WORKSNAP_EMAIL")
	setString(&o.Password, "WORKSNAP_PASSWORD")
	setString(&o.FullPagePath, "WORKSNAP_FULL_PAGE_PATH")
	setString(&o.ViewportPath, "WORKSNAP_VIEWPORT_PATH")
	setString(&o.UserAgent, "WORKSNAP_USER_AGENT")
	setString(&o.Driver, "WORKSNAP_DRIVER")

	for key, dst := range map[string]*bool{
		"WORKSNAP_DEV":      &o.Dev,
		"WORKSNAP_HEADLESS": &o.Headless,
	} {
		if err := setBool(dst, key); err != nil {
			return err
		}
	}

	for key, dst := range map[string]*time.Duration{
		"WORKSNAP_TIMEOUT":           &o.Timeout,
		"WORKSNAP_ACTION_TIMEOUT":    &o.ActionTimeout,
		"WORKSNAP_STEP_WAIT":         &o.StepWait,
		"WORKSNAP_LOGIN_WAIT":        &o.LoginWait,
		"WORKSNAP_CATEGORY_WAIT":     &o.CategoryWait,
		"WORKSNAP_WORK_CARD_TIMEOUT": &o.WorkCardTimeout,
	} {
		if err := setDuration(dst, key); err != nil {
			return err
		}
	}

	return nil
}

// Validate reports options the runner cannot work with.
func (o *Options) Validate() error {
	switch o.Driver {
	case DriverRod, DriverChromedp:
	default:
		return fmt.Errorf("unknown driver %q (want %s or %s)", o.Driver, DriverRod, DriverChromedp)
	}

	if o.URL == "" {
		return fmt.Errorf("no URL specified")
	}

	if o.FullPagePath == "" || o.ViewportPath == "" {
		return fmt.Errorf("both output paths are required")
	}

	if o.WorkCardTimeout <= 0 {
		return fmt.Errorf("work card timeout must be positive")
	}

	if o.SimilarityThreshold < 1 || o.SimilarityThreshold > 100 {
		return fmt.Errorf("invalid similarity threshold: %d. Must be between 1 and 100", o.SimilarityThreshold)
	}

	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
