package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"helptree/internal/auth"
	"helptree/internal/config"
)

type formState struct {
	configPath    string
	loginURL      string
	email         string
	question      string
	answer        string
	helpCenterURL string
	subject       string
	outputPath    string
	format        string
	driver        string
	headless      bool
	rateLimitStr  string
	maxPagesStr   string
}

func newFormState(path string) *formState {
	d := config.Default()
	return &formState{
		configPath:    path,
		loginURL:      d.Auth.LoginURL,
		helpCenterURL: d.HelpCenterURL,
		subject:       d.Subject,
		outputPath:    d.Output.Path,
		format:        d.Output.Format,
		driver:        d.Driver,
		headless:      d.Headless,
		rateLimitStr:  "0",
		maxPagesStr:   "0",
	}
}

// RunConfigWizard asks for the common settings and writes them to path.
func RunConfigWizard(path string) error {
	state := newFormState(path)
	if err := buildForm(state).WithTheme(huh.ThemeDracula()).Run(); err != nil {
		return err
	}
	cfg, err := buildConfig(state)
	if err != nil {
		return err
	}
	if err := config.Marshal(cfg, state.configPath); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", state.configPath)
	return nil
}

func buildForm(state *formState) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Login URL").Description("Leave empty when the help center needs no sign-in.").Value(&state.loginURL),
			huh.NewInput().Title("Email").Value(&state.email),
			huh.NewInput().Title("Security question").Description("Optional: exact text of a challenge question.").Value(&state.question),
			huh.NewInput().Title("Answer").Value(&state.answer),
		).Title("Sign-in"),
		huh.NewGroup(
			huh.NewInput().Title("Help center URL").Description("Absolute, or a path on the signed-in host.").Value(&state.helpCenterURL).
				Validate(required("help center url")),
			huh.NewInput().Title("Subject").Description(`Tree labels separated by "|".`).Value(&state.subject).
				Validate(required("subject")),
		).Title("Target"),
		huh.NewGroup(
			huh.NewInput().Title("Output file").Value(&state.outputPath).Validate(required("output file")),
			huh.NewSelect[string]().Title("Format").Value(&state.format).Options(
				huh.NewOption("HTML", "html"),
				huh.NewOption("Markdown", "markdown"),
			),
			huh.NewInput().Title("Max pages (0=all)").Value(&state.maxPagesStr).Validate(validateIntString(0, 1000000)),
		).Title("Output"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Driver").Value(&state.driver).Options(
				huh.NewOption("playwright", "playwright"),
				huh.NewOption("rod", "rod"),
			),
			huh.NewConfirm().Title("Headless").Value(&state.headless),
			huh.NewInput().Title("Rate limit (pages/sec, 0=off)").Value(&state.rateLimitStr).Validate(validateFloatString(0, 100)),
			huh.NewInput().Title("Config path").Value(&state.configPath).Validate(validateConfigPath),
		).Title("Browser"),
	)
}

func buildConfig(state *formState) (config.Config, error) {
	rateLimit, err := parseNonNegativeFloat(state.rateLimitStr, "rate limit must be a number >= 0")
	if err != nil {
		return config.Config{}, err
	}
	maxPages, err := parseNonNegativeInt(state.maxPagesStr, "max pages must be an integer >= 0")
	if err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	cfg.Auth.LoginURL = strings.TrimSpace(state.loginURL)
	cfg.Auth.Email = strings.TrimSpace(state.email)
	if q := strings.TrimSpace(state.question); q != "" {
		cfg.Auth.Challenges = []auth.ChallengeAnswer{{Question: q, Answer: state.answer}}
	}
	cfg.HelpCenterURL = strings.TrimSpace(state.helpCenterURL)
	cfg.Subject = strings.TrimSpace(state.subject)
	cfg.Output.Path = strings.TrimSpace(state.outputPath)
	cfg.Output.Format = state.format
	cfg.Driver = state.driver
	cfg.Headless = state.headless
	cfg.RateLimitPerSecond = rateLimit
	cfg.MaxPages = maxPages
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validateConfigPath(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("path cannot be empty")
	}
	switch strings.ToLower(filepath.Ext(s)) {
	case ".yaml", ".yml", ".json":
	default:
		return errors.New("use a .yaml, .yml or .json file")
	}
	if _, err := os.Stat(s); err == nil {
		return errors.New("file already exists")
	}
	return nil
}

func parseNonNegativeInt(s, errMsg string) (int, error) {
	val, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || val < 0 {
		return 0, errors.New(errMsg)
	}
	return val, nil
}

func parseNonNegativeFloat(s, errMsg string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil || val < 0 {
		return 0, errors.New(errMsg)
	}
	return val, nil
}

func validateIntString(minVal, maxVal int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New("must be an integer")
		}
		if v < minVal || v > maxVal {
			return fmt.Errorf("must be between %d and %d", minVal, maxVal)
		}
		return nil
	}
}

func validateFloatString(minVal, maxVal float64) func(string) error {
	return func(s string) error {
		v, err := parseNonNegativeFloat(s, "must be a number")
		if err != nil {
			return err
		}
		if v < minVal || v > maxVal {
			return fmt.Errorf("must be between %.2f and %.2f", minVal, maxVal)
		}
		return nil
	}
}
