// Package config loads the run configuration from a file, HELPTREE_*
// environment variables and flag overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"helptree/internal/auth"
	"helptree/internal/extract"
	"helptree/internal/tree"
)

const EnvPrefix = "HELPTREE"

type Config struct {
	Driver        string `mapstructure:"driver" json:"driver" yaml:"driver"`
	Headless      bool   `mapstructure:"headless" json:"headless" yaml:"headless"`
	UserAgent     string `mapstructure:"user_agent" json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	ProxyURL      string `mapstructure:"proxy_url" json:"proxy_url,omitempty" yaml:"proxy_url,omitempty"`
	HelpCenterURL string `mapstructure:"help_center_url" json:"help_center_url" yaml:"help_center_url"`
	Subject       string `mapstructure:"subject" json:"subject" yaml:"subject"`
	PathSeparator string `mapstructure:"path_separator" json:"path_separator" yaml:"path_separator"`

	Auth     Auth              `mapstructure:"auth" json:"auth" yaml:"auth"`
	Tree     Tree              `mapstructure:"tree" json:"tree" yaml:"tree"`
	Content  extract.Selectors `mapstructure:"content" json:"content" yaml:"content"`
	Timeouts Timeouts          `mapstructure:"timeouts" json:"timeouts" yaml:"timeouts"`
	Output   Output            `mapstructure:"output" json:"output" yaml:"output"`

	RateLimitPerSecond float64  `mapstructure:"rate_limit_per_second" json:"rate_limit_per_second,omitempty" yaml:"rate_limit_per_second,omitempty"`
	MaxPages           int      `mapstructure:"max_pages" json:"max_pages,omitempty" yaml:"max_pages,omitempty"`
	PostCommands       []string `mapstructure:"post_commands" json:"post_commands,omitempty" yaml:"post_commands,omitempty"`
	LogLevel           string   `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
}

type Auth struct {
	LoginURL        string                 `mapstructure:"login_url" json:"login_url" yaml:"login_url"`
	Email           string                 `mapstructure:"email" json:"email" yaml:"email"`
	Password        string                 `mapstructure:"password" json:"password,omitempty" yaml:"password,omitempty"`
	LandingFragment string                 `mapstructure:"landing_fragment" json:"landing_fragment" yaml:"landing_fragment"`
	Challenges      []auth.ChallengeAnswer `mapstructure:"challenges" json:"challenges,omitempty" yaml:"challenges,omitempty"`
	Selectors       auth.Selectors         `mapstructure:"selectors" json:"selectors" yaml:"selectors"`
}

// Enabled reports whether a login step is configured.
func (a Auth) Enabled() bool { return strings.TrimSpace(a.LoginURL) != "" }

func (a Auth) Credentials() auth.Credentials {
	return auth.Credentials{
		LoginURL:        a.LoginURL,
		Email:           a.Email,
		Password:        a.Password,
		LandingFragment: a.LandingFragment,
		Challenges:      a.Challenges,
	}
}

type Tree struct {
	tree.Selectors  `mapstructure:",squash" yaml:",inline"`
	MaxExpandPasses int `mapstructure:"max_expand_passes" json:"max_expand_passes" yaml:"max_expand_passes"`
}

type Timeouts struct {
	Login      time.Duration `mapstructure:"login" json:"login" yaml:"login"`
	Navigation time.Duration `mapstructure:"navigation" json:"navigation" yaml:"navigation"`
	Resolve    time.Duration `mapstructure:"resolve" json:"resolve" yaml:"resolve"`
	Content    time.Duration `mapstructure:"content" json:"content" yaml:"content"`
	Settle     time.Duration `mapstructure:"settle" json:"settle" yaml:"settle"`
	Scroll     time.Duration `mapstructure:"scroll" json:"scroll" yaml:"scroll"`
}

type Output struct {
	Path         string `mapstructure:"path" json:"path" yaml:"path"`
	Format       string `mapstructure:"format" json:"format" yaml:"format"`
	ReportPath   string `mapstructure:"report_path" json:"report_path,omitempty" yaml:"report_path,omitempty"`
	ManifestPath string `mapstructure:"manifest_path" json:"manifest_path,omitempty" yaml:"manifest_path,omitempty"`
	MetricsPath  string `mapstructure:"metrics_path" json:"metrics_path,omitempty" yaml:"metrics_path,omitempty"`
}

// Default returns the configuration for the NetSuite help center.
func Default() Config {
	return Config{
		Driver:        "playwright",
		Headless:      true,
		HelpCenterURL: "/app/help/helpcenter.nl",
		Subject:       "SuiteCloud Platform|SuiteScript|SuiteScript 2.x API Reference|SuiteScript 2.x Modules",
		PathSeparator: "|",
		Auth: Auth{
			LoginURL:        "https://system.netsuite.com/pages/customerlogin.jsp",
			LandingFragment: "/app/center/card.nl",
			Selectors:       auth.DefaultSelectors(),
		},
		Tree:    Tree{Selectors: tree.DefaultSelectors(), MaxExpandPasses: 200},
		Content: extract.DefaultSelectors(),
		Timeouts: Timeouts{
			Login:      30 * time.Second,
			Navigation: 30 * time.Second,
			Resolve:    10 * time.Second,
			Content:    20 * time.Second,
			Settle:     500 * time.Millisecond,
			Scroll:     200 * time.Millisecond,
		},
		Output: Output{
			Path:   "netsuite_suitescript_docs.html",
			Format: "html",
		},
		LogLevel: "info",
	}
}

// Load reads path (or the first helptree.{yaml,yml,json} found in SearchDirs
// when path is empty), then environment variables, then overrides. Override
// keys use the dotted config names, e.g. "output.path".
func Load(path string, overrides map[string]any) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(ConfigName)
		for _, dir := range SearchDirs() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("driver", d.Driver)
	v.SetDefault("headless", d.Headless)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("proxy_url", d.ProxyURL)
	v.SetDefault("help_center_url", d.HelpCenterURL)
	v.SetDefault("subject", d.Subject)
	v.SetDefault("path_separator", d.PathSeparator)

	v.SetDefault("auth.login_url", d.Auth.LoginURL)
	v.SetDefault("auth.email", d.Auth.Email)
	v.SetDefault("auth.password", d.Auth.Password)
	v.SetDefault("auth.landing_fragment", d.Auth.LandingFragment)
	as := d.Auth.Selectors
	v.SetDefault("auth.selectors.email", as.Email)
	v.SetDefault("auth.selectors.password", as.Password)
	v.SetDefault("auth.selectors.submit", as.Submit)
	v.SetDefault("auth.selectors.answer", as.Answer)
	v.SetDefault("auth.selectors.answer_submit", as.AnswerSubmit)
	v.SetDefault("auth.selectors.question", as.Question)
	v.SetDefault("auth.selectors.question_label", as.QuestionLabel)

	ts := d.Tree.Selectors
	v.SetDefault("tree.root", ts.Root)
	v.SetDefault("tree.folder", ts.Folder)
	v.SetDefault("tree.leaf", ts.Leaf)
	v.SetDefault("tree.node_container", ts.NodeContainer)
	v.SetDefault("tree.toggle", ts.Toggle)
	v.SetDefault("tree.toggle_suffix", ts.ToggleSuffix)
	v.SetDefault("tree.collapsed_attr", ts.CollapsedAttr)
	v.SetDefault("tree.collapsed_marker", ts.CollapsedMarker)
	v.SetDefault("tree.child_suffix", ts.ChildSuffix)
	v.SetDefault("tree.id_separator", ts.IDSeparator)
	v.SetDefault("tree.trigger_attr", ts.TriggerAttr)
	v.SetDefault("tree.max_expand_passes", d.Tree.MaxExpandPasses)

	v.SetDefault("content.region", d.Content.Region)
	v.SetDefault("content.title", d.Content.Title)
	v.SetDefault("content.breadcrumb", d.Content.Breadcrumb)
	v.SetDefault("content.containers", d.Content.Containers)
	v.SetDefault("content.remove", d.Content.Remove)

	v.SetDefault("timeouts.login", d.Timeouts.Login)
	v.SetDefault("timeouts.navigation", d.Timeouts.Navigation)
	v.SetDefault("timeouts.resolve", d.Timeouts.Resolve)
	v.SetDefault("timeouts.content", d.Timeouts.Content)
	v.SetDefault("timeouts.settle", d.Timeouts.Settle)
	v.SetDefault("timeouts.scroll", d.Timeouts.Scroll)

	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.report_path", d.Output.ReportPath)
	v.SetDefault("output.manifest_path", d.Output.ManifestPath)
	v.SetDefault("output.metrics_path", d.Output.MetricsPath)

	v.SetDefault("rate_limit_per_second", d.RateLimitPerSecond)
	v.SetDefault("max_pages", d.MaxPages)
	v.SetDefault("post_commands", d.PostCommands)
	v.SetDefault("log_level", d.LogLevel)
}

// Validate checks the settings a run cannot start without.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Subject) == "" {
		errs = append(errs, errors.New("subject is required"))
	} else if _, err := c.PathSpec(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.HelpCenterURL) == "" {
		errs = append(errs, errors.New("help_center_url is required"))
	}
	switch strings.ToLower(c.Driver) {
	case "", "playwright", "rod":
	default:
		errs = append(errs, fmt.Errorf("unknown driver %q (want playwright or rod)", c.Driver))
	}
	switch strings.ToLower(c.Output.Format) {
	case "", "html", "htm", "markdown", "md":
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q (want html or markdown)", c.Output.Format))
	}
	if c.Auth.Enabled() && strings.TrimSpace(c.Auth.Email) == "" {
		errs = append(errs, errors.New("auth.email is required when auth.login_url is set"))
	}
	if c.RateLimitPerSecond < 0 {
		errs = append(errs, errors.New("rate_limit_per_second must not be negative"))
	}
	if c.MaxPages < 0 {
		errs = append(errs, errors.New("max_pages must not be negative"))
	}
	return errors.Join(errs...)
}

func (c Config) PathSpec() (tree.PathSpec, error) {
	return tree.ParsePath(c.Subject, c.PathSeparator)
}

// Marshal writes cfg to path as YAML or JSON depending on the extension.
// The password is never written.
func Marshal(cfg Config, path string) error {
	cfg.Auth.Password = ""
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0600)
}
