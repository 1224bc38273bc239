package config

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"flavorwatch/internal/scraper"
)

const (
	ProviderSMTP   = "smtp"
	ProviderResend = "resend"
	ProviderLog    = "log"
)

// ImplicitTLSPort is the submissions port, where TLS starts before the SMTP greeting.
const ImplicitTLSPort = 465

// startTLSPorts speak plain SMTP first and upgrade with STARTTLS.
var startTLSPorts = map[int]bool{25: true, 587: true}

type Config struct {
	Source        SourceConfig        `yaml:"source"`
	HTTP          HttpConfig          `yaml:"http"`
	Rod           RodConfig           `yaml:"rod"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Normalize     NormalizeConfig     `yaml:"normalize"`
	Match         MatchConfig         `yaml:"match"`
	Mail          MailConfig          `yaml:"mail"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type SourceConfig struct {
	URL string `yaml:"url"`
	// SelectorsFile, when set, replaces Selectors with the contents of that file.
	SelectorsFile string            `yaml:"selectors_file"`
	Selectors     scraper.Selectors `yaml:"selectors"`
}

type HttpConfig struct {
	UserAgent      string `yaml:"user_agent"`
	TotalTimeoutMS int    `yaml:"total_timeout_ms"`
	AcceptLanguage string `yaml:"accept_language"`
}

type RodConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ChromePath       string `yaml:"chrome_path"`
	PageTimeoutS     int    `yaml:"page_timeout_s"`
	WaitLoadTimeoutS int    `yaml:"wait_load_timeout_s"`
}

type RateLimitConfig struct {
	MaxConcurrentPerHost int `yaml:"max_concurrent_per_host"`
	RPM                  int `yaml:"rpm"`
}

type NormalizeConfig struct {
	TrimNBSP       bool `yaml:"trim_nbsp"`
	CollapseSpaces bool `yaml:"collapse_spaces"`
}

type MatchConfig struct {
	Keywords []string `yaml:"keywords"`
}

type MailConfig struct {
	Provider      string `yaml:"provider"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	ImplicitTLS   bool   `yaml:"implicit_tls"`
	Username      string `yaml:"username"`
	Password      string `yaml:"-"`
	ResendKey     string `yaml:"-"`
	FromName      string `yaml:"from_name"`
	FromAddress   string `yaml:"from_address"`
	ShopName      string `yaml:"shop_name"`
	SendTimeoutMS int    `yaml:"send_timeout_ms"`
	// Recipients is only ever populated from RECEIVER_EMAILS.
	Recipients []string `yaml:"-"`
}

type SchedulerConfig struct {
	CronExpr string `yaml:"cron_expr"`
	Timezone string `yaml:"timezone"`
}

type ServerConfig struct {
	Address        string `yaml:"address"`
	NotifyOnDemand bool   `yaml:"notify_on_demand"`
}

type ObservabilityConfig struct {
	Env        string `yaml:"env"`
	LogPath    string `yaml:"log_path"`
	LogLevel   string `yaml:"log_level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Validation
func (c *Config) Validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if err := validateSelectors(&c.Source.Selectors); err != nil {
		return err
	}
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.RateLimit.MaxConcurrentPerHost <= 0 {
		return fmt.Errorf("rate_limit.max_concurrent_per_host must be > 0")
	}
	if c.RateLimit.RPM <= 0 {
		return fmt.Errorf("rate_limit.rpm must be > 0")
	}
	if len(nonEmpty(c.Match.Keywords)) == 0 {
		return fmt.Errorf("match.keywords must contain at least one keyword")
	}
	if err := c.Mail.validate(); err != nil {
		return err
	}
	if c.Scheduler.CronExpr == "" {
		return fmt.Errorf("scheduler.cron_expr is required")
	}
	if c.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			return fmt.Errorf("scheduler.timezone is invalid: %w", err)
		}
	}
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	if c.Rod.Enabled {
		if c.Rod.ChromePath == "" {
			return fmt.Errorf("rod.chrome_path is required when rod.enabled is true")
		}
		if c.Rod.PageTimeoutS <= 0 {
			return fmt.Errorf("rod.page_timeout_s must be > 0")
		}
		if c.Rod.WaitLoadTimeoutS <= 0 {
			return fmt.Errorf("rod.wait_load_timeout_s must be > 0")
		}
	}
	return nil
}

func (m *MailConfig) validate() error {
	if len(m.Recipients) == 0 {
		return fmt.Errorf("RECEIVER_EMAILS is required")
	}
	for _, r := range m.Recipients {
		if _, err := mail.ParseAddress(r); err != nil {
			return fmt.Errorf("RECEIVER_EMAILS contains an invalid address %q: %w", r, err)
		}
	}
	if m.FromAddress == "" {
		return fmt.Errorf("mail.from_address is required")
	}
	if m.SendTimeoutMS <= 0 {
		return fmt.Errorf("mail.send_timeout_ms must be > 0")
	}

	switch m.Provider {
	case ProviderSMTP:
		if m.Host == "" {
			return fmt.Errorf("SMTP_HOST is required")
		}
		if m.Port <= 0 || m.Port > 65535 {
			return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
		}
		if m.ImplicitTLS && startTLSPorts[m.Port] {
			return fmt.Errorf("mail.implicit_tls must be false on port %d, which uses STARTTLS", m.Port)
		}
		if !m.ImplicitTLS && m.Port == ImplicitTLSPort {
			return fmt.Errorf("mail.implicit_tls must be true on port %d", ImplicitTLSPort)
		}
		if m.Username == "" {
			return fmt.Errorf("SMTP_USER is required")
		}
		if m.Password == "" {
			return fmt.Errorf("SMTP_PASS is required")
		}
	case ProviderResend:
		if m.ResendKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required when mail.provider is 'resend'")
		}
	case ProviderLog:
	default:
		return fmt.Errorf("mail.provider must be 'smtp', 'resend' or 'log'")
	}
	return nil
}

func validateSelectors(s *scraper.Selectors) error {
	if s.Container == "" {
		return fmt.Errorf("selectors.container is required")
	}
	if strings.TrimSpace(s.LocationKeyword) == "" {
		return fmt.Errorf("selectors.location_keyword is required")
	}
	if s.Label == "" {
		return fmt.Errorf("selectors.label is required")
	}
	return nil
}

// Getters
func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetSendTimeout() time.Duration {
	return time.Duration(c.Mail.SendTimeoutMS) * time.Millisecond
}

func (c *Config) GetRodPageTimeout() time.Duration {
	return time.Duration(c.Rod.PageTimeoutS) * time.Second
}

func (c *Config) GetRodWaitLoadTimeout() time.Duration {
	return time.Duration(c.Rod.WaitLoadTimeoutS) * time.Second
}

// GetLocation returns the scheduler time zone, UTC when unset.
func (c *Config) GetLocation() *time.Location {
	if c.Scheduler.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Keywords returns the configured keywords without blank entries.
func (c *Config) Keywords() []string {
	return nonEmpty(c.Match.Keywords)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
