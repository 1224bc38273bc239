package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"flavorwatch/internal/scraper"
)

// DotEnvFile is read, if present, before environment overrides are applied.
const DotEnvFile = ".env"

// Default returns the configuration every YAML file is decoded on top of.
func Default() Config {
	return Config{
		Source: SourceConfig{
			URL: "https://joesice.com/",
			Selectors: scraper.Selectors{
				Container:       ".et_pb_text_inner",
				LocationKeyword: "anaheim",
				Label:           "span",
			},
		},
		HTTP: HttpConfig{
			UserAgent:      "flavorwatch/1.0",
			TotalTimeoutMS: 30000,
			AcceptLanguage: "en-US,en;q=0.9",
		},
		Rod: RodConfig{
			PageTimeoutS:     60,
			WaitLoadTimeoutS: 30,
		},
		RateLimit: RateLimitConfig{
			MaxConcurrentPerHost: 1,
			RPM:                  6,
		},
		Normalize: NormalizeConfig{
			TrimNBSP:       true,
			CollapseSpaces: true,
		},
		Mail: MailConfig{
			Provider:      ProviderSMTP,
			Port:          ImplicitTLSPort,
			ImplicitTLS:   true,
			ShopName:      "Joe's Ice Cream",
			SendTimeoutMS: 30000,
		},
		Scheduler: SchedulerConfig{
			CronExpr: "0 9 * * *",
		},
		Server: ServerConfig{
			Address: ":8080",
		},
		Observability: ObservabilityConfig{
			LogLevel:   "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func LoadConfig(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("Warning: failed to close config file: %v", closeErr)
		}
	}()

	cfg := Default()
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, fmt.Errorf("config environment error: %w", err)
	}

	if cfg.Source.SelectorsFile != "" {
		selectors, err := LoadSelectors(cfg.Source.SelectorsFile)
		if err != nil {
			return nil, err
		}
		cfg.Source.Selectors = *selectors
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv populates the process environment from path. A missing file is not an error;
// variables already set in the environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("SMTP_HOST"); v != "" {
		c.Mail.Host = v
	}
	if v := getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SMTP_PORT must be a number: %w", err)
		}
		c.Mail.Port = port
		c.Mail.ImplicitTLS = port == ImplicitTLSPort
	}
	if v := getenv("SMTP_IMPLICIT_TLS"); v != "" {
		implicit, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SMTP_IMPLICIT_TLS must be true or false: %w", err)
		}
		c.Mail.ImplicitTLS = implicit
	}
	if v := getenv("SMTP_USER"); v != "" {
		c.Mail.Username = v
		if c.Mail.FromAddress == "" {
			c.Mail.FromAddress = v
		}
	}
	if v := getenv("SMTP_PASS"); v != "" {
		c.Mail.Password = v
	}
	if v := getenv("RESEND_API_KEY"); v != "" {
		c.Mail.ResendKey = v
	}
	if v := getenv("MATCH_KEYWORDS"); v != "" {
		c.Match.Keywords = splitList(v)
	}
	c.Mail.Recipients = ParseRecipients(getenv("RECEIVER_EMAILS"))
	return nil
}

// ParseRecipients splits a comma separated address list, trimming entries and dropping
// blanks and repeats. Order of first occurrence is kept.
func ParseRecipients(raw string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, addr := range splitList(raw) {
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
