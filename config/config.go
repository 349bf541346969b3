package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the persisted newsletter settings. Credentials are
// deliberately absent: they are prompted per run and never written here.
type Config struct {
	Sender   string `mapstructure:"sender"`
	IMAPHost string `mapstructure:"imap_host"`
	IMAPPort int    `mapstructure:"imap_port"`
	IMAPUser string `mapstructure:"imap_user"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	SMTPUser string `mapstructure:"smtp_user"`
}

// Error is a configuration failure with a remediation hint. It always aborts
// the run before any network activity.
type Error struct {
	Path string
	Hint string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v (%s)", e.Err, e.Hint)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const editHint = `use "nwsl configure" to change it`
const createHint = `use "nwsl configure" to create one`

// DefaultPath returns ~/.nwsl/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".nwsl", "config.json"), nil
}

// Load reads and validates the config file at path. Environment variables of
// the form NWSL_IMAP_HOST override file values.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("imap_port", 993)
	v.SetDefault("smtp_port", 465)
	v.SetEnvPrefix("nwsl")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		hint := editHint
		if errors.Is(err, os.ErrNotExist) {
			hint = createHint
		}
		return Config{}, &Error{Path: path, Hint: hint, Err: fmt.Errorf("read config file %s: %w", path, err)}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &Error{Path: path, Hint: editHint, Err: fmt.Errorf("parse config file %s: %w", path, err)}
	}

	if err := validate(cfg); err != nil {
		return Config{}, &Error{Path: path, Hint: editHint, Err: err}
	}

	return cfg, nil
}

func validate(cfg Config) error {
	required := []struct {
		key   string
		value string
	}{
		{"sender", cfg.Sender},
		{"imap_host", cfg.IMAPHost},
		{"imap_user", cfg.IMAPUser},
		{"smtp_host", cfg.SMTPHost},
		{"smtp_user", cfg.SMTPUser},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("config field %q is empty", field.key)
		}
	}
	if cfg.IMAPPort <= 0 || cfg.IMAPPort > 65535 {
		return fmt.Errorf("imap_port must be between 1 and 65535")
	}
	if cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535 {
		return fmt.Errorf("smtp_port must be between 1 and 65535")
	}
	return nil
}

// Template is the starting point offered by "nwsl configure" when no config
// file exists yet.
func Template() string {
	return `{
    "sender": "Newsletter <mail@mydomain.net>",
    "imap_host": "mail.myhost.net",
    "imap_port": 993,
    "imap_user": "mail@mydomain.net",
    "smtp_host": "mail.myhost.net",
    "smtp_port": 465,
    "smtp_user": "mail@mydomain.net"
}
`
}

// ReadRaw returns the raw config file contents, or the template when the
// file does not exist yet.
func ReadRaw(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Template(), nil
	}
	if err != nil {
		return "", &Error{Path: path, Hint: editHint, Err: fmt.Errorf("read config file %s: %w", path, err)}
	}
	return string(data), nil
}

// Save validates raw as a loadable config and writes it to path, creating the
// parent directory if needed.
func Save(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "config-*.json")
	if err != nil {
		return fmt.Errorf("stage config file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write config file: %w", err)
	}

	if _, err := Load(tmpName); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("save config file %s: %w", path, err)
	}
	return nil
}
