package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhcgn/vmsg2csv/filter"
	"github.com/dhcgn/vmsg2csv/vmsg"
)

// Config captures the options shared by every command.
type Config struct {
	Format         string
	LogLevel       string
	LogDir         string
	IncludePhone   []string
	IncludeContent []string
	ExcludePhone   []string
	ExcludeContent []string
}

// Filter returns the record filter options.
func (c Config) Filter() filter.Options {
	return filter.Options{
		IncludePhone:   c.IncludePhone,
		IncludeContent: c.IncludeContent,
		ExcludePhone:   c.ExcludePhone,
		ExcludeContent: c.ExcludeContent,
	}
}

// ComposeConfig controls how records are rendered as emails.
type ComposeConfig struct {
	Owner  string
	Domain string
}

// SyncConfig captures the options of the IMAP sync command.
type SyncConfig struct {
	Compose            ComposeConfig
	IMAPHost           string
	IMAPPort           int
	IMAPUser           string
	IMAPPass           string
	UseTLS             bool
	InsecureSkipVerify bool
	TargetFolder       string
	StateDir           string
	MarkSeen           bool
	DryRun             bool
}

// RegisterFlags attaches the shared flags to the root command. They are
// persistent so every subcommand inherits them.
func RegisterFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("format", vmsg.FormatQuotedPrintable, "Body encoding of the backup: qp (quoted-printable) or hex (legacy exporter)")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory to additionally write log files to")
	flags.StringArray("include-phone", nil, "Regex allow-list applied to phone numbers (mutually exclusive with exclude flags)")
	flags.StringArray("include-content", nil, "Regex allow-list applied to message content (mutually exclusive with exclude flags)")
	flags.StringArray("exclude-phone", nil, "Regex block-list applied to phone numbers (mutually exclusive with include flags)")
	flags.StringArray("exclude-content", nil, "Regex block-list applied to message content (mutually exclusive with include flags)")
}

// RegisterComposeFlags attaches the email rendering flags to cmd.
func RegisterComposeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("owner", "me@sms.invalid", "Address used for the device owner in From/To")
	flags.String("domain", "sms.invalid", "Domain appended to phone numbers to form addresses")
}

// RegisterSyncFlags attaches the IMAP flags to the sync command.
func RegisterSyncFlags(cmd *cobra.Command) error {
	defaultStateDir, err := defaultStateDir()
	if err != nil {
		return err
	}

	RegisterComposeFlags(cmd)
	flags := cmd.Flags()
	flags.String("imap-host", "", "IMAP server hostname")
	flags.Int("imap-port", 993, "IMAP server port")
	flags.String("imap-user", "", "IMAP username")
	flags.String("imap-pass", "", "IMAP password (falls back to IMAP_PASS env var)")
	flags.Bool("use-tls", true, "Use TLS for the IMAP connection")
	flags.Bool("insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	flags.String("target-folder", "SMS", "Target IMAP folder for imported messages")
	flags.String("state-dir", defaultStateDir, "Directory for incremental sync state files")
	flags.Bool("mark-seen", false, "Store uploaded messages as already read")
	flags.Bool("dry-run", false, "Simulate the sync and emit stats without uploading")

	if err := cmd.MarkFlagRequired("imap-host"); err != nil {
		return err
	}
	if err := cmd.MarkFlagRequired("imap-user"); err != nil {
		return err
	}
	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	format, err := flags.GetString("format")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}
	includePhone, err := flags.GetStringArray("include-phone")
	if err != nil {
		return Config{}, err
	}
	includeContent, err := flags.GetStringArray("include-content")
	if err != nil {
		return Config{}, err
	}
	excludePhone, err := flags.GetStringArray("exclude-phone")
	if err != nil {
		return Config{}, err
	}
	excludeContent, err := flags.GetStringArray("exclude-content")
	if err != nil {
		return Config{}, err
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		Format:         strings.ToLower(strings.TrimSpace(format)),
		LogLevel:       logLevel,
		LogDir:         logDir,
		IncludePhone:   includePhone,
		IncludeContent: includeContent,
		ExcludePhone:   excludePhone,
		ExcludeContent: excludeContent,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadComposeConfig reads the flags registered by RegisterComposeFlags.
func LoadComposeConfig(cmd *cobra.Command) (ComposeConfig, error) {
	flags := cmd.Flags()

	owner, err := flags.GetString("owner")
	if err != nil {
		return ComposeConfig{}, err
	}
	domain, err := flags.GetString("domain")
	if err != nil {
		return ComposeConfig{}, err
	}

	cfg := ComposeConfig{
		Owner:  strings.TrimSpace(owner),
		Domain: strings.Trim(strings.TrimSpace(domain), "@"),
	}
	if cfg.Owner == "" || !strings.Contains(cfg.Owner, "@") {
		return ComposeConfig{}, fmt.Errorf("--owner must be an email address")
	}
	if cfg.Domain == "" {
		return ComposeConfig{}, fmt.Errorf("--domain is required")
	}
	return cfg, nil
}

// LoadSyncConfig reads the flags registered by RegisterSyncFlags.
func LoadSyncConfig(cmd *cobra.Command) (SyncConfig, error) {
	compose, err := LoadComposeConfig(cmd)
	if err != nil {
		return SyncConfig{}, err
	}

	flags := cmd.Flags()
	imapHost, err := flags.GetString("imap-host")
	if err != nil {
		return SyncConfig{}, err
	}
	imapPort, err := flags.GetInt("imap-port")
	if err != nil {
		return SyncConfig{}, err
	}
	imapUser, err := flags.GetString("imap-user")
	if err != nil {
		return SyncConfig{}, err
	}
	imapPass, err := flags.GetString("imap-pass")
	if err != nil {
		return SyncConfig{}, err
	}
	useTLS, err := flags.GetBool("use-tls")
	if err != nil {
		return SyncConfig{}, err
	}
	insecureSkipVerify, err := flags.GetBool("insecure-skip-verify")
	if err != nil {
		return SyncConfig{}, err
	}
	targetFolder, err := flags.GetString("target-folder")
	if err != nil {
		return SyncConfig{}, err
	}
	stateDir, err := flags.GetString("state-dir")
	if err != nil {
		return SyncConfig{}, err
	}
	markSeen, err := flags.GetBool("mark-seen")
	if err != nil {
		return SyncConfig{}, err
	}
	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		return SyncConfig{}, err
	}

	if imapPass == "" {
		imapPass = os.Getenv("IMAP_PASS")
	}

	if stateDir == "" {
		stateDir, err = defaultStateDir()
		if err != nil {
			return SyncConfig{}, err
		}
	}

	cfg := SyncConfig{
		Compose:            compose,
		IMAPHost:           imapHost,
		IMAPPort:           imapPort,
		IMAPUser:           imapUser,
		IMAPPass:           imapPass,
		UseTLS:             useTLS,
		InsecureSkipVerify: insecureSkipVerify,
		TargetFolder:       targetFolder,
		StateDir:           filepath.Clean(stateDir),
		MarkSeen:           markSeen,
		DryRun:             dryRun,
	}

	if err := validateSyncConfig(cfg); err != nil {
		return SyncConfig{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	if _, err := vmsg.NewDecoder(cfg.Format); err != nil {
		return fmt.Errorf("invalid --format: %w", err)
	}

	includeActive := len(cfg.IncludePhone) > 0 || len(cfg.IncludeContent) > 0
	excludeActive := len(cfg.ExcludePhone) > 0 || len(cfg.ExcludeContent) > 0
	if includeActive && excludeActive {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

func validateSyncConfig(cfg SyncConfig) error {
	if cfg.IMAPHost == "" {
		return fmt.Errorf("--imap-host is required")
	}
	if cfg.IMAPUser == "" {
		return fmt.Errorf("--imap-user is required")
	}
	if cfg.IMAPPass == "" && !cfg.DryRun {
		return fmt.Errorf("IMAP password must be provided via --imap-pass or IMAP_PASS env var")
	}
	if cfg.IMAPPort <= 0 || cfg.IMAPPort > 65535 {
		return fmt.Errorf("--imap-port must be between 1 and 65535")
	}
	if strings.TrimSpace(cfg.TargetFolder) == "" {
		return fmt.Errorf("--target-folder must not be empty")
	}
	return nil
}

func defaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".vmsg2csv", "state"), nil
}
