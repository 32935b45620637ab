package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Telegram configuration
	TelegramToken       string  `long:"telegram-token" env:"TELEGRAM_TOKEN" description:"Telegram bot token (required)" required:"true"`
	TelegramTarget      string  `long:"telegram-target" env:"TELEGRAM_TARGET" description:"Chat ID or @channel that receives finished files (required)" required:"true"`
	TelegramAPIEndpoint string  `long:"telegram-api-endpoint" env:"TELEGRAM_API_ENDPOINT" description:"Bot API endpoint format string, e.g. a local Bot API server"`
	TelegramAdminIDs    []int64 `long:"telegram-admin-id" env:"TELEGRAM_ADMIN_IDS" env-delim:"," description:"Telegram user IDs allowed to issue commands (empty allows everyone)"`

	// qBittorrent configuration
	QBHost     string `long:"qb-host" env:"QB_HOST" default:"localhost" description:"qBittorrent Web UI host"`
	QBPort     int    `long:"qb-port" env:"QB_PORT" default:"8080" description:"qBittorrent Web UI port"`
	QBUsername string `long:"qb-username" env:"QB_USERNAME" default:"admin" description:"qBittorrent username"`
	QBPassword string `long:"qb-password" env:"QB_PASSWORD" default:"adminadmin" description:"qBittorrent password"`

	// Storage
	DownloadPath string `long:"download-path" env:"DOWNLOAD_PATH" default:"./downloads" description:"Save path handed to qBittorrent for new torrents"`
	FeedsFile    string `long:"feeds-file" env:"FEEDS_FILE" default:"feeds.txt" description:"Newline-delimited list of subscribed feed URLs"`
	DBPath       string `long:"db-path" env:"DB_PATH" default:"autoleech.db" description:"SQLite database holding delivery history"`
	PolicyFile   string `long:"policy-file" env:"POLICY_FILE" description:"Optional YAML delivery policy (accepted extensions, upload size limit)"`
	MarkerTag    string `long:"marker-tag" env:"MARKER_TAG" default:"[autoleech]" description:"Tag attached to every torrent this service adds"`

	// Scheduling and timeouts
	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"300" description:"Pause between pipeline cycles in seconds"`
	BackendTimeout    int `long:"backend-timeout" env:"BACKEND_TIMEOUT" default:"30" description:"Timeout for a single qBittorrent call in seconds"`
	UploadTimeout     int `long:"upload-timeout" env:"UPLOAD_TIMEOUT" default:"600" description:"Timeout for a single Telegram upload in seconds"`
	FeedTimeout       int `long:"feed-timeout" env:"FEED_TIMEOUT" default:"30" description:"Timeout for fetching a single feed in seconds"`

	// HTTP API
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port (empty disables the server)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"autoleech/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses flags and environment. It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	return load(nil)
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		TelegramToken:       raw.TelegramToken,
		TelegramTarget:      strings.TrimSpace(raw.TelegramTarget),
		TelegramAPIEndpoint: raw.TelegramAPIEndpoint,
		TelegramAdminIDs:    raw.TelegramAdminIDs,
		QBHost:              raw.QBHost,
		QBPort:              raw.QBPort,
		QBUsername:          raw.QBUsername,
		QBPassword:          raw.QBPassword,
		DownloadPath:        raw.DownloadPath,
		FeedsFile:           raw.FeedsFile,
		DBPath:              raw.DBPath,
		PolicyFile:          raw.PolicyFile,
		MarkerTag:           raw.MarkerTag,
		SchedulerInterval:   seconds(raw.SchedulerInterval, 300),
		BackendTimeout:      seconds(raw.BackendTimeout, 30),
		UploadTimeout:       seconds(raw.UploadTimeout, 600),
		FeedTimeout:         seconds(raw.FeedTimeout, 30),
		Port:                raw.Port,
		APIAccessKey:        raw.APIAccessKey,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if strings.TrimSpace(cfg.MarkerTag) == "" {
		return fmt.Errorf("marker tag must not be empty")
	}
	if strings.Contains(cfg.MarkerTag, ",") {
		return fmt.Errorf("marker tag must not contain commas: %q", cfg.MarkerTag)
	}
	if cfg.TelegramTarget == "" {
		return fmt.Errorf("telegram target must not be empty")
	}
	if cfg.QBPort <= 0 || cfg.QBPort > 65535 {
		return fmt.Errorf("invalid qBittorrent port: %d", cfg.QBPort)
	}
	return nil
}

// seconds converts a non-positive value to the fallback.
func seconds(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

func qbURL(host string, port int) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + ":" + strconv.Itoa(port)
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
