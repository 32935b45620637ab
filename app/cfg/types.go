package cfg

import "time"

type Cfg struct {
	// Telegram configuration
	TelegramToken       string
	TelegramTarget      string
	TelegramAPIEndpoint string
	TelegramAdminIDs    []int64

	// qBittorrent configuration
	QBHost     string
	QBPort     int
	QBUsername string
	QBPassword string

	// Storage
	DownloadPath string
	FeedsFile    string
	DBPath       string
	PolicyFile   string
	MarkerTag    string

	// Scheduling and timeouts
	SchedulerInterval time.Duration
	BackendTimeout    time.Duration
	UploadTimeout     time.Duration
	FeedTimeout       time.Duration

	// HTTP API
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// QBURL returns the qBittorrent Web UI base URL.
func (c *Cfg) QBURL() string {
	return qbURL(c.QBHost, c.QBPort)
}
