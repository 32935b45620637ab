package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Target is either a numeric chat ID or a public channel username.
type Target struct {
	ChatID  int64
	Channel string
}

func (t Target) String() string {
	if t.Channel != "" {
		return t.Channel
	}
	return strconv.FormatInt(t.ChatID, 10)
}

// ParseTarget accepts "123456", "-100123456" or "@channel".
func ParseTarget(value string) (Target, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Target{}, errors.New("target is empty")
	}

	if strings.HasPrefix(value, "@") {
		if len(value) < 2 || strings.ContainsAny(value, " \t/") {
			return Target{}, fmt.Errorf("invalid channel username %q", value)
		}
		return Target{Channel: value}, nil
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id == 0 {
		return Target{}, fmt.Errorf("target %q is neither a chat ID nor an @channel", value)
	}
	return Target{ChatID: id}, nil
}

// Messenger owns the Bot API session. The session is created on first use so
// a Telegram outage at startup does not prevent the rest of the service from
// running.
type Messenger struct {
	token    string
	endpoint string
	target   Target
	client   *http.Client

	mu  sync.Mutex
	api *tgbotapi.BotAPI
}

func NewMessenger(token, endpoint, target string, uploadTimeout time.Duration) (*Messenger, error) {
	parsed, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	return &Messenger{
		token:    token,
		endpoint: endpoint,
		target:   parsed,
		client:   &http.Client{Timeout: uploadTimeout},
	}, nil
}

func (m *Messenger) Target() Target {
	return m.target
}

// PollTimeout returns the getUpdates long-poll duration in seconds. It stays
// below the client timeout, which also bounds uploads; zero means short polling.
func (m *Messenger) PollTimeout() int {
	limit := m.client.Timeout
	if limit <= 0 || limit >= 2*maxPollTimeout {
		return int(maxPollTimeout / time.Second)
	}
	return int(limit / 2 / time.Second)
}

// API returns the connected session, connecting if needed.
func (m *Messenger) API() (*tgbotapi.BotAPI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.api != nil {
		return m.api, nil
	}

	api, err := tgbotapi.NewBotAPIWithClient(m.token, m.endpoint, m.client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}

	slog.Info("Connected to Telegram", "bot", api.Self.UserName, "target", m.target.String())
	m.api = api
	return api, nil
}

// SendDocument uploads r to the delivery target under filename.
func (m *Messenger) SendDocument(ctx context.Context, filename string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	api, err := m.API()
	if err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(m.target.ChatID, tgbotapi.FileReader{Name: filename, Reader: r})
	doc.ChannelUsername = m.target.Channel

	if _, err := api.Send(doc); err != nil {
		return fmt.Errorf("sendDocument to %s: %w", m.target.String(), err)
	}
	return nil
}

// Reply sends a plain-text message to chatID.
func (m *Messenger) Reply(chatID int64, text string) error {
	api, err := m.API()
	if err != nil {
		return err
	}

	if _, err := api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("sendMessage to %d: %w", chatID, err)
	}
	return nil
}

// slogAdapter routes the library's internal logging through slog.
type slogAdapter struct{}

func (slogAdapter) Println(v ...interface{}) {
	slog.Debug(strings.TrimSpace(fmt.Sprintln(v...)), "component", "telegram")
}

func (slogAdapter) Printf(format string, v ...interface{}) {
	slog.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "telegram")
}

func init() {
	if err := tgbotapi.SetLogger(slogAdapter{}); err != nil {
		slog.Warn("Failed to set Telegram logger", "error", err)
	}
}
