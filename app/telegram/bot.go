package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lysyi3m/autoleech/app/tasks"
)

const (
	maxPollTimeout = 60 * time.Second
	connectRetry   = 30 * time.Second
)

const helpText = `Commands:
/add <feed url> - subscribe to a feed
/refresh - fetch all feeds and enqueue new torrents now
/status - show active downloads and files awaiting upload
/feeds - list subscribed feeds
/help - show this message`

// Bot is the chat command front end. Every command is handled on its own
// goroutine; pipeline work is serialized by the scheduler.
type Bot struct {
	messenger *Messenger
	scheduler tasks.SchedulerInterface
	admins    map[int64]struct{}
}

func NewBot(messenger *Messenger, scheduler tasks.SchedulerInterface, adminIDs []int64) *Bot {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return &Bot{
		messenger: messenger,
		scheduler: scheduler,
		admins:    admins,
	}
}

// Run receives updates until ctx is cancelled and waits for in-flight commands.
func (b *Bot) Run(ctx context.Context) {
	api, ok := b.connect(ctx)
	if !ok {
		return
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.messenger.PollTimeout()
	updates := api.GetUpdatesChan(u)

	slog.Info("Telegram bot listening for commands", "bot", api.Self.UserName)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || !msg.IsCommand() {
				continue
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handle(ctx, msg)
			}()
		}
	}
}

func (b *Bot) connect(ctx context.Context) (*tgbotapi.BotAPI, bool) {
	for {
		api, err := b.messenger.API()
		if err == nil {
			return api, true
		}
		slog.Error("Telegram unavailable, retrying", "error", err, "retry_in", connectRetry)

		timer := time.NewTimer(connectRetry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false
		case <-timer.C:
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}

	reply := b.HandleCommand(ctx, userID, msg.Command(), msg.CommandArguments())
	if reply == "" {
		return
	}

	if err := b.messenger.Reply(msg.Chat.ID, reply); err != nil {
		slog.Error("Failed to reply", "chat_id", msg.Chat.ID, "command", msg.Command(), "error", err)
	}
}

// HandleCommand executes a single command and returns the reply text. An empty
// reply means the message is ignored.
func (b *Bot) HandleCommand(ctx context.Context, userID int64, command, args string) string {
	if !b.allowed(userID) {
		slog.Warn("Ignoring command from unauthorized user", "user_id", userID, "command", command)
		return ""
	}

	slog.Debug("Command received", "user_id", userID, "command", command)

	switch command {
	case "add":
		return b.add(strings.TrimSpace(args))
	case "refresh":
		return b.refresh(ctx)
	case "status":
		return b.status(ctx)
	case "feeds":
		return b.feeds()
	case "start", "help":
		return helpText
	default:
		return "Unknown command.\n\n" + helpText
	}
}

func (b *Bot) allowed(userID int64) bool {
	if len(b.admins) == 0 {
		return true
	}
	_, ok := b.admins[userID]
	return ok
}

func (b *Bot) add(url string) string {
	if url == "" {
		return "Usage: /add <RSS feed URL>"
	}

	result := b.scheduler.Subscribe(url)
	switch result.Outcome {
	case tasks.SubscribeAdded:
		return "Feed added: " + result.URL
	case tasks.SubscribeDuplicate:
		return "Feed already exists."
	case tasks.SubscribeInvalid:
		return fmt.Sprintf("Invalid feed URL: %s", result.Message)
	default:
		return "Could not save the feed, please try again later."
	}
}

func (b *Bot) refresh(ctx context.Context) string {
	result, err := b.scheduler.Refresh(ctx)
	if err != nil {
		slog.Error("Refresh command failed", "error", err)
		return "Refresh failed, please try again later."
	}

	return fmt.Sprintf("Feeds refreshed and torrents enqueued.\nFeeds: %d, items: %d, submitted: %d, skipped: %d, failed: %d",
		result.Sources, result.Items, result.Submitted, result.Skipped, result.Failed)
}

func (b *Bot) status(ctx context.Context) string {
	status, err := b.scheduler.Status(ctx)
	if err != nil {
		slog.Error("Status command failed", "error", err)
		return "Download client is unavailable."
	}

	return fmt.Sprintf("Active downloads: %d\nCompleted (awaiting upload): %d", status.Active, status.PendingDelivery)
}

func (b *Bot) feeds() string {
	feeds, err := b.scheduler.Feeds()
	if err != nil {
		slog.Error("Feeds command failed", "error", err)
		return "Could not read the feed list."
	}
	if len(feeds) == 0 {
		return "No feeds yet. Use /add <RSS feed URL>."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Subscribed feeds (%d):", len(feeds))
	for i, feed := range feeds {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, feed)
	}
	return sb.String()
}
