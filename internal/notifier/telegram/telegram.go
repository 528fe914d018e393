package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/notifier"
)

// Telegram sends alerts through the Telegram Bot API
type Telegram struct {
	token    string
	chatID   int64
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// Option configures the notifier
type Option func(*Telegram)

// WithEndpoint overrides the Bot API endpoint format, see tgbotapi.APIEndpoint
func WithEndpoint(endpoint string) Option {
	return func(t *Telegram) { t.endpoint = endpoint }
}

// New creates a new Telegram notifier. The bot is connected on first send.
func New(botToken, chatID string, opts ...Option) (*Telegram, error) {
	if botToken == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("telegram: bot_token is required"))
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("telegram: chat_id %q: %w", chatID, err))
	}

	t := &Telegram{
		token:    botToken,
		chatID:   id,
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

// Send delivers the alert text. tgbotapi has no context support, so ctx is
// only checked before the call.
func (t *Telegram) Send(ctx context.Context, alert notifier.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bot, err := t.connect()
	if err != nil {
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("telegram: connect: %w", err))
	}

	msg := tgbotapi.NewMessage(t.chatID, alert.Text())
	msg.DisableWebPagePreview = true
	if _, err := bot.Send(msg); err != nil {
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("telegram: send: %w", err))
	}
	return nil
}

func (t *Telegram) connect() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
	if err != nil {
		return nil, err
	}
	t.bot = bot
	return bot, nil
}
