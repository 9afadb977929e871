package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"printbot/internal/model"
)

// botAPI is the subset of *tgbotapi.BotAPI the transport uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramConfig holds configuration for creating a Telegram transport.
type TelegramConfig struct {
	Token string
	// APIEndpoint and FileEndpoint are printf formats taking the token and
	// the method or file path. Empty values select the public Bot API.
	APIEndpoint  string
	FileEndpoint string
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int
	// Location is the timezone event timestamps are converted to.
	Location *time.Location
	// HTTPClient is used for all requests. If nil, an otelhttp-instrumented client is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Telegram implements Transport on top of the Telegram Bot API.
type Telegram struct {
	bot          botAPI
	token        string
	fileEndpoint string
	pollTimeout  int
	loc          *time.Location
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewTelegram connects to the Bot API and verifies the token.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: token is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := tgbotapi.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn)); err != nil {
		return nil, fmt.Errorf("telegram: set logger: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	apiEndpoint := cfg.APIEndpoint
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, apiEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", redact(err, cfg.Token))
	}
	logger.Info("telegram_connected", "bot", bot.Self.UserName)

	return newTelegram(bot, cfg, httpClient, logger), nil
}

func newTelegram(bot botAPI, cfg TelegramConfig, httpClient *http.Client, logger *slog.Logger) *Telegram {
	fileEndpoint := cfg.FileEndpoint
	if fileEndpoint == "" {
		fileEndpoint = tgbotapi.FileEndpoint
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Telegram{
		bot:          bot,
		token:        cfg.Token,
		fileEndpoint: fileEndpoint,
		pollTimeout:  cfg.PollTimeout,
		loc:          loc,
		httpClient:   httpClient,
		logger:       logger,
	}
}

// Events starts long polling. Updates that cannot be replied to are dropped.
func (t *Telegram) Events(ctx context.Context) (<-chan model.Event, error) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.pollTimeout
	updates := t.bot.GetUpdatesChan(u)

	out := make(chan model.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				t.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				event, ok := eventFromUpdate(update, t.loc)
				if !ok {
					t.logger.Debug("telegram_update_ignored", "update_id", update.UpdateID)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					t.bot.StopReceivingUpdates()
					return
				}
			}
		}
	}()
	return out, nil
}

// FileDescriptor calls getFile for fileID.
func (t *Telegram) FileDescriptor(ctx context.Context, fileID string) (FileDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return FileDescriptor{}, &RequestError{Op: "getFile", Err: err}
	}
	file, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return FileDescriptor{}, &RequestError{Op: "getFile", Err: redact(err, t.token)}
	}
	if file.FilePath == "" {
		return FileDescriptor{}, &RequestError{Op: "getFile", Err: errors.New("no file path returned")}
	}
	return FileDescriptor{
		FileID: file.FileID,
		Path:   file.FilePath,
		Size:   int64(file.FileSize),
	}, nil
}

// Download streams the file behind fd into w.
func (t *Telegram) Download(ctx context.Context, fd FileDescriptor, w io.Writer) error {
	url := fmt.Sprintf(t.fileEndpoint, t.token, fd.Path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &DownloadError{Path: fd.Path, Err: redact(err, t.token)}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &DownloadError{Path: fd.Path, Err: redact(err, t.token)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &DownloadError{Path: fd.Path, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return &DownloadError{Path: fd.Path, Err: redact(err, t.token)}
	}
	if fd.Size > 0 && n != fd.Size {
		return &DownloadError{Path: fd.Path, Err: fmt.Errorf("short download: got %d of %d bytes", n, fd.Size)}
	}
	return nil
}

// Send posts a plain text message to dest.
func (t *Telegram) Send(ctx context.Context, dest model.Destination, text string) error {
	if err := ctx.Err(); err != nil {
		return &RequestError{Op: "sendMessage", Err: err}
	}

	var msg tgbotapi.MessageConfig
	if dest.Channel != "" {
		msg = tgbotapi.NewMessageToChannel(dest.Channel, text)
	} else {
		msg = tgbotapi.NewMessage(dest.ChatID, text)
	}

	if _, err := t.bot.Send(msg); err != nil {
		return &RequestError{Op: "sendMessage", Err: redact(err, t.token)}
	}
	return nil
}

// eventFromUpdate converts a Bot API update. The bool is false for updates
// without any chat to answer in.
func eventFromUpdate(update tgbotapi.Update, loc *time.Location) (model.Event, bool) {
	if msg := update.Message; msg != nil && msg.Chat != nil {
		event := baseEvent(update.UpdateID, msg, loc)
		event.HasContent = !isServiceMessage(msg)
		if event.HasContent && msg.Document != nil {
			event.Document = &model.Attachment{
				FileID:   msg.Document.FileID,
				MIMEType: msg.Document.MimeType,
				FileName: msg.Document.FileName,
			}
		}
		return event, true
	}

	// Edits and channel posts have a chat but are not submissions.
	for _, msg := range []*tgbotapi.Message{update.EditedMessage, update.ChannelPost, update.EditedChannelPost} {
		if msg != nil && msg.Chat != nil {
			return baseEvent(update.UpdateID, msg, loc), true
		}
	}
	return model.Event{}, false
}

func baseEvent(updateID int, msg *tgbotapi.Message, loc *time.Location) model.Event {
	event := model.Event{
		UpdateID:  int64(updateID),
		Chat:      model.ChatDestination(msg.Chat.ID),
		Timestamp: time.Unix(int64(msg.Date), 0).In(loc),
	}
	if msg.From != nil {
		event.Sender = &model.Sender{ID: msg.From.ID, Handle: msg.From.UserName}
	}
	return event
}

func isServiceMessage(msg *tgbotapi.Message) bool {
	return len(msg.NewChatMembers) > 0 ||
		msg.LeftChatMember != nil ||
		msg.NewChatTitle != "" ||
		msg.PinnedMessage != nil ||
		msg.GroupChatCreated ||
		msg.SuperGroupChatCreated ||
		msg.ChannelChatCreated ||
		msg.MigrateToChatID != 0 ||
		msg.MigrateFromChatID != 0
}

// redact removes the bot token from error texts; request URLs embed it and
// causes are forwarded to the admin channel.
func redact(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
