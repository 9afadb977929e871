package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"printbot/internal/model"
)

type mockBot struct {
	mock.Mock
}

func (m *mockBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.UpdatesChannel)
}

func (m *mockBot) StopReceivingUpdates() {
	m.Called()
}

func (m *mockBot) GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error) {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.File), args.Error(1)
}

func (m *mockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

const testToken = "123456:secret-token"

func newTestTelegram(bot botAPI, fileEndpoint string) *Telegram {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newTelegram(bot, TelegramConfig{
		Token:        testToken,
		FileEndpoint: fileEndpoint,
		PollTimeout:  1,
	}, http.DefaultClient, logger)
}

func TestEventFromUpdate(t *testing.T) {
	date := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		name   string
		update tgbotapi.Update
		wantOK bool
		check  func(t *testing.T, ev model.Event)
	}{
		{
			name: "pdf document",
			update: tgbotapi.Update{UpdateID: 10, Message: &tgbotapi.Message{
				Date: int(date.Unix()),
				Chat: &tgbotapi.Chat{ID: 555},
				From: &tgbotapi.User{ID: 42, UserName: "bob"},
				Document: &tgbotapi.Document{
					FileID:   "file-1",
					FileName: "report.pdf",
					MimeType: "application/pdf",
				},
			}},
			wantOK: true,
			check: func(t *testing.T, ev model.Event) {
				assert.EqualValues(t, 10, ev.UpdateID)
				assert.Equal(t, model.ChatDestination(555), ev.Chat)
				assert.True(t, ev.Timestamp.Equal(date))
				assert.True(t, ev.HasContent)
				require.NotNil(t, ev.Document)
				assert.Equal(t, "file-1", ev.Document.FileID)
				assert.Equal(t, "report.pdf", ev.Document.FileName)
				assert.Equal(t, "application/pdf", ev.Document.MIMEType)
				assert.Equal(t, "bob", ev.SenderIdentity())
			},
		},
		{
			name: "text message",
			update: tgbotapi.Update{UpdateID: 11, Message: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: 555},
				From: &tgbotapi.User{ID: 42},
				Text: "hello",
			}},
			wantOK: true,
			check: func(t *testing.T, ev model.Event) {
				assert.True(t, ev.HasContent)
				assert.Nil(t, ev.Document)
				assert.Equal(t, "42", ev.SenderIdentity())
			},
		},
		{
			name: "service message",
			update: tgbotapi.Update{UpdateID: 12, Message: &tgbotapi.Message{
				Chat:           &tgbotapi.Chat{ID: -100},
				NewChatMembers: []tgbotapi.User{{ID: 1}},
				Document:       &tgbotapi.Document{FileID: "ignored"},
			}},
			wantOK: true,
			check: func(t *testing.T, ev model.Event) {
				assert.False(t, ev.HasContent)
				assert.Nil(t, ev.Document)
				assert.Equal(t, model.UnknownSender, ev.SenderIdentity())
			},
		},
		{
			name: "edited message",
			update: tgbotapi.Update{UpdateID: 13, EditedMessage: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: 555},
				From: &tgbotapi.User{ID: 42, UserName: "bob"},
			}},
			wantOK: true,
			check: func(t *testing.T, ev model.Event) {
				assert.False(t, ev.HasContent)
				assert.Equal(t, model.ChatDestination(555), ev.Chat)
			},
		},
		{
			name:   "no chat",
			update: tgbotapi.Update{UpdateID: 14},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := eventFromUpdate(tt.update, time.UTC)
			assert.Equal(t, tt.wantOK, ok)
			if tt.check != nil {
				tt.check(t, ev)
			}
		})
	}
}

func TestTelegram_Events(t *testing.T) {
	bot := new(mockBot)
	updates := make(chan tgbotapi.Update, 2)
	bot.On("GetUpdatesChan", mock.MatchedBy(func(c tgbotapi.UpdateConfig) bool { return c.Timeout == 1 })).
		Return(tgbotapi.UpdatesChannel(updates))
	bot.On("StopReceivingUpdates").Return()

	tg := newTestTelegram(bot, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := tg.Events(ctx)
	require.NoError(t, err)

	updates <- tgbotapi.Update{UpdateID: 1}
	updates <- tgbotapi.Update{UpdateID: 2, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 9}, Text: "hi"}}

	select {
	case ev := <-events:
		assert.EqualValues(t, 2, ev.UpdateID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
	bot.AssertCalled(t, "StopReceivingUpdates")
}

func TestTelegram_FileDescriptor(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		bot := new(mockBot)
		bot.On("GetFile", tgbotapi.FileConfig{FileID: "file-1"}).
			Return(tgbotapi.File{FileID: "file-1", FilePath: "documents/file_0.pdf"}, nil)

		fd, err := newTestTelegram(bot, "").FileDescriptor(ctx, "file-1")
		require.NoError(t, err)
		assert.Equal(t, "documents/file_0.pdf", fd.Path)
	})

	t.Run("api error is a redacted request error", func(t *testing.T) {
		bot := new(mockBot)
		bot.On("GetFile", mock.Anything).
			Return(tgbotapi.File{}, errors.New(`Post "https://api.telegram.org/bot`+testToken+`/getFile": timeout`))

		_, err := newTestTelegram(bot, "").FileDescriptor(ctx, "file-1")
		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, "getFile", reqErr.Op)
		assert.NotContains(t, err.Error(), testToken)
	})

	t.Run("missing path", func(t *testing.T) {
		bot := new(mockBot)
		bot.On("GetFile", mock.Anything).Return(tgbotapi.File{FileID: "file-1"}, nil)

		_, err := newTestTelegram(bot, "").FileDescriptor(ctx, "file-1")
		var reqErr *RequestError
		assert.ErrorAs(t, err, &reqErr)
	})
}

func TestTelegram_Download(t *testing.T) {
	payload := []byte("%PDF-1.7 fake body")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/file/bot"+testToken+"/documents/file_0.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	defer server.Close()

	tg := newTestTelegram(new(mockBot), server.URL+"/file/bot%s/%s")
	ctx := context.Background()

	t.Run("streams body", func(t *testing.T) {
		var buf bytes.Buffer
		err := tg.Download(ctx, FileDescriptor{Path: "documents/file_0.pdf", Size: int64(len(payload))}, &buf)
		require.NoError(t, err)
		assert.Equal(t, payload, buf.Bytes())
	})

	t.Run("http status", func(t *testing.T) {
		err := tg.Download(ctx, FileDescriptor{Path: "documents/missing.pdf"}, io.Discard)
		var dlErr *DownloadError
		require.ErrorAs(t, err, &dlErr)
		assert.Contains(t, err.Error(), "404")
		assert.NotContains(t, err.Error(), testToken)
	})

	t.Run("size mismatch", func(t *testing.T) {
		err := tg.Download(ctx, FileDescriptor{Path: "documents/file_0.pdf", Size: 999}, io.Discard)
		var dlErr *DownloadError
		require.ErrorAs(t, err, &dlErr)
		assert.Contains(t, err.Error(), "short download")
	})
}

func TestTelegram_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("chat id", func(t *testing.T) {
		bot := new(mockBot)
		bot.On("Send", tgbotapi.NewMessage(555, "hello")).Return(nil)

		require.NoError(t, newTestTelegram(bot, "").Send(ctx, model.ChatDestination(555), "hello"))
		bot.AssertExpectations(t)
	})

	t.Run("channel", func(t *testing.T) {
		bot := new(mockBot)
		bot.On("Send", tgbotapi.NewMessageToChannel("@printlog", "hello")).Return(nil)

		require.NoError(t, newTestTelegram(bot, "").Send(ctx, model.Destination{Channel: "@printlog"}, "hello"))
		bot.AssertExpectations(t)
	})

	t.Run("failure", func(t *testing.T) {
		bot := new(mockBot)
		bot.On("Send", mock.Anything).Return(errors.New("Forbidden: bot was blocked by the user"))

		err := newTestTelegram(bot, "").Send(ctx, model.ChatDestination(555), "hello")
		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, "sendMessage", reqErr.Op)
	})
}
