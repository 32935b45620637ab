package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const testToken = "123:secret"

type sentDocument struct {
	chatID   string
	filename string
	content  string
}

// MockBotAPI emulates the subset of the Bot API used by Messenger.
type MockBotAPI struct {
	mu        sync.Mutex
	documents []sentDocument
	messages  []string
	getMe     int
	failSend  bool
}

func (m *MockBotAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := "/bot" + testToken + "/"
		if !strings.HasPrefix(r.URL.Path, prefix) {
			t.Errorf("Unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		m.mu.Lock()
		defer m.mu.Unlock()

		switch strings.TrimPrefix(r.URL.Path, prefix) {
		case "getMe":
			m.getMe++
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Leech","username":"leech_bot"}}`)
		case "sendDocument":
			if m.failSend {
				io.WriteString(w, `{"ok":false,"error_code":413,"description":"Request Entity Too Large"}`)
				return
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("Failed to parse upload: %v", err)
				return
			}
			file, header, err := r.FormFile("document")
			if err != nil {
				t.Errorf("Missing document part: %v", err)
				return
			}
			defer file.Close()
			content, _ := io.ReadAll(file)

			m.documents = append(m.documents, sentDocument{
				chatID:   r.FormValue("chat_id"),
				filename: header.Filename,
				content:  string(content),
			})
			io.WriteString(w, `{"ok":true,"result":{"message_id":10,"date":0,"chat":{"id":42,"type":"private"}}}`)
		case "sendMessage":
			r.ParseForm()
			m.messages = append(m.messages, r.FormValue("chat_id")+":"+r.FormValue("text"))
			io.WriteString(w, `{"ok":true,"result":{"message_id":11,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			io.WriteString(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
		}
	})
}

func newTestMessenger(t *testing.T, mock *MockBotAPI, target string) *Messenger {
	t.Helper()

	server := httptest.NewServer(mock.handler(t))
	t.Cleanup(server.Close)

	messenger, err := NewMessenger(testToken, server.URL+"/bot%s/%s", target, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create messenger: %v", err)
	}
	return messenger
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		input   string
		want    Target
		wantErr bool
	}{
		{"42", Target{ChatID: 42}, false},
		{"-1001234567890", Target{ChatID: -1001234567890}, false},
		{" @releases ", Target{Channel: "@releases"}, false},
		{"", Target{}, true},
		{"@", Target{}, true},
		{"releases", Target{}, true},
		{"0", Target{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTarget(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestSendDocumentToChat(t *testing.T) {
	mock := &MockBotAPI{}
	messenger := newTestMessenger(t, mock, "42")

	err := messenger.SendDocument(context.Background(), "movie.mkv", strings.NewReader("video bytes"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(mock.documents) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(mock.documents))
	}
	doc := mock.documents[0]
	if doc.chatID != "42" {
		t.Errorf("Expected chat_id 42, got %q", doc.chatID)
	}
	if doc.filename != "movie.mkv" {
		t.Errorf("Expected filename movie.mkv, got %q", doc.filename)
	}
	if doc.content != "video bytes" {
		t.Errorf("Expected uploaded content to match, got %q", doc.content)
	}
}

func TestSendDocumentToChannel(t *testing.T) {
	mock := &MockBotAPI{}
	messenger := newTestMessenger(t, mock, "@releases")

	if err := messenger.SendDocument(context.Background(), "a.mp4", strings.NewReader("x")); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if mock.documents[0].chatID != "@releases" {
		t.Errorf("Expected channel username as chat_id, got %q", mock.documents[0].chatID)
	}
}

func TestSendDocumentConnectsOnce(t *testing.T) {
	mock := &MockBotAPI{}
	messenger := newTestMessenger(t, mock, "42")

	for i := 0; i < 3; i++ {
		if err := messenger.SendDocument(context.Background(), "a.mkv", strings.NewReader("x")); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}
	if mock.getMe != 1 {
		t.Errorf("Expected a single getMe call, got %d", mock.getMe)
	}
}

func TestSendDocumentRejected(t *testing.T) {
	mock := &MockBotAPI{failSend: true}
	messenger := newTestMessenger(t, mock, "42")

	err := messenger.SendDocument(context.Background(), "huge.mkv", strings.NewReader("x"))
	if err == nil {
		t.Fatal("Expected error when Telegram rejects the upload")
	}
}

func TestSendDocumentCancelled(t *testing.T) {
	mock := &MockBotAPI{}
	messenger := newTestMessenger(t, mock, "42")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := messenger.SendDocument(ctx, "a.mkv", strings.NewReader("x")); err == nil {
		t.Error("Expected error for cancelled context")
	}
	if len(mock.documents) != 0 {
		t.Error("Expected no upload for cancelled context")
	}
}

func TestSendDocumentTelegramDown(t *testing.T) {
	messenger, err := NewMessenger(testToken, "http://127.0.0.1:1/bot%s/%s", "42", time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if err := messenger.SendDocument(context.Background(), "a.mkv", strings.NewReader("x")); err == nil {
		t.Error("Expected error when Telegram is unreachable")
	}
}

func TestNewMessengerInvalidTarget(t *testing.T) {
	if _, err := NewMessenger(testToken, "", "not a target", time.Second); err == nil {
		t.Error("Expected error for invalid target")
	}
}

func TestPollTimeoutStaysBelowClientTimeout(t *testing.T) {
	tests := []struct {
		uploadTimeout time.Duration
		want          int
	}{
		{10 * time.Minute, 60},
		{2 * time.Minute, 60},
		{90 * time.Second, 45},
		{30 * time.Second, 15},
		{time.Second, 0},
		{0, 60},
	}

	for _, tt := range tests {
		t.Run(tt.uploadTimeout.String(), func(t *testing.T) {
			messenger, err := NewMessenger(testToken, "", "42", tt.uploadTimeout)
			if err != nil {
				t.Fatal(err)
			}

			got := messenger.PollTimeout()
			if got != tt.want {
				t.Errorf("Expected poll timeout %ds, got %ds", tt.want, got)
			}
			if tt.uploadTimeout > 0 && time.Duration(got)*time.Second >= tt.uploadTimeout {
				t.Errorf("Poll timeout %ds does not fit in client timeout %s", got, tt.uploadTimeout)
			}
		})
	}
}
