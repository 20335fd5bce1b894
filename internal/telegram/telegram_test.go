package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeBotAPI records sent messages and serves a fixed batch of updates once.
type fakeBotAPI struct {
	mu       sync.Mutex
	updates  string
	served   bool
	messages []string
	photos   int
}

func (f *fakeBotAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if f.served {
				w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			f.served = true
			w.Write([]byte(`{"ok":true,"result":` + f.updates + `}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.messages = append(f.messages, body["text"])
			w.Write([]byte(`{"ok":true,"result":{}}`))
		case strings.HasSuffix(r.URL.Path, "/sendPhoto"):
			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, _, err := r.FormFile("photo")
			require.NoError(t, err)
			b, _ := io.ReadAll(file)
			require.Equal(t, "PNGDATA", string(b))
			f.photos++
			w.Write([]byte(`{"ok":true,"result":{}}`))
		default:
			w.Write([]byte(`{"ok":false,"description":"Not Found","error_code":404}`))
		}
	}
}

func (f *fakeBotAPI) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func TestNotify(t *testing.T) {
	api := &fakeBotAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := NewClient("token", "42").WithAPIURL(srv.URL)
	c.Notify(context.Background(), "hello")
	require.Equal(t, []string{"hello"}, api.sent())
}

func TestNotify_Disabled(t *testing.T) {
	c := NewClient("", "")
	c.Notify(context.Background(), "dropped")
	require.Error(t, c.SendPhoto(context.Background(), "", []byte("x")))
}

func TestStartListener_DispatchesAuthorizedCommands(t *testing.T) {
	api := &fakeBotAPI{updates: `[
		{"update_id": 1, "message": {"text": "/list", "chat": {"id": 42}}},
		{"update_id": 2, "message": {"text": "/list", "chat": {"id": 7}, "from": {"username": "mallory"}}},
		{"update_id": 3, "message": {"text": "hello", "chat": {"id": 42}}},
		{"update_id": 4, "message": {"text": "/chart", "chat": {"id": 42}}}
	]`}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	handler := func(_ context.Context, cmd string) Reply {
		mu.Lock()
		got = append(got, cmd)
		mu.Unlock()
		if cmd == "/chart" {
			return Reply{Text: "income", Photo: []byte("PNGDATA")}
		}
		return Reply{Text: "KO"}
	}

	done := make(chan struct{})
	go func() {
		NewClient("token", "42").WithAPIURL(srv.URL).StartListener(ctx, handler)
		close(done)
	}()

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.photos == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"/list", "/chart"}, got)
	require.Equal(t, []string{"KO"}, api.sent())
}
