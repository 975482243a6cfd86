package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPublishReport(t *testing.T) {
	t.Parallel()

	var path, chatID, text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = r.ParseForm()
		chatID = r.PostForm.Get("chat_id")
		text = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier("123:abc", "-100200").WithAPIBase(srv.URL)
	if err := n.PublishReport(context.Background(), "Broadcast #7: sent 5, failed 0"); err != nil {
		t.Fatalf("PublishReport: %v", err)
	}
	if path != "/bot123:abc/sendMessage" || chatID != "-100200" || text != "Broadcast #7: sent 5, failed 0" {
		t.Fatalf("unexpected request path=%q chat=%q text=%q", path, chatID, text)
	}
}

func TestPublishReportErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewNotifier("t", "c").WithAPIBase(srv.URL).PublishReport(context.Background(), "report")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestPublishReportMisconfigured(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "").PublishReport(context.Background(), "report"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

func TestClip(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ñ", maxMessageRunes+10)
	if got := clip(long); utf8.RuneCountInString(got) != maxMessageRunes {
		t.Fatalf("unexpected clipped length %d", utf8.RuneCountInString(got))
	}
	if clip("short") != "short" {
		t.Fatalf("short text must be kept")
	}
}
