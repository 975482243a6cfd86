package sms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"NewsBroadcaster/internal/domain"
)

func TestIPROGSendSuccess(t *testing.T) {
	t.Parallel()

	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = map[string]string{
			"api_token":    r.PostForm.Get("api_token"),
			"message":      r.PostForm.Get("message"),
			"phone_number": r.PostForm.Get("phone_number"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":200,"message":"queued","data":{"id":4821}}`))
	}))
	defer srv.Close()

	gw := NewIPROG(IPROGConfig{Endpoint: srv.URL, APIToken: "tok"}, srv.Client(), nil)
	res := gw.Send(context.Background(), "639171234567", "Mag-andam sa baha.")
	if !res.Success || res.ID != "4821" {
		t.Fatalf("unexpected result %+v", res)
	}
	if form["api_token"] != "tok" || form["phone_number"] != "639171234567" || form["message"] != "Mag-andam sa baha." {
		t.Fatalf("unexpected form %+v", form)
	}
}

func TestIPROGSendFallbackID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"error":null}`))
	}))
	defer srv.Close()

	gw := NewIPROG(IPROGConfig{Endpoint: srv.URL, APIToken: "tok"}, srv.Client(), nil)
	gw.now = func() time.Time { return time.Unix(1700000000, 0) }

	res := gw.Send(context.Background(), "639171234567", "hi")
	if !res.Success || res.ID != "iprog_1700000000" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestIPROGSendErrorField(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"insufficient credits"}`))
	}))
	defer srv.Close()

	res := NewIPROG(IPROGConfig{Endpoint: srv.URL, APIToken: "tok"}, srv.Client(), nil).
		Send(context.Background(), "639171234567", "hi")
	if res.Success || !strings.Contains(res.Error, "insufficient credits") {
		t.Fatalf("unexpected result %+v", res)
	}
	if !errors.Is(res.Cause, domain.ErrGatewayRejected) {
		t.Fatalf("unexpected cause %v", res.Cause)
	}
}

func TestIPROGSendBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	res := NewIPROG(IPROGConfig{Endpoint: srv.URL, APIToken: "tok"}, srv.Client(), nil).
		Send(context.Background(), "639171234567", "hi")
	if res.Success || !strings.Contains(res.Error, "401") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestIPROGSendUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	res := NewIPROG(IPROGConfig{Endpoint: endpoint, APIToken: "tok", Timeout: time.Second}, nil, nil).
		Send(context.Background(), "639171234567", "hi")
	if res.Success || !errors.Is(res.Cause, domain.ErrUpstreamUnavailable) {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestIPROGRequiresToken(t *testing.T) {
	t.Parallel()

	res := NewIPROG(IPROGConfig{}, nil, nil).Send(context.Background(), "639171234567", "hi")
	if res.Success {
		t.Fatalf("expected failure without token")
	}
}

func TestSemaphoreSendSuccess(t *testing.T) {
	t.Parallel()

	var path, number, sender string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = r.ParseForm()
		number = r.PostForm.Get("number")
		sender = r.PostForm.Get("sendername")
		_, _ = w.Write([]byte(`[{"message_id":91001,"recipient":"09171234567","status":"Pending"}]`))
	}))
	defer srv.Close()

	gw := NewSemaphore(SemaphoreConfig{
		Endpoint:   srv.URL + "/api/v4/messages",
		APIKey:     "key",
		SenderName: "NEWSALERT",
	}, srv.Client(), nil)

	res := gw.Send(context.Background(), "09171234567", "hi")
	if !res.Success || res.ID != "91001" {
		t.Fatalf("unexpected result %+v", res)
	}
	if path != "/api/v4/messages" || number != "09171234567" || sender != "NEWSALERT" {
		t.Fatalf("unexpected request path=%q number=%q sender=%q", path, number, sender)
	}
}

func TestSemaphorePriorityEndpoint(t *testing.T) {
	t.Parallel()

	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`[{"message_id":"abc"}]`))
	}))
	defer srv.Close()

	gw := NewSemaphore(SemaphoreConfig{
		Endpoint:         srv.URL + "/api/v4/messages",
		PriorityEndpoint: srv.URL + "/api/v4/priority",
		APIKey:           "key",
		Priority:         true,
	}, srv.Client(), nil)

	if res := gw.Send(context.Background(), "09171234567", "hi"); !res.Success {
		t.Fatalf("unexpected result %+v", res)
	}
	if path != "/api/v4/priority" {
		t.Fatalf("expected priority endpoint, got %q", path)
	}
}

func TestSemaphoreSendMissingID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"number":["The number format is invalid."]}`))
	}))
	defer srv.Close()

	res := NewSemaphore(SemaphoreConfig{Endpoint: srv.URL, APIKey: "key"}, srv.Client(), nil).
		Send(context.Background(), "09171234567", "hi")
	if res.Success || !strings.Contains(res.Error, "missing message id") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSemaphoreSendNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`[{"message_id":1}]`))
	}))
	defer srv.Close()

	res := NewSemaphore(SemaphoreConfig{Endpoint: srv.URL, APIKey: "key"}, srv.Client(), nil).
		Send(context.Background(), "09171234567", "hi")
	if res.Success {
		t.Fatalf("only HTTP 200 counts as success, got %+v", res)
	}
}
