package chatgw

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordedRequest struct {
	path string
	auth string
	body []byte
}

func newTestServer(t *testing.T, handler func(n int, w http.ResponseWriter)) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
		n := len(reqs)
		mu.Unlock()
		handler(n, w)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func TestSendToGroupsPostsOnePerGroup(t *testing.T) {
	srv, recorded := newTestServer(t, func(int, http.ResponseWriter) {})
	g := New(srv.URL, "secret", WithTimeout(2*time.Second))

	g.SendToGroups([]string{"g1", "g2"}, "[MC] Steve: hello")

	reqs := recorded()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	for i, want := range []string{"g1", "g2"} {
		if reqs[i].path != "/send_group_msg" {
			t.Fatalf("path = %q", reqs[i].path)
		}
		if reqs[i].auth != "Bearer secret" {
			t.Fatalf("auth = %q", reqs[i].auth)
		}
		var msg groupMessage
		if err := json.Unmarshal(reqs[i].body, &msg); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if msg.GroupID != want || msg.Message != "[MC] Steve: hello" {
			t.Fatalf("payload = %+v", msg)
		}
	}
}

func TestPostRetriesServerErrors(t *testing.T) {
	srv, recorded := newTestServer(t, func(n int, w http.ResponseWriter) {
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
	g := New(srv.URL, "", WithTimeout(2*time.Second), WithRetry(3))

	if err := g.SendPrivate(context.Background(), "u1", "whisper"); err != nil {
		t.Fatalf("SendPrivate: %v", err)
	}
	if got := len(recorded()); got != 2 {
		t.Fatalf("requests = %d, want 2 (one retry)", got)
	}
}

func TestPostDoesNotRetryClientErrors(t *testing.T) {
	srv, recorded := newTestServer(t, func(n int, w http.ResponseWriter) {
		w.WriteHeader(http.StatusForbidden)
	})
	g := New(srv.URL, "", WithTimeout(2*time.Second), WithRetry(3))

	if err := g.SendPrivate(context.Background(), "u1", "whisper"); err == nil {
		t.Fatalf("expected error on 403")
	}
	if got := len(recorded()); got != 1 {
		t.Fatalf("requests = %d, want 1 (no retry)", got)
	}
}
