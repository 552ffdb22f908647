package history

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jazbelrose/mylg-chat/tools/errs"
)

func TestMessagesDecodesBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("conversationId"); got != "conv-a" {
			t.Errorf("conversationId %q", got)
		}
		_, _ = w.Write([]byte(`[{"messageId":"s1","createdAt":100},{"messageId":"s2","createdAt":200}]`))
	}))
	defer srv.Close()

	msgs, err := NewClient(srv.URL).Messages(context.Background(), "conv-a")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ServerID != "s1" {
		t.Fatalf("decoded: %+v", msgs)
	}
}

func TestMessagesDecodesItemsWrapper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Items":[{"messageId":"s1","createdAt":100}]}`))
	}))
	defer srv.Close()

	msgs, err := NewClient(srv.URL).Messages(context.Background(), "conv-a")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ServerID != "s1" {
		t.Fatalf("decoded: %+v", msgs)
	}
}

func TestMessagesMapsThrottleToRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Messages(context.Background(), "conv-a")
	if !errs.IsCode(err, errs.CodeRateLimited) {
		t.Fatalf("got %v, want rate-limited", err)
	}
}

func TestMessagesMapsServerErrorToHistoryFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Messages(context.Background(), "conv-a")
	if !errs.IsCode(err, errs.CodeHistoryFailed) {
		t.Fatalf("got %v, want history-failed", err)
	}
}

func TestDeleteMessageHitsExpectedRoute(t *testing.T) {
	var gotMethod, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotQuery = r.Method, r.URL.Path, r.URL.Query().Get("conversationId")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).DeleteMessage(context.Background(), "conv-a", "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/messages/s1" || gotQuery != "conv-a" {
		t.Errorf("%s %s?conversationId=%s", gotMethod, gotPath, gotQuery)
	}
}

func TestEditMessageSendsPatchBody(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method %s", r.Method)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).EditMessage(context.Background(), "conv-a", "s1", "new text", 1234); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if body["text"] != "new text" || body["conversationId"] != "conv-a" || body["editedAt"] != float64(1234) {
		t.Errorf("body: %v", body)
	}
}

func TestDeleteFilesSkipsEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected for an empty url list")
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).DeleteFiles(context.Background(), "conv-a", nil); err != nil {
		t.Fatalf("delete files: %v", err)
	}
}

func TestNonSuccessReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).DeleteMessage(context.Background(), "conv-a", "s1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("got %v", err)
	}
}
