package notify

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTelegramSinkSendPostsChatIDAndText(t *testing.T) {
	var gotChatID, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotChatID = r.FormValue("chat_id")
		gotText = r.FormValue("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewTelegramSink("bot-token", "12345")
	sink.apiBase = server.URL

	if err := sink.Send("plan 24sk01 purchased in gra"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if gotChatID != "12345" {
		t.Errorf("expected chat_id 12345, got %s", gotChatID)
	}
	if gotText != "plan 24sk01 purchased in gra" {
		t.Errorf("unexpected text: %s", gotText)
	}
}

func TestTelegramSinkSendNonOKStatusReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "bot was blocked by the user")
	}))
	defer server.Close()

	sink := NewTelegramSink("bot-token", "12345")
	sink.apiBase = server.URL

	if err := sink.Send("hi"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
