package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseEventCreate(t *testing.T) {
	for _, action := range []string{ActionSendMessage, ActionNewMessage} {
		raw, _ := json.Marshal(map[string]any{
			"action":         action,
			"conversationId": "conv-a",
			"messageId":      "s1",
			"optimisticId":   "l1",
			"text":           "hi",
			"createdAt":      1700000000000,
		})
		evt, err := ParseEvent(raw)
		if err != nil {
			t.Fatalf("%s: %v", action, err)
		}
		ce, ok := evt.(CreateEvent)
		if !ok {
			t.Fatalf("%s: got %T", action, evt)
		}
		if ce.Msg.ServerID != "s1" || ce.Msg.LocalID != "l1" || ce.Msg.CreatedAt != 1700000000000 {
			t.Errorf("%s: decoded %+v", action, ce.Msg)
		}
		if ce.Conversation() != "conv-a" {
			t.Errorf("%s: conversation %q", action, ce.Conversation())
		}
	}
}

func TestParseEventReactionAlias(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"action":         ActionReactionAlias,
		"conversationId": "conv-a",
		"messageId":      "s1",
		"emoji":          "👍",
		"userId":         "u1",
	})
	evt, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	re, ok := evt.(ReactEvent)
	if !ok || re.Symbol != "👍" || re.UserID != "u1" {
		t.Fatalf("got %#v", evt)
	}
}

func TestParseEventUnknownAction(t *testing.T) {
	_, err := ParseEvent([]byte(`{"action":"presenceAck"}`))
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("got %v, want ErrUnknownAction", err)
	}
}

func TestParseEventBadJSON(t *testing.T) {
	if _, err := ParseEvent([]byte(`{`)); err == nil {
		t.Fatal("malformed frame accepted")
	}
}

func TestEncodeCreateCarriesActionAndLocalID(t *testing.T) {
	raw, err := EncodeCreate(Message{
		LocalID:        "l1",
		ConversationID: "conv-a",
		Text:           "hi",
		CreatedAt:      100,
		Pending:        true,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["action"] != ActionSendMessage || m["optimisticId"] != "l1" {
		t.Errorf("frame: %v", m)
	}
	if _, ok := m["pending"]; ok {
		t.Error("pending flag leaked onto the wire")
	}
}

func TestToggleReactionAddAndRemove(t *testing.T) {
	m := Message{ServerID: "s1"}
	m.ToggleReaction("👍", "u1")
	m.ToggleReaction("👍", "u2")
	if got := m.Reactions["👍"]; len(got) != 2 {
		t.Fatalf("reactions: %v", got)
	}
	m.ToggleReaction("👍", "u1")
	if got := m.Reactions["👍"]; len(got) != 1 || got[0] != "u2" {
		t.Fatalf("toggle remove failed: %v", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Message{
		ServerID:  "s1",
		File:      &Attachment{FileName: "a.png"},
		Reactions: map[string][]string{"👍": {"u1"}},
	}
	cp := orig.Clone()
	cp.File.FileName = "b.png"
	cp.Reactions["👍"][0] = "u2"
	if orig.File.FileName != "a.png" || orig.Reactions["👍"][0] != "u1" {
		t.Fatal("clone shares memory with the original")
	}
}
