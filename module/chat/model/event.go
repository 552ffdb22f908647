package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jazbelrose/mylg-chat/tools/decode"
)

// Wire action vocabulary. Push frames are JSON objects distinguished by an
// `action` string field.
const (
	ActionSendMessage   = "sendMessage"
	ActionNewMessage    = "newMessage" // server echo form of a create
	ActionDeleteMessage = "deleteMessage"
	ActionEditMessage   = "editMessage"
	ActionReaction      = "reaction"
	ActionReactionAlias = "toggleReaction" // legacy clients still emit this

	ActionSetActiveConversation = "setActiveConversation"
	ActionPresencePing          = "presencePing"
)

// ErrUnknownAction marks frames that are not conversation events (presence
// acks, unrelated broadcasts). Callers should skip those frames, not fail.
var ErrUnknownAction = errors.New("unknown action")

type EventKind int

const (
	KindCreate EventKind = iota + 1
	KindDelete
	KindEdit
	KindReact
)

func (k EventKind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindDelete:
		return "delete"
	case KindEdit:
		return "edit"
	case KindReact:
		return "react"
	default:
		return "unknown"
	}
}

// Event is the closed set of deltas the push channel can deliver. The router
// dispatches on Kind, never on ad hoc field-presence checks.
type Event interface {
	Kind() EventKind
	Conversation() string
}

type CreateEvent struct {
	Msg Message
}

func (e CreateEvent) Kind() EventKind      { return KindCreate }
func (e CreateEvent) Conversation() string { return e.Msg.ConversationID }

type DeleteEvent struct {
	ConversationID string `json:"conversationId"`
	ServerID       string `json:"messageId"`
	LocalID        string `json:"optimisticId"`
}

func (e DeleteEvent) Kind() EventKind      { return KindDelete }
func (e DeleteEvent) Conversation() string { return e.ConversationID }

type EditEvent struct {
	ConversationID string `json:"conversationId"`
	ServerID       string `json:"messageId"`
	Text           string `json:"text"`
	EditedAt       int64  `json:"editedAt"`
}

func (e EditEvent) Kind() EventKind      { return KindEdit }
func (e EditEvent) Conversation() string { return e.ConversationID }

type ReactEvent struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Symbol         string `json:"emoji"`
	UserID         string `json:"userId"`
	// Reactions, when present, is the server's authoritative echo of the
	// whole reaction map and replaces the record's map wholesale.
	Reactions map[string][]string `json:"reactions"`
}

func (e ReactEvent) Kind() EventKind      { return KindReact }
func (e ReactEvent) Conversation() string { return e.ConversationID }

// ParseEvent turns a raw push frame into a typed event. Frames whose action
// is not part of the event vocabulary yield ErrUnknownAction.
func ParseEvent(raw []byte) (Event, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}

	action, _ := m["action"].(string)
	switch action {
	case ActionSendMessage, ActionNewMessage:
		msg, err := decode.Map[Message](m)
		if err != nil {
			return nil, fmt.Errorf("decode create: %w", err)
		}
		return CreateEvent{Msg: *msg}, nil
	case ActionDeleteMessage:
		evt, err := decode.Map[DeleteEvent](m)
		if err != nil {
			return nil, fmt.Errorf("decode delete: %w", err)
		}
		return *evt, nil
	case ActionEditMessage:
		evt, err := decode.Map[EditEvent](m)
		if err != nil {
			return nil, fmt.Errorf("decode edit: %w", err)
		}
		return *evt, nil
	case ActionReaction, ActionReactionAlias:
		evt, err := decode.Map[ReactEvent](m)
		if err != nil {
			return nil, fmt.Errorf("decode reaction: %w", err)
		}
		return *evt, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}
