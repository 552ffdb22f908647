package model

import "encoding/json"

// Outbound frame constructors. Every create carries the optimisticId the
// server is expected to echo back so the pending record can be promoted.

func EncodeCreate(m Message) ([]byte, error) {
	m = m.Clone()
	m.Pending = false // local bookkeeping, not wire state
	return json.Marshal(struct {
		Action string `json:"action"`
		Message
	}{Action: ActionSendMessage, Message: m})
}

func EncodeDelete(conversationID, serverID, localID string) ([]byte, error) {
	return json.Marshal(struct {
		Action string `json:"action"`
		DeleteEvent
	}{Action: ActionDeleteMessage, DeleteEvent: DeleteEvent{
		ConversationID: conversationID,
		ServerID:       serverID,
		LocalID:        localID,
	}})
}

func EncodeEdit(conversationID, serverID, text string, editedAt int64) ([]byte, error) {
	return json.Marshal(struct {
		Action string `json:"action"`
		EditEvent
	}{Action: ActionEditMessage, EditEvent: EditEvent{
		ConversationID: conversationID,
		ServerID:       serverID,
		Text:           text,
		EditedAt:       editedAt,
	}})
}

func EncodeReact(conversationID, messageID, symbol, userID string) ([]byte, error) {
	return json.Marshal(struct {
		Action         string `json:"action"`
		ConversationID string `json:"conversationId"`
		MessageID      string `json:"messageId"`
		Symbol         string `json:"emoji"`
		UserID         string `json:"userId"`
	}{ActionReaction, conversationID, messageID, symbol, userID})
}

func EncodeSetActiveConversation(conversationID string) ([]byte, error) {
	return json.Marshal(struct {
		Action         string `json:"action"`
		ConversationID string `json:"conversationId"`
	}{ActionSetActiveConversation, conversationID})
}

func EncodePresencePing() ([]byte, error) {
	return json.Marshal(struct {
		Action string `json:"action"`
	}{ActionPresencePing})
}
