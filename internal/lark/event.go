// Package lark talks to the Lark open platform: inbound event envelopes,
// interactive cards, request signatures, tenant access tokens, message
// replies and custom-bot webhooks.
package lark

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event and message type tags used by the callback route.
const (
	TypeURLVerification     = "url_verification"
	EventTypeMessageReceive = "im.message.receive_v1"
	MessageTypeText         = "text"
)

// EventEnvelope is the callback body. Verification handshakes carry challenge,
// token and type at the top level; v2 events carry header and event.
type EventEnvelope struct {
	Schema    string       `json:"schema,omitempty"`
	Challenge string       `json:"challenge,omitempty"`
	Token     string       `json:"token,omitempty"`
	Type      string       `json:"type,omitempty"`
	Encrypt   string       `json:"encrypt,omitempty"`
	Header    *EventHeader `json:"header,omitempty"`
	Event     *Event       `json:"event,omitempty"`
}

// EventHeader carries the verification token and the event type of v2 events.
type EventHeader struct {
	EventID    string `json:"event_id"`
	Token      string `json:"token"`
	CreateTime string `json:"create_time"`
	EventType  string `json:"event_type"`
	TenantKey  string `json:"tenant_key"`
	AppID      string `json:"app_id"`
}

// Event is the payload of im.message.receive_v1.
type Event struct {
	Sender  *Sender  `json:"sender,omitempty"`
	Message *Message `json:"message,omitempty"`
}

// Sender identifies who sent the message.
type Sender struct {
	SenderID struct {
		OpenID  string `json:"open_id"`
		UnionID string `json:"union_id"`
		UserID  string `json:"user_id"`
	} `json:"sender_id"`
	SenderType string `json:"sender_type"`
	TenantKey  string `json:"tenant_key"`
}

// Message is the received chat message. Content is a JSON-encoded string.
type Message struct {
	MessageID   string `json:"message_id"`
	RootID      string `json:"root_id,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	CreateTime  string `json:"create_time,omitempty"`
	ChatID      string `json:"chat_id"`
	ChatType    string `json:"chat_type"`
	MessageType string `json:"message_type"`
	Content     string `json:"content"`
}

// VerificationToken returns the shared-secret token, preferring the v2 header.
func (e EventEnvelope) VerificationToken() string {
	if e.Header != nil && e.Header.Token != "" {
		return e.Header.Token
	}
	return e.Token
}

// EventType returns the v2 event type tag, or "" for handshakes.
func (e EventEnvelope) EventType() string {
	if e.Header == nil {
		return ""
	}
	return e.Header.EventType
}

// IsVerification reports whether the envelope is the URL verification handshake.
func (e EventEnvelope) IsVerification() bool {
	return e.Type == TypeURLVerification
}

// ReceivedMessage returns the message of a receive event, or nil.
func (e EventEnvelope) ReceivedMessage() *Message {
	if e.Event == nil {
		return nil
	}
	return e.Event.Message
}

// TextContent is the decoded content of a text message.
type TextContent struct {
	Text string `json:"text"`
}

// ParseTextContent decodes the JSON-encoded content of a text message.
func ParseTextContent(content string) (TextContent, error) {
	var out TextContent
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return TextContent{}, fmt.Errorf("lark: decode text content: %w", err)
	}
	return out, nil
}
