package lark

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventEnvelopeVerificationHandshake(t *testing.T) {
	var env EventEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{"challenge":"abc","token":"tok","type":"url_verification"}`), &env))

	require.True(t, env.IsVerification())
	require.Equal(t, "tok", env.VerificationToken())
	require.Equal(t, "", env.EventType())
	require.Nil(t, env.ReceivedMessage())
}

func TestEventEnvelopeMessageReceive(t *testing.T) {
	body := `{
		"schema":"2.0",
		"header":{"event_id":"ev1","token":"tok","event_type":"im.message.receive_v1"},
		"event":{"message":{"message_id":"om_1","chat_id":"oc_1","chat_type":"group","message_type":"text","content":"{\"text\":\"@_user_1 摸鱼\"}"}}
	}`

	var env EventEnvelope
	require.NoError(t, json.Unmarshal([]byte(body), &env))

	require.False(t, env.IsVerification())
	require.Equal(t, "tok", env.VerificationToken())
	require.Equal(t, EventTypeMessageReceive, env.EventType())

	msg := env.ReceivedMessage()
	require.NotNil(t, msg)
	require.Equal(t, "om_1", msg.MessageID)

	content, err := ParseTextContent(msg.Content)
	require.NoError(t, err)
	require.Equal(t, "@_user_1 摸鱼", content.Text)
}

func TestParseTextContentInvalid(t *testing.T) {
	_, err := ParseTextContent("not json")
	require.Error(t, err)
}
