package trello

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWebhookEvent(t *testing.T) {
	t.Run("action completa", func(t *testing.T) {
		body := []byte(`{
			"action": {
				"type": "updateCard",
				"data": {
					"card": {"id": "c1"},
					"board": {"id": "B-long", "shortLink": "abc"}
				}
			},
			"model": {"id": "B-long"},
			"webhook": {"id": "wh-1", "idModel": "B-long", "callbackURL": "https://x/cb"}
		}`)
		event, err := DecodeWebhookEvent(body)
		require.NoError(t, err)
		assert.Equal(t, "wh-1", event.WebhookID)
		assert.Equal(t, "updateCard", event.ActionType)
		assert.Equal(t, "c1", event.CardID)
		assert.Equal(t, "B-long", event.BoardID)
		assert.Equal(t, "abc", event.BoardShortLink)
	})

	t.Run("board vem do model", func(t *testing.T) {
		body := []byte(`{"action": {"type": "deleteCard", "data": {"card": {"id": "c9"}}}, "model": {"id": "B2", "shortLink": "xyz"}}`)
		event, err := DecodeWebhookEvent(body)
		require.NoError(t, err)
		assert.Equal(t, "B2", event.BoardID)
		assert.Equal(t, "xyz", event.BoardShortLink)
		assert.Empty(t, event.WebhookID)
	})

	t.Run("json inválido", func(t *testing.T) {
		_, err := DecodeWebhookEvent([]byte(`{`))
		assert.Error(t, err)
	})
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"action":{"type":"updateCard"}}`)
	callback := "https://api.example.com/webhook/card-event"
	sig := Sign("s3cret", callback, body)

	assert.True(t, VerifySignature("s3cret", callback, body, sig))
	assert.False(t, VerifySignature("s3cret", callback, []byte(`{}`), sig))
	assert.False(t, VerifySignature("other", callback, body, sig))
	assert.False(t, VerifySignature("s3cret", callback+"/", body, sig))
	assert.False(t, VerifySignature("", callback, body, sig))
	assert.False(t, VerifySignature("s3cret", callback, body, ""))
}
