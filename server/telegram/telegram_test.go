package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/udsonbraga/safelady/shared"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ClientWrapper {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(shared.TelegramConfig{BotToken: "test-token", BaseURL: server.URL}, false)
}

func TestSendMessagePostsHTMLPayload(t *testing.T) {
	var gotPath string
	var gotParams map[string]interface{}

	client := newTestClient(t, func(rw http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotParams)
		rw.Write([]byte(`{"ok":true}`))
	})

	err := client.SendMessage("ana123", "🚨 ALERTA DE EMERGÊNCIA 🚨")
	assert.NoError(t, err)
	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "ana123", gotParams["chat_id"])
	assert.Equal(t, "HTML", gotParams["parse_mode"])
	assert.Equal(t, "🚨 ALERTA DE EMERGÊNCIA 🚨", gotParams["text"])
}

func TestSendLocationSharesLiveLocation(t *testing.T) {
	var gotParams map[string]interface{}

	client := newTestClient(t, func(rw http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotParams)
		rw.Write([]byte(`{"ok":true}`))
	})

	err := client.SendLocation("ana123", -3.119, -60.0217)
	assert.NoError(t, err)
	assert.Equal(t, float64(LiveLocationPeriodSeconds), gotParams["live_period"])
	assert.Equal(t, -3.119, gotParams["latitude"])
	assert.Equal(t, -60.0217, gotParams["longitude"])
}

func TestSendMessageSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusBadRequest)
		rw.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	})

	err := client.SendMessage("nope", "hello")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendMessageRejectsEmptyChatID(t *testing.T) {
	client := NewClient(shared.TelegramConfig{BotToken: "test-token"}, false)

	assert.Error(t, client.SendMessage("  ", "hello"))
	assert.Error(t, client.SendLocation("", 0, 0))
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewClient(shared.TelegramConfig{}, false).Enabled())
	assert.True(t, NewClient(shared.TelegramConfig{BotToken: "t"}, false).Enabled())
	assert.True(t, NewClient(shared.TelegramConfig{}, true).Enabled())
}
