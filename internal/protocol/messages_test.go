package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWelcome(t *testing.T) {
	st := SystemStatus{RedisConnected: true, BotStatus: "running", TraderStatus: "paused"}
	docs := Documentation{API: "https://a", GitHub: "https://g", Support: "https://s"}

	w := NewWelcome("client-1", 2808, st, docs)

	assert.Equal(t, TypeWelcome, w.Type)
	assert.Equal(t, "client-1", w.ClientID)
	assert.Equal(t, 2808, w.ConnectionInfo.WebsocketPort)
	assert.NotEmpty(t, w.ConnectionInfo.ServerTime)
	assert.Equal(t, st, w.SystemStatus)
	assert.Equal(t, AvailableEvents(), w.AvailableEvents)
	assert.NotZero(t, w.Timestamp)
}

// The wire field names are a contract with existing clients; spot-check the
// nested keys a decoder depends on.
func TestWelcomeWireFieldNames(t *testing.T) {
	w := NewWelcome("client-1", 2808, SystemStatus{}, Documentation{API: "https://a"})
	data, err := json.Marshal(w)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "system:welcome", raw["type"])
	assert.Equal(t, "client-1", raw["clientId"])

	connInfo, ok := raw["connectionInfo"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, connInfo, "serverTime")
	assert.EqualValues(t, 2808, connInfo["websocketPort"])

	sysStatus, ok := raw["systemStatus"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, sysStatus, "redisConnected")
	assert.Contains(t, sysStatus, "botStatus")
	assert.Contains(t, sysStatus, "traderStatus")

	docs, ok := raw["documentation"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "https://a", docs["api"])
}

func TestCatalogCoversAdvertisedCommands(t *testing.T) {
	commands := AvailableCommands()
	for _, cmd := range []string{TypePing, TypeStatusQuery, TypeSubscribe, TypeUnsubscribe} {
		assert.Contains(t, commands, cmd)
		assert.NotEmpty(t, commands[cmd])
	}
	assert.NotEmpty(t, Tips())
	assert.NotEmpty(t, AvailableEvents())
}

func TestInboundDecodesLooseMessages(t *testing.T) {
	var msg Inbound
	require.NoError(t, json.Unmarshal([]byte(`{"type":"pong","timestamp":1712345678000,"extra":"ignored"}`), &msg))
	assert.Equal(t, TypePong, msg.Type)
	assert.EqualValues(t, 1712345678000, msg.Timestamp)
}
