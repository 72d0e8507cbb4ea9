package protocol

// Static catalog advertised in the welcome message.

// EventSystemStatus and friends are the event names a client may subscribe
// to. Events under the system: prefix are delivered to every session even
// without an explicit subscription.
const (
	EventSystemStatus  = "system:status"
	EventBotStatus     = "bot:status"
	EventTraderStatus  = "trader:status"
	EventTradeExecuted = "trade:executed"
	EventPriceUpdate   = "price:update"
)

func AvailableEvents() []string {
	return []string{
		EventSystemStatus,
		EventBotStatus,
		EventTraderStatus,
		EventTradeExecuted,
		EventPriceUpdate,
	}
}

func AvailableCommands() map[string]string {
	return map[string]string{
		TypePing:        "Check that the connection is alive, the server replies with pong",
		TypeStatusQuery: "Request a fresh system status snapshot",
		TypeSubscribe:   "Subscribe to an event stream, pass the event name in the event field",
		TypeUnsubscribe: "Stop receiving an event stream",
	}
}

func Tips() []string {
	return []string{
		"Reply to server pings within the grace window or the session is closed with code 1001",
		"Send {\"type\":\"pong\",\"timestamp\":<ms>} if your client cannot answer protocol-level pings",
		"Subscribe to trade:executed to follow fills in real time",
		"All messages are JSON text frames with a type field",
	}
}
