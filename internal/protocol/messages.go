package protocol

import "time"

// Message type discriminators used on the wire.
const (
	TypeWelcome = "system:welcome"
	TypeStatus  = "system:status"
	TypePing    = "ping"
	TypePong    = "pong"

	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeStatusQuery = "status"
)

// Inbound is the envelope every client message is decoded into before
// dispatch. Fields beyond Type are optional and handler-specific.
type Inbound struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Event     string `json:"event,omitempty"`
}

// ConnectionInfo describes the server side of a freshly opened session.
type ConnectionInfo struct {
	ServerTime    string `json:"serverTime"`
	WebsocketPort int    `json:"websocketPort"`
}

// SystemStatus carries subsystem health flags embedded in welcome and
// status messages.
type SystemStatus struct {
	RedisConnected bool   `json:"redisConnected"`
	BotStatus      string `json:"botStatus"`
	TraderStatus   string `json:"traderStatus"`
}

type Documentation struct {
	API     string `json:"api"`
	GitHub  string `json:"github"`
	Support string `json:"support"`
}

// WelcomeMessage is the first frame sent on every new session.
type WelcomeMessage struct {
	Type              string            `json:"type"`
	Message           string            `json:"message"`
	ClientID          string            `json:"clientId"`
	Timestamp         int64             `json:"timestamp"`
	ConnectionInfo    ConnectionInfo    `json:"connectionInfo"`
	SystemStatus      SystemStatus      `json:"systemStatus"`
	AvailableEvents   []string          `json:"availableEvents"`
	AvailableCommands map[string]string `json:"availableCommands"`
	Tips              []string          `json:"tips"`
	Documentation     Documentation     `json:"documentation"`
}

type StatusMessage struct {
	Type   string       `json:"type"`
	Status SystemStatus `json:"status"`
}

type PongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// Event is the outbound envelope for broadcast events.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func NewWelcome(clientID string, port int, status SystemStatus, docs Documentation) WelcomeMessage {
	now := time.Now()
	return WelcomeMessage{
		Type:              TypeWelcome,
		Message:           "Welcome to the trading gateway WebSocket server",
		ClientID:          clientID,
		Timestamp:         now.UnixMilli(),
		ConnectionInfo:    ConnectionInfo{ServerTime: now.Format(time.RFC3339), WebsocketPort: port},
		SystemStatus:      status,
		AvailableEvents:   AvailableEvents(),
		AvailableCommands: AvailableCommands(),
		Tips:              Tips(),
		Documentation:     docs,
	}
}

func NewStatus(status SystemStatus) StatusMessage {
	return StatusMessage{Type: TypeStatus, Status: status}
}

func NewPong() PongMessage {
	return PongMessage{Type: TypePong, Timestamp: time.Now().UnixMilli()}
}

func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload, Timestamp: time.Now().UnixMilli()}
}
