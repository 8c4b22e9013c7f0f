package stream

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrTimeout          = errors.New("operation timeout")
	ErrStaleConnection  = errors.New("connection stale (no keepalive)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrUnauthorized     = errors.New("streamer rejected auth token")
	ErrSessionClosed    = errors.New("session closed")
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
)

// Message type names on the wire.
const (
	typeSetup            = "SETUP"
	typeAuth             = "AUTH"
	typeAuthState        = "AUTH_STATE"
	typeKeepalive        = "KEEPALIVE"
	typeError            = "ERROR"
	typeChannelRequest   = "CHANNEL_REQUEST"
	typeChannelOpened    = "CHANNEL_OPENED"
	typeFeedSetup        = "FEED_SETUP"
	typeFeedSubscription = "FEED_SUBSCRIPTION"
	typeFeedData         = "FEED_DATA"
)

const (
	controlChannel = 0
	feedService    = "FEED"

	authStateAuthorized   = "AUTHORIZED"
	authStateUnauthorized = "UNAUTHORIZED"
)

// frame is the minimal header every streamer message carries; the full
// payload is re-decoded into the concrete type once the header is known.
type frame struct {
	Type    string `json:"type"`
	Channel int    `json:"channel"`
}

// setupMessage opens the protocol conversation and exchanges keepalive
// expectations.
type setupMessage struct {
	Type                   string `json:"type"`
	Channel                int    `json:"channel"`
	Version                string `json:"version"`
	KeepaliveTimeout       int    `json:"keepaliveTimeout"`
	AcceptKeepaliveTimeout int    `json:"acceptKeepaliveTimeout"`
}

type authMessage struct {
	Type    string `json:"type"`
	Channel int    `json:"channel"`
	Token   string `json:"token"`
}

type authStateMessage struct {
	Type    string `json:"type"`
	Channel int    `json:"channel"`
	State   string `json:"state"`
}

type keepaliveMessage struct {
	Type    string `json:"type"`
	Channel int    `json:"channel"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Channel int    `json:"channel"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type channelRequestMessage struct {
	Type       string            `json:"type"`
	Channel    int               `json:"channel"`
	Service    string            `json:"service"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type channelOpenedMessage struct {
	Type    string `json:"type"`
	Channel int    `json:"channel"`
	Service string `json:"service"`
}

// feedSetupMessage requests full-object event payloads so events decode
// directly into named fields.
type feedSetupMessage struct {
	Type             string `json:"type"`
	Channel          int    `json:"channel"`
	AcceptDataFormat string `json:"acceptDataFormat"`
}

// SubscriptionEntry is one (event type, symbol) pair in a subscription
// change.
type SubscriptionEntry struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

type feedSubscriptionMessage struct {
	Type    string              `json:"type"`
	Channel int                 `json:"channel"`
	Add     []SubscriptionEntry `json:"add,omitempty"`
	Remove  []SubscriptionEntry `json:"remove,omitempty"`
}

type feedDataMessage struct {
	Type    string            `json:"type"`
	Channel int               `json:"channel"`
	Data    []json.RawMessage `json:"data"`
}

// wireEvent is the full-format event object inside FEED_DATA. Numeric
// fields arrive as JSON numbers; absent fields decode to zero.
type wireEvent struct {
	EventType   string `json:"eventType"`
	EventSymbol string `json:"eventSymbol"`
	Time        int64  `json:"time"`

	// Quote
	BidPrice float64 `json:"bidPrice"`
	AskPrice float64 `json:"askPrice"`
	BidSize  float64 `json:"bidSize"`
	AskSize  float64 `json:"askSize"`

	// Trade
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	DayVolume float64 `json:"dayVolume"`

	// Greeks
	Volatility float64 `json:"volatility"`
	Delta      float64 `json:"delta"`
	Gamma      float64 `json:"gamma"`
	Theta      float64 `json:"theta"`
	Rho        float64 `json:"rho"`
	Vega       float64 `json:"vega"`

	// Profile
	Description     string  `json:"description"`
	TradingStatus   string  `json:"tradingStatus"`
	HighLimitPrice  float64 `json:"highLimitPrice"`
	LowLimitPrice   float64 `json:"lowLimitPrice"`
	High52WeekPrice float64 `json:"high52WeekPrice"`
	Low52WeekPrice  float64 `json:"low52WeekPrice"`

	// Summary
	DayOpenPrice      float64 `json:"dayOpenPrice"`
	DayHighPrice      float64 `json:"dayHighPrice"`
	DayLowPrice       float64 `json:"dayLowPrice"`
	PrevDayClosePrice float64 `json:"prevDayClosePrice"`
	OpenInterest      float64 `json:"openInterest"`
}

// TimestampedMessage wraps raw frame bytes with a receive timestamp.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// ClientConfig configures a streamer transport client.
type ClientConfig struct {
	URL          string        // WebSocket URL from /api-quote-tokens
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		WriteTimeout: 5 * time.Second,
		BufferSize:   10000,
	}
}

// SessionConfig configures the streaming session.
type SessionConfig struct {
	URL   string
	Token string // streamer auth token

	// TokenFunc, when set, is consulted on every connect attempt and
	// overrides Token. Quote tokens expire, so long reconnect cycles
	// should fetch a fresh one rather than replay the original.
	TokenFunc func() string

	ConnectTimeout       time.Duration // dial + channel-open budget
	AuthTimeout          time.Duration // SETUP/AUTH handshake budget
	KeepaliveInterval    time.Duration // outbound KEEPALIVE cadence
	KeepaliveTimeout     time.Duration // max silence before forcing reconnect
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int // 0 = unlimited
	BufferSize           int // transport message buffer
}

// DefaultSessionConfig returns sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ConnectTimeout:     10 * time.Second,
		AuthTimeout:        10 * time.Second,
		KeepaliveInterval:  30 * time.Second,
		KeepaliveTimeout:   60 * time.Second,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		BufferSize:         10000,
	}
}

// State is the session lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateLive
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateLive:
		return "live"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
