package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// streamBuffer bounds undelivered snapshots. When the consumer falls behind,
// older snapshots are dropped in favour of fresher prices.
const streamBuffer = 256

// OddsStreamClient handles the WebSocket connection to the odds stream feed.
// Decoded snapshots are delivered on Snapshots; the consumer owns dedup and
// sharp-move detection.
type OddsStreamClient struct {
	streamURL string
	apiKey    string

	mu              sync.RWMutex
	conn            *websocket.Conn
	isConnected     bool
	lastMessageTime time.Time

	snapshots chan OddsData
	logger    *logrus.Logger
}

// ReconnectConfig controls reconnection behavior
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// streamMessage is one frame from the odds stream.
type streamMessage struct {
	Op        string    `json:"op"`
	Heartbeat bool      `json:"heartbeat,omitempty"`
	Odds      []apiOdds `json:"odds,omitempty"`
}

// NewOddsStreamClient creates a new odds stream client
func NewOddsStreamClient(streamURL, apiKey string, logger *logrus.Logger) *OddsStreamClient {
	return &OddsStreamClient{
		streamURL: streamURL,
		apiKey:    apiKey,
		snapshots: make(chan OddsData, streamBuffer),
		logger:    logger,
	}
}

// Snapshots returns the channel carrying decoded odds snapshots. The channel
// closes when the connection is closed.
func (s *OddsStreamClient) Snapshots() <-chan OddsData {
	return s.snapshots
}

// Connect establishes the WebSocket connection and starts the read loop.
func (s *OddsStreamClient) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isConnected {
		return fmt.Errorf("already connected")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	headers := map[string][]string{
		"Authorization": {fmt.Sprintf("Bearer %s", s.apiKey)},
	}

	conn, _, err := dialer.DialContext(ctx, s.streamURL, headers)
	if err != nil {
		return fmt.Errorf("failed to connect to odds stream: %w", err)
	}

	s.conn = conn
	s.isConnected = true
	s.lastMessageTime = time.Now()
	s.logger.WithField("url", s.streamURL).Info("Connected to odds stream")

	go s.readMessages()
	return nil
}

// ConnectWithRetry dials with exponential backoff until connected, the retry
// budget is spent or the context is cancelled.
func (s *OddsStreamClient) ConnectWithRetry(ctx context.Context, cfg ReconnectConfig) error {
	backoff := cfg.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = s.Connect(ctx)
		if lastErr == nil {
			return nil
		}
		s.logger.WithError(lastErr).WithField("attempt", attempt+1).Warn("Odds stream connect failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return fmt.Errorf("odds stream connect retries exhausted: %w", lastErr)
}

// Subscribe requests snapshots for the given fixture IDs.
func (s *OddsStreamClient) Subscribe(fixtureIDs []string) error {
	msg := map[string]interface{}{
		"op":         "subscribe",
		"fixtureIds": fixtureIDs,
		"heartbeat":  true,
	}
	s.logger.WithField("fixtures", len(fixtureIDs)).Info("Subscribing to odds stream")
	return s.sendMessage(msg)
}

// readMessages reads frames until the connection drops, pushing decoded
// snapshots to the channel.
func (s *OddsStreamClient) readMessages() {
	// The read loop is the only producer, so it alone closes the channel.
	defer close(s.snapshots)
	defer s.Close()

	for {
		var msg streamMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.logger.WithError(err).Warn("Odds stream read failed")
			s.mu.Lock()
			s.isConnected = false
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		s.lastMessageTime = time.Now()
		s.mu.Unlock()

		if msg.Heartbeat {
			continue
		}
		for i := range msg.Odds {
			snapshot := OddsData{
				SourceID: msg.Odds[i].FixtureID,
				Home:     msg.Odds[i].Home,
				Draw:     msg.Odds[i].Draw,
				Away:     msg.Odds[i].Away,
				Over25:   msg.Odds[i].Over25,
				Under25:  msg.Odds[i].Under25,
				BTTSYes:  msg.Odds[i].BTTSYes,
				BTTSNo:   msg.Odds[i].BTTSNo,
				TakenAt:  time.Now().UTC(),
			}
			select {
			case s.snapshots <- snapshot:
			default:
				// Buffer full: drop the oldest snapshot for this one.
				select {
				case <-s.snapshots:
				default:
				}
				s.snapshots <- snapshot
			}
		}
	}
}

// sendMessage sends a JSON message to the stream
func (s *OddsStreamClient) sendMessage(msg interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isConnected || s.conn == nil {
		return fmt.Errorf("not connected")
	}
	return s.conn.WriteJSON(msg)
}

// IsConnected returns whether the stream is connected
func (s *OddsStreamClient) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// LastMessageTime returns the time of the last received message
func (s *OddsStreamClient) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// Close closes the stream connection
func (s *OddsStreamClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	s.isConnected = false
	return s.conn.Close()
}

// Ping sends a ping frame to keep the connection alive.
func (s *OddsStreamClient) Ping() error {
	return s.sendMessage(map[string]interface{}{"op": "ping"})
}
