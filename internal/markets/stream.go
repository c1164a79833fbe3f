package markets

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"PolyPulse/internal/domain/models"
	"PolyPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream tails the CLOB market websocket for live price changes on the
// tracked assets.
type Stream struct {
	url            string
	assetIDs       []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	// writeMu serializes control and subscribe writes; gorilla conns
	// allow at most one concurrent writer.
	writeMu   sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// NewStream creates a market price stream.
func NewStream(url string, assetIDs []string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) *Stream {
	return &Stream{
		url:            url,
		assetIDs:       assetIDs,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// Connect establishes the websocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	s.log.Info("market stream connected", logger.String("url", s.url))
	return nil
}

// Subscribe subscribes to the market channel for the configured assets.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("stream not connected")
	}
	msg := map[string]interface{}{
		"type":       "market",
		"assets_ids": s.assetIDs,
	}
	s.writeMu.Lock()
	err := s.conn.WriteJSON(msg)
	s.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.log.Info("subscribed to market channel", logger.Int("assets", len(s.assetIDs)))
	return nil
}

type wsPriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Side    string `json:"side"`
}

type wsEvent struct {
	EventType    string          `json:"event_type"`
	AssetID      string          `json:"asset_id"`
	Price        string          `json:"price"`
	PriceChanges []wsPriceChange `json:"price_changes"`
}

// Read streams price updates and errors. The update channel closes when
// the read loop ends; a read error also lands on the error channel so
// the caller can reconnect. The keepalive ping loop lives exactly as
// long as the read loop, so repeated Read calls across reconnects never
// accumulate pingers.
func (s *Stream) Read(ctx context.Context) (<-chan models.PriceUpdate, <-chan error) {
	updates := make(chan models.PriceUpdate, 256)
	errs := make(chan error, 1)
	done := make(chan struct{})
	conn := s.conn
	if conn == nil {
		errs <- fmt.Errorf("stream not connected")
		close(updates)
		close(errs)
		return updates, errs
	}

	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				s.writeMu.Lock()
				_ = conn.WriteMessage(websocket.PingMessage, nil)
				s.writeMu.Unlock()
			}
		}
	}()

	go func() {
		defer close(done)
		defer close(updates)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("stream read: %w", err)
					return
				}
				for _, u := range decodeEvents(b) {
					select {
					case updates <- u:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return updates, errs
}

// decodeEvents tolerates both frame shapes the CLOB sends: a single
// event object or an array of them.
func decodeEvents(b []byte) []models.PriceUpdate {
	var events []wsEvent
	if err := json.Unmarshal(b, &events); err != nil {
		var single wsEvent
		if err := json.Unmarshal(b, &single); err != nil {
			return nil
		}
		events = []wsEvent{single}
	}

	var out []models.PriceUpdate
	for _, ev := range events {
		switch ev.EventType {
		case "price_change":
			for _, pc := range ev.PriceChanges {
				out = append(out, models.PriceUpdate{
					AssetID: pc.AssetID,
					Price:   toFloat(pc.Price),
					Side:    pc.Side,
				})
			}
		case "last_trade_price":
			out = append(out, models.PriceUpdate{
				AssetID: ev.AssetID,
				Price:   toFloat(ev.Price),
			})
		}
	}
	return out
}

// Reconnect closes and re-establishes the connection, then resubscribes.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the websocket connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates connection status.
func (s *Stream) IsConnected() bool { return s.connected }
