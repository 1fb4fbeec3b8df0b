package kalshi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// StreamState represents the stream connection state.
type StreamState int32

const (
	StreamDisconnected StreamState = iota
	StreamConnecting
	StreamConnected
	StreamReconnecting
	StreamClosed
)

func (s StreamState) String() string {
	switch s {
	case StreamDisconnected:
		return "disconnected"
	case StreamConnecting:
		return "connecting"
	case StreamConnected:
		return "connected"
	case StreamReconnecting:
		return "reconnecting"
	case StreamClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TickerUpdate is one price tick from the market data stream. Prices
// are in cents.
type TickerUpdate struct {
	MarketTicker string `json:"market_ticker"`
	Price        int    `json:"price"`
	YesBid       int    `json:"yes_bid"`
	YesAsk       int    `json:"yes_ask"`
	Volume       int64  `json:"volume"`
	OpenInterest int64  `json:"open_interest"`
	TS           int64  `json:"ts"`
}

// NoAsk returns the NO ask implied by the YES bid, or 0 when there is
// no bid to cross.
func (t *TickerUpdate) NoAsk() int {
	if t.YesBid <= 0 {
		return 0
	}
	return 100 - t.YesBid
}

// StreamHandlers contains callbacks for stream events.
type StreamHandlers struct {
	OnTicker     func(TickerUpdate)
	OnConnect    func()
	OnDisconnect func(err error)
	OnError      func(err error)
}

// StreamConfig holds stream client configuration.
type StreamConfig struct {
	// URL is the stream endpoint; empty means DefaultWSSURL.
	URL string

	// Signer authenticates the connection. Required: the stream
	// rejects unsigned connections.
	Signer *Signer

	Handlers StreamHandlers

	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
}

// StreamClient maintains a ticker subscription over the market data
// stream, reconnecting with backoff and resubscribing after drops.
type StreamClient struct {
	cfg StreamConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	state  int32 // atomic StreamState

	closeCh   chan struct{}
	closeOnce sync.Once

	subsMu sync.Mutex
	subs   map[string]bool
	nextID int

	reconnectAttempts int
}

// NewStreamClient creates a stream client. Connect starts it.
func NewStreamClient(cfg StreamConfig) (*StreamClient, error) {
	if cfg.Signer == nil {
		return nil, errors.New("kalshi: stream requires a signer")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultWSSURL
	}
	if cfg.ReconnectMinDelay == 0 {
		cfg.ReconnectMinDelay = 1 * time.Second
	}
	if cfg.ReconnectMaxDelay == 0 {
		cfg.ReconnectMaxDelay = 30 * time.Second
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	return &StreamClient{
		cfg:     cfg,
		closeCh: make(chan struct{}),
		subs:    make(map[string]bool),
	}, nil
}

// Connect dials the stream with signed headers and starts the read and
// heartbeat loops.
func (s *StreamClient) Connect(ctx context.Context) error {
	if s.getState() == StreamClosed {
		return errors.New("stream client is closed")
	}
	s.setState(StreamConnecting)

	headers, err := s.cfg.Signer.Headers("GET", "/trade-api/ws/v2", time.Now())
	if err != nil {
		s.setState(StreamDisconnected)
		return err
	}
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, h)
	if err != nil {
		s.setState(StreamDisconnected)
		return fmt.Errorf("dial stream: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	s.setState(StreamConnected)
	s.reconnectAttempts = 0

	if s.cfg.Handlers.OnConnect != nil {
		s.cfg.Handlers.OnConnect()
	}

	go s.readLoop(conn)
	go s.heartbeatLoop(conn)

	s.resubscribe()
	return nil
}

// Close shuts the stream down for good.
func (s *StreamClient) Close() error {
	s.closeOnce.Do(func() {
		s.setState(StreamClosed)
		close(s.closeCh)

		s.connMu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.connMu.Unlock()
	})
	return nil
}

// State returns the current connection state.
func (s *StreamClient) State() StreamState {
	return s.getState()
}

// Subscribe adds tickers to the ticker channel subscription. The set
// survives reconnects.
func (s *StreamClient) Subscribe(tickers ...string) error {
	if len(tickers) == 0 {
		return nil
	}

	s.subsMu.Lock()
	for _, t := range tickers {
		s.subs[t] = true
	}
	s.subsMu.Unlock()

	if s.getState() != StreamConnected {
		return nil // queued for the next connect
	}
	return s.sendSubscribe(tickers)
}

// Unsubscribe drops tickers from the subscription set. Active server
// subscriptions lapse on the next reconnect.
func (s *StreamClient) Unsubscribe(tickers ...string) {
	s.subsMu.Lock()
	for _, t := range tickers {
		delete(s.subs, t)
	}
	s.subsMu.Unlock()
}

// --- Internal methods ---

type streamCommand struct {
	ID     int          `json:"id"`
	Cmd    string       `json:"cmd"`
	Params streamParams `json:"params"`
}

type streamParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers,omitempty"`
}

type streamMessage struct {
	Type string          `json:"type"`
	ID   int             `json:"id,omitempty"`
	Msg  json.RawMessage `json:"msg,omitempty"`
}

type streamError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (s *StreamClient) getState() StreamState {
	return StreamState(atomic.LoadInt32(&s.state))
}

func (s *StreamClient) setState(state StreamState) {
	atomic.StoreInt32(&s.state, int32(state))
}

func (s *StreamClient) sendSubscribe(tickers []string) error {
	s.subsMu.Lock()
	s.nextID++
	cmd := streamCommand{
		ID:  s.nextID,
		Cmd: "subscribe",
		Params: streamParams{
			Channels:      []string{"ticker"},
			MarketTickers: tickers,
		},
	}
	s.subsMu.Unlock()

	return s.writeJSON(cmd)
}

func (s *StreamClient) writeJSON(v interface{}) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return errors.New("not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return s.conn.WriteJSON(v)
}

func (s *StreamClient) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleDisconnect(err)
			return
		}
		s.handleMessage(data)
	}
}

func (s *StreamClient) handleMessage(data []byte) {
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "ticker":
		if s.cfg.Handlers.OnTicker == nil {
			return
		}
		var update TickerUpdate
		if json.Unmarshal(msg.Msg, &update) == nil {
			s.cfg.Handlers.OnTicker(update)
		}

	case "error":
		if s.cfg.Handlers.OnError == nil {
			return
		}
		var serr streamError
		if json.Unmarshal(msg.Msg, &serr) == nil {
			s.cfg.Handlers.OnError(fmt.Errorf("stream error %d: %s", serr.Code, serr.Msg))
		}
	}
}

func (s *StreamClient) heartbeatLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeCh:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return // read loop sees the drop and reconnects
			}
		}
	}
}

func (s *StreamClient) handleDisconnect(err error) {
	if s.getState() == StreamClosed {
		return
	}
	s.setState(StreamDisconnected)

	if s.cfg.Handlers.OnDisconnect != nil {
		s.cfg.Handlers.OnDisconnect(err)
	}
	go s.reconnect()
}

func (s *StreamClient) reconnect() {
	s.setState(StreamReconnecting)

	for {
		if s.getState() == StreamClosed {
			return
		}
		s.reconnectAttempts++

		delay := s.cfg.ReconnectMinDelay * time.Duration(1<<uint(s.reconnectAttempts-1))
		if delay > s.cfg.ReconnectMaxDelay || delay <= 0 {
			delay = s.cfg.ReconnectMaxDelay
		}

		select {
		case <-s.closeCh:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := s.Connect(ctx)
		cancel()

		if err == nil {
			return
		}
		if s.cfg.Handlers.OnError != nil {
			s.cfg.Handlers.OnError(fmt.Errorf("reconnect attempt %d: %w", s.reconnectAttempts, err))
		}
	}
}

func (s *StreamClient) resubscribe() {
	s.subsMu.Lock()
	tickers := make([]string, 0, len(s.subs))
	for t := range s.subs {
		tickers = append(tickers, t)
	}
	s.subsMu.Unlock()

	if len(tickers) == 0 {
		return
	}
	if err := s.sendSubscribe(tickers); err != nil && s.cfg.Handlers.OnError != nil {
		s.cfg.Handlers.OnError(fmt.Errorf("resubscribe: %w", err))
	}
}
