// Package feed maintains the live trade subscription that keeps the tick
// store fed. It connects to the Binance combined trade stream for a set of
// symbols and reconnects on any transport failure; errors never reach the
// caller.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWSURL is the Binance combined-stream endpoint.
const DefaultWSURL = "wss://stream.binance.com:9443/stream"

const (
	// writeWait is the time allowed to write a control message to the peer.
	writeWait = 10 * time.Second

	// pingInterval is how often keep-alive pings are sent.
	pingInterval = 20 * time.Second

	// pongTimeout is how long after a ping the peer's pong may arrive.
	pongTimeout = 20 * time.Second

	// reconnectDelay is the fixed pause before any reconnect attempt.
	reconnectDelay = time.Second

	handshakeTimeout = 15 * time.Second
)

// Sink receives every successfully parsed tick. *ticks.Store satisfies it.
type Sink interface {
	Append(symbol string, ts time.Time, price, qty float64)
}

// Stream is a resilient subscription to the trade feed for a fixed symbol
// set. Construct one per pair of interest and drive it with Run or Start.
type Stream struct {
	wsURL   string
	symbols []string
	sink    Sink
	logger  *slog.Logger
}

// NewStream creates a Stream that will subscribe to the given symbols
// (lowercase Binance notation, e.g. "btcusdt") and append parsed trades to
// the sink.
func NewStream(wsURL string, symbols []string, sink Sink, logger *slog.Logger) *Stream {
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	return &Stream{
		wsURL:   wsURL,
		symbols: symbols,
		sink:    sink,
		logger:  logger.With(slog.String("component", "feed")),
	}
}

// Handle controls a stream started in the background.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Done is closed once the background loop has fully exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Stop breaks the reconnect loop, closes the connection, and waits for the
// loop to exit. Ticks appended before the stop remain valid in the sink.
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// Start launches Run in the background and returns immediately with a
// handle the caller can use to observe and stop the stream.
func (s *Stream) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		_ = s.Run(ctx)
	}()
	return h
}

// Run connects and consumes trade events until ctx is cancelled. Any
// transport error tears the connection down and triggers a reconnect after a
// fixed one-second delay; there is no retry limit.
func (s *Stream) Run(ctx context.Context) error {
	url := s.streamURL()
	s.logger.Info("starting trade stream",
		slog.String("url", url),
		slog.Int("symbols", len(s.symbols)),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.runConnection(ctx, url)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("trade stream disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", reconnectDelay),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// streamURL builds the combined-stream URL, e.g.
// wss://.../stream?streams=btcusdt@trade/ethusdt@trade.
func (s *Stream) streamURL() string {
	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = strings.ToLower(sym) + "@trade"
	}
	return s.wsURL + "?streams=" + strings.Join(streams, "/")
}

// runConnection dials the endpoint and reads messages until the connection
// fails or ctx is cancelled.
func (s *Stream) runConnection(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	s.logger.Info("trade stream connected")

	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	// Unblock the read loop when ctx is cancelled.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
		return nil
	})

	// Keep-alive pings.
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleMessage(message)
	}
}

// combinedFrame is the envelope of the combined-stream endpoint.
type combinedFrame struct {
	Stream string     `json:"stream"`
	Data   tradeEvent `json:"data"`
}

// tradeEvent is a single trade payload. Price and quantity arrive as
// decimal strings.
type tradeEvent struct {
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Qty       string `json:"q"`
}

// handleMessage parses one frame and forwards it to the sink. Malformed or
// incomplete frames are dropped without surfacing an error.
func (s *Stream) handleMessage(raw []byte) {
	var frame combinedFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.logger.Debug("dropping unparseable frame", slog.String("error", err.Error()))
		return
	}

	ev := frame.Data
	if ev.EventTime == 0 || ev.Symbol == "" {
		return
	}

	price, err := strconv.ParseFloat(ev.Price, 64)
	if err != nil {
		s.logger.Debug("dropping frame with bad price", slog.String("price", ev.Price))
		return
	}
	qty, err := strconv.ParseFloat(ev.Qty, 64)
	if err != nil {
		s.logger.Debug("dropping frame with bad qty", slog.String("qty", ev.Qty))
		return
	}

	s.sink.Append(strings.ToLower(ev.Symbol), time.UnixMilli(ev.EventTime).UTC(), price, qty)
}
