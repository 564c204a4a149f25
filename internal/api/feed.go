package api

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/logging"
	"github.com/nerrad567/telemetry-core/internal/telemetry"
)

// Client actions on the live feed.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionPing        = "ping"
)

// Frame kinds written to live feed clients.
const (
	FrameReading = "reading"
	FrameAlert   = "alert"
	FrameAck     = "ack"
	FramePong    = "pong"
	FrameError   = "error"
)

// feedQueueSize is the number of frames buffered per subscriber. Frames for
// a subscriber whose queue is full are dropped and counted.
const feedQueueSize = 256

// FeedRequest is a message from a live feed client.
//
//	{"action":"subscribe","channels":["readings"],"device_ids":[3,7]}
//
// Empty channels means both channels. Empty device_ids means every device,
// including orphan telemetry that has no device.
type FeedRequest struct {
	Action    string   `json:"action"`
	Channels  []string `json:"channels,omitempty"`
	DeviceIDs []int64  `json:"device_ids,omitempty"`
}

// FeedFilter is the subscription a client currently holds.
type FeedFilter struct {
	Channels  []string `json:"channels"`
	DeviceIDs []int64  `json:"device_ids,omitempty"`
}

// FeedFrame is every message written to a live feed client. Reading and
// alert frames carry the stored event; ack frames carry the filter in force.
type FeedFrame struct {
	Kind   string           `json:"kind"`
	Event  *telemetry.Event `json:"event,omitempty"`
	Filter *FeedFilter      `json:"filter,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Feed pushes newly stored readings and alerts to WebSocket subscribers.
// It implements telemetry.LiveFeed.
type Feed struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	dropped atomic.Uint64

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// NewFeed creates a live feed. Run must be called to close subscribers on shutdown.
func NewFeed(cfg config.WebSocketConfig, logger *logging.Logger) *Feed {
	return &Feed{
		cfg:    cfg,
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every subscriber.
func (f *Feed) Run(ctx context.Context) {
	<-ctx.Done()

	f.mu.Lock()
	subs := slices.Collect(maps.Keys(f.subs))
	clear(f.subs)
	f.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

// Deliver writes event to every subscriber whose filter matches it.
func (f *Feed) Deliver(event telemetry.Event) {
	channel := event.Channel()
	kind := FrameReading
	switch channel {
	case telemetry.ChannelReadings:
	case telemetry.ChannelAlerts:
		kind = FrameAlert
	default:
		f.logger.Warn("live feed ignored event", "type", event.Type)
		return
	}

	data, err := json.Marshal(FeedFrame{Kind: kind, Event: &event})
	if err != nil {
		f.logger.Error("failed to encode feed frame", "error", err)
		return
	}

	f.mu.RLock()
	subs := slices.Collect(maps.Keys(f.subs))
	f.mu.RUnlock()

	for _, s := range subs {
		if !s.wants(channel, event.DeviceID) {
			continue
		}
		if !s.offer(data) {
			f.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of connected clients.
func (f *Feed) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Dropped returns the number of frames discarded for slow or closed subscribers.
func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}

func (f *Feed) attach(s *subscriber) {
	f.mu.Lock()
	f.subs[s] = struct{}{}
	n := len(f.subs)
	f.mu.Unlock()
	f.logger.Debug("live feed subscriber connected", "user_id", s.userID, "subscribers", n)
}

func (f *Feed) detach(s *subscriber) {
	f.mu.Lock()
	delete(f.subs, s)
	n := len(f.subs)
	f.mu.Unlock()
	s.close()
	f.logger.Debug("live feed subscriber disconnected", "user_id", s.userID, "subscribers", n)
}

// subscriber is one WebSocket connection on the feed. Frames are queued on
// out and written by writeLoop; done is closed exactly once on disconnect.
type subscriber struct {
	feed   *Feed
	conn   *websocket.Conn
	userID string
	out    chan []byte
	done   chan struct{}
	once   sync.Once

	mu       sync.RWMutex
	channels map[string]bool
	devices  map[int64]bool
}

func newSubscriber(feed *Feed, conn *websocket.Conn, userID string) *subscriber {
	return &subscriber{
		feed:     feed,
		conn:     conn,
		userID:   userID,
		out:      make(chan []byte, feedQueueSize),
		done:     make(chan struct{}),
		channels: make(map[string]bool),
		devices:  make(map[int64]bool),
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close() //nolint:errcheck // already disconnecting
		}
	})
}

// offer queues a frame without blocking. It reports false when the
// subscriber is gone or its queue is full.
func (s *subscriber) offer(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

// wants reports whether an event on channel from deviceID matches the filter.
func (s *subscriber) wants(channel string, deviceID *int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.channels[channel] {
		return false
	}
	if len(s.devices) == 0 {
		return true
	}
	return deviceID != nil && s.devices[*deviceID]
}

func (s *subscriber) subscribe(channels []string, deviceIDs []int64) FeedFilter {
	if len(channels) == 0 {
		channels = []string{telemetry.ChannelReadings, telemetry.ChannelAlerts}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range channels {
		s.channels[ch] = true
	}
	for _, id := range deviceIDs {
		s.devices[id] = true
	}
	return s.filterLocked()
}

// unsubscribe removes the listed channels and devices. With neither listed
// it clears the whole filter.
func (s *subscriber) unsubscribe(channels []string, deviceIDs []int64) FeedFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(channels) == 0 && len(deviceIDs) == 0 {
		clear(s.channels)
		clear(s.devices)
	}
	for _, ch := range channels {
		delete(s.channels, ch)
	}
	for _, id := range deviceIDs {
		delete(s.devices, id)
	}
	return s.filterLocked()
}

func (s *subscriber) filterLocked() FeedFilter {
	return FeedFilter{
		Channels:  slices.Sorted(maps.Keys(s.channels)),
		DeviceIDs: slices.Sorted(maps.Keys(s.devices)),
	}
}

// reply queues a control frame for this subscriber.
func (s *subscriber) reply(frame FeedFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	s.offer(data)
}

// handle applies one client request.
func (s *subscriber) handle(data []byte) {
	var req FeedRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(FeedFrame{Kind: FrameError, Error: "invalid JSON message"})
		return
	}

	switch req.Action {
	case ActionPing:
		s.reply(FeedFrame{Kind: FramePong})
	case ActionSubscribe:
		for _, ch := range req.Channels {
			if ch != telemetry.ChannelReadings && ch != telemetry.ChannelAlerts {
				s.reply(FeedFrame{Kind: FrameError, Error: "unknown channel: " + ch})
				return
			}
		}
		filter := s.subscribe(req.Channels, req.DeviceIDs)
		s.feed.logger.Info("live feed subscription changed",
			"user_id", s.userID,
			"channels", filter.Channels,
			"device_ids", filter.DeviceIDs,
		)
		s.reply(FeedFrame{Kind: FrameAck, Filter: &filter})
	case ActionUnsubscribe:
		filter := s.unsubscribe(req.Channels, req.DeviceIDs)
		s.reply(FeedFrame{Kind: FrameAck, Filter: &filter})
	default:
		s.reply(FeedFrame{Kind: FrameError, Error: "unknown action: " + req.Action})
	}
}

// readLoop applies client requests until the connection fails.
func (s *subscriber) readLoop(cfg config.WebSocketConfig) {
	defer s.feed.detach(s)

	wait := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	s.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	s.conn.SetReadDeadline(time.Now().Add(wait)) //nolint:errcheck // checked by the next read
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.feed.logger.Warn("live feed read error", "user_id", s.userID, "error", err)
			}
			return
		}
		// Application messages count as liveness too.
		s.conn.SetReadDeadline(time.Now().Add(wait)) //nolint:errcheck // checked by the next read
		s.handle(data)
	}
}

// writeLoop writes queued frames and keepalive pings until the subscriber closes.
func (s *subscriber) writeLoop(cfg config.WebSocketConfig) {
	ping := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer ping.Stop()
	writeWait := time.Duration(cfg.PongTimeout) * time.Second

	write := func(kind int, data []byte) bool {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // checked by the write
		return s.conn.WriteMessage(kind, data) == nil
	}

	for {
		select {
		case <-s.done:
			write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case data := <-s.out:
			if !write(websocket.TextMessage, data) {
				s.close()
				return
			}
		case <-ping.C:
			if !write(websocket.PingMessage, nil) {
				s.close()
				return
			}
		}
	}
}

// upgrader accepts any origin; the CORS middleware has already run.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleFeed upgrades to the live feed. Browsers cannot send an
// Authorization header on the upgrade, so a single-use ticket from
// POST /auth/ws-ticket is passed as ?ticket=. A missing, used or expired
// ticket is a 401.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.tickets.consume(r.URL.Query().Get("ticket"))
	if !ok {
		writeUnauthorized(w)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("live feed upgrade failed", "error", err)
		return
	}

	sub := newSubscriber(s.feed, conn, entry.userID)
	s.feed.attach(sub)
	go sub.writeLoop(s.wsCfg)
	go sub.readLoop(s.wsCfg)
}
