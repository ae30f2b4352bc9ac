package ws

import (
	"expvar"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"puzzle-party/internal/broadcast"
	"puzzle-party/internal/game"
	"puzzle-party/internal/lobby"
)

const (
	maxFrameBytes = 4096
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 30 * time.Second
	sendQueue     = 64
)

var metricConnectionsActive = expvar.NewInt("ws_connections_active")

type Options struct {
	AllowedOrigins    []string
	MessagesPerSecond float64
	Burst             int
}

// Server is the player endpoint. One socket binds to at most one player at a
// time; room and private events for that player are forwarded to it.
type Server struct {
	registry *lobby.Registry
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
	opts     Options
	log      zerolog.Logger
}

type binding struct {
	code     string
	playerID string
	buffer   *broadcast.Buffer
	roomCh   chan broadcast.Event
	inbox    chan broadcast.Event
}

type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter

	mu    sync.Mutex
	bound *binding
}

func NewServer(registry *lobby.Registry, hub *broadcast.Hub, opts Options) *Server {
	if opts.MessagesPerSecond <= 0 {
		opts.MessagesPerSecond = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}
	s := &Server{
		registry: registry,
		hub:      hub,
		opts:     opts,
		log:      log.With().Str("component", "ws").Logger(),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range s.opts.AllowedOrigins {
		allowed = strings.TrimSpace(allowed)
		if strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &Client{
		conn:    conn,
		send:    make(chan []byte, sendQueue),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.Burst),
	}
	metricConnectionsActive.Add(1)
	go s.writeLoop(c)
	s.readLoop(c)
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.unregister(c)
		close(c.done)
		_ = c.conn.Close()
		metricConnectionsActive.Add(-1)
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame ClientFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			s.reply(c, ActionResult{Error: codeBadRequest})
			continue
		}
		if !c.limiter.Allow() {
			s.reply(c, ActionResult{RequestID: frame.RequestID, Action: frame.Type, Error: codeRateLimited})
			continue
		}
		s.dispatch(c, frame)
	}
}

func (s *Server) writeLoop(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (s *Server) dispatch(c *Client, f ClientFrame) {
	res := ActionResult{RequestID: f.RequestID, Action: f.Type}
	var err error

	switch f.Type {
	case TypeCreate, TypeJoin, TypeReconnect:
		if c.playerID() != "" {
			res.Error = codeAlreadyBound
			s.reply(c, res)
			return
		}
		var id lobby.Identity
		switch f.Type {
		case TypeCreate:
			var settings game.Settings
			if f.Settings != nil {
				settings = *f.Settings
			}
			id, err = s.registry.Create(f.Variant, f.Name, settings)
		case TypeJoin:
			id, err = s.registry.Join(f.Code, f.Name)
		default:
			id, err = s.registry.Reconnect(f.PlayerID, f.Token)
		}
		if err == nil {
			res.Data = id
			s.finish(c, res, nil)
			s.bind(c, id.Code, id.PlayerID)
			return
		}
	case TypeLeave:
		pid := c.playerID()
		if err = s.registry.Leave(pid); err == nil {
			s.unbind(c)
		}
	case TypeStart:
		err = s.registry.Start(c.playerID())
	case TypePick:
		err = s.registry.Pick(c.playerID(), f.Choice)
	case TypeSubmit:
		var sub game.Submission
		sub, err = s.registry.Submit(c.playerID(), f.Answer)
		if err == nil {
			res.Data = SubmitAck{Raw: sub.Raw}
		}
	case TypeReset:
		err = s.registry.Reset(c.playerID())
	default:
		res.Error = codeUnknownType
		s.reply(c, res)
		return
	}
	s.finish(c, res, err)
}

func (s *Server) finish(c *Client, res ActionResult, err error) {
	if err != nil {
		res.Error = game.ErrorCode(err)
		res.Detail = game.ErrorDetail(err)
		if game.Kind(err) == game.KindInternal {
			s.log.Warn().Err(err).Str("action", res.Action).Str("player_id", c.playerID()).Msg("action_failed")
		}
	}
	s.reply(c, res)
}

func (s *Server) reply(c *Client, res ActionResult) {
	res.Type = "action_result"
	res.ProtocolVersion = game.ProtocolVersion
	res.Ok = res.Error == ""
	msg, err := json.Marshal(res)
	if err != nil {
		s.log.Error().Err(err).Msg("encode_action_result")
		return
	}
	s.enqueue(c, msg)
}

// enqueue drops the frame when the socket is gone or hopelessly behind.
func (s *Server) enqueue(c *Client, msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		s.log.Warn().Str("player_id", c.playerID()).Msg("ws_send_queue_full")
		_ = c.conn.Close()
		return false
	}
}

func (s *Server) bind(c *Client, code, playerID string) {
	inbox := s.hub.Attach(code, playerID)
	buf, roomCh := s.hub.SubscribeRoom(code)
	b := &binding{code: code, playerID: playerID, buffer: buf, roomCh: roomCh, inbox: inbox}
	c.mu.Lock()
	c.bound = b
	c.mu.Unlock()

	if snap, err := s.registry.Snapshot(code); err == nil {
		s.forward(c, broadcast.Event{Event: game.EventRoomSnapshot, Room: code, ServerTS: time.Now().UnixMilli(), Data: snap})
	}
	go s.pump(c, b)
}

// pump copies one binding's feeds to the socket. Either feed closing means
// the room is gone or another socket took over the player.
func (s *Server) pump(c *Client, b *binding) {
	defer func() {
		c.mu.Lock()
		if c.bound == b {
			c.bound = nil
		}
		c.mu.Unlock()
		b.buffer.Unsubscribe(b.roomCh)
	}()
	for {
		select {
		case ev, ok := <-b.roomCh:
			if !ok {
				return
			}
			s.forward(c, ev)
		case ev, ok := <-b.inbox:
			if !ok {
				return
			}
			s.forward(c, ev)
		case <-c.done:
			return
		}
	}
}

func (s *Server) forward(c *Client, ev broadcast.Event) {
	msg, err := json.Marshal(EventFrame{
		Type:            "event",
		ProtocolVersion: game.ProtocolVersion,
		Event:           ev.Event,
		EventID:         ev.EventID,
		Room:            ev.Room,
		ServerTS:        ev.ServerTS,
		Data:            ev.Data,
	})
	if err != nil {
		s.log.Error().Err(err).Str("event", ev.Event).Msg("encode_event")
		return
	}
	s.enqueue(c, msg)
}

func (s *Server) unbind(c *Client) *binding {
	c.mu.Lock()
	b := c.bound
	c.bound = nil
	c.mu.Unlock()
	if b == nil {
		return nil
	}
	current := s.hub.Detach(b.playerID, b.inbox)
	b.buffer.Unsubscribe(b.roomCh)
	if !current {
		return nil
	}
	return b
}

// unregister runs when the socket closes. The player keeps their seat under
// the variant's disconnect policy unless a newer socket already owns it.
func (s *Server) unregister(c *Client) {
	if b := s.unbind(c); b != nil {
		s.registry.Disconnect(b.playerID)
	}
}

func (c *Client) playerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bound == nil {
		return ""
	}
	return c.bound.playerID
}
