package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	messagestore "github.com/dalemusser/ghostwire/internal/app/store/messages"
	userstore "github.com/dalemusser/ghostwire/internal/app/store/users"
	"github.com/dalemusser/ghostwire/internal/app/system/auth"
	"github.com/dalemusser/ghostwire/internal/app/system/ratelimit"
	"github.com/dalemusser/ghostwire/internal/app/system/sanitize"
	"github.com/dalemusser/ghostwire/internal/app/system/timeouts"
	"github.com/dalemusser/ghostwire/internal/domain/models"
)

// handshakeWait bounds how long an unauthenticated socket may sit waiting
// for its auth frame before being dropped.
const handshakeWait = 10 * time.Second

// Options tunes gateway behavior. Zero values fall back to the defaults
// used by the hosted deployment.
type Options struct {
	HistoryLimit   int
	SendBuffer     int
	RateBurst      int
	RateInterval   time.Duration
	AllowedOrigins []string
}

// Gateway upgrades HTTP requests to websocket connections, authenticates
// them, and runs the message fan-out loop for each.
type Gateway struct {
	authMgr  *auth.Manager
	users    *userstore.Store
	messages *messagestore.Store
	registry *Registry
	upgrader websocket.Upgrader
	opts     Options
	log      *zap.Logger
}

// NewGateway wires a Gateway over the given stores and registry.
func NewGateway(authMgr *auth.Manager, userStore *userstore.Store, msgStore *messagestore.Store, registry *Registry, opts Options, logger *zap.Logger) *Gateway {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 10
	}
	if opts.RateInterval <= 0 {
		opts.RateInterval = time.Second
	}

	g := &Gateway{
		authMgr:  authMgr,
		users:    userStore,
		messages: msgStore,
		registry: registry,
		opts:     opts,
		log:      logger,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	if len(g.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range g.opts.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the request and runs the connection to completion.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(conn, g.opts.SendBuffer)
	go client.writePump()

	identity, err := g.handshake(r, client)
	if err != nil {
		client.trySend(encodeError("authentication required"))
		// Closing the queue lets the write pump flush the rejection frame;
		// wait for it to exit before returning.
		client.close()
		<-client.done
		return
	}

	g.registry.Bind(client, identity)

	session := &session{
		gateway:  g,
		client:   client,
		identity: identity,
		bucket:   ratelimit.NewBucket(g.opts.RateBurst, g.opts.RateInterval),
	}
	client.readPump(session.handleFrame)

	g.registry.LeaveAll(client)
	client.close()
}

// handshake resolves the connection's identity. A valid token carried on the
// HTTP request (cookie or Authorization header) authenticates immediately;
// otherwise the first frame must be an auth envelope carrying the token.
func (g *Gateway) handshake(r *http.Request, client *Client) (*auth.Identity, error) {
	if token := auth.TokenFromRequest(r); token != "" {
		if id, err := g.authMgr.Verify(token); err == nil {
			return id, nil
		}
	}

	client.conn.SetReadDeadline(time.Now().Add(handshakeWait))
	_, frame, err := client.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Event != EventAuth {
		return nil, auth.ErrInvalidToken
	}
	var payload AuthPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, auth.ErrInvalidToken
	}
	return g.authMgr.Verify(payload.Token)
}

// session carries the per-connection state the frame handler needs.
type session struct {
	gateway  *Gateway
	client   *Client
	identity *auth.Identity
	bucket   *ratelimit.Bucket
}

// handleFrame dispatches one inbound envelope. Returning false ends the
// read loop and tears the connection down.
func (s *session) handleFrame(frame []byte) bool {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		s.sendError("malformed frame")
		return true
	}

	switch env.Event {
	case EventAuth:
		// Already authenticated; a repeat auth frame is a no-op.
		return true
	case EventJoinGroup:
		var payload JoinGroupPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil || payload.GroupID == "" {
			s.sendError("group id is required")
			return true
		}
		s.joinGroup(payload.GroupID)
		return true
	case EventSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			s.sendError("malformed message payload")
			return true
		}
		s.sendMessage(payload)
		return true
	default:
		s.sendError("unknown event")
		return true
	}
}

// joinGroup subscribes the connection to the group's room and pushes the
// recent history snapshot to the joining connection only. Rejoining an
// already-joined room re-sends the snapshot but never duplicates the
// membership.
func (s *session) joinGroup(groupID string) {
	s.gateway.registry.Join(s.client, groupID)

	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()

	history, err := s.gateway.messages.GroupHistory(ctx, groupID, s.gateway.opts.HistoryLimit)
	if err != nil {
		s.gateway.log.Error("history load failed",
			zap.String("group_id", groupID), zap.Error(err))
		s.sendError("could not load message history")
		return
	}

	s.client.trySend(encodeHistory(history))
}

// sendMessage runs the full pipeline: throttle, validate, sanitize, persist,
// enrich with the sender's current profile, then broadcast. Failures short
// of persistence are reported to the sender only; nothing is broadcast
// unless the message is durably stored.
func (s *session) sendMessage(p SendMessagePayload) {
	if !s.bucket.Allow() {
		s.sendError("too many messages, slow down")
		return
	}

	content := sanitize.Text(p.Content)
	if err := models.ValidateMessage(p.TargetID, p.Type, content); err != nil {
		s.sendError(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()

	msg, err := s.gateway.messages.Create(ctx, s.identity.ID, p.TargetID, p.Type, content)
	if err != nil {
		s.gateway.log.Error("message persist failed",
			zap.String("sender_id", s.identity.ID), zap.Error(err))
		s.sendError("could not deliver message")
		return
	}

	sender, err := s.gateway.users.GetByID(ctx, s.identity.ID)
	if err != nil {
		s.gateway.log.Error("sender lookup failed",
			zap.String("sender_id", s.identity.ID), zap.Error(err))
		s.sendError("could not deliver message")
		return
	}

	frame := encodeNewMessage(messagestore.Enrich(msg, sender))

	switch p.Type {
	case models.MessageTypeGroup:
		s.gateway.registry.Broadcast(p.TargetID, frame)
	case models.MessageTypePrivate:
		s.gateway.registry.Broadcast(p.TargetID, frame)
		if p.TargetID != s.identity.ID {
			s.gateway.registry.Broadcast(s.identity.ID, frame)
		}
	}
}

func (s *session) sendError(msg string) {
	s.client.trySend(encodeError(msg))
}
