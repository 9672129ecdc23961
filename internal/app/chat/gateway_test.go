package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	messagestore "github.com/dalemusser/ghostwire/internal/app/store/messages"
	userstore "github.com/dalemusser/ghostwire/internal/app/store/users"
	"github.com/dalemusser/ghostwire/internal/app/system/auth"
	"github.com/dalemusser/ghostwire/internal/domain/models"
	"github.com/dalemusser/ghostwire/internal/testutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type gatewayHarness struct {
	server  *httptest.Server
	authMgr *auth.Manager
	fx      *testutil.Fixtures
	msgs    *messagestore.Store
}

func newGatewayHarness(t *testing.T, opts Options) *gatewayHarness {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	mgr, err := auth.NewManager(testSecret, time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	msgStore := messagestore.New(db)
	gw := NewGateway(mgr, userstore.New(db), msgStore, NewRegistry(logger), opts, logger)

	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	return &gatewayHarness{
		server:  srv,
		authMgr: mgr,
		fx:      testutil.NewFixtures(t, db),
		msgs:    msgStore,
	}
}

func (h *gatewayHarness) token(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := h.authMgr.Issue(u.ID, u.Username)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

// dial opens a websocket connection, authenticating with a bearer header
// when token is non-empty.
func (h *gatewayHarness) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := conn.WriteJSON(Envelope{Event: event, Data: data}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return env
}

func expectEvent(t *testing.T, conn *websocket.Conn, want string) Envelope {
	t.Helper()
	env := readEvent(t, conn)
	if env.Event != want {
		t.Fatalf("got event %q, want %q (data: %s)", env.Event, want, env.Data)
	}
	return env
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var env Envelope
	if err := conn.ReadJSON(&env); err == nil {
		t.Fatalf("expected no frame, got %q", env.Event)
	}
}

func TestHandshakeWithBearerToken(t *testing.T) {
	h := newGatewayHarness(t, Options{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := h.fx.CreateUser(ctx, "alice")
	group := h.fx.CreateGroup(ctx, "general", alice.ID)

	conn := h.dial(t, h.token(t, alice))
	sendEvent(t, conn, EventJoinGroup, JoinGroupPayload{GroupID: group.ID})
	expectEvent(t, conn, EventHistory)
}

func TestHandshakeAuthFrameFallback(t *testing.T) {
	h := newGatewayHarness(t, Options{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := h.fx.CreateUser(ctx, "alice")
	group := h.fx.CreateGroup(ctx, "general", alice.ID)

	conn := h.dial(t, "")
	sendEvent(t, conn, EventAuth, AuthPayload{Token: h.token(t, alice)})
	sendEvent(t, conn, EventJoinGroup, JoinGroupPayload{GroupID: group.ID})
	expectEvent(t, conn, EventHistory)
}

func TestHandshakeRejectsBadToken(t *testing.T) {
	h := newGatewayHarness(t, Options{})

	conn := h.dial(t, "")
	sendEvent(t, conn, EventAuth, AuthPayload{Token: "not-a-token"})

	env := expectEvent(t, conn, EventError)
	var p ErrorPayload
	if err := json.Unmarshal(env.Data, &p); err != nil || p.Message == "" {
		t.Fatalf("error payload = %s", env.Data)
	}

	// The connection must be closed after the rejection.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection stayed open after failed handshake")
	}
}

func TestGroupMessageFanOut(t *testing.T) {
	h := newGatewayHarness(t, Options{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := h.fx.CreateUser(ctx, "alice")
	bob := h.fx.CreateUser(ctx, "bob")
	group := h.fx.CreateGroup(ctx, "general", alice.ID)

	aliceConn := h.dial(t, h.token(t, alice))
	bobConn := h.dial(t, h.token(t, bob))

	sendEvent(t, aliceConn, EventJoinGroup, JoinGroupPayload{GroupID: group.ID})
	expectEvent(t, aliceConn, EventHistory)
	sendEvent(t, bobConn, EventJoinGroup, JoinGroupPayload{GroupID: group.ID})
	expectEvent(t, bobConn, EventHistory)

	sendEvent(t, aliceConn, EventSendMessage, SendMessagePayload{
		TargetID: group.ID,
		Type:     models.MessageTypeGroup,
		Content:  "hello everyone",
	})

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		env := expectEvent(t, conn, EventNewMessage)
		var m messagestore.EnrichedMessage
		if err := json.Unmarshal(env.Data, &m); err != nil {
			t.Fatalf("unmarshal new_message: %v", err)
		}
		if m.Content != "hello everyone" {
			t.Errorf("content = %q, want %q", m.Content, "hello everyone")
		}
		if m.Username != "alice" {
			t.Errorf("username = %q, want alice", m.Username)
		}
		if m.ID == "" {
			t.Error("message id is empty")
		}
	}

	count, err := h.msgs.CountByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("CountByGroup: %v", err)
	}
	if count != 1 {
		t.Errorf("persisted %d messages, want 1", count)
	}
}

func TestMessageContentDeliveredVerbatim(t *testing.T) {
	h := newGatewayHarness(t, Options{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := h.fx.CreateUser(ctx, "alice")
	group := h.fx.CreateGroup(ctx, "general", alice.ID)

	conn := h.dial(t, h.token(t, alice))
	sendEvent(t, conn, EventJoinGroup, JoinGroupPayload{GroupID: group.ID})
	expectEvent(t, conn, EventHistory)

	// Punctuation must not come back entity-escaped, and length limits
	// count characters, so 600 three-byte runes are still a valid message.
	cases := []string{
		`Tom & Jerry say 1 < 2 "quoted"`,
		strings.Repeat("你", 600),
	}
	for _, content := range cases {
		sendEvent(t, conn, EventSendMessage, SendMessagePayload{
			TargetID: group.ID,
			Type:     models.MessageTypeGroup,
			Content:  content,
		})

		env := expectEvent(t, conn, EventNewMessage)
		var m messagestore.EnrichedMessage
		if err := json.Unmarshal(env.Data, &m); err != nil {
			t.Fatalf("unmarshal new_message: %v", err)
		}
		if m.Content != content {
			t.Errorf("content = %q, want %q", m.Content, content)
		}
	}
}

func TestOversizedMessageRejectedToSenderOnly(t *testing.T) {
	h := newGatewayHarness(t, Options{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := h.fx.CreateUser(ctx, "alice")
	bob := h.fx.CreateUser(ctx, "bob")
	group := h.fx.CreateGroup(ctx, "general", alice.ID)

	aliceConn := h.dial(t, h.token(t, alice))
	bobConn := h.dial(t, h.token(t, bob))

	sendEvent(t, aliceConn, EventJoinGroup, JoinGroupPayload{GroupID: group.ID})
	expectEvent(t, aliceConn, EventHistory)
	sendEvent(t, bobConn, EventJoinGroup, JoinGroupPayload{GroupID: group.ID})
	expectEvent(t, bobConn, EventHistory)

	sendEvent(t, aliceConn, EventSendMessage, SendMessagePayload{
		TargetID: group.ID,
		Type:     models.MessageTypeGroup,
		Content:  strings.Repeat("a", models.MaxMessageLen+1),
	})

	expectEvent(t, aliceConn, EventError)
	expectSilence(t, bobConn)

	count, err := h.msgs.CountByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("CountByGroup: %v", err)
	}
	if count != 0 {
		t.Errorf("persisted %d messages, want 0", count)
	}
}

func TestPrivateMessageReachesBothParties(t *testing.T) {
	h := newGatewayHarness(t, Options{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := h.fx.CreateUser(ctx, "alice")
	bob := h.fx.CreateUser(ctx, "bob")
	outsider := h.fx.CreateUser(ctx, "mallory")

	aliceConn := h.dial(t, h.token(t, alice))
	bobConn := h.dial(t, h.token(t, bob))
	outsiderConn := h.dial(t, h.token(t, outsider))

	sendEvent(t, aliceConn, EventSendMessage, SendMessagePayload{
		TargetID: bob.ID,
		Type:     models.MessageTypePrivate,
		Content:  "psst",
	})

	for _, conn := range []*websocket.Conn{bobConn, aliceConn} {
		env := expectEvent(t, conn, EventNewMessage)
		var m messagestore.EnrichedMessage
		if err := json.Unmarshal(env.Data, &m); err != nil {
			t.Fatalf("unmarshal new_message: %v", err)
		}
		if m.Content != "psst" || m.Type != models.MessageTypePrivate {
			t.Errorf("got %q/%q, want psst/private", m.Content, m.Type)
		}
	}
	expectSilence(t, outsiderConn)
}

func TestJoinPushesBoundedOrderedHistory(t *testing.T) {
	h := newGatewayHarness(t, Options{HistoryLimit: 5})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := h.fx.CreateUser(ctx, "alice")
	group := h.fx.CreateGroup(ctx, "general", alice.ID)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		h.fx.CreateMessage(ctx, group.ID, alice.ID,
			fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Minute))
	}

	conn := h.dial(t, h.token(t, alice))
	sendEvent(t, conn, EventJoinGroup, JoinGroupPayload{GroupID: group.ID})

	env := expectEvent(t, conn, EventHistory)
	var history []messagestore.EnrichedMessage
	if err := json.Unmarshal(env.Data, &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("history has %d messages, want 5", len(history))
	}
	// The most recent five, oldest first.
	for i, m := range history {
		want := fmt.Sprintf("message %d", i+3)
		if m.Content != want {
			t.Errorf("history[%d] = %q, want %q", i, m.Content, want)
		}
	}
}

func TestRejoinDoesNotDuplicateDelivery(t *testing.T) {
	h := newGatewayHarness(t, Options{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := h.fx.CreateUser(ctx, "alice")
	group := h.fx.CreateGroup(ctx, "general", alice.ID)

	conn := h.dial(t, h.token(t, alice))
	sendEvent(t, conn, EventJoinGroup, JoinGroupPayload{GroupID: group.ID})
	expectEvent(t, conn, EventHistory)
	sendEvent(t, conn, EventJoinGroup, JoinGroupPayload{GroupID: group.ID})
	expectEvent(t, conn, EventHistory)

	sendEvent(t, conn, EventSendMessage, SendMessagePayload{
		TargetID: group.ID,
		Type:     models.MessageTypeGroup,
		Content:  "once only",
	})

	expectEvent(t, conn, EventNewMessage)
	expectSilence(t, conn)
}

func TestMessageRateLimit(t *testing.T) {
	h := newGatewayHarness(t, Options{RateBurst: 2, RateInterval: time.Minute})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := h.fx.CreateUser(ctx, "alice")
	group := h.fx.CreateGroup(ctx, "general", alice.ID)

	conn := h.dial(t, h.token(t, alice))
	sendEvent(t, conn, EventJoinGroup, JoinGroupPayload{GroupID: group.ID})
	expectEvent(t, conn, EventHistory)

	for i := 0; i < 3; i++ {
		sendEvent(t, conn, EventSendMessage, SendMessagePayload{
			TargetID: group.ID,
			Type:     models.MessageTypeGroup,
			Content:  "spam",
		})
	}

	events := []string{
		readEvent(t, conn).Event,
		readEvent(t, conn).Event,
		readEvent(t, conn).Event,
	}
	var delivered, rejected int
	for _, ev := range events {
		switch ev {
		case EventNewMessage:
			delivered++
		case EventError:
			rejected++
		}
	}
	if delivered != 2 || rejected != 1 {
		t.Fatalf("got %d deliveries and %d rejections, want 2 and 1 (events: %v)",
			delivered, rejected, events)
	}
}
