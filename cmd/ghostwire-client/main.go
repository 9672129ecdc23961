// Command ghostwire-client is a small terminal chat client. It signs in over
// the REST API, joins a group, and bridges stdin to the websocket gateway.
// History arrives twice (the REST snapshot and the gateway's join push); the
// reconciler renders the REST snapshot and drops the later push so nothing
// prints twice.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/dalemusser/ghostwire/internal/app/chat"
	messagestore "github.com/dalemusser/ghostwire/internal/app/store/messages"
	"github.com/dalemusser/ghostwire/internal/domain/models"
)

func main() {
	var (
		server   = flag.String("server", "http://localhost:3000", "ghostwire server base URL")
		email    = flag.String("email", "", "account email")
		password = flag.String("password", "", "account password")
		group    = flag.String("group", "", "group id to join")
	)
	flag.Parse()

	if *email == "" || *password == "" || *group == "" {
		flag.Usage()
		os.Exit(2)
	}

	token, user, err := login(*server, *email, *password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	fmt.Printf("signed in as %s\n", user.Username)

	rec := chat.NewReconciler()

	snapshot, err := fetchHistory(*server, token, *group)
	if err != nil {
		log.Fatalf("fetch history: %v", err)
	}
	printMessages(rec.Seed(snapshot))

	conn, err := connect(*server, token)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	if err := writeEvent(conn, chat.EventJoinGroup, chat.JoinGroupPayload{GroupID: *group}); err != nil {
		log.Fatalf("join group: %v", err)
	}

	go readLoop(conn, rec)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		err := writeEvent(conn, chat.EventSendMessage, chat.SendMessagePayload{
			TargetID: *group,
			Type:     models.MessageTypeGroup,
			Content:  line,
		})
		if err != nil {
			log.Fatalf("send: %v", err)
		}
	}
}

func login(server, email, password string) (string, models.Profile, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", models.Profile{}, err
	}
	resp, err := http.Post(server+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", models.Profile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", models.Profile{}, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	var session struct {
		User  models.Profile `json:"user"`
		Token string         `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", models.Profile{}, err
	}
	return session.Token, session.User, nil
}

func fetchHistory(server, token, groupID string) ([]messagestore.EnrichedMessage, error) {
	req, err := http.NewRequest(http.MethodGet, server+"/api/groups/"+groupID+"/messages", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	var history []messagestore.EnrichedMessage
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, err
	}
	return history, nil
}

// connect dials the gateway and authenticates with an auth frame. A terminal
// client has no cookie jar, so the first-frame fallback is the normal path.
func connect(server, token string) (*websocket.Conn, error) {
	wsURL := strings.Replace(server, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, err
	}
	if err := writeEvent(conn, chat.EventAuth, chat.AuthPayload{Token: token}); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func writeEvent(conn *websocket.Conn, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteJSON(chat.Envelope{Event: event, Data: data})
}

func readLoop(conn *websocket.Conn, rec *chat.Reconciler) {
	for {
		var env chat.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			log.Fatalf("connection lost: %v", err)
		}

		switch env.Event {
		case chat.EventHistory:
			var batch []messagestore.EnrichedMessage
			if err := json.Unmarshal(env.Data, &batch); err != nil {
				log.Printf("bad history frame: %v", err)
				continue
			}
			printMessages(rec.Merge(batch))
		case chat.EventNewMessage:
			var m messagestore.EnrichedMessage
			if err := json.Unmarshal(env.Data, &m); err != nil {
				log.Printf("bad message frame: %v", err)
				continue
			}
			if rec.Apply(m) {
				printMessage(m)
			}
		case chat.EventError:
			var p chat.ErrorPayload
			_ = json.Unmarshal(env.Data, &p)
			fmt.Fprintf(os.Stderr, "server error: %s\n", p.Message)
		}
	}
}

func printMessages(msgs []messagestore.EnrichedMessage) {
	for _, m := range msgs {
		printMessage(m)
	}
}

func printMessage(m messagestore.EnrichedMessage) {
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), m.Username, m.Content)
}
