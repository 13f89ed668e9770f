package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketPlayFlow(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.signup(t, "root", testAdminCode)
	_, token := s.signup(t, "ana", "")
	q := s.createQuestion(t, adminToken, 80)

	var session struct {
		ID int64 `json:"id"`
	}
	s.call(t, http.MethodPost, "/api/game/sessions", token, map[string]string{"difficulty": "easy"}, &session)

	u := fmt.Sprintf("ws%s/ws?sessionId=%d&token=%s", strings.TrimPrefix(s.URL, "http"), session.ID, token)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var joined struct {
		Balance int64 `json:"balance"`
	}
	readNext(t, conn, "joined", &joined)
	if joined.Balance != 0 {
		t.Fatalf("expected empty balance, got %d", joined.Balance)
	}

	var correct int64
	for _, o := range q.Options {
		if o.Correct {
			correct = o.ID
		}
	}
	send(t, conn, "answer", map[string]int64{"questionId": q.ID, "optionId": correct})

	// the grading result and the balance push may arrive in either order
	seen := map[string]json.RawMessage{}
	for len(seen) < 2 {
		typ, payload := readAny(t, conn)
		seen[typ] = payload
	}
	var balance struct {
		TotalPoints int64 `json:"totalPoints"`
	}
	if err := json.Unmarshal(seen["balance"], &balance); err != nil || balance.TotalPoints != 80 {
		t.Fatalf("expected balance push of 80, got %s", seen["balance"])
	}
	if _, ok := seen["answerResult"]; !ok {
		t.Fatalf("expected answerResult, got %v", seen)
	}

	send(t, conn, "hint", map[string]int64{"questionId": q.ID})
	hintSeen := false
	for i := 0; i < 2; i++ {
		typ, payload := readAny(t, conn)
		if typ == "hint" {
			var hint struct {
				Text    string `json:"hintText"`
				Balance int64  `json:"newBalance"`
			}
			_ = json.Unmarshal(payload, &hint)
			if hint.Text == "" || hint.Balance != 30 {
				t.Fatalf("unexpected hint %s", payload)
			}
			hintSeen = true
		}
	}
	if !hintSeen {
		t.Fatalf("expected hint message")
	}

	send(t, conn, "finish", nil)
	var finished struct {
		Status string `json:"status"`
	}
	readNext(t, conn, "finished", &finished)
	if finished.Status != "FINISHED" {
		t.Fatalf("expected finished session, got %q", finished.Status)
	}

	send(t, conn, "dance", nil)
	var errPayload errorPayload
	readNext(t, conn, "error", &errPayload)
}

func TestWebSocketRejectsForeignSessions(t *testing.T) {
	s := newTestServer(t)
	_, anaToken := s.signup(t, "ana", "")
	_, bobToken := s.signup(t, "bob", "")

	var session struct {
		ID int64 `json:"id"`
	}
	s.call(t, http.MethodPost, "/api/game/sessions", anaToken, map[string]string{"difficulty": "easy"}, &session)

	base := "ws" + strings.TrimPrefix(s.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s/ws?sessionId=%d&token=%s", base, session.ID, bobToken), nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a foreign session, got %v", err)
	}
	_, resp, err = websocket.DefaultDialer.Dial(fmt.Sprintf("%s/ws?sessionId=%d", base, session.ID), nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %v", err)
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload interface{}) {
	t.Helper()
	if err := conn.WriteJSON(map[string]interface{}{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readAny(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

func readNext(t *testing.T, conn *websocket.Conn, expect string, out interface{}) {
	t.Helper()
	typ, payload := readAny(t, conn)
	if typ != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, typ, payload)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		t.Fatalf("decode %s: %v", typ, err)
	}
}

func TestEnqueueStopsWhenWriterExits(t *testing.T) {
	send := make(chan outboundMessage, 1)
	writerDone := make(chan struct{})

	if !enqueue(send, writerDone, wsError("first")) {
		t.Fatalf("expected message queued while the writer runs")
	}
	close(writerDone)

	result := make(chan bool, 1)
	go func() { result <- enqueue(send, writerDone, wsError("second")) }()
	select {
	case ok := <-result:
		if ok {
			t.Fatalf("expected enqueue to report the stopped writer")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("enqueue blocked on a full buffer after the writer exited")
	}
}
