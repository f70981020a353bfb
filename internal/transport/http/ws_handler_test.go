package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solutionspma/godrive-academy/internal/app"
	"github.com/solutionspma/godrive-academy/internal/domain"
	"github.com/solutionspma/godrive-academy/internal/infra/memory"
)

func TestWebSocketFullQuizFlow(t *testing.T) {
	server, log := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "u1")
	defer conn.Close()

	writeMsg(t, conn, "start", map[string]any{"region": "CA"})
	readUntil(t, conn, "started")

	for i := 0; i < 3; i++ {
		question := readUntil(t, conn, "question")
		if len(question["options"].([]any)) != 4 {
			t.Fatalf("question %d: expected 4 options, got %+v", i, question)
		}

		writeMsg(t, conn, "answer", map[string]any{"optionIndex": 0})
		result := readUntil(t, conn, "answerResult")
		if result["correct"] != true {
			t.Fatalf("question %d: expected correct answer, got %+v", i, result)
		}

		writeMsg(t, conn, "next", nil)
	}

	results := readUntil(t, conn, "results")
	if results["scorePercent"].(float64) != 100 || results["passed"] != true {
		t.Fatalf("expected perfect pass, got %+v", results)
	}

	// The completed attempt was persisted for the identified user; the
	// record is written before the results message is sent.
	entries := log.Entries()
	if len(entries) != 1 || entries[0].UserID != "u1" {
		t.Fatalf("expected one recorded summary for u1, got %+v", entries)
	}
}

func TestWebSocketDoubleAnswerRejected(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "")
	defer conn.Close()

	writeMsg(t, conn, "start", map[string]any{"region": "CA"})
	readUntil(t, conn, "question")

	writeMsg(t, conn, "answer", map[string]any{"optionIndex": 0})
	readUntil(t, conn, "answerResult")

	writeMsg(t, conn, "answer", map[string]any{"optionIndex": 1})
	errMsg := readUntil(t, conn, "error")
	if errMsg["retryable"] != false {
		t.Fatalf("double answer is a sequencing bug, not retryable: %+v", errMsg)
	}
}

func TestWebSocketUnknownRegionIsRetryable(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "")
	defer conn.Close()

	writeMsg(t, conn, "start", map[string]any{"region": "ZZ"})
	errMsg := readUntil(t, conn, "error")
	if errMsg["retryable"] != true {
		t.Fatalf("expected retryable no-questions error, got %+v", errMsg)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.SessionLog) {
	t.Helper()
	questions := make([]domain.Question, 0, 3)
	ids := []string{"q1", "q2", "q3"}
	for _, id := range ids {
		questions = append(questions, domain.Question{
			ID:           id,
			Prompt:       "What does a green arrow mean?",
			Options:      []string{"Protected turn", "Stop", "Yield", "No turn"},
			CorrectIndex: 0,
			Explanation:  "A green arrow gives a protected turn.",
		})
	}
	source := memory.NewQuestionSource(memory.NewStaticBank(map[string]domain.QuestionSet{
		"CA": {RegionCode: "CA", Questions: questions},
	}), nil, time.Minute)
	log := memory.NewSessionLog()
	service := app.NewCoachService(memory.NewSessionStore(), source, log, memory.NewProfileDirectory(nil))

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
	return httptest.NewServer(mux), log
}

func dial(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	if userID != "" {
		u += "?userId=" + userID
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func writeMsg(t *testing.T, conn *websocket.Conn, msgType string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil skips interleaved state snapshots until a message of the wanted
// type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read while waiting for %s: %v", want, err)
		}
		if msg.Type == "state" && want != "state" {
			continue
		}
		if msg.Type != want {
			t.Fatalf("expected %s, got %s (%s)", want, msg.Type, string(msg.Payload))
		}
		var payload map[string]any
		_ = json.Unmarshal(msg.Payload, &payload)
		return payload
	}
	t.Fatalf("gave up waiting for %s", want)
	return nil
}
