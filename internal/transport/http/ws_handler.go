package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/solutionspma/godrive-academy/internal/app"
	"github.com/solutionspma/godrive-academy/internal/domain"
)

// WSHandler drives one practice attempt per websocket connection. The client
// is a pure presentation layer: it picks a region, answers, and advances; all
// session rules live in the coach service.
type WSHandler struct {
	service  *app.CoachService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.CoachService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Region string `json:"region"`
}

type answerPayload struct {
	OptionIndex int `json:"optionIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ServeWS upgrades the request and runs the quiz conversation until the
// client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var identity *domain.Identity
	if userID := r.URL.Query().Get("userId"); userID != "" {
		identity = &domain.Identity{UserID: userID}
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// Keep draining after a write error so snapshot forwarders are
		// never blocked on a dead connection.
		broken := false
		for msg := range send {
			if broken {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				broken = true
			}
		}
	}()

	flow := &quizFlow{
		ctx:      r.Context(),
		service:  h.service,
		identity: identity,
		send:     send,
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		flow.handle(inbound)
	}

	// Tear down the session and its forwarder before closing the send
	// channel the forwarder writes to.
	flow.stop()
	close(send)
	<-writerDone
}

// quizFlow is the per-connection state: at most one live session and one
// subscription forwarding its snapshots.
type quizFlow struct {
	ctx       context.Context
	service   *app.CoachService
	identity  *domain.Identity
	send      chan outboundMessage[any]
	sessionID string
	cancelSub func()
	subDone   chan struct{}
}

func (f *quizFlow) handle(inbound inboundMessage) {
	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Region == "" {
			f.sendError("invalid start payload", false)
			return
		}
		f.start(payload.Region)
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			f.sendError("invalid answer payload", false)
			return
		}
		f.answer(payload.OptionIndex)
	case "next":
		f.next()
	case "retake":
		f.retake()
	case "abandon":
		f.abandon()
	default:
		f.sendError("unsupported message type", false)
	}
}

func (f *quizFlow) start(region string) {
	// Starting a new test discards any attempt in flight.
	f.stop()

	snap, err := f.service.StartSession(f.ctx, region, f.identity)
	if err != nil {
		if errors.Is(err, domain.ErrNoQuestionsAvailable) {
			f.sendError("no practice questions are available for "+domain.RegionName(region)+", please try another state", true)
			return
		}
		f.sendError(err.Error(), true)
		return
	}
	f.sessionID = snap.ID

	updates, cancel, err := f.service.Subscribe(f.ctx, snap.ID)
	if err == nil {
		f.cancelSub = cancel
		f.subDone = make(chan struct{})
		go func(done chan struct{}) {
			defer close(done)
			for update := range updates {
				f.send <- outboundMessage[any]{Type: "state", Payload: update}
			}
		}(f.subDone)
	}

	f.send <- outboundMessage[any]{Type: "started", Payload: snap}
	f.sendCurrentQuestion()
}

func (f *quizFlow) answer(optionIndex int) {
	feedback, err := f.service.SubmitAnswer(f.ctx, f.sessionID, optionIndex)
	if err != nil {
		f.sendError(err.Error(), false)
		return
	}
	f.send <- outboundMessage[any]{Type: "answerResult", Payload: feedback}
}

func (f *quizFlow) next() {
	snap, err := f.service.Advance(f.ctx, f.sessionID)
	if err != nil {
		f.sendError(err.Error(), false)
		return
	}
	if snap.State == domain.StateCompleted {
		summary, err := f.service.Summary(f.ctx, f.sessionID)
		if err != nil {
			f.sendError(err.Error(), false)
			return
		}
		f.send <- outboundMessage[any]{Type: "results", Payload: summary}
		return
	}
	f.sendCurrentQuestion()
}

func (f *quizFlow) retake() {
	snap, err := f.service.RetakeSameRegion(f.ctx, f.sessionID)
	if err != nil {
		f.sendError(err.Error(), false)
		return
	}
	f.send <- outboundMessage[any]{Type: "started", Payload: snap}
	f.sendCurrentQuestion()
}

func (f *quizFlow) abandon() {
	f.stop()
	f.send <- outboundMessage[any]{Type: "abandoned", Payload: struct{}{}}
}

func (f *quizFlow) sendCurrentQuestion() {
	view, err := f.service.CurrentQuestion(f.ctx, f.sessionID)
	if err != nil {
		f.sendError(err.Error(), false)
		return
	}
	f.send <- outboundMessage[any]{Type: "question", Payload: view}
}

func (f *quizFlow) sendError(message string, retryable bool) {
	f.send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message, Retryable: retryable}}
}

// stop abandons the current session, if any, and tears down its subscription.
func (f *quizFlow) stop() {
	if f.cancelSub != nil {
		f.cancelSub()
		f.cancelSub = nil
	}
	if f.subDone != nil {
		<-f.subDone
		f.subDone = nil
	}
	if f.sessionID != "" {
		f.service.Abandon(f.ctx, f.sessionID)
		f.sessionID = ""
	}
}
