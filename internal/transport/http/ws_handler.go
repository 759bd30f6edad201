package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quizforge/internal/app"
	"quizforge/internal/domain"
)

// WSHandler drives one whole quiz over a single websocket: the connection
// starts a session, the server pushes questions, the client answers, and the
// socket closes with the final result. The session ends (and scores onto the
// leaderboard) when the connection goes away, answered or not.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
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

type answerPayload struct {
	QuestionIndex int `json:"questionIndex"`
	AnswerIndex   int `json:"answerIndex"`
}

type hintPayload struct {
	QuestionIndex int `json:"questionIndex"`
}

type answerResultPayload struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
	Score         int  `json:"score"`
}

type finishedPayload struct {
	Result      domain.Result             `json:"result"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type wsErrorPayload struct {
	Message string `json:"message"`
}

// wsSender queues messages toward the writer goroutine. Once the writer has
// exited, send reports false instead of blocking on the full buffer.
type wsSender struct {
	ch   chan outboundMessage
	done chan struct{}
}

func (s *wsSender) send(msg outboundMessage) bool {
	select {
	case s.ch <- msg:
		return true
	case <-s.done:
		return false
	}
}

// ServeWS upgrades the request and plays the quiz lifecycle over the socket.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name, difficulty, topic := q.Get("name"), q.Get("difficulty"), q.Get("topic")
	visual := q.Get("visual") == "true"
	if name == "" || difficulty == "" || topic == "" {
		http.Error(w, "missing name, difficulty, or topic", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sessionID, total, err := h.service.Start(ctx, name, difficulty, topic, visual)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: wsErrorPayload{Message: err.Error()}})
		return
	}
	// A dropped connection still finalizes the session so it cannot leak.
	// A session that already finished normally reports not-found here.
	defer func() {
		if _, err := h.service.End(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			log.Printf("ws: end session %s: %v", sessionID, err)
		}
	}()

	// Writer goroutine owns the socket; everything else goes through sender.
	sender := &wsSender{
		ch:   make(chan outboundMessage, 16),
		done: make(chan struct{}),
	}
	go func() {
		defer close(sender.done)
		for msg := range sender.ch {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	sender.send(outboundMessage{Type: "started", Payload: startQuizResponse{SessionID: sessionID, TotalQuestions: total}})
	h.pushQuestion(ctx, sessionID, sender)

	for {
		select {
		case <-sender.done:
			goto shutdown
		default:
		}

		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sender.send(outboundMessage{Type: "error", Payload: wsErrorPayload{Message: "invalid answer payload"}})
				continue
			}
			correct, score, err := h.service.SubmitAnswer(ctx, sessionID, payload.QuestionIndex, payload.AnswerIndex)
			if err != nil {
				sender.send(outboundMessage{Type: "error", Payload: wsErrorPayload{Message: err.Error()}})
				continue
			}
			if !sender.send(outboundMessage{Type: "answerResult", Payload: answerResultPayload{
				QuestionIndex: payload.QuestionIndex,
				Correct:       correct,
				Score:         score,
			}}) {
				goto shutdown
			}
			if done := h.pushQuestion(ctx, sessionID, sender); done {
				h.finish(ctx, sessionID, sender)
				goto shutdown
			}
		case "hint":
			var payload hintPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sender.send(outboundMessage{Type: "error", Payload: wsErrorPayload{Message: "invalid hint payload"}})
				continue
			}
			hint, err := h.service.Hint(ctx, sessionID, payload.QuestionIndex)
			if err != nil {
				sender.send(outboundMessage{Type: "error", Payload: wsErrorPayload{Message: err.Error()}})
				continue
			}
			sender.send(outboundMessage{Type: "hint", Payload: hintResponse{Hint: hint}})
		default:
			sender.send(outboundMessage{Type: "error", Payload: wsErrorPayload{Message: "unsupported message type"}})
		}
	}

shutdown:
	close(sender.ch)
	<-sender.done
}

// pushQuestion sends the current question, or reports true when the set is
// exhausted.
func (h *WSHandler) pushQuestion(ctx context.Context, sessionID string, sender *wsSender) bool {
	res, err := h.service.NextQuestion(ctx, sessionID)
	if err != nil {
		sender.send(outboundMessage{Type: "error", Payload: wsErrorPayload{Message: err.Error()}})
		return false
	}
	if res.Done {
		return true
	}
	sender.send(outboundMessage{Type: "question", Payload: res.Question})
	return false
}

// finish ends the session and sends the result with the current standings.
func (h *WSHandler) finish(ctx context.Context, sessionID string, sender *wsSender) {
	result, err := h.service.End(ctx, sessionID)
	if err != nil {
		sender.send(outboundMessage{Type: "error", Payload: wsErrorPayload{Message: err.Error()}})
		return
	}
	sender.send(outboundMessage{Type: "finished", Payload: finishedPayload{
		Result:      result,
		Leaderboard: h.service.LeaderboardSnapshot(),
	}})
}
