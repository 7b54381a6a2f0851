package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"quizrush-service/internal/app"
	"quizrush-service/internal/domain"
)

type WSHandler struct {
	service      *app.SessionService
	upgrader     websocket.Upgrader
	tickInterval time.Duration
}

func NewWSHandler(service *app.SessionService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		tickInterval: time.Second,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Category   string `json:"category"`
}

type answerPayload struct {
	Choice string `json:"choice"`
}

type perkPayload struct {
	Kind       string `json:"kind"`
	TargetID   string `json:"targetId,omitempty"`
	TargetName string `json:"targetName,omitempty"`
}

type buyPayload struct {
	Kind string `json:"kind"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	RemainingSeconds int    `json:"remainingSeconds,omitempty"`
}

// ServeWS upgrades the connection and runs the session protocol. All service
// calls for one connection happen on a single goroutine; the countdown is
// driven by a server-side ticker, never by the client.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	displayName := r.URL.Query().Get("name")
	avatar := r.URL.Query().Get("avatar")
	if playerID == "" || displayName == "" {
		http.Error(w, "missing playerId or name", http.StatusBadRequest)
		return
	}
	player := domain.Identity{PlayerID: playerID, DisplayName: displayName, AvatarRef: avatar}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	defer h.service.Abandon(playerID)

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	inbound := make(chan inboundMessage)
	readerDone := make(chan struct{})
	closeSignals := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			// The loop may have exited on quit with frames still inflight;
			// without the signal branch this send would park forever.
			select {
			case inbound <- msg:
			case <-closeSignals:
				return
			}
		}
	}()

	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()

	ctx := r.Context()
	running := false

loop:
	for {
		select {
		case <-readerDone:
			break loop
		case <-ticker.C:
			if !running {
				continue
			}
			view, timedOut, err := h.service.Tick(ctx, playerID)
			if err != nil {
				continue
			}
			if timedOut {
				send <- outboundMessage[any]{Type: "state", Payload: view}
			}
		case msg := <-inbound:
			var done bool
			running, done = h.dispatch(ctx, player, msg, send, running)
			if done {
				break loop
			}
		}
	}

	close(closeSignals)
	close(send)
	<-writerDone
}

// dispatch handles one client message, returning the new running flag and
// whether the connection should close.
func (h *WSHandler) dispatch(ctx context.Context, player domain.Identity, msg inboundMessage, send chan<- outboundMessage[any], running bool) (bool, bool) {
	playerID := player.PlayerID

	switch msg.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			send <- errorMessage(errors.New("invalid start payload"))
			return running, false
		}
		view, err := h.service.StartSession(ctx, player, payload.Topic, domain.Difficulty(payload.Difficulty), payload.Category)
		if err != nil {
			send <- errorMessage(err)
			return running, false
		}
		send <- outboundMessage[any]{Type: "state", Payload: view}
		return true, false

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			send <- errorMessage(errors.New("invalid answer payload"))
			return running, false
		}
		view, err := h.service.SubmitAnswer(ctx, playerID, payload.Choice)
		if err != nil {
			send <- errorMessage(err)
			return running, false
		}
		send <- outboundMessage[any]{Type: "state", Payload: view}
		return running, false

	case "next":
		view, err := h.service.Advance(ctx, playerID)
		if err != nil {
			// A completed view with an error means the run finished locally
			// but the leaderboard write did not stick.
			send <- errorMessage(err)
			if view.Phase != "complete" {
				return running, false
			}
		}
		send <- outboundMessage[any]{Type: "state", Payload: view}
		if view.Phase == "complete" {
			return false, false
		}
		return running, false

	case "perk":
		var payload perkPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			send <- errorMessage(errors.New("invalid perk payload"))
			return running, false
		}
		view, err := h.service.UsePerk(ctx, playerID, domain.PerkKind(payload.Kind), payload.TargetID, payload.TargetName)
		if err != nil {
			send <- errorMessage(err)
			return running, false
		}
		send <- outboundMessage[any]{Type: "state", Payload: view}
		return running, false

	case "buy":
		var payload buyPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			send <- errorMessage(errors.New("invalid buy payload"))
			return running, false
		}
		profile, err := h.service.BuyPerk(ctx, playerID, domain.PerkKind(payload.Kind))
		if err != nil {
			send <- errorMessage(err)
			return running, false
		}
		send <- outboundMessage[any]{Type: "profile", Payload: profile}
		return running, false

	case "state":
		view, err := h.service.CurrentState(ctx, playerID)
		if err != nil {
			send <- errorMessage(err)
			return running, false
		}
		send <- outboundMessage[any]{Type: "state", Payload: view}
		return running, false

	case "quit":
		view, err := h.service.ExitSession(ctx, playerID)
		if err != nil {
			send <- errorMessage(err)
			return running, false
		}
		send <- outboundMessage[any]{Type: "state", Payload: view}
		return false, true

	default:
		send <- errorMessage(errors.New("unsupported message type"))
		return running, false
	}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{
		Code:             errorCode(err),
		Message:          err.Error(),
		RemainingSeconds: cooldownRemaining(err),
	}}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return "already-completed"
	case errors.Is(err, domain.ErrOnCooldown):
		return "on-cooldown"
	case errors.Is(err, domain.ErrRecentlyQuit):
		return "recently-quit"
	case errors.Is(err, domain.ErrInsufficientPerk):
		return "insufficient-perk"
	case errors.Is(err, domain.ErrInsufficientScore):
		return "insufficient-score"
	case errors.Is(err, domain.ErrUnknownPerk):
		return "unknown-perk"
	case errors.Is(err, domain.ErrSessionInProgress):
		return "session-in-progress"
	case errors.Is(err, domain.ErrNoActiveSession):
		return "no-active-session"
	case errors.Is(err, domain.ErrCouldNotSaveScore):
		return "could-not-save-score"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid-transition"
	case errors.Is(err, domain.ErrQuizNotFound):
		return "quiz-not-found"
	case errors.Is(err, domain.ErrProfileNotFound):
		return "profile-not-found"
	case errors.Is(err, domain.ErrGenerationFailed):
		return "generation-failed"
	default:
		return "internal"
	}
}

func cooldownRemaining(err error) int {
	var cd *domain.CooldownError
	if errors.As(err, &cd) {
		return int(cd.Remaining.Seconds())
	}
	return 0
}
