package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/agilevibe/poker/internal/dispatch"
	"github.com/agilevibe/poker/internal/session"
)

// Service glues the connection manager to the session state and the
// command dispatcher. It re-broadcasts a fresh snapshot view after
// every applied state change.
type Service struct {
	state      *session.State
	dispatcher *dispatch.Dispatcher
	manager    *ConnectionManager
}

// NewService creates the gateway service and hooks the state change
// feed.
func NewService(state *session.State, dispatcher *dispatch.Dispatcher, config ConnectionConfig) *Service {
	s := &Service{
		state:      state,
		dispatcher: dispatcher,
	}
	s.manager = NewConnectionManager(config, s.handleIntent)
	state.SetOnChange(s.broadcastSnapshot)
	return s
}

// Manager exposes the connection manager for lifecycle wiring.
func (s *Service) Manager() *ConnectionManager {
	return s.manager
}

func (s *Service) broadcastSnapshot() {
	view := BuildSnapshotView(s.state.Snapshot())
	payload, err := json.Marshal(view)
	if err != nil {
		log.Error().Err(err).Msg("marshal snapshot view")
		return
	}
	s.manager.Broadcast(payload)
}

func (s *Service) handleIntent(ctx context.Context, conn *Connection, intent Intent) {
	var err error
	switch intent.Type {
	case IntentJoin:
		var p JoinPayload
		if err = json.Unmarshal(intent.Data, &p); err == nil {
			_, err = s.dispatcher.Join(ctx, p.Name, p.Role, p.Team)
		}

	case IntentVote:
		var p ValuePayload
		if err = json.Unmarshal(intent.Data, &p); err == nil {
			err = s.dispatcher.Vote(ctx, p.Value)
		}

	case IntentReveal:
		err = s.dispatcher.Reveal(ctx)

	case IntentReset:
		err = s.dispatcher.Reset(ctx)

	case IntentSetTask:
		var p TaskPayload
		if err = json.Unmarshal(intent.Data, &p); err == nil {
			err = s.dispatcher.SetTask(ctx, p.Title, p.Description)
		}

	case IntentAddCard:
		var p ValuePayload
		if err = json.Unmarshal(intent.Data, &p); err == nil {
			err = s.dispatcher.AddCard(ctx, p.Value)
		}

	case IntentRemoveCard:
		var p ValuePayload
		if err = json.Unmarshal(intent.Data, &p); err == nil {
			err = s.dispatcher.RemoveCard(ctx, p.Value)
		}

	case IntentSetScope:
		var p ValuePayload
		if err = json.Unmarshal(intent.Data, &p); err == nil {
			err = s.dispatcher.SetScope(ctx, p.Value)
		}

	case IntentToggleRole:
		err = s.dispatcher.ToggleRole(ctx)

	case IntentLogout:
		err = s.dispatcher.Logout(ctx)

	case IntentInsight:
		text := s.dispatcher.Insight(ctx)
		var payload []byte
		payload, err = json.Marshal(InsightMessage{Type: MessageInsight, Text: text})
		if err == nil {
			s.manager.Send(conn, payload)
		}

	default:
		log.Debug().Str("intent", string(intent.Type)).Msg("ignoring unknown intent")
		return
	}

	if err != nil {
		// Intent failures are local-only: log and keep serving. The
		// connection is never torn down over a failed write.
		log.Warn().Err(err).Str("intent", string(intent.Type)).Msg("intent handling failed")
	}
}

// HandleConnection upgrades a UI client and pushes the current snapshot
// so it renders without waiting for the next change.
func (s *Service) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.manager.UpgradeConnection(w, r)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}

	view := BuildSnapshotView(s.state.Snapshot())
	if payload, err := json.Marshal(view); err == nil {
		s.manager.Send(conn, payload)
	}
}
