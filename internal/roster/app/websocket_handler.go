package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"chat_roster_service/internal/roster/domain"
	"chat_roster_service/internal/roster/repository"
	"chat_roster_service/pkg/logger"
	"chat_roster_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// RosterWebsocketHandler the presentation boundary: one connection per
// signed-in user, a snapshot on connect and an update frame per change
type RosterWebsocketHandler struct {
	buildUC     *BuildRosterUseCase
	feed        repository.FeedRepository
	bulkRepo    repository.BulkReadRepository
	presencePub *repository.PresencePublisher

	feedRetryInterval time.Duration
	feedRetryCount    int
}

// NewRosterWebsocketHandler create RosterWebsocketHandler
func NewRosterWebsocketHandler(
	buildUC *BuildRosterUseCase,
	feed repository.FeedRepository,
	bulkRepo repository.BulkReadRepository,
	presencePub *repository.PresencePublisher,
	feedRetryInterval time.Duration,
	feedRetryCount int,
) *RosterWebsocketHandler {
	return &RosterWebsocketHandler{
		buildUC:           buildUC,
		feed:              feed,
		bulkRepo:          bulkRepo,
		presencePub:       presencePub,
		feedRetryInterval: feedRetryInterval,
		feedRetryCount:    feedRetryCount,
	}
}

// HandleConnection entry point of one roster WebSocket session
func (h *RosterWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenMember := conn.Locals(middlewares.TokenMemberID)
	memberID, ok := tokenMember.(string)
	if !ok || memberID == "" {
		logger.Log.Warn("roster socket without member identity, closing")
		conn.Close()
		return
	}
	logger.Log.Info("roster socket open", zap.String("userID", memberID))

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	store := NewRosterStore(memberID)
	subMgr := NewSubscriptionManager(h.feed, store, h.bulkRepo, h.feedRetryInterval, h.feedRetryCount)

	defer func() {
		ticker.Stop()
		logger.Log.Info("roster socket close", zap.String("userID", memberID))
		subMgr.Stop()
		conn.Close()
		cancel()
	}()

	// the conn is not safe for concurrent writes, updates arrive from the
	// feed goroutine while replies go out from the read loop
	var writeMu sync.Mutex
	send := func(resp domain.WSResponse) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(resp); err != nil {
			logger.Log.Errorf("roster socket write error:", err)
		}
	}

	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("Received PONG", zap.String("data", appData))
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	unsubscribe := store.Subscribe(func(u Update) {
		switch u.Reason {
		case UpdateReplace:
			send(snapshotFrame(store))
		case UpdateState:
			send(domain.WSResponse{
				Action:  string(domain.RosterState),
				Success: u.State != StateFailed,
				Payload: map[string]interface{}{"state": string(u.State)},
			})
		default:
			send(domain.WSResponse{
				Action:  string(domain.RosterUpdate),
				Success: true,
				Payload: map[string]interface{}{
					"reason": string(u.Reason),
					"record": u.Record,
				},
			})
		}
	})
	defer unsubscribe()

	h.load(ctxClose, store, subMgr)

	// periodic ping keeps idle connections alive
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, []byte("ping message")); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("Connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}

		var req domain.WSRequest
		if err := json.Unmarshal(message, &req); err != nil {
			send(domain.WSResponse{Action: req.Action, Success: false, Error: "bad request"})
			continue
		}

		switch domain.Action(req.Action) {
		case domain.Heartbeat:
			status := req.Status
			if status == "" {
				status = "online"
			}
			h.presencePub.Publish(memberID, status, time.Now().Unix())
		case domain.Reload:
			// the retry affordance after a failed bulk load
			h.load(ctxClose, store, subMgr)
		default:
			send(domain.WSResponse{Action: req.Action, Success: false, Error: "unknown action"})
		}
	}
}

// load run the bulk build and install the result. A result that lands after
// teardown is discarded, never applied.
func (h *RosterWebsocketHandler) load(ctx context.Context, store *RosterStore, subMgr *SubscriptionManager) {
	entries, err := h.buildUC.Execute(ctx, store.UserID())
	if err != nil {
		store.SetState(StateFailed)
		return
	}
	if ctx.Err() != nil {
		return
	}

	store.SetState(StateReady)
	store.ReplaceAll(entries)
	subMgr.PrimeMessageIndex(store.Snapshot())
	if err := subMgr.Start(); err != nil {
		// already started: a reload after a transient failure, feed stays up
		logger.Log.Debug("feed already running", zap.Error(err))
	}
}

func snapshotFrame(store *RosterStore) domain.WSResponse {
	return domain.WSResponse{
		Action:  string(domain.RosterSnapshot),
		Success: true,
		Payload: map[string]interface{}{
			"state":   string(store.State()),
			"records": store.Snapshot(),
		},
	}
}
