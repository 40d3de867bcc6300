package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/edulane/contest-backend/internal/config"
	"github.com/edulane/contest-backend/internal/gateway"
	"github.com/edulane/contest-backend/internal/middleware"
	"github.com/edulane/contest-backend/internal/model"
	"github.com/edulane/contest-backend/internal/service"
	"github.com/edulane/contest-backend/internal/session"
	ws "github.com/edulane/contest-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler owns the live assessment stream. One connection equals one
// mounted assessment view: connecting builds the controller, countdown, and
// integrity monitor; disconnecting tears them down.
type WSHandler struct {
	rdb           *redis.Client
	portalService *service.PortalService
	queue         *gateway.QueueGateway
	manager       *session.Manager
	grace         time.Duration
	log           zerolog.Logger
	upgrader      websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	rdb *redis.Client,
	portalService *service.PortalService,
	queue *gateway.QueueGateway,
	manager *session.Manager,
	cfg *config.Config,
	log zerolog.Logger,
) *WSHandler {
	return &WSHandler{
		rdb:           rdb,
		portalService: portalService,
		queue:         queue,
		manager:       manager,
		grace:         cfg.ViolationGrace,
		log:           log.With().Str("component", "ws_handler").Logger(),
		upgrader:      buildUpgrader(cfg.AllowedOrigins),
	}
}

// AssessmentStream godoc
// WS /ws/v1/student/contests/:contest_id/stream
// Upgrades to WebSocket and runs the timed assessment session.
func (h *WSHandler) AssessmentStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contest ID"})
		return
	}
	studentID := claims.UserID

	if err := h.portalService.VerifyActiveSession(c.Request.Context(), contestID, studentID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no active session for this contest"})
		return
	}

	remaining, err := h.portalService.RemainingSeconds(c.Request.Context(), contestID, studentID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute remaining time")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	questions, err := h.portalService.OrderedQuestions(c.Request.Context(), contestID, studentID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load questions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(rawConn)
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("contest_id", contestID.String()).
		Logger()

	controller, err := session.NewController(uuid.New(), contestID, studentID, questions, h.queue, wsLog)
	if err != nil {
		conn.WriteError("contest has no questions")
		return
	}

	h.restoreState(contestID, studentID, controller)

	// The countdown and the grace timer run in their own goroutines; the
	// shared write mutex in ws.Conn keeps their events off each other.
	countdown := session.NewCountdown(int(remaining),
		func(rem int) {
			conn.WriteTyped(ws.RemainingResponse{Event: ws.EventRemaining, Remaining: rem})
		},
		func() {
			controller.ForceSubmit(context.Background(), model.ReasonTimeUp)
			conn.WriteTyped(ws.SubmittedResponse{Event: ws.EventSubmitted, Reason: string(model.ReasonTimeUp)})
			conn.Close()
		},
	)

	monitor := session.NewMonitor(h.grace,
		func(kind model.ViolationKind, grace time.Duration) {
			conn.WriteTyped(ws.WarningResponse{
				Event:        ws.EventWarning,
				Kind:         string(kind),
				GraceSeconds: int(grace.Seconds()),
			})
		},
		func() {
			controller.ForceSubmit(context.Background(), model.ReasonViolation)
			conn.WriteTyped(ws.SubmittedResponse{Event: ws.EventSubmitted, Reason: string(model.ReasonViolation)})
			conn.Close()
		},
		wsLog,
	)

	live := &session.Live{
		ContestID:  contestID,
		StudentID:  studentID,
		Controller: controller,
		Countdown:  countdown,
		Monitor:    monitor,
	}
	h.manager.Attach(live)
	defer h.manager.Detach(live)

	wsLog.Info().Float64("remaining", remaining).Msg("Student connected")

	// Start may fire the expiry synchronously when the time is already up.
	countdown.Start()

	for {
		data, err := conn.ReadRaw()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			conn.WriteError("malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionSaveAnswer:
			h.handleSaveAnswer(conn, controller, contestID, studentID, data, wsLog)
		case ws.ActionMarkReview:
			h.handleMarkReview(conn, controller, contestID, studentID, data, wsLog)
		case ws.ActionNavigate:
			var req ws.NavigateRequest
			if err := json.Unmarshal(data, &req); err != nil {
				conn.WriteError("malformed navigate payload")
				continue
			}
			controller.NavigateTo(req.Index)
		case ws.ActionViolation:
			h.handleViolation(conn, monitor, contestID, studentID, data, wsLog)
		case ws.ActionAcknowledge:
			monitor.Acknowledge()
		case ws.ActionSubmit:
			if h.handleSubmit(conn, controller, wsLog) {
				return
			}
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(envelope.Action))
		}

		if controller.Terminal() {
			return
		}
	}
}

// restoreState seeds the controller with answers and statuses autosaved by a
// previous connection for this session.
func (h *WSHandler) restoreState(contestID uuid.UUID, studentID int, controller *session.Controller) {
	ctx := context.Background()

	answers, err := h.rdb.HGetAll(ctx, config.CacheKey.StudentAnswersKey(contestID.String(), studentID)).Result()
	if err != nil || len(answers) == 0 {
		return
	}
	statuses, _ := h.rdb.HGetAll(ctx, config.CacheKey.StudentStatusesKey(contestID.String(), studentID)).Result()

	for qid, raw := range answers {
		v, err := model.DecodeAnswerValue(raw)
		if err != nil {
			continue
		}
		controller.RestoreAnswer(qid, v, model.QuestionStatus(statuses[qid]))
	}
}

func (h *WSHandler) handleSaveAnswer(conn *ws.Conn, controller *session.Controller, contestID uuid.UUID, studentID int, data []byte, wsLog zerolog.Logger) {
	var req ws.SaveAnswerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("malformed save_answer payload")
		return
	}

	if req.QID == "" || len(req.Answer) == 0 {
		conn.WriteError("q_id and ans are required")
		return
	}
	// QID must be a well-formed UUID to prevent Redis key pollution.
	if _, err := uuid.Parse(req.QID); err != nil {
		conn.WriteError("invalid q_id format")
		return
	}

	value, err := decodeWireAnswer(req.Answer)
	if err != nil {
		conn.WriteError("unsupported answer shape")
		return
	}

	if err := controller.SaveAnswer(req.QID, value, req.Advance); err != nil {
		conn.WriteError(err.Error())
		return
	}

	h.autosave(contestID, studentID, req.QID, value, model.StatusAttempted, wsLog)
	conn.WriteTyped(ws.SuccessResponse{Event: ws.EventSuccess, Status: "saved"})
}

func (h *WSHandler) handleMarkReview(conn *ws.Conn, controller *session.Controller, contestID uuid.UUID, studentID int, data []byte, wsLog zerolog.Logger) {
	var req ws.MarkReviewRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("malformed mark_review payload")
		return
	}
	if _, err := uuid.Parse(req.QID); err != nil {
		conn.WriteError("invalid q_id format")
		return
	}

	var value *model.AnswerValue
	if len(req.Answer) > 0 {
		v, err := decodeWireAnswer(req.Answer)
		if err != nil {
			conn.WriteError("unsupported answer shape")
			return
		}
		value = &v
	}

	if err := controller.MarkForReview(req.QID, value, req.Advance); err != nil {
		conn.WriteError(err.Error())
		return
	}

	if value != nil {
		h.autosave(contestID, studentID, req.QID, *value, model.StatusMarkedForReview, wsLog)
	} else {
		statusesKey := config.CacheKey.StudentStatusesKey(contestID.String(), studentID)
		h.rdb.HSet(context.Background(), statusesKey, req.QID, string(model.StatusMarkedForReview))
	}

	conn.WriteTyped(ws.SuccessResponse{Event: ws.EventSuccess, Status: "marked"})
}

func (h *WSHandler) handleViolation(conn *ws.Conn, monitor *session.Monitor, contestID uuid.UUID, studentID int, data []byte, wsLog zerolog.Logger) {
	var req ws.ViolationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.WriteError("malformed violation payload")
		return
	}

	kind := model.ViolationKind(req.Kind)
	if !model.KnownViolationKind(kind) {
		conn.WriteError("unknown violation kind: " + req.Kind)
		return
	}

	h.queue.QueueViolation(context.Background(), &model.Violation{
		ContestID:  contestID,
		StudentID:  studentID,
		Kind:       kind,
		Detail:     req.Detail,
		OccurredAt: time.Now(),
	})

	// Report after queueing: the forced-submit callback may close the
	// connection as soon as the grace timer is armed with a zero grace.
	monitor.Report(kind)

	wsLog.Warn().Str("kind", req.Kind).Msg("Violation reported")
}

// handleSubmit runs the voluntary submission path. Returns true when the
// session reached terminal and the connection should close.
func (h *WSHandler) handleSubmit(conn *ws.Conn, controller *session.Controller, wsLog zerolog.Logger) bool {
	if err := controller.FinalSubmit(context.Background()); err != nil {
		// Session stays open; the student can retry.
		wsLog.Error().Err(err).Msg("Voluntary submission failed")
		conn.WriteError("submission failed, please try again")
		return false
	}

	conn.WriteTyped(ws.SubmittedResponse{Event: ws.EventSubmitted, Reason: string(model.ReasonSubmitted)})
	return true
}

// autosave mirrors a saved answer into the Redis buffer and the persistence
// queue. Best-effort: the controller already holds the authoritative state.
func (h *WSHandler) autosave(contestID uuid.UUID, studentID int, qid string, v model.AnswerValue, status model.QuestionStatus, wsLog zerolog.Logger) {
	ctx := context.Background()
	cid := contestID.String()
	encoded := v.Encode()

	pipe := h.rdb.Pipeline()
	pipe.HSet(ctx, config.CacheKey.StudentAnswersKey(cid, studentID), qid, encoded)
	pipe.HSet(ctx, config.CacheKey.StudentStatusesKey(cid, studentID), qid, string(status))

	raw, _ := json.Marshal(gateway.AnswerRecord{
		StudentID:  studentID,
		ContestID:  cid,
		QuestionID: qid,
		Answer:     encoded,
		Status:     string(status),
	})
	pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw)

	if _, err := pipe.Exec(ctx); err != nil {
		wsLog.Error().Err(err).Str("q_id", qid).Msg("Autosave Redis error")
	}
}

// decodeWireAnswer maps the client's raw JSON answer onto the tagged union:
// a JSON string becomes a text answer, a JSON array of strings a list answer.
func decodeWireAnswer(raw json.RawMessage) (model.AnswerValue, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return model.TextAnswer(text), nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return model.ListAnswer(list...), nil
	}

	return model.AnswerValue{}, model.ErrAnswerWantsText
}
