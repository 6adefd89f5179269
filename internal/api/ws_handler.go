package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/gateway"
	"resumeBuilder/internal/store"
	"resumeBuilder/internal/worker"
)

const wsPingInterval = 30 * time.Second

// WsHandler 将文档变更与后台导出结果推送给浏览器。
type WsHandler struct {
	registry       *store.Registry
	subscriber     gateway.Subscriber
	redisClient    redis.UniversalClient
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
	pingInterval   time.Duration
}

// NewWsHandler 构造 WebSocket 处理器。subscriber 与 redisClient 均可为 nil，
// 对应的消息来源会被跳过。
func NewWsHandler(registry *store.Registry, subscriber gateway.Subscriber, redisClient redis.UniversalClient, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &WsHandler{
		registry:       registry,
		subscriber:     subscriber,
		redisClient:    redisClient,
		logger:         logger,
		allowedOrigins: allowedOrigins,
		pingInterval:   wsPingInterval,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

type wsDocumentMessage struct {
	Type  string        `json:"type"`
	Event gateway.Event `json:"event"`
}

// HandleConnection 升级连接并转发消息，直到任一方断开。
// ?resume_id= 只订阅单个简历的变更。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	owner, ok := middleware.GetOwnerID(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "owner required")
		return
	}
	resumeID := c.Query("resume_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.logger.With(
		slog.String("owner_id", owner),
		slog.String("client_ip", c.ClientIP()),
	)

	events, err := h.subscribeDocuments(ctx, owner, resumeID)
	if err != nil {
		log.Warn("subscribe document changes failed", slog.Any("error", err))
		writeClose(conn, websocket.CloseInternalServerErr, "subscribe failed")
		return
	}
	notices := h.subscribeNotifications(ctx, owner, log)

	errCh := make(chan error, 1)
	go h.readLoop(ctx, conn, errCh, cancel)

	if err := h.writeLoop(ctx, conn, events, notices, log); err != nil {
		log.Info("websocket connection closed", slog.Any("error", err))
		return
	}
	select {
	case err := <-errCh:
		log.Info("websocket connection closed", slog.Any("error", err))
	default:
		log.Info("websocket connection closed")
	}
}

func (h *WsHandler) subscribeDocuments(ctx context.Context, owner, resumeID string) (<-chan gateway.Event, error) {
	if h.subscriber == nil {
		return nil, nil
	}
	return h.subscriber.Subscribe(ctx, h.registry.Collection(owner), resumeID)
}

func (h *WsHandler) subscribeNotifications(ctx context.Context, owner string, log *slog.Logger) <-chan *redis.Message {
	if h.redisClient == nil {
		return nil
	}
	channel := worker.NotifyChannel(owner)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	go func() {
		<-ctx.Done()
		_ = pubsub.Close()
	}()
	log.Info("subscribed to redis channel", slog.String("channel", channel))
	return pubsub.Channel()
}

// readLoop 只用于检测客户端断开，客户端消息被忽略。
func (h *WsHandler) readLoop(ctx context.Context, conn *websocket.Conn, errCh chan<- error, cancel context.CancelFunc) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			select {
			case <-ctx.Done():
			default:
				errCh <- fmt.Errorf("read message: %w", err)
			}
			cancel()
			return
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func (h *WsHandler) writeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	events <-chan gateway.Event,
	notices <-chan *redis.Message,
	log *slog.Logger,
) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				if notices == nil {
					writeClose(conn, websocket.CloseGoingAway, "subscription closed")
					return fmt.Errorf("document subscription closed")
				}
				continue
			}
			payload, err := json.Marshal(wsDocumentMessage{Type: "document_changed", Event: ev})
			if err != nil {
				log.Warn("encode document event failed", slog.Any("error", err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
		case msg, ok := <-notices:
			if !ok {
				notices = nil
				if events == nil {
					writeClose(conn, websocket.CloseGoingAway, "subscription closed")
					return fmt.Errorf("pubsub channel closed")
				}
				continue
			}
			log.Info("forwarding message to client", slog.String("channel", msg.Channel))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}
