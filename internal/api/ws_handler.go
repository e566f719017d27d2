package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"certforge/internal/jobs"
)

type redisSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// WsHandler 把某个任务的状态变化通过 WebSocket 推送给前端。
type WsHandler struct {
	subscriber redisSubscriber
	status     jobStatusStore
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewWsHandler 构造 WebSocket 处理器，只接受同源或无 Origin 的连接。
func NewWsHandler(subscriber redisSubscriber, status jobStatusStore, logger *slog.Logger) *WsHandler {
	return &WsHandler{
		subscriber: subscriber,
		status:     status,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: sameOrigin,
		},
	}
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// HandleConnection 升级连接，先推送当前状态，再转发后续通知，直到任务结束。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := h.status.Get(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			NotFound(c, "job not found")
			return
		}
		Internal(c, "failed to load job")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
		slog.String("job_id", jobID),
	)

	// 先订阅再读取快照，避免两者之间的状态变化丢失。
	channel := jobs.Channel(jobID)
	pubsub := h.subscriber.Subscribe(ctx, channel)
	defer pubsub.Close()

	snapshot, err := h.status.Get(ctx, jobID)
	if err != nil {
		writeClose(conn, websocket.CloseInternalServerErr, "status unavailable")
		log.Warn("load job snapshot failed", slog.Any("error", err))
		return
	}
	if done, err := forward(conn, *snapshot); err != nil || done {
		return
	}

	errCh := make(chan error, 2)
	go h.readLoop(ctx, conn, errCh, cancel)
	go h.subscribeLoop(ctx, conn, pubsub, errCh, cancel, log)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Info("websocket connection closed", slog.Any("error", err))
		} else {
			log.Info("websocket connection closed")
		}
	}
}

// readLoop 只用于检测客户端断开。
func (h *WsHandler) readLoop(ctx context.Context, conn *websocket.Conn, errCh chan<- error, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, _, err := conn.ReadMessage(); err != nil {
			errCh <- fmt.Errorf("read message: %w", err)
			cancel()
			return
		}
	}
}

func (h *WsHandler) subscribeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	pubsub *redis.PubSub,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	ch := pubsub.Channel()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				errCh <- fmt.Errorf("pubsub channel closed")
				cancel()
				return
			}

			var status jobs.Message
			if err := json.Unmarshal([]byte(msg.Payload), &status); err != nil {
				log.Warn("drop malformed job notification", slog.Any("error", err))
				continue
			}
			done, err := forward(conn, status)
			if err != nil || done {
				errCh <- err
				cancel()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				errCh <- fmt.Errorf("write ping: %w", err)
				cancel()
				return
			}
		}
	}
}

// forward 写出一条状态消息；任务结束时随后发送正常关闭帧。
func forward(conn *websocket.Conn, status jobs.Message) (done bool, err error) {
	if err := conn.WriteJSON(status); err != nil {
		return false, fmt.Errorf("write message: %w", err)
	}
	if status.Terminal() {
		writeClose(conn, websocket.CloseNormalClosure, status.Status)
		return true, nil
	}
	return false, nil
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
