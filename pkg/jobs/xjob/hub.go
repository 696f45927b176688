package xjob

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wisey/telekit/pkg/observability/xlog"
)

// 心跳与写超时的默认参数。
const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	clientSendBuffer         = 16
)

// MessageTypeStatusUpdate 状态推送消息的 type 字段值。
const MessageTypeStatusUpdate = "status_update"

// StatusUpdate 推送给订阅方的任务状态消息。
type StatusUpdate struct {
	Type  string          `json:"type"`
	JobID string          `json:"job_id"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// subscribeRequest 客户端的订阅控制消息。
type subscribeRequest struct {
	Action string `json:"action"` // subscribe / unsubscribe
	JobID  string `json:"job_id"`
}

// StatusHub 任务状态的 WebSocket 推送枢纽。
//
// 客户端通过 Handler 建连后发送 {"action":"subscribe","job_id":"..."}
// 订阅感兴趣的任务；Publish 将状态更新推送给该任务的所有订阅方。
// 连接数、订阅数、推送消息与心跳全部自动上报。
type StatusHub struct {
	metrics  *JobMetrics
	upgrader websocket.Upgrader

	heartbeatInterval time.Duration
	writeTimeout      time.Duration

	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	subs    map[string]map[*hubClient]struct{} // jobID -> 订阅方

	closed atomic.Bool
}

// hubClient 一条 WebSocket 连接。
type hubClient struct {
	conn *websocket.Conn
	send chan []byte

	// mu 保护 subs 与 sendClosed。锁序固定为 hub.mu → client.mu。
	mu         sync.Mutex
	subs       map[string]struct{}
	sendClosed bool
}

// trySend 向发送缓冲投递一条消息。
// 连接已摘除或缓冲已满时返回 false，绝不阻塞调用方。
func (c *hubClient) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// NewStatusHub 创建状态推送枢纽。
func NewStatusHub(metrics *JobMetrics, opts ...HubOption) *StatusHub {
	options := &hubOptions{
		heartbeatInterval: defaultHeartbeatInterval,
		writeTimeout:      defaultWriteTimeout,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}

	return &StatusHub{
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     options.checkOrigin,
		},
		heartbeatInterval: options.heartbeatInterval,
		writeTimeout:      options.writeTimeout,
		clients:           make(map[*hubClient]struct{}),
		subs:              make(map[string]map[*hubClient]struct{}),
	}
}

// Handler 返回 WebSocket 升级入口。
func (h *StatusHub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.closed.Load() {
			http.Error(w, "hub closed", http.StatusServiceUnavailable)
			return
		}

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			xlog.Warn(r.Context(), "xjob: websocket upgrade failed", slog.Any("error", err))
			return
		}

		c := &hubClient{
			conn: conn,
			send: make(chan []byte, clientSendBuffer),
			subs: make(map[string]struct{}),
		}

		h.mu.Lock()
		h.clients[c] = struct{}{}
		h.mu.Unlock()
		h.metrics.RecordWSConnection(r.Context(), 1)

		go h.writePump(c)
		h.readPump(r.Context(), c)
	})
}

// readPump 处理一条连接上的订阅控制消息，连接断开时清理状态。
func (h *StatusHub) readPump(ctx context.Context, c *hubClient) {
	defer h.dropClient(ctx, c)

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req subscribeRequest
		if err := json.Unmarshal(payload, &req); err != nil || req.JobID == "" {
			continue
		}

		switch req.Action {
		case "subscribe":
			h.subscribe(ctx, c, req.JobID)
		case "unsubscribe":
			h.unsubscribe(ctx, c, req.JobID)
		}
	}
}

// writePump 负责向连接写出推送消息与周期性心跳。
func (h *StatusHub) writePump(c *hubClient) {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(h.writeTimeout))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			h.metrics.RecordWSHeartbeat(context.Background())
		}
	}
}

func (h *StatusHub) subscribe(ctx context.Context, c *hubClient, jobID string) {
	// 两把锁覆盖整个登记过程：若放开 c.mu 后再取 h.mu，
	// dropClient 可能在间隙中摘除该连接，导致已摘除的连接被重新
	// 写回 h.subs，留下永远无人消费的死订阅。
	h.mu.Lock()
	c.mu.Lock()
	if c.sendClosed {
		c.mu.Unlock()
		h.mu.Unlock()
		return
	}
	if _, exists := c.subs[jobID]; exists {
		c.mu.Unlock()
		h.mu.Unlock()
		return
	}
	c.subs[jobID] = struct{}{}
	c.mu.Unlock()

	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[*hubClient]struct{})
	}
	h.subs[jobID][c] = struct{}{}
	h.mu.Unlock()

	h.metrics.RecordWSSubscription(ctx, 1)
}

func (h *StatusHub) unsubscribe(ctx context.Context, c *hubClient, jobID string) {
	c.mu.Lock()
	_, exists := c.subs[jobID]
	delete(c.subs, jobID)
	c.mu.Unlock()
	if !exists {
		return
	}

	h.mu.Lock()
	if set := h.subs[jobID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, jobID)
		}
	}
	h.mu.Unlock()

	h.metrics.RecordWSSubscription(ctx, -1)
}

// dropClient 摘除连接并回退其全部订阅计数。
func (h *StatusHub) dropClient(ctx context.Context, c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)

	c.mu.Lock()
	subCount := int64(len(c.subs))
	for jobID := range c.subs {
		if set := h.subs[jobID]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subs, jobID)
			}
		}
	}
	c.subs = make(map[string]struct{})
	c.sendClosed = true
	close(c.send)
	c.mu.Unlock()
	h.mu.Unlock()
	h.metrics.RecordWSConnection(ctx, -1)
	if subCount > 0 {
		h.metrics.RecordWSSubscription(ctx, -subCount)
	}
}

// Publish 向订阅了 jobID 的所有连接推送状态更新。
//
// data 需可 JSON 序列化。没有订阅方时为空操作；
// 发送缓冲已满的慢连接跳过本条消息（不阻塞发布方）。
func (h *StatusHub) Publish(ctx context.Context, jobID string, data any) error {
	if h.closed.Load() {
		return ErrHubClosed
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(StatusUpdate{
		Type:  MessageTypeStatusUpdate,
		JobID: jobID,
		Data:  raw,
	})
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*hubClient, 0, len(h.subs[jobID]))
	for c := range h.subs[jobID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.trySend(payload) {
			h.metrics.RecordWSMessage(ctx, MessageTypeStatusUpdate)
		} else {
			xlog.Warn(ctx, "xjob: slow websocket subscriber, dropping update",
				slog.String("job_id", jobID))
		}
	}
	return nil
}

// Stats 返回当前连接数与订阅的任务数。
func (h *StatusHub) Stats() (connections, subscribedJobs int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients), len(h.subs)
}

// Close 关闭枢纽并断开所有连接。重复调用安全。
func (h *StatusHub) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return ErrHubClosed
	}

	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	ctx := context.Background()
	for _, c := range clients {
		_ = c.conn.Close()
		h.dropClient(ctx, c)
	}
	return nil
}

// =============================================================================
// 选项
// =============================================================================

type hubOptions struct {
	heartbeatInterval time.Duration
	writeTimeout      time.Duration
	checkOrigin       func(r *http.Request) bool
}

// HubOption 定义状态枢纽的配置选项。
type HubOption func(*hubOptions)

// WithHeartbeatInterval 设置心跳间隔。
func WithHeartbeatInterval(d time.Duration) HubOption {
	return func(o *hubOptions) {
		if d > 0 {
			o.heartbeatInterval = d
		}
	}
}

// WithWriteTimeout 设置单条消息的写超时。
func WithWriteTimeout(d time.Duration) HubOption {
	return func(o *hubOptions) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithCheckOrigin 设置跨域校验函数。
func WithCheckOrigin(fn func(r *http.Request) bool) HubOption {
	return func(o *hubOptions) {
		if fn != nil {
			o.checkOrigin = fn
		}
	}
}
