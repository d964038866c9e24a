package service

import (
	"context"
	"encoding/json"
	"fmt"
	"helpmarket_backend/internal/util"
	"helpmarket_backend/pkg/logger"
	"helpmarket_backend/pkg/monitoring"
	"helpmarket_backend/pkg/security"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	onlineTTL      = 2 * time.Minute // 在线状态过期时间

	liveChannel = "helpmarket:live"
)

// 服务端推送的事件
const (
	EventNewApplication      = "new-application"
	EventRequestStatusChange = "request-status-change"
	EventApplicationAccepted = "application-accepted"
	EventApplicationStatus   = "application-status"
	EventApplicationRemoved  = "application-removed"
	EventNewMessage          = "new-message"
	EventUserNotification    = "user-notification"
)

// 客户端上行帧
const (
	FrameJoinRequest  = "JOIN_REQUEST"
	FrameLeaveRequest = "LEAVE_REQUEST"
	FrameJoined       = "JOINED"
	FrameError        = "ERROR"
)

// Broadcaster 实时推送，调用方不关心失败
type Broadcaster interface {
	ToUser(userID uint, event string, data interface{})
	ToRequest(requestID string, event string, data interface{})
}

// RoomAuthorizer 判断用户能否加入某个求助房间
type RoomAuthorizer func(ctx context.Context, p util.Principal, requestID string) error

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type inboundFrame struct {
	Type string `json:"type"`
	Data struct {
		RequestID string `json:"requestId"`
	} `json:"data"`
}

func UserRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func RequestRoom(requestID string) string {
	return "request:" + requestID
}

type Client struct {
	Hub       *LiveHub
	Conn      *websocket.Conn
	Send      chan []byte
	Principal util.Principal
	Limiter   *rate.Limiter

	mu    sync.Mutex
	rooms map[string]struct{}
}

func newClient(hub *LiveHub, conn *websocket.Conn, p util.Principal) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		Principal: p,
		Limiter:   rate.NewLimiter(rate.Limit(10), 20), // 每秒10帧，允许突发20帧
		rooms:     make(map[string]struct{}),
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.stop:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.Principal.UserID))
			}
			break
		}

		if !c.Limiter.Allow() {
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			continue
		}
		c.Hub.handleFrame(c, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// 每帧一个 JSON，客户端逐帧解析
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendFrame 直接回给当前连接（不经过房间）
func (c *Client) sendFrame(msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.Send <- payload:
	default:
	}
}

type shard struct {
	clients map[uint]map[*Client]struct{}
	mu      sync.RWMutex
}

// LiveHub 实时推送中心：每个用户一个房间，每个求助一个房间，多实例之间通过 Redis 广播
type LiveHub struct {
	shards     [shardCount]*shard
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once

	roomsMu      sync.RWMutex
	requestRooms map[string]map[*Client]struct{}

	Redis     *redis.Client
	Authorize RoomAuthorizer
	Origins   *security.OriginSet
	ctx       context.Context
}

func NewLiveHub(rdb *redis.Client, origins *security.OriginSet) *LiveHub {
	h := &LiveHub{
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		stop:         make(chan struct{}),
		requestRooms: make(map[string]map[*Client]struct{}),
		Redis:        rdb,
		Origins:      origins,
		ctx:          context.Background(),
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{
			clients: make(map[uint]map[*Client]struct{}),
		}
	}
	return h
}

func (h *LiveHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

type PubSubMessage struct {
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

func (h *LiveHub) ToUser(userID uint, event string, data interface{}) {
	h.publish(UserRoom(userID), event, data)
}

func (h *LiveHub) ToRequest(requestID string, event string, data interface{}) {
	h.publish(RequestRoom(requestID), event, data)
}

func (h *LiveHub) publish(room, event string, data interface{}) {
	msgBytes, err := json.Marshal(WSMessage{Type: event, Data: data})
	if err != nil {
		logger.Log.Warn("Live event marshal failed", zap.String("event", event), zap.Error(err))
		return
	}
	monitoring.LiveEvents.WithLabelValues(event).Inc()

	if h.Redis == nil {
		h.deliverLocal(room, msgBytes)
		return
	}

	payload, _ := json.Marshal(PubSubMessage{Room: room, Payload: msgBytes})
	if err := h.Redis.Publish(h.ctx, liveChannel, payload).Err(); err != nil {
		logger.Log.Warn("Live publish failed, delivering locally", zap.String("room", room), zap.Error(err))
		h.deliverLocal(room, msgBytes)
	}
}

// deliverLocal 投递给本实例上该房间的连接，慢连接丢帧。
// 发送时持有读锁，removeClient 在写锁下关闭 Send，二者不会交错。
func (h *LiveHub) deliverLocal(room string, payload []byte) {
	send := func(c *Client) {
		select {
		case c.Send <- payload:
		default:
		}
	}

	switch {
	case strings.HasPrefix(room, "user:"):
		userID, ok := util.ParseID(strings.TrimPrefix(room, "user:"))
		if !ok {
			return
		}
		s := h.getShard(userID)
		s.mu.RLock()
		for c := range s.clients[userID] {
			send(c)
		}
		s.mu.RUnlock()
	case strings.HasPrefix(room, "request:"):
		h.roomsMu.RLock()
		for c := range h.requestRooms[strings.TrimPrefix(room, "request:")] {
			send(c)
		}
		h.roomsMu.RUnlock()
	}
}

// RoomSize 本实例上某个房间的连接数
func (h *LiveHub) RoomSize(room string) int {
	switch {
	case strings.HasPrefix(room, "user:"):
		userID, ok := util.ParseID(strings.TrimPrefix(room, "user:"))
		if !ok {
			return 0
		}
		s := h.getShard(userID)
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.clients[userID])
	case strings.HasPrefix(room, "request:"):
		h.roomsMu.RLock()
		defer h.roomsMu.RUnlock()
		return len(h.requestRooms[strings.TrimPrefix(room, "request:")])
	}
	return 0
}

func (h *LiveHub) handleFrame(c *Client, frame inboundFrame) {
	requestID := frame.Data.RequestID
	switch frame.Type {
	case FrameJoinRequest:
		if requestID == "" {
			c.sendFrame(WSMessage{Type: FrameError, Data: "requestId obrigatório"})
			return
		}
		if h.Authorize != nil {
			ctx := util.WithRequestCache(h.ctx, util.NewRequestCache())
			if err := h.Authorize(ctx, c.Principal, requestID); err != nil {
				c.sendFrame(WSMessage{Type: FrameError, Data: err.Error()})
				return
			}
		}
		h.join(c, requestID)
		c.sendFrame(WSMessage{Type: FrameJoined, Data: map[string]string{"requestId": requestID}})
	case FrameLeaveRequest:
		h.leave(c, requestID)
	}
}

func (h *LiveHub) join(c *Client, requestID string) {
	h.roomsMu.Lock()
	members, ok := h.requestRooms[requestID]
	if !ok {
		members = make(map[*Client]struct{})
		h.requestRooms[requestID] = members
	}
	members[c] = struct{}{}
	h.roomsMu.Unlock()

	c.mu.Lock()
	c.rooms[requestID] = struct{}{}
	c.mu.Unlock()
}

func (h *LiveHub) leave(c *Client, requestID string) {
	h.roomsMu.Lock()
	if members, ok := h.requestRooms[requestID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.requestRooms, requestID)
		}
	}
	h.roomsMu.Unlock()

	c.mu.Lock()
	delete(c.rooms, requestID)
	c.mu.Unlock()
}

// addClient 返回该用户是否从离线变为在线
func (h *LiveHub) addClient(c *Client) bool {
	s := h.getShard(c.Principal.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()
	conns, ok := s.clients[c.Principal.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		s.clients[c.Principal.UserID] = conns
	}
	conns[c] = struct{}{}
	return len(conns) == 1
}

// removeClient 返回该用户是否已没有连接
func (h *LiveHub) removeClient(c *Client) bool {
	c.mu.Lock()
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.Unlock()
	for _, r := range rooms {
		h.leave(c, r)
	}

	s := h.getShard(c.Principal.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()
	conns, ok := s.clients[c.Principal.UserID]
	if !ok {
		return false
	}
	if _, ok := conns[c]; !ok {
		return false
	}
	delete(conns, c)
	close(c.Send)
	if len(conns) == 0 {
		delete(s.clients, c.Principal.UserID)
		return true
	}
	return false
}

func (h *LiveHub) Run() {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(h.ctx, liveChannel)
		defer pubsub.Close()
		go func() {
			for msg := range pubsub.Channel() {
				var psMsg PubSubMessage
				if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
					logger.Log.Error("PubSub unmarshal error", zap.Error(err))
					continue
				}
				h.deliverLocal(psMsg.Room, psMsg.Payload)
			}
		}()
	}

	// 批量处理在线状态
	ticker := time.NewTicker(500 * time.Millisecond)
	// 状态续期定时器 (Heartbeat)
	heartbeatTicker := time.NewTicker(1 * time.Minute)
	defer func() {
		ticker.Stop()
		heartbeatTicker.Stop()
	}()

	type statusUpdate struct {
		userID uint
		online bool
	}
	var pendingUpdates []statusUpdate

	for {
		select {
		case <-h.stop:
			return

		case client := <-h.register:
			if h.addClient(client) {
				pendingUpdates = append(pendingUpdates, statusUpdate{client.Principal.UserID, true})
				monitoring.LiveOnlineUsers.Inc()
			}

		case client := <-h.unregister:
			if h.removeClient(client) {
				pendingUpdates = append(pendingUpdates, statusUpdate{client.Principal.UserID, false})
				monitoring.LiveOnlineUsers.Dec()
			}

		case <-heartbeatTicker.C:
			h.refreshOnlineStatus()

		case <-ticker.C:
			if len(pendingUpdates) == 0 || h.Redis == nil {
				pendingUpdates = pendingUpdates[:0]
				continue
			}

			pipe := h.Redis.Pipeline()
			for _, update := range pendingUpdates {
				key := fmt.Sprintf("user:online:%d", update.userID)
				if update.online {
					pipe.Set(h.ctx, key, "true", onlineTTL)
				} else {
					pipe.Del(h.ctx, key)
				}
			}
			if _, err := pipe.Exec(h.ctx); err != nil {
				logger.Log.Error("Redis pipeline error", zap.Error(err))
			}
			pendingUpdates = pendingUpdates[:0]
		}
	}
}

// refreshOnlineStatus 刷新当前实例所有在线用户的过期时间
func (h *LiveHub) refreshOnlineStatus() {
	if h.Redis == nil {
		return
	}
	pipe := h.Redis.Pipeline()
	count := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for userID := range s.clients {
			pipe.Expire(h.ctx, fmt.Sprintf("user:online:%d", userID), onlineTTL)
			count++
		}
		s.mu.RUnlock()
	}
	if count > 0 {
		pipe.Exec(h.ctx)
		logger.Log.Debug("Refreshed online status", zap.Int("count", count))
	}
}

func (h *LiveHub) IsUserOnline(userID uint) bool {
	s := h.getShard(userID)
	s.mu.RLock()
	_, ok := s.clients[userID]
	s.mu.RUnlock()
	if ok || h.Redis == nil {
		return ok
	}

	// 多实例部署时查 Redis
	val, err := h.Redis.Get(h.ctx, fmt.Sprintf("user:online:%d", userID)).Result()
	return err == nil && val == "true"
}

// registerClient 交给 Run 登记连接；hub 已停止时返回 false
func (h *LiveHub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stop:
		return false
	}
}

// Stop 关闭所有连接并清理在线状态，可重复调用
func (h *LiveHub) Stop() {
	h.stopOnce.Do(h.shutdown)
}

func (h *LiveHub) shutdown() {
	logger.Log.Info("LiveHub stopping: clearing online status and closing connections...")
	close(h.stop)

	h.roomsMu.Lock()
	h.requestRooms = make(map[string]map[*Client]struct{})
	h.roomsMu.Unlock()

	var allUserIDs []uint
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, conns := range s.clients {
			allUserIDs = append(allUserIDs, userID)
			for c := range conns {
				close(c.Send)
			}
			delete(s.clients, userID)
		}
		s.mu.Unlock()
	}

	if len(allUserIDs) > 0 && h.Redis != nil {
		pipe := h.Redis.Pipeline()
		for _, userID := range allUserIDs {
			pipe.Del(h.ctx, fmt.Sprintf("user:online:%d", userID))
		}
		pipe.Exec(h.ctx)
	}

	monitoring.LiveOnlineUsers.Set(0)
	logger.Log.Info("LiveHub stopped", zap.Int("users", len(allUserIDs)))
}

func (h *LiveHub) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || h.Origins == nil || h.Origins.Allowed(origin)
		},
	}
}

func ServeWs(hub *LiveHub, w http.ResponseWriter, r *http.Request, p util.Principal) {
	conn, err := hub.upgrader().Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", p.UserID))
		return
	}
	client := newClient(hub, conn, p)
	if !hub.registerClient(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
