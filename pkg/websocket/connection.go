package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageHandler handles one inbound text frame. A non-nil reply is sent
// back as JSON; returning an error closes the connection.
type MessageHandler func(message []byte) (reply interface{}, err error)

// newUpgrader 根据配置创建WebSocket升级器
func newUpgrader(cfg *Config) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			if len(cfg.AllowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range cfg.AllowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
}

// Connection is one upgraded client.
type Connection struct {
	conn   *websocket.Conn
	cfg    *Config
	send   chan []byte
	logger *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// Serve upgrades the request and runs the read and write pumps until the
// client goes away. It blocks.
func Serve(w http.ResponseWriter, r *http.Request, cfg *Config, logger *zap.Logger, handle MessageHandler) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	upgrader := newUpgrader(cfg)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return err
	}
	c := &Connection{
		conn:   conn,
		cfg:    cfg,
		send:   make(chan []byte, cfg.MessageBufferSize),
		logger: logger,
		done:   make(chan struct{}),
	}
	go c.writePump()
	c.readPump(handle)
	return nil
}

// Send queues v as JSON. It drops the message when the buffer is full.
func (c *Connection) Send(v interface{}) bool {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("websocket marshal failed", zap.Error(err))
		return false
	}
	select {
	case <-c.done:
		return false
	case c.send <- b:
		return true
	default:
		c.logger.Warn("websocket send buffer full, dropping message")
		return false
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump 读取消息
func (c *Connection) readPump(handle MessageHandler) {
	defer c.close()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.ConnectionTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.ConnectionTimeout))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		reply, err := handle(message)
		if err != nil {
			c.logger.Debug("websocket handler closed connection", zap.Error(err))
			return
		}
		if reply != nil {
			c.Send(reply)
		}
	}
}

// writePump 发送消息并定时 ping
func (c *Connection) writePump() {
	interval := c.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	ticker := time.NewTicker(time.Duration(float64(interval) * 0.9))
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
