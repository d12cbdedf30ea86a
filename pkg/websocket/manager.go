package websocket

import (
	"encoding/json"
	"sync"

	"fpiersk/internal/session"

	"github.com/gorilla/websocket"
)

// Client 代表一个WebSocket连接的用户
// Email: 用户邮箱（存储表主键）
// Conn: WebSocket连接
// Send: 发送消息的通道

type Client struct {
	Email string
	Conn  *websocket.Conn
	Send  chan []byte

	done chan struct{}
	once sync.Once
}

// NewClient 创建连接客户端
func NewClient(email string, conn *websocket.Conn) *Client {
	return &Client{
		Email: email,
		Conn:  conn,
		Send:  make(chan []byte, 256),
		done:  make(chan struct{}),
	}
}

// Close 标记连接失效并关闭底层连接
// Send通道从不关闭：同邮箱重连替换旧连接时，并发中的Notify
// 最多把事件投递到无人消费的缓冲里，不会写已关闭通道
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// Done 连接失效信号
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Manager 管理所有在线用户的WebSocket连接
// 连接是会话重渲染事件的送达通道：轮询同步仍是数据来源，
// WebSocket只负责把重渲染结果推到客户端

type Manager struct {
	clients map[string]*Client // 在线用户，邮箱为键
	lock    sync.RWMutex
}

var manager = &Manager{
	clients: make(map[string]*Client),
}

// GetManager 获取全局WebSocket管理器
func GetManager() *Manager {
	return manager
}

// AddClient 添加新连接
// 同一邮箱的旧连接被替换并标记失效（一个会话一条推送通道）
func (m *Manager) AddClient(email string, client *Client) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if old, ok := m.clients[email]; ok {
		old.Close()
	}
	m.clients[email] = client
}

// RemoveClient 移除连接
// 仅当仍是当前注册的连接时移除，避免被替换的旧连接误删新连接；
// 返回是否实际移除，调用方据此决定是否做下线清理
func (m *Manager) RemoveClient(email string, client *Client) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	if c, ok := m.clients[email]; ok && c == client {
		c.Close()
		delete(m.clients, email)
		return true
	}
	return false
}

// Notifier 将连接包装为会话推送出口
type Notifier struct {
	client *Client
}

// NewNotifier 创建会话推送出口
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// Notify 序列化事件并投递到连接发送队列
// 队列满或连接已失效时丢弃本次事件：重渲染是幂等的，下个tick还会推送
func (n *Notifier) Notify(event session.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case <-n.client.done:
	case n.client.Send <- data:
	default:
	}
}
