package session

import (
	"sync"
	"time"

	"fpiersk/internal/service"
	"fpiersk/internal/store"
)

// Manager 按邮箱管理所有在线会话
// HTTP处理器通过Manager取得会话后，所有操作都经会话goroutine串行执行
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store    *store.UserStore
	friends  *service.FriendService
	messages *service.MessageService
	interval time.Duration
}

// NewManager 创建会话管理器
func NewManager(st *store.UserStore, friends *service.FriendService,
	messages *service.MessageService, interval time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		store:    st,
		friends:  friends,
		messages: messages,
		interval: interval,
	}
}

// Attach 取得该邮箱的会话，不存在则创建并启动
// 服务重启后持有旧token的请求会走到这里惰性重建会话
func (m *Manager) Attach(email string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[email]; ok {
		return s, nil
	}
	s, err := New(email, m.store, m.friends, m.messages, m.interval)
	if err != nil {
		return nil, err
	}
	m.sessions[email] = s
	return s, nil
}

// Detach 结束并移除该邮箱的会话
func (m *Manager) Detach(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[email]; ok {
		s.Stop()
		delete(m.sessions, email)
	}
}

// StopAll 结束所有会话（进程关闭时调用）
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for email, s := range m.sessions {
		s.Stop()
		delete(m.sessions, email)
	}
}
