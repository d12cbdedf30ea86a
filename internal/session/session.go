package session

import (
	"errors"
	"sync"
	"time"

	"fpiersk/internal/model"
	"fpiersk/internal/service"
	"fpiersk/internal/store"
	"fpiersk/pkg/logger"

	"go.uber.org/zap"
)

var (
	// ErrStopped 会话已结束，不再接受操作
	ErrStopped = errors.New("session stopped")
	// ErrUnknownUser 存储表中不存在该用户
	ErrUnknownUser = errors.New("unknown user")
)

// Notifier 会话推送出口（通常是一条WebSocket连接）
type Notifier interface {
	Notify(event Event)
}

// Event 推送给会话订阅者的事件
type Event struct {
	Type         string          `json:"type"`
	Conversation string          `json:"conversation,omitempty"`
	Messages     []model.Message `json:"messages,omitempty"`
}

// EventConversationUpdate 当前打开会话的重渲染事件
const EventConversationUpdate = "conversation_update"

// Session 单个登录会话的逻辑执行者
// 用户操作（发消息、加好友、打开会话）与同步tick都在同一个goroutine
// 上串行执行：同一会话内不存在并发修改。跨会话（不同进程）之间
// 仍是UserStore的最后写入者胜出语义
//
// 同步采用固定间隔整表重载，没有增量机制——以效率换简单，是
// 刻意保留的行为。重载失败视为瞬态：保留旧视图，等下一个tick
type Session struct {
	email    string
	store    *store.UserStore
	friends  *service.FriendService
	messages *service.MessageService
	interval time.Duration

	// 以下字段仅在会话goroutine上访问
	user       *model.User
	table      model.Table
	openFriend string
	notifier   Notifier

	cmds     chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// New 创建并启动会话
// 登录后调用；存储表中找不到该邮箱时返回 ErrUnknownUser
func New(email string, st *store.UserStore, friends *service.FriendService,
	messages *service.MessageService, interval time.Duration) (*Session, error) {

	table := st.Load()
	user, ok := table[email]
	if !ok {
		return nil, ErrUnknownUser
	}
	if interval <= 0 {
		interval = time.Second
	}

	s := &Session{
		email:    email,
		store:    st,
		friends:  friends,
		messages: messages,
		interval: interval,
		user:     user,
		table:    table,
		cmds:     make(chan func()),
		done:     make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// run 会话主循环：命令与同步tick在此串行
func (s *Session) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case fn := <-s.cmds:
			fn()
		case <-ticker.C:
			s.refresh()
		}
	}
}

// Stop 结束会话，之后不再有tick，也不再接受操作
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		logger.Info("会话结束", zap.String("email", s.email))
	})
}

// exec 将操作投递到会话goroutine并等待执行完成
func (s *Session) exec(fn func()) error {
	wait := make(chan struct{})
	select {
	case s.cmds <- func() { fn(); close(wait) }:
	case <-s.done:
		return ErrStopped
	}
	select {
	case <-wait:
		return nil
	case <-s.done:
		return ErrStopped
	}
}

// refresh 同步tick：整表重载并替换内存视图
// 重载结果中找不到当前用户（文件缺失、损坏或被外部改写）时
// 保留旧视图；打开的会话在每个tick后从新数据重渲染并推送
func (s *Session) refresh() {
	table := s.store.Load()
	user, ok := table[s.email]
	if !ok {
		return
	}
	s.table = table
	s.user = user

	if s.openFriend != "" && s.notifier != nil {
		s.notifier.Notify(Event{
			Type:         EventConversationUpdate,
			Conversation: s.openFriend,
			Messages:     s.user.Messages[model.ChatKey(s.user.Nick, s.openFriend)],
		})
	}
}

// Email 会话所属邮箱
func (s *Session) Email() string { return s.email }

// Nick 当前昵称
func (s *Session) Nick() string {
	var nick string
	_ = s.exec(func() { nick = s.user.Nick })
	return nick
}

// Friends 好友昵称列表（字典序）
func (s *Session) Friends() ([]string, error) {
	var out []string
	err := s.exec(func() { out = s.user.SortedFriends() })
	return out, err
}

// AddFriend 添加好友
func (s *Session) AddFriend(targetNick string) (service.AddFriendResult, error) {
	var (
		res    service.AddFriendResult
		addErr error
	)
	if err := s.exec(func() {
		res, addErr = s.friends.AddFriend(s.table, s.email, targetNick)
	}); err != nil {
		return 0, err
	}
	return res, addErr
}

// SendText 发送文本消息
func (s *Session) SendText(friendNick, text string) (model.Message, error) {
	var (
		msg     model.Message
		sendErr error
	)
	if err := s.exec(func() {
		msg, sendErr = s.messages.SendText(s.table, s.email, friendNick, text)
	}); err != nil {
		return model.Message{}, err
	}
	return msg, sendErr
}

// SendImage 发送图片消息，file 为附件侧信道产出的路径引用
func (s *Session) SendImage(friendNick, file string) (model.Message, error) {
	var (
		msg     model.Message
		sendErr error
	)
	if err := s.exec(func() {
		msg, sendErr = s.messages.SendImage(s.table, s.email, friendNick, file)
	}); err != nil {
		return model.Message{}, err
	}
	return msg, sendErr
}

// OpenConversation 打开与指定好友的会话并返回当前历史
// 打开后每个同步tick都会向订阅者推送重渲染
func (s *Session) OpenConversation(friendNick string) ([]model.Message, error) {
	var history []model.Message
	err := s.exec(func() {
		s.openFriend = friendNick
		history = s.user.Messages[model.ChatKey(s.user.Nick, friendNick)]
	})
	return history, err
}

// CloseConversation 关闭当前打开的会话
func (s *Session) CloseConversation() error {
	return s.exec(func() { s.openFriend = "" })
}

// SetNotifier 绑定推送出口；传nil解除绑定
func (s *Session) SetNotifier(n Notifier) error {
	return s.exec(func() { s.notifier = n })
}

// ClearNotifier 解除指定出口的绑定
// 仅当它仍是当前出口时生效：重连场景下旧连接的清理不得
// 摘掉新连接刚绑定的出口
func (s *Session) ClearNotifier(n Notifier) error {
	return s.exec(func() {
		if s.notifier == n {
			s.notifier = nil
		}
	})
}

// History 与指定好友的会话历史（不改变打开状态）
func (s *Session) History(friendNick string) ([]model.Message, error) {
	var history []model.Message
	err := s.exec(func() {
		history = s.user.Messages[model.ChatKey(s.user.Nick, friendNick)]
	})
	return history, err
}
