package service

import (
	"errors"
	"time"

	"fpiersk/internal/model"
	"fpiersk/internal/store"
	"fpiersk/pkg/logger"

	"go.uber.org/zap"
)

// ErrSenderNotFound 发送者记录不存在（会话状态与存储表脱节时出现）
var ErrSenderNotFound = errors.New("sender record not found")

// MessageService 会话消息追加
// 同一条消息写入发送者与接收者两份记录（双写复制）：
// 接收者按昵称在整表中解析，解析失败时消息只存在于发送者一侧
// （单侧可见），这是既有双写设计固有的部分失败模式，不向调用方报错
type MessageService struct {
	store *store.UserStore
	now   func() time.Time
}

// NewMessageService 创建MessageService实例
func NewMessageService(st *store.UserStore) *MessageService {
	return &MessageService{store: st, now: time.Now}
}

// SendText 发送文本消息
func (s *MessageService) SendText(table model.Table, senderEmail, recipientNick, text string) (model.Message, error) {
	sender, ok := table[senderEmail]
	if !ok {
		return model.Message{}, ErrSenderNotFound
	}
	msg := model.NewTextMessage(sender.Nick, text, s.now())
	s.append(table, sender, recipientNick, msg)
	return msg, nil
}

// SendImage 发送图片消息
// file 为附件侧信道已产出的路径引用，消息里只存引用不存字节
func (s *MessageService) SendImage(table model.Table, senderEmail, recipientNick, file string) (model.Message, error) {
	sender, ok := table[senderEmail]
	if !ok {
		return model.Message{}, ErrSenderNotFound
	}
	msg := model.NewImageMessage(sender.Nick, file, s.now())
	s.append(table, sender, recipientNick, msg)
	return msg, nil
}

// History 返回与指定昵称的会话历史（追加顺序）
func (s *MessageService) History(table model.Table, userEmail, friendNick string) []model.Message {
	user, ok := table[userEmail]
	if !ok {
		return nil
	}
	return user.Messages[model.ChatKey(user.Nick, friendNick)]
}

// append 双写追加并一次落盘
func (s *MessageService) append(table model.Table, sender *model.User, recipientNick string, msg model.Message) {
	key := model.ChatKey(sender.Nick, recipientNick)

	sender.AppendMessage(key, msg)

	// 接收者解析失败时不报错：消息停留在发送者一侧
	if _, recipient, found := table.FindByNick(recipientNick); found && recipient != sender {
		recipient.AppendMessage(key, msg)
	} else if !found {
		logger.Warn("接收者不存在，消息仅写入发送者记录",
			zap.String("sender", sender.Nick), zap.String("recipient", recipientNick))
	}

	if err := s.store.Save(table); err != nil {
		logger.Error("保存消息失败", zap.String("chat_key", key), zap.Error(err))
	}
}
