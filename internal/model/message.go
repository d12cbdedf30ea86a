package model

import (
	"sort"
	"strings"
	"time"
)

// 消息类型
const (
	MsgTypeText  = "text"
	MsgTypeImage = "image"
)

// TimeLayout 消息时间戳格式，秒级精度
const TimeLayout = "2006-01-02 15:04:05"

// ChatKeyDelimiter 会话key分隔符
// 昵称格式为 Name#DDDD，其中不可能出现 '|'，因此分隔符无歧义
const ChatKeyDelimiter = "|"

// Message 单条消息
// Text 与 File 互斥：文本消息填 Text，图片消息填 File（仅存文件路径引用，不存字节）

type Message struct {
	Sender    string `json:"sender"`
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	File      string `json:"file,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ChatKey 计算一对昵称的规范会话key
// 两个昵称按字典序排序后用分隔符连接，保证 ChatKey(a,b) == ChatKey(b,a)
func ChatKey(nickA, nickB string) string {
	pair := []string{nickA, nickB}
	sort.Strings(pair)
	return strings.Join(pair, ChatKeyDelimiter)
}

// NewTextMessage 构造文本消息
func NewTextMessage(sender, text string, at time.Time) Message {
	return Message{
		Sender:    sender,
		Type:      MsgTypeText,
		Text:      text,
		Timestamp: at.Format(TimeLayout),
	}
}

// NewImageMessage 构造图片消息，file 为图片目录下的路径引用
func NewImageMessage(sender, file string, at time.Time) Message {
	return Message{
		Sender:    sender,
		Type:      MsgTypeImage,
		File:      file,
		Timestamp: at.Format(TimeLayout),
	}
}
