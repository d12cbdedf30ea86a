package model

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"sort"
)

// User 用户记录
// 存储表以邮箱为主键，本结构体不含邮箱字段
// Password 按原样存储与比较（明文，与线上数据格式保持一致，不做哈希）
// Nick 展示昵称，格式 Name#DDDD，全局唯一
// Friends 好友昵称集合，保持插入顺序
// Messages 以会话key为键，按追加顺序保存消息历史，只增不改

type User struct {
	Password string               `json:"password"`
	Nick     string               `json:"nick"`
	Friends  []string             `json:"friends"`
	Messages map[string][]Message `json:"messages"`
}

// Table 完整用户表：邮箱 -> 用户记录
// 持久化以整表为单位，单条记录在磁盘上不可独立寻址
type Table map[string]*User

// 昵称与邮箱的格式约束
var (
	nickPattern  = regexp.MustCompile(`^.+#\d{4}$`)
	emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
)

// NewUser 创建新用户记录并生成昵称
func NewUser(password, name string) *User {
	return &User{
		Password: password,
		Nick:     GenerateNick(name),
		Friends:  []string{},
		Messages: map[string][]Message{},
	}
}

// GenerateNick 生成展示昵称：名字 + # + 随机4位数字后缀
func GenerateNick(name string) string {
	return fmt.Sprintf("%s#%04d", name, rand.IntN(10000))
}

// ValidNick 校验昵称格式
func ValidNick(nick string) bool {
	return nickPattern.MatchString(nick)
}

// ValidEmail 校验邮箱格式
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// HasFriend 判断昵称是否已在好友集合中
func (u *User) HasFriend(nick string) bool {
	for _, f := range u.Friends {
		if f == nick {
			return true
		}
	}
	return false
}

// AddFriendNick 将昵称加入好友集合（幂等）
func (u *User) AddFriendNick(nick string) {
	if !u.HasFriend(nick) {
		u.Friends = append(u.Friends, nick)
	}
}

// AppendMessage 在指定会话key下追加一条消息
// 消息历史只增不删，追加顺序即展示顺序
func (u *User) AppendMessage(key string, msg Message) {
	if u.Messages == nil {
		u.Messages = map[string][]Message{}
	}
	u.Messages[key] = append(u.Messages[key], msg)
}

// SortedFriends 返回按字典序排序的好友昵称副本（展示用）
func (u *User) SortedFriends() []string {
	out := make([]string, len(u.Friends))
	copy(out, u.Friends)
	sort.Strings(out)
	return out
}

// FindByNick 按昵称在整表中查找用户
// 返回命中的邮箱与记录；未命中时 ok 为 false
func (t Table) FindByNick(nick string) (string, *User, bool) {
	for email, u := range t {
		if u != nil && u.Nick == nick {
			return email, u, true
		}
	}
	return "", nil, false
}
