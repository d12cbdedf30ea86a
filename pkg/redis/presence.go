package redis

import (
	"encoding/json"
	"fmt"
	"time"
)

// PresenceData 在线状态数据
type PresenceData struct {
	Email     string    `json:"email"`
	Nick      string    `json:"nick"`
	Status    string    `json:"status"` // online/offline
	LastSeen  time.Time `json:"last_seen"`
	Connected bool      `json:"connected"` // 是否有活跃连接
}

// 在线状态相关常量
const (
	PresenceKeyPrefix = "fpiersk:presence:user:" // 用户在线状态key前缀
	OnlineUsersKey    = "fpiersk:online:users"   // 在线用户集合key
	PresenceTTL       = 2 * time.Minute          // 在线状态TTL（2倍心跳周期）
)

// SetUserPresence 设置用户在线状态
func SetUserPresence(email, nick, status string) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	key := PresenceKeyPrefix + email

	presence := PresenceData{
		Email:     email,
		Nick:      nick,
		Status:    status,
		LastSeen:  time.Now(),
		Connected: status == "online",
	}

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("序列化在线状态失败: %w", err)
	}

	if err := set(key, data, PresenceTTL); err != nil {
		return fmt.Errorf("设置用户在线状态失败: %w", err)
	}

	// 更新在线用户集合
	if status == "online" {
		err = client.SAdd(ctx, OnlineUsersKey, email).Err()
	} else {
		err = client.SRem(ctx, OnlineUsersKey, email).Err()
	}
	if err != nil {
		return fmt.Errorf("更新在线用户集合失败: %w", err)
	}
	return nil
}

// GetUserPresence 获取用户在线状态
func GetUserPresence(email string) (*PresenceData, error) {
	if client == nil {
		return nil, fmt.Errorf("redis客户端未初始化")
	}

	data, err := get(PresenceKeyPrefix + email)
	if err != nil {
		return nil, fmt.Errorf("获取用户在线状态失败: %w", err)
	}

	var presence PresenceData
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("反序列化在线状态失败: %w", err)
	}
	return &presence, nil
}

// GetOnlineNicks 获取所有在线用户的昵称
func GetOnlineNicks() ([]string, error) {
	if client == nil {
		return nil, fmt.Errorf("redis客户端未初始化")
	}

	emails, err := client.SMembers(ctx, OnlineUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("获取在线用户列表失败: %w", err)
	}

	var nicks []string
	for _, email := range emails {
		presence, err := GetUserPresence(email)
		if err != nil {
			// 获取失败多为TTL过期，从集合中清理
			client.SRem(ctx, OnlineUsersKey, email)
			continue
		}
		nicks = append(nicks, presence.Nick)
	}
	return nicks, nil
}

// RemoveUserPresence 移除用户在线状态
func RemoveUserPresence(email string) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	if err := del(PresenceKeyPrefix + email); err != nil {
		return fmt.Errorf("删除用户在线状态失败: %w", err)
	}
	if err := client.SRem(ctx, OnlineUsersKey, email).Err(); err != nil {
		return fmt.Errorf("从在线用户集合移除失败: %w", err)
	}
	return nil
}
