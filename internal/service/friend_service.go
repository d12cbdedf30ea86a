package service

import (
	"errors"

	"fpiersk/internal/model"
	"fpiersk/internal/store"
	"fpiersk/pkg/logger"

	"go.uber.org/zap"
)

// 加好友的业务拒绝：属于预期内可恢复结果，由调用方提示用户
var (
	ErrTargetNotFound    = errors.New("no user with that nick")
	ErrSelfFriend        = errors.New("cannot add yourself")
	ErrRequesterNotFound = errors.New("requester record not found")
)

// AddFriendResult 加好友的非错误结果
type AddFriendResult int

const (
	// FriendAdded 成功建立双向好友关系
	FriendAdded AddFriendResult = iota
	// FriendAlreadyExists 已是好友，未做任何修改（提示性结果，非错误）
	FriendAlreadyExists
)

// FriendService 好友关系维护
// 好友关系是对称的：A在B的好友集合中 当且仅当 B在A的好友集合中
type FriendService struct {
	store *store.UserStore
}

// NewFriendService 创建FriendService实例
func NewFriendService(st *store.UserStore) *FriendService {
	return &FriendService{store: st}
}

// AddFriend 建立双向好友关系
// 两个方向的写入都落在同一张内存表上，随后一次Save落盘，
// 因此相对本次Save是原子的；与其他进程的并发Save之间无原子性保证
func (s *FriendService) AddFriend(table model.Table, requesterEmail, targetNick string) (AddFriendResult, error) {
	requester, ok := table[requesterEmail]
	if !ok {
		return 0, ErrRequesterNotFound
	}

	_, target, found := table.FindByNick(targetNick)
	if !found {
		return 0, ErrTargetNotFound
	}
	if targetNick == requester.Nick {
		return 0, ErrSelfFriend
	}
	if requester.HasFriend(targetNick) {
		return FriendAlreadyExists, nil
	}

	requester.AddFriendNick(targetNick)
	target.AddFriendNick(requester.Nick)

	if err := s.store.Save(table); err != nil {
		logger.Error("保存好友关系失败", zap.String("requester", requester.Nick),
			zap.String("target", targetNick), zap.Error(err))
	}
	logger.Info("添加好友", zap.String("requester", requester.Nick), zap.String("target", targetNick))
	return FriendAdded, nil
}
