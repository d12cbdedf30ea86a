package service

import (
	"errors"
	"strings"

	"fpiersk/internal/model"
	"fpiersk/internal/store"
	"fpiersk/pkg/jwt"
	"fpiersk/pkg/logger"

	"go.uber.org/zap"
)

// 注册/登录的业务拒绝
var (
	ErrMissingFields  = errors.New("email, password and name are required")
	ErrInvalidEmail   = errors.New("invalid email format")
	ErrEmailTaken     = errors.New("email already registered")
	ErrBadCredentials = errors.New("invalid email or password")
)

// UserService 注册与登录
type UserService struct {
	store      *store.UserStore
	jwtService *jwt.JWTService
}

// NewUserService 创建UserService实例
func NewUserService(st *store.UserStore, jwtService *jwt.JWTService) *UserService {
	return &UserService{store: st, jwtService: jwtService}
}

// Register 注册新用户
// 昵称由名字加随机4位数字后缀生成；密码按原样入表
func (s *UserService) Register(email, password, name string) (*model.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, ErrMissingFields
	}
	if !model.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	table := s.store.Load()
	if _, exists := table[email]; exists {
		return nil, ErrEmailTaken
	}

	user := model.NewUser(password, name)
	table[email] = user

	if err := s.store.Save(table); err != nil {
		// 保存失败只记日志，不作为致命条件向上传播
		logger.Error("保存用户表失败", zap.String("email", email), zap.Error(err))
	}
	logger.Info("用户注册", zap.String("email", email), zap.String("nick", user.Nick))
	return user, nil
}

// Login 登录
// 密码与表中存储值逐字比较（明文，与既有数据格式一致）
func (s *UserService) Login(email, password string) (*model.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", ErrBadCredentials
	}

	table := s.store.Load()
	user, ok := table[email]
	if !ok || user.Password != password {
		return nil, "", ErrBadCredentials
	}

	token, err := s.jwtService.GenerateToken(email, map[string]interface{}{"nick": user.Nick})
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
