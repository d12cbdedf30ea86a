package handler

import (
	"errors"
	"strings"

	"fpiersk/internal/service"
	"fpiersk/internal/session"
	"fpiersk/pkg/jwt"
	"fpiersk/pkg/redis"
	"fpiersk/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service  *service.UserService
	sessions *session.Manager
}

func NewUserHandler(s *service.UserService, sessions *session.Manager) *UserHandler {
	return &UserHandler{service: s, sessions: sessions}
}

// Register 用户注册
func (h *UserHandler) Register(c *gin.Context) {
	type req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	email := strings.TrimSpace(r.Email)
	user, err := h.service.Register(email, r.Password, r.Name)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.SuccessWithMessage(c, "注册成功", &response.RegisterResponse{
		User: response.FilterUserInfo(email, user),
	})
}

// Login 用户登录
// 登录成功即启动该用户的会话（含同步轮询）
func (h *UserHandler) Login(c *gin.Context) {
	type req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	// 存储表以去除首尾空白后的邮箱为主键，会话与响应使用同一键
	email := strings.TrimSpace(r.Email)
	user, token, err := h.service.Login(email, r.Password)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	if _, err := h.sessions.Attach(email); err != nil {
		response.InternalError(c, "启动会话失败")
		return
	}

	response.SuccessWithMessage(c, "登录成功", &response.LoginResponse{
		User:        response.FilterUserInfo(email, user),
		AccessToken: token,
	})
}

// Logout 用户登出（需要JWT认证）：结束会话并清理在线状态
func (h *UserHandler) Logout(c *gin.Context) {
	email := jwt.GetEmail(c)
	if email == "" {
		response.Unauthorized(c, "用户未认证")
		return
	}
	h.sessions.Detach(email)
	_ = redis.RemoveUserPresence(email)
	response.SuccessWithMessage(c, "登出成功", nil)
}

// GetProfile 获取用户资料（需要JWT认证）
func (h *UserHandler) GetProfile(c *gin.Context) {
	email := jwt.GetEmail(c)
	sess, err := h.sessions.Attach(email)
	if err != nil {
		response.NotFound(c, "用户不存在")
		return
	}

	friends, err := sess.Friends()
	if err != nil {
		response.InternalError(c, "会话已结束")
		return
	}

	response.Success(c, &response.UserInfo{
		Email:   email,
		Nick:    sess.Nick(),
		Friends: friends,
	})
}

// GetFriends 获取好友列表（需要JWT认证）
func (h *UserHandler) GetFriends(c *gin.Context) {
	sess, err := h.sessions.Attach(jwt.GetEmail(c))
	if err != nil {
		response.NotFound(c, "用户不存在")
		return
	}

	friends, err := sess.Friends()
	if err != nil {
		response.InternalError(c, "会话已结束")
		return
	}
	response.Success(c, &response.FriendsResponse{Friends: friends})
}

// AddFriend 添加好友（需要JWT认证）
// 目标不存在/添加自己属于预期内拒绝，原样提示给用户
func (h *UserHandler) AddFriend(c *gin.Context) {
	type req struct {
		Nick string `json:"nick" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sess, err := h.sessions.Attach(jwt.GetEmail(c))
	if err != nil {
		response.NotFound(c, "用户不存在")
		return
	}

	result, err := sess.AddFriend(r.Nick)
	switch {
	case errors.Is(err, service.ErrTargetNotFound):
		response.NotFound(c, "没有该昵称的用户")
		return
	case errors.Is(err, service.ErrSelfFriend):
		response.BadRequest(c, "不能添加自己为好友")
		return
	case err != nil:
		response.InternalError(c, err.Error())
		return
	}

	if result == service.FriendAlreadyExists {
		response.SuccessWithMessage(c, "已是好友", &response.AddFriendResponse{
			Target: r.Nick, Mutual: true, Already: true,
		})
		return
	}
	response.SuccessWithMessage(c, "添加好友成功（双向）", &response.AddFriendResponse{
		Target: r.Nick, Mutual: true,
	})
}

// GetOnlineUsers 获取在线用户昵称（需要JWT认证）
// Redis不可用时返回空列表
func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	nicks, err := redis.GetOnlineNicks()
	if err != nil {
		nicks = []string{}
	}
	response.Success(c, &response.OnlineUsersResponse{Nicks: nicks})
}
