package response

import (
	"net/http"

	"fpiersk/internal/model"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`            // 状态码：0表示成功，其他表示错误
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据
	Error   string      `json:"error,omitempty"` // 错误详情（仅在开发环境显示）
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, 400, message)
}

// Unauthorized 401错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, 401, message)
}

// NotFound 404错误
func NotFound(c *gin.Context, message string) {
	Error(c, 404, message)
}

// InternalError 500错误
func InternalError(c *gin.Context, message string) {
	Error(c, 500, message)
}

// UserInfo 用户信息（隐藏密码与消息历史）
type UserInfo struct {
	Email   string   `json:"email"`
	Nick    string   `json:"nick"`
	Friends []string `json:"friends"`
}

// FilterUserInfo 过滤用户信息，隐藏敏感字段
func FilterUserInfo(email string, user *model.User) *UserInfo {
	if user == nil {
		return nil
	}
	return &UserInfo{
		Email:   email,
		Nick:    user.Nick,
		Friends: user.SortedFriends(),
	}
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	User *UserInfo `json:"user"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	User        *UserInfo `json:"user"`
	AccessToken string    `json:"access_token"`
}

// FriendsResponse 好友列表响应
type FriendsResponse struct {
	Friends []string `json:"friends"`
}

// AddFriendResponse 加好友响应
type AddFriendResponse struct {
	Target  string `json:"target"`
	Mutual  bool   `json:"mutual"`  // 是否建立了双向关系
	Already bool   `json:"already"` // 此前已是好友
}

// ConversationResponse 会话历史响应
type ConversationResponse struct {
	Friend   string          `json:"friend"`
	ChatKey  string          `json:"chat_key"`
	Messages []model.Message `json:"messages"`
}

// SendMessageResponse 发送消息响应
type SendMessageResponse struct {
	ChatKey string        `json:"chat_key"`
	Message model.Message `json:"message"`
}

// OnlineUsersResponse 在线用户响应
type OnlineUsersResponse struct {
	Nicks []string `json:"nicks"`
}
