package handler

import (
	"io"

	"fpiersk/internal/model"
	"fpiersk/internal/service"
	"fpiersk/internal/session"
	"fpiersk/pkg/jwt"
	"fpiersk/pkg/response"

	"github.com/gin-gonic/gin"
)

// 单个图片附件大小上限
const maxAttachmentSize = 10 << 20 // 10MB

type MessageHandler struct {
	sessions    *session.Manager
	attachments *service.AttachmentService
}

func NewMessageHandler(sessions *session.Manager, attachments *service.AttachmentService) *MessageHandler {
	return &MessageHandler{sessions: sessions, attachments: attachments}
}

// SendMessage 发送文本消息（需要JWT认证）
func (h *MessageHandler) SendMessage(c *gin.Context) {
	type req struct {
		To   string `json:"to" binding:"required"`
		Text string `json:"text" binding:"required"`
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

	msg, err := sess.SendText(r.To, r.Text)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.SuccessWithMessage(c, "发送成功", &response.SendMessageResponse{
		ChatKey: model.ChatKey(msg.Sender, r.To),
		Message: msg,
	})
}

// SendImage 发送图片消息（需要JWT认证）
// multipart表单：to=接收者昵称，file=图片文件
// 图片字节视为外部协作方已处理完毕，这里只落盘并在消息中存路径引用
func (h *MessageHandler) SendImage(c *gin.Context) {
	to := c.PostForm("to")
	if to == "" {
		response.BadRequest(c, "缺少接收者昵称")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "缺少图片文件")
		return
	}
	if fileHeader.Size > maxAttachmentSize {
		response.BadRequest(c, "图片超过大小限制")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, "读取上传文件失败")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.InternalError(c, "读取上传文件失败")
		return
	}

	path, err := h.attachments.Store(fileHeader.Filename, data)
	if err != nil {
		response.InternalError(c, "保存附件失败")
		return
	}

	sess, err := h.sessions.Attach(jwt.GetEmail(c))
	if err != nil {
		response.NotFound(c, "用户不存在")
		return
	}

	msg, err := sess.SendImage(to, path)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.SuccessWithMessage(c, "发送成功", &response.SendMessageResponse{
		ChatKey: model.ChatKey(msg.Sender, to),
		Message: msg,
	})
}

// GetConversation 获取与指定好友的会话历史（需要JWT认证）
// 同时把该会话标记为当前打开：之后每个同步tick都会推送重渲染
func (h *MessageHandler) GetConversation(c *gin.Context) {
	friend := c.Param("nick")
	if friend == "" {
		response.BadRequest(c, "缺少好友昵称")
		return
	}

	sess, err := h.sessions.Attach(jwt.GetEmail(c))
	if err != nil {
		response.NotFound(c, "用户不存在")
		return
	}

	history, err := sess.OpenConversation(friend)
	if err != nil {
		response.InternalError(c, "会话已结束")
		return
	}
	if history == nil {
		history = []model.Message{}
	}

	response.Success(c, &response.ConversationResponse{
		Friend:   friend,
		ChatKey:  model.ChatKey(sess.Nick(), friend),
		Messages: history,
	})
}
