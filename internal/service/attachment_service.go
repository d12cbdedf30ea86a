package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AttachmentService 图片附件侧信道
// 图片字节由外部协作方产出（缩放等处理不在本服务范围内），
// 这里只负责落盘并返回存入消息的路径引用
type AttachmentService struct {
	dir string
	now func() time.Time
}

// NewAttachmentService 创建AttachmentService实例
func NewAttachmentService(dir string) *AttachmentService {
	return &AttachmentService{dir: dir, now: time.Now}
}

// Store 保存附件字节
// 文件名 = 原始文件名主干 + 微秒级时间戳 + 原扩展名，避免同名覆盖
func (a *AttachmentService) Store(origName string, data []byte) (string, error) {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("创建附件目录失败: %w", err)
	}

	base := filepath.Base(origName)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	t := a.now()
	stamp := t.Format("20060102150405") + fmt.Sprintf("%06d", t.Nanosecond()/1000)

	path := filepath.Join(a.dir, fmt.Sprintf("%s_%s%s", stem, stamp, ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("写入附件失败: %w", err)
	}
	return path, nil
}
