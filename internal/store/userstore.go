package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"fpiersk/internal/model"
	"fpiersk/pkg/logger"

	"go.uber.org/zap"
)

// UserStore 用户表的整文件持久化
// 整张表是唯一的持久化单位：没有按记录的局部更新，也没有跨进程的锁
// 多个进程并发Save时最后写入者胜出，先写入者的变更被整体覆盖——
// 这是既有数据格式带来的已知限制，按原样保留并在测试中固化
type UserStore struct {
	path string
}

// NewUserStore 创建用户表存储
func NewUserStore(path string) *UserStore {
	return &UserStore{path: path}
}

// Path 返回底层文件路径
func (s *UserStore) Path() string {
	return s.path
}

// Load 读取整张用户表
// 文件缺失或内容损坏一律按空表处理：损坏的表与空表不可区分，
// 错误只记日志，不向调用方传播
func (s *UserStore) Load() model.Table {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("读取用户表失败，按空表处理", zap.String("path", s.path), zap.Error(err))
		}
		return model.Table{}
	}

	var table model.Table
	if err := json.Unmarshal(data, &table); err != nil {
		logger.Warn("用户表内容损坏，按空表处理", zap.String("path", s.path), zap.Error(err))
		return model.Table{}
	}
	if table == nil {
		table = model.Table{}
	}
	return table
}

// Save 整表覆盖写回
// 先写临时文件再重命名，避免进程中途退出留下半截文件
// 错误返回给调用方记录后继续，不作为致命条件，也不自动重试
func (s *UserStore) Save(table model.Table) error {
	data, err := json.MarshalIndent(table, "", "    ")
	if err != nil {
		return fmt.Errorf("序列化用户表失败: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建存储目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("写入用户表失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("替换用户表失败: %w", err)
	}
	return nil
}

// HealthCheck 检查存储目录可写
func (s *UserStore) HealthCheck() error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// 目录尚未创建属于正常状态，首次Save时会创建
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s 不是目录", dir)
	}
	return nil
}
