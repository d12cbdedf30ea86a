package relay

import (
	"errors"
	"net"
	"sync"
	"time"

	"fpiersk/pkg/logger"

	"go.uber.org/zap"
)

// Server 原始字节转发服务器
// 与聊天数据模型完全独立：不读写用户表，不解析内容，没有握手、
// 寻址与消息边界。一条连接上读到的数据原样转发给其余所有在线
// 连接，尽力而为：无确认，跨对端无顺序保证
//
// 连接注册表由读写锁保护，广播基于锁内快照进行，进行中的广播
// 不会观察到并发移除造成的半成品视图
type Server struct {
	addr         string
	writeTimeout time.Duration

	mu    sync.RWMutex
	conns map[net.Conn]struct{}

	lis      net.Listener
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewServer 创建转发服务器
// writeTimeout 为单次转发的写超时，防止慢速对端阻塞整轮广播
func NewServer(addr string, writeTimeout time.Duration) *Server {
	return &Server{
		addr:         addr,
		writeTimeout: writeTimeout,
		conns:        make(map[net.Conn]struct{}),
		done:         make(chan struct{}),
	}
}

// Start 开始监听并接收连接
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.lis = lis
	logger.Info("转发服务启动", zap.String("addr", lis.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr 实际监听地址（配置端口为0时由系统分配）
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}

// Stop 关闭监听与所有在线连接，等待处理协程退出
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.lis != nil {
			s.lis.Close()
		}

		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
	})
	s.wg.Wait()
}

// acceptLoop 接收新连接并注册
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.lis.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-s.done:
				return
			default:
			}
			logger.Warn("接收连接失败", zap.Error(err))
			continue
		}

		s.addConn(conn)
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn 单连接读循环：读到即广播，连接断开时注销
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.removeConn(conn)

	logger.Info("对端接入", zap.String("remote", conn.RemoteAddr().String()))

	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			s.broadcast(buf[:n], conn)
		}
		if err != nil {
			logger.Info("对端断开", zap.String("remote", conn.RemoteAddr().String()))
			return
		}
	}
}

// broadcast 将数据转发给除发送者外的所有在线连接
// 单个对端写失败只记日志，不影响其余对端的转发
func (s *Server) broadcast(data []byte, from net.Conn) {
	s.mu.RLock()
	peers := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		if c != from {
			peers = append(peers, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range peers {
		if s.writeTimeout > 0 {
			_ = c.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		}
		if _, err := c.Write(data); err != nil {
			logger.Warn("转发失败，跳过该对端",
				zap.String("remote", c.RemoteAddr().String()), zap.Error(err))
		}
	}
}

func (s *Server) addConn(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

// ConnCount 当前在线连接数
func (s *Server) ConnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}
