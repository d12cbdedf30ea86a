package relay

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", time.Second)
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

func dialRelay(t *testing.T, s *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForConns(t *testing.T, s *Server, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.ConnCount() == n
	}, time.Second, 5*time.Millisecond)
}

func readAll(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	total := 0
	for total < n {
		m, err := conn.Read(buf[total:])
		require.NoError(t, err)
		total += m
	}
	return buf
}

func TestBroadcast_FanOutExcludesSender(t *testing.T) {
	s := startTestServer(t)

	c1 := dialRelay(t, s)
	c2 := dialRelay(t, s)
	c3 := dialRelay(t, s)
	waitForConns(t, s, 3)

	payload := []byte("X")
	_, err := c1.Write(payload)
	require.NoError(t, err)

	// C2和C3各收到一份原样数据
	assert.Equal(t, payload, readAll(t, c2, len(payload)))
	assert.Equal(t, payload, readAll(t, c3, len(payload)))

	// 发送者自己收不到
	require.NoError(t, c1.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	buf := make([]byte, 1)
	_, err = c1.Read(buf)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestBroadcast_VerbatimBytes(t *testing.T) {
	s := startTestServer(t)

	c1 := dialRelay(t, s)
	c2 := dialRelay(t, s)
	waitForConns(t, s, 2)

	// 无消息边界、不解析内容：任意字节原样透传
	payload := []byte{0x00, 0xFF, '\n', 0x7F, 'a'}
	_, err := c1.Write(payload)
	require.NoError(t, err)

	assert.Equal(t, payload, readAll(t, c2, len(payload)))
}

func TestClose_RemovesFromRegistry(t *testing.T) {
	s := startTestServer(t)

	c1 := dialRelay(t, s)
	c2 := dialRelay(t, s)
	c3 := dialRelay(t, s)
	waitForConns(t, s, 3)

	require.NoError(t, c2.Close())
	waitForConns(t, s, 2)

	// 移除后广播继续工作，剩余对端不受影响
	payload := []byte("after-close")
	_, err := c1.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, payload, readAll(t, c3, len(payload)))
}

func TestTwoWay(t *testing.T) {
	s := startTestServer(t)

	c1 := dialRelay(t, s)
	c2 := dialRelay(t, s)
	waitForConns(t, s, 2)

	_, err := c1.Write([]byte("from-1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("from-1"), readAll(t, c2, 6))

	_, err = c2.Write([]byte("from-2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("from-2"), readAll(t, c1, 6))
}

func TestStop_ClosesConnections(t *testing.T) {
	s := NewServer("127.0.0.1:0", time.Second)
	require.NoError(t, s.Start())

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.ConnCount() == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()

	// 服务端关闭后连接读到EOF或复位
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	assert.Error(t, err)
}
