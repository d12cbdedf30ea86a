package websocket

import (
	"testing"

	"fpiersk/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddClient_ReplacementInvalidatesOld(t *testing.T) {
	m := GetManager()
	c1 := NewClient("alice@example.com", nil)
	m.AddClient("alice@example.com", c1)

	c2 := NewClient("alice@example.com", nil)
	m.AddClient("alice@example.com", c2)
	defer m.RemoveClient("alice@example.com", c2)

	select {
	case <-c1.Done():
	default:
		t.Fatal("replaced client was not invalidated")
	}
	select {
	case <-c2.Done():
		t.Fatal("new client must stay active after replacing the old one")
	default:
	}
}

func TestNotify_AfterClientReplacement(t *testing.T) {
	m := GetManager()
	c1 := NewClient("bob@example.com", nil)
	m.AddClient("bob@example.com", c1)
	n := NewNotifier(c1)

	c2 := NewClient("bob@example.com", nil)
	m.AddClient("bob@example.com", c2)
	defer m.RemoveClient("bob@example.com", c2)

	// 同邮箱重连替换后，旧出口的推送安全丢弃，不得panic，
	// 也不得串扰到新连接的发送队列
	require.NotPanics(t, func() {
		n.Notify(session.Event{Type: session.EventConversationUpdate})
	})
	assert.Empty(t, c2.Send)
}

func TestRemoveClient_OnlyCurrent(t *testing.T) {
	m := GetManager()
	c1 := NewClient("carol@example.com", nil)
	m.AddClient("carol@example.com", c1)
	c2 := NewClient("carol@example.com", nil)
	m.AddClient("carol@example.com", c2)

	// 被替换的旧连接做清理：新连接保持注册
	assert.False(t, m.RemoveClient("carol@example.com", c1))
	assert.True(t, m.RemoveClient("carol@example.com", c2))
}

func TestClientClose_Idempotent(t *testing.T) {
	c := NewClient("dave@example.com", nil)
	c.Close()
	require.NotPanics(t, c.Close)
}
