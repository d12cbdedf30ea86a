package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"fpiersk/internal/model"
	"fpiersk/internal/service"
	"fpiersk/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionFixture(t *testing.T) (*store.UserStore, *service.FriendService, *service.MessageService) {
	t.Helper()
	st := store.NewUserStore(filepath.Join(t.TempDir(), "users.json"))
	table := model.Table{
		"alice@example.com": {Password: "pw", Nick: "Alice#0042", Friends: []string{"Bob#1337"}},
		"bob@example.com":   {Password: "pw", Nick: "Bob#1337", Friends: []string{"Alice#0042"}},
	}
	require.NoError(t, st.Save(table))
	return st, service.NewFriendService(st), service.NewMessageService(st)
}

// recorder 收集会话推送的事件
type recorder struct {
	events chan Event
}

func (r *recorder) Notify(event Event) {
	select {
	case r.events <- event:
	default:
	}
}

func TestSession_PollPicksUpExternalWrite(t *testing.T) {
	st, friends, messages := newSessionFixture(t)

	sess, err := New("alice@example.com", st, friends, messages, 20*time.Millisecond)
	require.NoError(t, err)
	defer sess.Stop()

	history, err := sess.History("Bob#1337")
	require.NoError(t, err)
	require.Empty(t, history)

	// 模拟另一个进程写入：Bob给Alice发消息
	external := st.Load()
	_, err = messages.SendText(external, "bob@example.com", "Alice#0042", "external hello")
	require.NoError(t, err)

	// 一个轮询周期内，会话的内存视图应反映外部写入
	require.Eventually(t, func() bool {
		h, err := sess.History("Bob#1337")
		return err == nil && len(h) == 1
	}, time.Second, 10*time.Millisecond)

	history, err = sess.History("Bob#1337")
	require.NoError(t, err)
	assert.Equal(t, "external hello", history[0].Text)
}

func TestSession_FailedReloadKeepsView(t *testing.T) {
	st, friends, messages := newSessionFixture(t)

	sess, err := New("alice@example.com", st, friends, messages, 20*time.Millisecond)
	require.NoError(t, err)
	defer sess.Stop()

	// 存储文件被写坏：重载按空表返回，会话应保留旧视图
	require.NoError(t, os.WriteFile(st.Path(), []byte("{ garbage"), 0644))
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, "Alice#0042", sess.Nick())
	friendsList, err := sess.Friends()
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob#1337"}, friendsList)
}

func TestSession_OpenConversationPushesRerender(t *testing.T) {
	st, friends, messages := newSessionFixture(t)

	sess, err := New("alice@example.com", st, friends, messages, 20*time.Millisecond)
	require.NoError(t, err)
	defer sess.Stop()

	rec := &recorder{events: make(chan Event, 16)}
	require.NoError(t, sess.SetNotifier(rec))
	_, err = sess.OpenConversation("Bob#1337")
	require.NoError(t, err)

	// 外部写入后，打开的会话在后续tick收到重渲染
	external := st.Load()
	_, err = messages.SendText(external, "bob@example.com", "Alice#0042", "ping")
	require.NoError(t, err)

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-rec.events:
			require.Equal(t, EventConversationUpdate, ev.Type)
			assert.Equal(t, "Bob#1337", ev.Conversation)
			if len(ev.Messages) == 1 {
				assert.Equal(t, "ping", ev.Messages[0].Text)
				return
			}
		case <-deadline:
			t.Fatal("no conversation_update with the external message")
		}
	}
}

func TestSession_ClearNotifierOnlyCurrent(t *testing.T) {
	st, friends, messages := newSessionFixture(t)

	sess, err := New("alice@example.com", st, friends, messages, 20*time.Millisecond)
	require.NoError(t, err)
	defer sess.Stop()

	old := &recorder{events: make(chan Event, 16)}
	current := &recorder{events: make(chan Event, 16)}
	require.NoError(t, sess.SetNotifier(old))
	require.NoError(t, sess.SetNotifier(current))

	// 旧出口被替换后做清理：当前出口不受影响，仍收到重渲染
	require.NoError(t, sess.ClearNotifier(old))
	_, err = sess.OpenConversation("Bob#1337")
	require.NoError(t, err)

	select {
	case ev := <-current.events:
		assert.Equal(t, EventConversationUpdate, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("current notifier stopped receiving after stale clear")
	}
	assert.Empty(t, old.events)

	// 清理当前出口后推送停止
	require.NoError(t, sess.ClearNotifier(current))
	for len(current.events) > 0 {
		<-current.events
	}
	select {
	case ev := <-current.events:
		t.Fatalf("unexpected push after clearing the current notifier: %v", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSession_ActionsSerializedWithTicks(t *testing.T) {
	st, friends, messages := newSessionFixture(t)

	sess, err := New("alice@example.com", st, friends, messages, time.Millisecond)
	require.NoError(t, err)
	defer sess.Stop()

	// 高频tick下连续发送，追加顺序不被同步打乱
	for i, text := range []string{"one", "two", "three"} {
		msg, err := sess.SendText("Bob#1337", text)
		require.NoError(t, err)
		require.Equal(t, text, msg.Text, "message %d", i)
	}

	require.Eventually(t, func() bool {
		h, err := sess.History("Bob#1337")
		return err == nil && len(h) == 3
	}, time.Second, 5*time.Millisecond)

	history, err := sess.History("Bob#1337")
	require.NoError(t, err)
	assert.Equal(t, "one", history[0].Text)
	assert.Equal(t, "two", history[1].Text)
	assert.Equal(t, "three", history[2].Text)
}

func TestSession_StopEndsTicksAndCommands(t *testing.T) {
	st, friends, messages := newSessionFixture(t)

	sess, err := New("alice@example.com", st, friends, messages, 10*time.Millisecond)
	require.NoError(t, err)

	sess.Stop()
	sess.Stop() // 幂等

	_, err = sess.Friends()
	assert.ErrorIs(t, err, ErrStopped)
	_, err = sess.SendText("Bob#1337", "late")
	assert.ErrorIs(t, err, ErrStopped)
}

func TestNew_UnknownUser(t *testing.T) {
	st, friends, messages := newSessionFixture(t)

	_, err := New("ghost@example.com", st, friends, messages, time.Second)
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestManager_AttachAndDetach(t *testing.T) {
	st, friends, messages := newSessionFixture(t)
	mgr := NewManager(st, friends, messages, 50*time.Millisecond)
	defer mgr.StopAll()

	s1, err := mgr.Attach("alice@example.com")
	require.NoError(t, err)
	s2, err := mgr.Attach("alice@example.com")
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	mgr.Detach("alice@example.com")
	_, err = s1.Friends()
	assert.ErrorIs(t, err, ErrStopped)

	// Detach后再Attach得到新会话
	s3, err := mgr.Attach("alice@example.com")
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
}
