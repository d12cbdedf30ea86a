package service

import (
	"path/filepath"
	"testing"

	"fpiersk/internal/model"
	"fpiersk/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFriendFixture(t *testing.T) (*FriendService, *store.UserStore, model.Table) {
	t.Helper()
	st := store.NewUserStore(filepath.Join(t.TempDir(), "users.json"))
	table := model.Table{
		"alice@example.com": {Password: "pw", Nick: "Alice#0042", Friends: []string{}},
		"bob@example.com":   {Password: "pw", Nick: "Bob#1337", Friends: []string{}},
	}
	require.NoError(t, st.Save(table))
	return NewFriendService(st), st, table
}

func TestAddFriend_Mutual(t *testing.T) {
	svc, st, table := newFriendFixture(t)

	result, err := svc.AddFriend(table, "alice@example.com", "Bob#1337")
	require.NoError(t, err)
	assert.Equal(t, FriendAdded, result)

	// 双向写入同一张表
	assert.True(t, table["alice@example.com"].HasFriend("Bob#1337"))
	assert.True(t, table["bob@example.com"].HasFriend("Alice#0042"))

	// 一次Save后两个方向都已落盘
	persisted := st.Load()
	assert.True(t, persisted["alice@example.com"].HasFriend("Bob#1337"))
	assert.True(t, persisted["bob@example.com"].HasFriend("Alice#0042"))
}

func TestAddFriend_Idempotent(t *testing.T) {
	svc, _, table := newFriendFixture(t)

	result, err := svc.AddFriend(table, "alice@example.com", "Bob#1337")
	require.NoError(t, err)
	require.Equal(t, FriendAdded, result)

	// 重复添加提示已是好友，好友集合不变
	result, err = svc.AddFriend(table, "alice@example.com", "Bob#1337")
	require.NoError(t, err)
	assert.Equal(t, FriendAlreadyExists, result)
	assert.Equal(t, []string{"Bob#1337"}, table["alice@example.com"].Friends)
	assert.Equal(t, []string{"Alice#0042"}, table["bob@example.com"].Friends)
}

func TestAddFriend_Self(t *testing.T) {
	svc, _, table := newFriendFixture(t)

	_, err := svc.AddFriend(table, "alice@example.com", "Alice#0042")
	assert.ErrorIs(t, err, ErrSelfFriend)
	assert.Empty(t, table["alice@example.com"].Friends)
}

func TestAddFriend_TargetNotFound(t *testing.T) {
	svc, _, table := newFriendFixture(t)

	_, err := svc.AddFriend(table, "alice@example.com", "Nobody#0000")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestAddFriend_RequesterNotFound(t *testing.T) {
	svc, _, table := newFriendFixture(t)

	_, err := svc.AddFriend(table, "ghost@example.com", "Bob#1337")
	assert.ErrorIs(t, err, ErrRequesterNotFound)
}
