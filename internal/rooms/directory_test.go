package rooms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-engine/internal/models"
)

func member(id string) models.Member {
	return models.Member{UserID: id, DisplayName: id}
}

func TestAddCreatesRoomLazily(t *testing.T) {
	dir := NewDirectory()

	created, err := dir.Add("general", member("alice"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = dir.Add("general", member("bob"))
	require.NoError(t, err)
	assert.False(t, created)

	members := dir.MembersOf("general")
	require.Len(t, members, 2)
	assert.Equal(t, "alice", members[0].UserID)
	assert.Equal(t, "bob", members[1].UserID)
}

func TestAddRejectsMalformedRoomID(t *testing.T) {
	dir := NewDirectory()

	for _, id := range []string{"", "has space", " padded", "a\tb"} {
		_, err := dir.Add(id, member("alice"))
		assert.ErrorIs(t, err, ErrInvalidRoom, "room id %q", id)
	}
}

func TestAddIsIdempotentPerMember(t *testing.T) {
	dir := NewDirectory()

	dir.Add("general", member("alice"))
	dir.Add("general", member("alice"))

	assert.Len(t, dir.MembersOf("general"), 1)
}

func TestRemoveNonMemberIsNoop(t *testing.T) {
	dir := NewDirectory()
	dir.Add("general", member("alice"))

	assert.False(t, dir.Remove("general", "bob"))
	assert.False(t, dir.Remove("missing", "alice"))
	assert.True(t, dir.Remove("general", "alice"))
	assert.False(t, dir.Remove("general", "alice"))
}

func TestStats(t *testing.T) {
	dir := NewDirectory()

	_, err := dir.Stats("general")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	dir.Add("general", member("alice"))
	dir.NoteMessage("general")
	dir.NoteMessage("general")

	stats, err := dir.Stats("general")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MemberCount)
	assert.EqualValues(t, 2, stats.MessageCount)
	assert.False(t, stats.CreatedAt.IsZero())
	assert.False(t, stats.LastActivity.Before(stats.CreatedAt))
}

func TestListStatsSorted(t *testing.T) {
	dir := NewDirectory()
	dir.Add("zulu", member("alice"))
	dir.Add("alpha", member("bob"))

	stats := dir.ListStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "alpha", stats[0].RoomID)
	assert.Equal(t, "zulu", stats[1].RoomID)
}

func TestMembersOfIsSnapshot(t *testing.T) {
	dir := NewDirectory()
	dir.Add("general", member("alice"))

	snapshot := dir.MembersOf("general")
	dir.Add("general", member("bob"))

	assert.Len(t, snapshot, 1, "snapshot is not a live view")
	assert.Len(t, dir.MembersOf("general"), 2)
}
