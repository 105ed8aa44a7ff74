package msglog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-engine/internal/models"
)

func sender(id string) models.Member {
	return models.Member{UserID: id, DisplayName: id}
}

func TestAppendAssignsIncreasingIDsPerRoom(t *testing.T) {
	log := NewLog()

	m1 := log.Append("general", sender("alice"), "one", models.MessageTypeText)
	m2 := log.Append("general", sender("bob"), "two", models.MessageTypeText)
	other := log.Append("random", sender("alice"), "elsewhere", models.MessageTypeText)

	assert.EqualValues(t, 1, m1.ID)
	assert.EqualValues(t, 2, m2.ID)
	assert.EqualValues(t, 1, other.ID, "id sequences are per room")
}

func TestAppendConcurrentIDsStrictlyIncreasing(t *testing.T) {
	log := NewLog()

	const writers = 8
	const perWriter = 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				log.Append("general", sender(fmt.Sprintf("u%d", w)), "hi", models.MessageTypeText)
			}
		}(w)
	}
	wg.Wait()

	msgs := log.Page("general", 1, writers*perWriter)
	require.Len(t, msgs, writers*perWriter)
	// Page is most-recent-first, so ids must strictly decrease.
	for i := 1; i < len(msgs); i++ {
		assert.Greater(t, msgs[i-1].ID, msgs[i].ID)
	}
}

func TestPageMostRecentFirst(t *testing.T) {
	log := NewLog()
	for i := 1; i <= 5; i++ {
		log.Append("general", sender("alice"), fmt.Sprintf("msg-%d", i), models.MessageTypeText)
	}

	page1 := log.Page("general", 1, 2)
	require.Len(t, page1, 2)
	assert.Equal(t, "msg-5", page1[0].Content)
	assert.Equal(t, "msg-4", page1[1].Content)

	page2 := log.Page("general", 2, 2)
	require.Len(t, page2, 2)
	assert.Equal(t, "msg-3", page2[0].Content)

	page3 := log.Page("general", 3, 2)
	require.Len(t, page3, 1)
	assert.Equal(t, "msg-1", page3[0].Content)

	assert.Empty(t, log.Page("general", 4, 2))
	assert.Empty(t, log.Page("missing", 1, 10))
}

func TestRoundTrip(t *testing.T) {
	log := NewLog()
	appended := log.Append("general", sender("alice"), "hello there", models.MessageTypeText)

	page := log.Page("general", 1, 10)
	require.Len(t, page, 1)
	assert.Equal(t, appended.Content, page[0].Content)
	assert.Equal(t, appended.SenderID, page[0].SenderID)
	assert.Equal(t, appended.CreatedAt, page[0].CreatedAt)
}

func TestAddReactionIdempotent(t *testing.T) {
	log := NewLog()
	msg := log.Append("general", sender("alice"), "hot take", models.MessageTypeText)

	count, err := log.AddReaction("general", msg.ID, "🔥", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = log.AddReaction("general", msg.ID, "🔥", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-adding the same reaction does not double count")

	count, err = log.AddReaction("general", msg.ID, "🔥", "carol")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddReactionUnknownMessage(t *testing.T) {
	log := NewLog()
	log.Append("general", sender("alice"), "hi", models.MessageTypeText)

	_, err := log.AddReaction("general", 99, "👍", "bob")
	assert.ErrorIs(t, err, ErrMessageNotFound)

	_, err = log.AddReaction("missing", 1, "👍", "bob")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestReactionsVisibleInPage(t *testing.T) {
	log := NewLog()
	msg := log.Append("general", sender("alice"), "hi", models.MessageTypeText)

	log.AddReaction("general", msg.ID, "👍", "bob")
	log.AddReaction("general", msg.ID, "👍", "alice")

	page := log.Page("general", 1, 1)
	require.Len(t, page, 1)
	assert.Equal(t, []string{"alice", "bob"}, page[0].Reactions["👍"])
}

func TestPageReturnsCopies(t *testing.T) {
	log := NewLog()
	msg := log.Append("general", sender("alice"), "hi", models.MessageTypeText)

	before := log.Page("general", 1, 1)
	log.AddReaction("general", msg.ID, "👍", "bob")

	assert.Empty(t, before[0].Reactions, "earlier snapshot is unaffected by later mutation")
}
