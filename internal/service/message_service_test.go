package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/service"
	"github.com/pulse-social/pulse/pkg/pubsub"
)

func partners(convs []*domain.Conversation) []int64 {
	ids := make([]int64, len(convs))
	for i, c := range convs {
		ids[i] = c.PartnerID
	}
	return ids
}

func TestMessageService_GetConversations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	convs, err := env.messages.GetConversations(ctx, sarah)
	require.NoError(t, err)
	require.Equal(t, []int64{emma, nina, mike}, partners(convs))

	assert.Equal(t, int64(2), convs[0].UnreadCount)
	assert.Equal(t, "Let me know which ones you want for the blog.", convs[0].LastMessage.Content)
	assert.Equal(t, "emma_wilson", convs[0].Partner.Username)

	assert.Equal(t, int64(0), convs[1].UnreadCount, "sarah's own unread message does not count")
	assert.Equal(t, int64(1), convs[2].UnreadCount)
	assert.Equal(t, "Perfect, see you then.", convs[2].LastMessage.Content)
}

func TestMessageService_GetMessages(t *testing.T) {
	env := newTestEnv(t)

	msgs, err := env.messages.GetMessages(context.Background(), mike, sarah)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Hey! Are we still on for the design review tomorrow?", msgs[0].Content)
	assert.Equal(t, "Perfect, see you then.", msgs[2].Content)
}

func TestMessageService_SendPublishesToReceiver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	events := env.subscribe(t, leo)

	msg, err := env.messages.Send(ctx, nina, leo, "  clear skies tonight  ")
	require.NoError(t, err)
	assert.Equal(t, "clear skies tonight", msg.Content)
	assert.False(t, msg.Read)
	assert.NotZero(t, msg.ID)

	ev := receiveEvent(t, events)
	assert.Equal(t, pubsub.EventMessageCreated, ev.Type)
	assert.Equal(t, leo, ev.UserID)

	var got domain.Message
	require.NoError(t, ev.UnmarshalPayload(&got))
	assert.Equal(t, msg.ID, got.ID)

	convs, err := env.messages.GetConversations(ctx, leo)
	require.NoError(t, err)
	require.NotEmpty(t, convs)
	assert.Equal(t, nina, convs[0].PartnerID)
	assert.Equal(t, int64(1), convs[0].UnreadCount)
}

func TestMessageService_SendValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.messages.Send(ctx, sarah, mike, "   ")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = env.messages.Send(ctx, sarah, 99, "hello?")
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestMessageService_MarkAsReadFlipsOneDirection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.messages.Send(ctx, sarah, mike, "One more thing")
	require.NoError(t, err)

	events := env.subscribe(t, mike)

	n, err := env.messages.MarkAsRead(ctx, sarah, mike)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ev := receiveEvent(t, events)
	assert.Equal(t, pubsub.EventMessagesRead, ev.Type)
	var payload pubsub.MessagesReadPayload
	require.NoError(t, ev.UnmarshalPayload(&payload))
	assert.Equal(t, pubsub.MessagesReadPayload{ReaderID: sarah, Count: 1}, payload)

	convs, err := env.messages.GetConversations(ctx, mike)
	require.NoError(t, err)
	for _, c := range convs {
		if c.PartnerID == sarah {
			assert.Equal(t, int64(1), c.UnreadCount, "sarah's message to mike stays unread")
		}
	}

	n, err = env.messages.MarkAsRead(ctx, sarah, mike)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMessageService_SearchConversations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		query string
		want  []int64
	}{
		{query: "", want: []int64{emma, nina, mike}},
		{query: "  ", want: []int64{emma, nina, mike}},
		{query: "EMMA", want: []int64{emma}},
		{query: "mike_", want: []int64{mike}},
		{query: "telescope", want: []int64{nina}},
		{query: "nobody", want: []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			convs, err := env.messages.SearchConversations(ctx, sarah, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, partners(convs))
		})
	}
}
