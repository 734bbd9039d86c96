package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookclub/internal/services"
)

type producerStub struct {
	sendFn func(ctx context.Context, topic string, key, payload []byte) error
}

func (p *producerStub) SendMessage(ctx context.Context, topic string, key []byte, payload []byte) error {
	return p.sendFn(ctx, topic, key, payload)
}

func (p *producerStub) Close() {}

func TestKafkaEventPublisher(t *testing.T) {
	var gotTopic, gotKey string
	var got services.Event
	producer := &producerStub{sendFn: func(_ context.Context, topic string, key, payload []byte) error {
		gotTopic, gotKey = topic, string(key)
		return json.Unmarshal(payload, &got)
	}}

	pub := services.NewKafkaEventPublisher(producer, "bookclub-events")
	err := pub.Publish(context.Background(), services.Event{
		Type:          services.EventGroupDeleted,
		ActorID:       7,
		TargetUserIDs: []uint{7, 8},
		GroupID:       3,
		GroupName:     "Club",
	})
	require.NoError(t, err)

	assert.Equal(t, "bookclub-events", gotTopic)
	assert.Equal(t, "7", gotKey)
	assert.Equal(t, services.EventGroupDeleted, got.Type)
	assert.Equal(t, []uint{7, 8}, got.TargetUserIDs)
	assert.Equal(t, "Club", got.GroupName)
	assert.False(t, got.Timestamp.IsZero())
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	broken := services.NewKafkaEventPublisher(&producerStub{sendFn: func(context.Context, string, []byte, []byte) error {
		return errors.New("broker down")
	}}, "bookclub-events")
	friends := services.NewFriendService(f.db, f.users, f.requests, f.friendships, broken)

	_, err := friends.SendRequest(ctx, a, b)
	require.NoError(t, err)

	incoming, err := friends.ListIncomingRequests(ctx, b)
	require.NoError(t, err)
	assert.Len(t, incoming, 1)
}
