package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"bookclub/internal/kafka"
)

// EventType names a relationship or group change.
type EventType string

const (
	EventFriendRequestSent      EventType = "friend_request.sent"
	EventFriendRequestWithdrawn EventType = "friend_request.withdrawn"
	EventFriendRequestAccepted  EventType = "friend_request.accepted"
	EventFriendRequestRejected  EventType = "friend_request.rejected"
	EventFriendRemoved          EventType = "friend.removed"
	EventGroupJoined            EventType = "group.member_joined"
	EventGroupLeft              EventType = "group.member_left"
	EventGroupMemberRemoved     EventType = "group.member_removed"
	EventGroupAdminChanged      EventType = "group.admin_changed"
	EventGroupRenamed           EventType = "group.renamed"
	EventGroupDeleted           EventType = "group.deleted"
)

// Event is published after a mutation has been committed. TargetUserIDs are
// the users the notification server pushes the event to.
type Event struct {
	Type          EventType `json:"type"`
	ActorID       uint      `json:"actorId"`
	TargetUserIDs []uint    `json:"targetUserIds"`
	GroupID       uint      `json:"groupId,omitempty"`
	GroupName     string    `json:"groupName,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// EventPublisher delivers events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type kafkaEventPublisher struct {
	producer kafka.MessageProducer
	topic    string
}

// NewKafkaEventPublisher publishes events as JSON to topic, keyed by actor.
func NewKafkaEventPublisher(producer kafka.MessageProducer, topic string) EventPublisher {
	return &kafkaEventPublisher{producer: producer, topic: topic}
}

func (p *kafkaEventPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	key := []byte(strconv.FormatUint(uint64(event.ActorID), 10))
	if err := p.producer.SendMessage(ctx, p.topic, key, payload); err != nil {
		return fmt.Errorf("发送事件到 Kafka 失败: %w", err)
	}
	return nil
}

type nopEventPublisher struct{}

// NewNopEventPublisher returns a publisher that drops every event. It is used
// when Kafka is disabled.
func NewNopEventPublisher() EventPublisher {
	return nopEventPublisher{}
}

func (nopEventPublisher) Publish(context.Context, Event) error {
	return nil
}

// publishTimeout caps how long a request waits on the broker after its change
// has been committed.
var publishTimeout = 5 * time.Second

// publish sends an event for a change that already happened. The change is
// not rolled back if publishing fails.
func publish(ctx context.Context, p EventPublisher, event Event) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, event); err != nil {
		log.Printf("Error publishing %s event from user %d: %v", event.Type, event.ActorID, err)
	}
}
