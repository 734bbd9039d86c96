package notifyserver

import (
	"context"
	"encoding/json"
	"log"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	appKafka "bookclub/internal/kafka"
	"bookclub/internal/services"
)

// Notifier pushes a payload to connected users.
type Notifier interface {
	SendToUsers(userIDs []uint, payload []byte)
}

// NewEventHandler returns a Kafka handler that forwards each services.Event
// to its target users. Undecodable messages are logged and committed.
func NewEventHandler(notifier Notifier) appKafka.MessageHandler {
	return func(ctx context.Context, msg *confluentKafka.Message) error {
		var event services.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("错误: 无法反序列化事件: %v, 原始值: %s", err, string(msg.Value))
			return nil
		}
		if event.Type == "" || len(event.TargetUserIDs) == 0 {
			log.Printf("忽略没有类型或目标用户的事件: %s", string(msg.Value))
			return nil
		}

		notifier.SendToUsers(event.TargetUserIDs, msg.Value)
		return nil
	}
}
