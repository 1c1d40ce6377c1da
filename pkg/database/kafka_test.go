package database

import (
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

// 每個 node 的 group 不同, 才會各自收到全部 partition
func TestNodeGroupIDIsPerProcess(t *testing.T) {
	a := NodeGroupID("chat_service")
	b := NodeGroupID("chat_service")

	assert.True(t, strings.HasPrefix(a, "chat_service-"))
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(NodeGroupID(""), "chat_service-"))
}

func TestReaderConfigStartsAtLatest(t *testing.T) {
	rc := readerConfig(KafkaConnection{Brokers: []string{"kafka:9092"}, Topic: "chat.public.messages", GroupID: "chat"})

	assert.Equal(t, kafka.LastOffset, rc.StartOffset)
	assert.True(t, strings.HasPrefix(rc.GroupID, "chat-"))
	assert.Equal(t, "chat.public.messages", rc.Topic)
}
