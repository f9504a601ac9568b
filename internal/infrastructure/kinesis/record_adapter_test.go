package kinesis

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderEventImage() map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"id":             events.NewStringAttribute("event-123"),
		"aggregate_id":   events.NewStringAttribute("order-456"),
		"aggregate_type": events.NewStringAttribute("GroupOrder"),
		"event_type":     events.NewStringAttribute("MemberJoined"),
		"data":           events.NewStringAttribute(`{"group_order_id":"order-456","user_id":"alice"}`),
		"created_at":     events.NewStringAttribute("2025-04-15T10:30:00.123456789Z"),
		"version":        events.NewNumberAttribute("2"),
	}
}

func TestConvertDynamoDBImage(t *testing.T) {
	t.Run("valid event", func(t *testing.T) {
		event, err := convertDynamoDBImage(orderEventImage())
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, "event-123", event.ID)
		assert.Equal(t, "order-456", event.AggregateID)
		assert.Equal(t, "GroupOrder", event.AggregateType)
		assert.Equal(t, "MemberJoined", event.EventType)
		assert.Equal(t, 2, event.Version)
		assert.JSONEq(t, `{"group_order_id":"order-456","user_id":"alice"}`, string(event.Data))
	})

	t.Run("nil image", func(t *testing.T) {
		_, err := convertDynamoDBImage(nil)
		assert.Error(t, err)
	})

	t.Run("missing required fields", func(t *testing.T) {
		_, err := convertDynamoDBImage(map[string]events.DynamoDBAttributeValue{
			"id": events.NewStringAttribute("event-123"),
		})
		assert.Error(t, err)
	})
}

func TestConvertFromDynamoDBStreamRecord(t *testing.T) {
	t.Run("INSERT event converts successfully", func(t *testing.T) {
		record := events.DynamoDBEventRecord{
			EventName: "INSERT",
			Change: events.DynamoDBStreamRecord{
				NewImage: orderEventImage(),
			},
		}

		event, err := ConvertFromDynamoDBStreamRecord(record)
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, "event-123", event.ID)
	})

	t.Run("MODIFY and REMOVE events return nil", func(t *testing.T) {
		for _, name := range []string{"MODIFY", "REMOVE"} {
			event, err := ConvertFromDynamoDBStreamRecord(events.DynamoDBEventRecord{EventName: name})
			require.NoError(t, err)
			assert.Nil(t, event)
		}
	})
}

func TestConvertFromKinesisRecord(t *testing.T) {
	streamRecord := events.DynamoDBEventRecord{
		EventName: "INSERT",
		Change: events.DynamoDBStreamRecord{
			NewImage: orderEventImage(),
		},
	}
	data, err := json.Marshal(streamRecord)
	require.NoError(t, err)

	event, err := ConvertFromKinesisRecord(events.KinesisEventRecord{
		EventID: "kinesis-event-1",
		Kinesis: events.KinesisRecord{Data: data},
	})
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "order-456", event.AggregateID)
}

func TestBatchConvertFromKinesisEvent(t *testing.T) {
	insertRecord := events.DynamoDBEventRecord{
		EventName: "INSERT",
		Change: events.DynamoDBStreamRecord{
			NewImage: orderEventImage(),
		},
	}
	insertJSON, err := json.Marshal(insertRecord)
	require.NoError(t, err)

	modifyRecord := events.DynamoDBEventRecord{EventName: "MODIFY"}
	modifyJSON, err := json.Marshal(modifyRecord)
	require.NoError(t, err)

	kinesisEvent := events.KinesisEvent{
		Records: []events.KinesisEventRecord{
			{EventID: "1", Kinesis: events.KinesisRecord{Data: insertJSON}},
			{EventID: "2", Kinesis: events.KinesisRecord{Data: modifyJSON}},
			{EventID: "3", Kinesis: events.KinesisRecord{Data: []byte("invalid json")}},
		},
	}

	eventList, errs := BatchConvertFromKinesisEvent(kinesisEvent)

	require.Len(t, eventList, 1)
	assert.Len(t, errs, 1)
	assert.Equal(t, "event-123", eventList[0].ID)
}
