package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublisher_Publish(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	p := NewPublisher(rdb, zap.NewNop())
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return ts }
	p.newID = func() string { return "evt-1" }

	event := &Event{Type: TypeEntryPosted, AccountID: 7, EntryIDs: []int64{42}, Amount: "10.00", Currency: "USD"}
	want := *event
	want.ID = "evt-1"
	want.Timestamp = ts
	payload, err := json.Marshal(&want)
	require.NoError(t, err)

	mock.ExpectPublish(LedgerEventsChannel, string(payload)).SetVal(1)

	require.NoError(t, p.Publish(context.Background(), event))
	assert.Equal(t, "evt-1", event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublisher_PublishError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewPublisher(rdb, zap.New(core))
	p.now = func() time.Time { return time.Unix(0, 0) }
	p.newID = func() string { return "evt-2" }

	event := &Event{Type: TypeAccountDeleted, AccountID: 3}
	want := *event
	want.ID = "evt-2"
	want.Timestamp = time.Unix(0, 0).UTC()
	payload, _ := json.Marshal(&want)

	mock.ExpectPublish(LedgerEventsChannel, string(payload)).SetErr(errors.New("connection refused"))

	err := p.Publish(context.Background(), event)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Zero(t, logs.Len(), "the caller logs delivery failures")
}

func TestPublisher_NilClient(t *testing.T) {
	var nilPub *Publisher
	assert.NoError(t, nilPub.Publish(context.Background(), &Event{Type: TypeEntryPosted}))
	assert.NoError(t, NewPublisher(nil, nil).Publish(context.Background(), &Event{Type: TypeEntryPosted}))
}
