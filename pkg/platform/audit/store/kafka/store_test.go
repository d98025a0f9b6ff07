package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "storefront/pkg/domain"
	audit "storefront/pkg/platform/audit"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func TestStoreAppend(t *testing.T) {
	producer := &fakeProducer{}
	store := New(producer, "storefront.audit")
	userID := id.NewUserID()
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	err := store.Append(context.Background(), audit.Event{
		Category:  audit.CategorySecurity,
		Timestamp: ts,
		UserID:    userID,
		Subject:   "alice",
		Action:    string(audit.EventLoginSucceeded),
		Mode:      "STATEFUL",
	})
	require.NoError(t, err)
	require.Len(t, producer.records, 1)

	rec := producer.records[0]
	assert.Equal(t, "storefront.audit", rec.Topic)
	assert.Equal(t, []byte("alice"), rec.Key)
	assert.Equal(t, "action", rec.Headers[0].Key)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Value, &body))
	assert.Equal(t, "login_succeeded", body["action"])
	assert.Equal(t, userID.String(), body["user_id"])
	assert.Equal(t, "STATEFUL", body["mode"])
	assert.Equal(t, "security", body["category"])
}

func TestStoreAppendOmitsNilUser(t *testing.T) {
	producer := &fakeProducer{}
	require.NoError(t, New(producer, "t").Append(context.Background(), audit.Event{Action: "auth_mode_switched"}))

	var body map[string]any
	require.NoError(t, json.Unmarshal(producer.records[0].Value, &body))
	_, ok := body["user_id"]
	assert.False(t, ok)
}

func TestStoreAppendPropagatesProduceError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker unreachable")}
	err := New(producer, "t").Append(context.Background(), audit.Event{Action: "logged_out"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unreachable")
}
