package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/excellence-awards/nomination-flow/internal/interfaces"
	"github.com/excellence-awards/nomination-flow/internal/models"
)

const draftPrefix = "nomination_draft:"

// RedisDraftStore keeps one in-flight nomination draft per flow in Redis.
// Entries carry their own expiresAt alongside the Redis TTL so the sweep can
// reap entries written by older deployments with a longer TTL.
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl, now: time.Now}
}

func draftKey(id string) string { return draftPrefix + id }

func valueKey(session, key string) string {
	return fmt.Sprintf("nomination_session:%s:%s", session, key)
}

func (s *RedisDraftStore) Save(ctx context.Context, id string, formValues map[string]string, fileURLs map[string][]string) (*models.Draft, error) {
	now := s.now()
	draft := &models.Draft{
		ID:          id,
		FormValues:  formValues,
		FileURLs:    fileURLs,
		Status:      models.DraftUnpaid,
		SubmittedAt: now,
		ExpiresAt:   now.Add(s.ttl),
	}
	raw, err := json.Marshal(draft)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, draftKey(id), raw, s.ttl).Err(); err != nil {
		return nil, err
	}
	s.sweep(ctx, now)
	return draft, nil
}

// sweep reaps expired or unreadable drafts. Piggybacked on every Save;
// failures are ignored because the sweep is opportunistic garbage collection.
func (s *RedisDraftStore) sweep(ctx context.Context, now time.Time) {
	iter := s.client.Scan(ctx, 0, draftPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var d models.Draft
		if json.Unmarshal(raw, &d) != nil || d.Expired(now) {
			s.client.Del(ctx, key)
		}
	}
}

func (s *RedisDraftStore) Get(ctx context.Context, id string) (*models.Draft, error) {
	raw, err := s.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		// redis.Nil and transport failures both degrade to not-found;
		// the flow must tolerate a cold store.
		return nil, interfaces.ErrDraftNotFound
	}
	var d models.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		s.client.Del(ctx, draftKey(id))
		return nil, interfaces.ErrDraftNotFound
	}
	if d.Expired(s.now()) {
		s.client.Del(ctx, draftKey(id))
		return nil, interfaces.ErrDraftNotFound
	}
	return &d, nil
}

func (s *RedisDraftStore) MarkPaid(ctx context.Context, id string, info models.PaymentInfo) (*models.Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.FormValues == nil {
		d.FormValues = make(map[string]string)
	}
	info.Merge(d.FormValues)
	d.Status = models.DraftPaid
	d.TransactionID = info.TransactionID

	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	remaining := d.ExpiresAt.Sub(s.now())
	if err := s.client.Set(ctx, draftKey(id), raw, remaining).Err(); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, draftKey(id)).Err()
}

func (s *RedisDraftStore) PutValue(ctx context.Context, session, key, value string) error {
	return s.client.Set(ctx, valueKey(session, key), value, s.ttl).Err()
}

func (s *RedisDraftStore) GetValue(ctx context.Context, session, key string) (string, error) {
	v, err := s.client.Get(ctx, valueKey(session, key)).Result()
	if err != nil {
		return "", nil
	}
	return v, nil
}

func (s *RedisDraftStore) ClearValues(ctx context.Context, session string, keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, valueKey(session, k))
	}
	return s.client.Del(ctx, full...).Err()
}
