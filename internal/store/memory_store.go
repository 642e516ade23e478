package store

import (
	"context"
	"sync"
	"time"

	"github.com/excellence-awards/nomination-flow/internal/interfaces"
	"github.com/excellence-awards/nomination-flow/internal/models"
)

// MemoryDraftStore is the injected-persistence implementation used by tests
// and by deployments running without Redis. Same TTL and sweep semantics as
// the Redis store.
type MemoryDraftStore struct {
	mu     sync.Mutex
	drafts map[string]*models.Draft
	values map[string]string
	ttl    time.Duration
	now    func() time.Time
}

func NewMemoryDraftStore(ttl time.Duration) *MemoryDraftStore {
	return &MemoryDraftStore{
		drafts: make(map[string]*models.Draft),
		values: make(map[string]string),
		ttl:    ttl,
		now:    time.Now,
	}
}

func cloneDraft(d *models.Draft) *models.Draft {
	c := *d
	c.FormValues = make(map[string]string, len(d.FormValues))
	for k, v := range d.FormValues {
		c.FormValues[k] = v
	}
	c.FileURLs = make(map[string][]string, len(d.FileURLs))
	for k, v := range d.FileURLs {
		c.FileURLs[k] = append([]string(nil), v...)
	}
	return &c
}

func (s *MemoryDraftStore) Save(ctx context.Context, id string, formValues map[string]string, fileURLs map[string][]string) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, d := range s.drafts {
		if d.Expired(now) {
			delete(s.drafts, k)
		}
	}

	draft := &models.Draft{
		ID:          id,
		FormValues:  formValues,
		FileURLs:    fileURLs,
		Status:      models.DraftUnpaid,
		SubmittedAt: now,
		ExpiresAt:   now.Add(s.ttl),
	}
	s.drafts[id] = cloneDraft(draft)
	return draft, nil
}

func (s *MemoryDraftStore) Get(ctx context.Context, id string) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return nil, interfaces.ErrDraftNotFound
	}
	if d.Expired(s.now()) {
		delete(s.drafts, id)
		return nil, interfaces.ErrDraftNotFound
	}
	return cloneDraft(d), nil
}

func (s *MemoryDraftStore) MarkPaid(ctx context.Context, id string, info models.PaymentInfo) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok || d.Expired(s.now()) {
		return nil, interfaces.ErrDraftNotFound
	}
	if d.FormValues == nil {
		d.FormValues = make(map[string]string)
	}
	info.Merge(d.FormValues)
	d.Status = models.DraftPaid
	d.TransactionID = info.TransactionID
	return cloneDraft(d), nil
}

func (s *MemoryDraftStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}

func (s *MemoryDraftStore) PutValue(ctx context.Context, session, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[valueKey(session, key)] = value
	return nil
}

func (s *MemoryDraftStore) GetValue(ctx context.Context, session, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[valueKey(session, key)], nil
}

func (s *MemoryDraftStore) ClearValues(ctx context.Context, session string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, valueKey(session, k))
	}
	return nil
}
