package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/campusconnect/backend/internal/models"
)

// fakeStore wraps the in-memory store with call counters and injectable
// failures.
type fakeStore struct {
	*MemoryProfileStore
	juniorInserts atomic.Int32
	seniorInserts atomic.Int32
	getErr        error
	insertErr     error
	// beforeInsert runs ahead of every insert; used to simulate a racing writer.
	beforeInsert func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{MemoryProfileStore: NewMemoryProfileStore()}
}

func (f *fakeStore) GetJunior(ctx context.Context, id string) (*models.JuniorProfile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MemoryProfileStore.GetJunior(ctx, id)
}

func (f *fakeStore) GetSenior(ctx context.Context, id string) (*models.SeniorProfile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MemoryProfileStore.GetSenior(ctx, id)
}

func (f *fakeStore) InsertJunior(ctx context.Context, p *models.JuniorProfile) error {
	f.juniorInserts.Add(1)
	if f.beforeInsert != nil {
		f.beforeInsert()
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.MemoryProfileStore.InsertJunior(ctx, p)
}

func (f *fakeStore) InsertSenior(ctx context.Context, p *models.SeniorProfile) error {
	f.seniorInserts.Add(1)
	if f.beforeInsert != nil {
		f.beforeInsert()
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.MemoryProfileStore.InsertSenior(ctx, p)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) messages() []EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmailMessage(nil), m.sent...)
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}
