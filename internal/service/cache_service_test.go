package service

import (
	"context"
	"encoding/json"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/campusflow/ums-api/pkg/errors"
)

type mockCacheRepo struct {
	entries map[string][]byte
	sets    int
	deletes int
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{entries: make(map[string][]byte)}
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	m.sets++
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	m.deletes++
	return nil
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMockCacheRepo()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, repo.sets)
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMockCacheRepo()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)

	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", out)

	require.NoError(t, svc.Invalidate(context.Background(), "k"))
	hit, err = svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestClassSessionServiceCachedGet(t *testing.T) {
	svc, _, _ := newSessionFixture()
	repo := newMockCacheRepo()
	svc.AttachCache(NewCacheService(repo, NewMetricsService(), time.Minute, nil, true))

	created, err := svc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 5))
	require.NoError(t, err)

	// First read populates the cache, second one is served from it.
	first, err := svc.Get(context.Background(), created.ExternalID)
	require.NoError(t, err)
	sets := repo.sets
	second, err := svc.Get(context.Background(), created.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, first.ExternalID, second.ExternalID)
	assert.Equal(t, sets, repo.sets)

	// A mutation evicts the entry so the next read sees fresh data.
	location := "Room B"
	updated, err := svc.Update(context.Background(), created.ExternalID, UpdateClassSessionRequest{Location: &location})
	require.NoError(t, err)
	assert.Equal(t, "Room B", updated.Location)

	reread, err := svc.Get(context.Background(), created.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, "Room B", reread.Location)
}

func TestEnrollmentInvalidatesSessionCache(t *testing.T) {
	enrollments, sessions, _ := newEnrollmentFixture(t)
	repo := newMockCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	sessions.AttachCache(cache)
	enrollments.AttachCache(cache)

	created, err := sessions.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)

	seats, err := sessions.AvailableSeats(context.Background(), created.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, 2, seats)

	_, err = enrollments.Enroll(context.Background(), EnrollRequest{StudentID: "STU1001", ClassSessionID: created.ExternalID})
	require.NoError(t, err)

	seats, err = sessions.AvailableSeats(context.Background(), created.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, 1, seats)
}
