package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/audiocove/audiocove/internal/analytics"
	"github.com/audiocove/audiocove/internal/db"
	"github.com/audiocove/audiocove/internal/models"
	"github.com/audiocove/audiocove/internal/ratelimit"
	"github.com/audiocove/audiocove/internal/storage"
)

const testAdminToken = "test-admin-token"

// fakeObjectStore is an in-memory storage.ObjectStore for handler tests.
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	data        []byte
	contentType string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string]fakeObject{}}
}

func (f *fakeObjectStore) Upload(ctx context.Context, key, contentType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: data, contentType: contentType}
	return nil
}

func (f *fakeObjectStore) Open(ctx context.Context, key string) (*storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type testServer struct {
	handler http.Handler
	server  *Server
	db      *db.DB
	store   *fakeObjectStore
}

func newTestServer(t *testing.T, limits ratelimit.Limits) *testServer {
	t.Helper()

	database, err := db.Connect(":memory:")
	if err != nil {
		t.Fatalf("db.Connect: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	collector := analytics.NewCollector(database, 64, 0)
	t.Cleanup(collector.Close)

	limiter := ratelimit.NewStore(limits, time.Minute)
	t.Cleanup(limiter.Stop)

	store := newFakeObjectStore()
	srv := NewServer(database, store, collector, limiter, Config{
		BaseURL:    "https://cove.example.com",
		AdminToken: testAdminToken,
		CSRFKey:    bytes.Repeat([]byte("k"), 32),
	}, "test")

	return &testServer{
		handler: srv.SetupRoutes(),
		server:  srv,
		db:      database,
		store:   store,
	}
}

func defaultTestLimits() ratelimit.Limits {
	return ratelimit.Limits{Default: 1000, AdminRead: 1000, AdminWrite: 1000, Media: 1000}
}

func (ts *testServer) request(method, path, xff string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) seedFeed(t *testing.T, slug string) {
	t.Helper()
	_, err := ts.db.CreateFeed(context.Background(), models.CreateFeedRequest{
		Slug:  slug,
		Title: "Feed " + slug,
	})
	if err != nil {
		t.Fatalf("seed feed %s: %v", slug, err)
	}
}

func (ts *testServer) seedEpisode(t *testing.T, slug, key string, data []byte) {
	t.Helper()
	if err := ts.store.Upload(context.Background(), key, "audio/mpeg", data); err != nil {
		t.Fatalf("seed media %s: %v", key, err)
	}
	_, err := ts.db.CreateEpisode(context.Background(), slug, models.CreateEpisodeRequest{
		Title:     "Episode " + key,
		MediaKey:  key,
		MediaType: "audio/mpeg",
		SizeBytes: int64(len(data)),
	})
	if err != nil {
		t.Fatalf("seed episode %s: %v", key, err)
	}
}
