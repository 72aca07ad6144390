package service

import (
	"context"
	"errors"
	"postcraft-go/internal/model"
	"postcraft-go/pkg/es"
	"postcraft-go/pkg/events"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) count(t events.Type) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fakeContentRepo struct {
	mu          sync.Mutex
	posts       []*model.GeneratedPost
	adaptations map[string]*model.AdaptationRecord
	saveErr     error
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{adaptations: map[string]*model.AdaptationRecord{}}
}

func (r *fakeContentRepo) SavePost(ctx context.Context, post *model.GeneratedPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	post.ID = uint(len(r.posts) + 1)
	post.CreatedAt = time.Now()
	r.posts = append(r.posts, post)
	return nil
}

func (r *fakeContentRepo) SaveAdaptation(ctx context.Context, record *model.AdaptationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.adaptations[record.ID] = record
	return nil
}

func (r *fakeContentRepo) FindAdaptation(ctx context.Context, id string, userID uint) (*model.AdaptationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.adaptations[id]
	if !ok || rec.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return rec, nil
}

func (r *fakeContentRepo) UpdateArchiveObject(ctx context.Context, id, objectName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.adaptations[id]; ok {
		rec.ArchiveObject = objectName
	}
	return nil
}

func (r *fakeContentRepo) ListPosts(ctx context.Context, userID uint, offset, limit int) ([]model.GeneratedPost, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var mine []model.GeneratedPost
	for _, p := range r.posts {
		if p.UserID == userID {
			mine = append(mine, *p)
		}
	}
	total := int64(len(mine))
	if offset >= len(mine) {
		return []model.GeneratedPost{}, total, nil
	}
	end := offset + limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[offset:end], total, nil
}

type fakeIndexer struct {
	docs []es.PostDocument
	err  error
}

func (f *fakeIndexer) IndexPost(ctx context.Context, doc es.PostDocument) error {
	f.docs = append(f.docs, doc)
	return f.err
}

func (f *fakeIndexer) SearchPosts(ctx context.Context, userID uint, query string, size int) ([]es.SearchHit, error) {
	var hits []es.SearchHit
	for _, d := range f.docs {
		if d.UserID == userID {
			hits = append(hits, es.SearchHit{PostDocument: d, Score: 1})
		}
	}
	return hits, f.err
}

var errBoom = errors.New("boom")
