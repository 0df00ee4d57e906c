//go:build !integration

package usecase_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/adapter"
	"shorts-studio/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// tinyPNG returns a valid 2x2 PNG.
func tinyPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// =============================
// Clock
// =============================

// fakeClock advances virtual time on Sleep and records every wait.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	Sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sleeps = append(c.Sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// =============================
// Generators
// =============================

type MockImageGen struct {
	mu      sync.Mutex
	Prompts []string
	Func    func(ctx context.Context, prompt, style string) (*adapter.Media, error)
}

var _ adapter.ImageGenerator = (*MockImageGen)(nil)

func (m *MockImageGen) GenerateImage(ctx context.Context, prompt, style string) (*adapter.Media, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	if m.Func != nil {
		return m.Func(ctx, prompt, style)
	}
	return &adapter.Media{Data: tinyPNG(), ContentType: "image/png"}, nil
}

func (m *MockImageGen) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

type MockVoiceGen struct {
	mu    sync.Mutex
	Texts []string
	Func  func(ctx context.Context, text string, p model.VoiceParams) (*adapter.Media, error)
}

var _ adapter.VoiceGenerator = (*MockVoiceGen)(nil)

func (m *MockVoiceGen) GenerateVoice(ctx context.Context, text string, p model.VoiceParams) (*adapter.Media, error) {
	m.mu.Lock()
	m.Texts = append(m.Texts, text)
	m.mu.Unlock()
	if m.Func != nil {
		return m.Func(ctx, text, p)
	}
	return &adapter.Media{Data: []byte("ID3audio"), ContentType: "audio/mpeg"}, nil
}

type MockTextGen struct {
	Messages     [][]adapter.Message
	Tokens       int
	CompleteFunc func(ctx context.Context, model string, msgs []adapter.Message) (string, adapter.Usage, error)
}

var _ adapter.TextGenerator = (*MockTextGen)(nil)

func (m *MockTextGen) CountTokens(ctx context.Context, model string, msgs []adapter.Message) (int, error) {
	return m.Tokens, nil
}

func (m *MockTextGen) Complete(ctx context.Context, model string, msgs []adapter.Message) (string, adapter.Usage, error) {
	m.Messages = append(m.Messages, msgs)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, model, msgs)
	}
	return "", adapter.Usage{}, nil
}

// =============================
// Storage
// =============================

// memStorage keeps objects in memory under mem:// urls.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	OpenErr map[string]error
}

var _ adapter.ObjectStorage = (*memStorage)(nil)

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, OpenErr: map[string]error{}}
}

func (s *memStorage) Store(ctx context.Context, data []byte, contentType, keyHint string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url := fmt.Sprintf("mem://%s/%s", keyHint, uuid.NewString())
	s.objects[url] = append([]byte(nil), data...)
	return url, nil
}

func (s *memStorage) Put(url string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[url] = data
}

func (s *memStorage) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.OpenErr[url]; err != nil {
		return nil, err
	}
	b, ok := s.objects[url]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStorage) Owns(url string) bool { return strings.HasPrefix(url, "mem://") }

func (s *memStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// =============================
// Media engine
// =============================

// MockMediaEngine writes placeholder files instead of encoding.
type MockMediaEngine struct {
	mu        sync.Mutex
	Clips     []adapter.ClipSpec
	Concated  []string
	Fitted    float64
	ProbeFunc func(path string) (float64, error)
	RenderErr func(spec adapter.ClipSpec) error
}

var _ adapter.MediaEngine = (*MockMediaEngine)(nil)

func (m *MockMediaEngine) Probe(ctx context.Context, path string) (float64, error) {
	if m.ProbeFunc != nil {
		return m.ProbeFunc(path)
	}
	return 3, nil
}

func (m *MockMediaEngine) RenderClip(ctx context.Context, spec adapter.ClipSpec) error {
	if m.RenderErr != nil {
		if err := m.RenderErr(spec); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Clips = append(m.Clips, spec)
	m.mu.Unlock()
	return os.WriteFile(spec.OutPath, []byte("clip"), 0o600)
}

func (m *MockMediaEngine) Concat(ctx context.Context, clips []string, out string) error {
	m.mu.Lock()
	m.Concated = append([]string(nil), clips...)
	m.mu.Unlock()
	return os.WriteFile(out, []byte(strings.Join(clips, "\n")), 0o600)
}

func (m *MockMediaEngine) FitAudio(ctx context.Context, video, audio string, duration float64, out string) error {
	m.mu.Lock()
	m.Fitted = duration
	m.mu.Unlock()
	return os.WriteFile(out, []byte("fitted"), 0o600)
}

// =============================
// Repositories
// =============================

type memAssetRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.Asset
	SaveFn func(a *model.Asset) error
}

var _ repository.AssetRepository = (*memAssetRepo)(nil)

func newMemAssetRepo() *memAssetRepo {
	return &memAssetRepo{byID: map[string]*model.Asset{}}
}

func (r *memAssetRepo) Save(ctx context.Context, tx repository.Tx, a *model.Asset) error {
	if r.SaveFn != nil {
		if err := r.SaveFn(a); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAssetRepo) FindByID(ctx context.Context, tx repository.Tx, sessionID, assetID string) (*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[assetID]
	if !ok || a.SessionID != sessionID {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAssetRepo) FindCurrent(ctx context.Context, tx repository.Tx, sessionID string, sceneIndex int, kind model.AssetKind) (*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.SessionID == sessionID && a.SceneIndex == sceneIndex && a.Kind == kind && a.Status == model.AssetStatusPending {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memAssetRepo) ListBySession(ctx context.Context, tx repository.Tx, sessionID string) ([]*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Asset
	for _, a := range r.byID {
		if a.SessionID == sessionID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SceneIndex != out[j].SceneIndex {
			return out[i].SceneIndex < out[j].SceneIndex
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memAssetRepo) UpdateStatus(ctx context.Context, tx repository.Tx, assetID string, status model.AssetStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[assetID]
	if !ok {
		return domain.ErrNotFound
	}
	if err := a.Transition(status); err != nil {
		return err
	}
	return nil
}

// pending counts pending assets per (scene, kind) slot.
func (r *memAssetRepo) pending(sessionID string) map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for _, a := range r.byID {
		if a.SessionID == sessionID && a.Status == model.AssetStatusPending {
			out[fmt.Sprintf("%d/%s", a.SceneIndex, a.Kind)]++
		}
	}
	return out
}

type memProgressRepo struct {
	mu   sync.Mutex
	data map[string]model.SessionProgress
	Seen []model.SessionProgress
}

var _ repository.ProgressRepository = (*memProgressRepo)(nil)

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{data: map[string]model.SessionProgress{}}
}

func (r *memProgressRepo) Set(ctx context.Context, p *model.SessionProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.SessionID] = *p
	r.Seen = append(r.Seen, *p)
	return nil
}

func (r *memProgressRepo) Get(ctx context.Context, sessionID string) (*model.SessionProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*model.RenderTask
}

var _ repository.RenderTaskRepository = (*memTaskRepo)(nil)

func newMemTaskRepo() *memTaskRepo { return &memTaskRepo{tasks: map[string]*model.RenderTask{}} }

func (r *memTaskRepo) Save(ctx context.Context, tx repository.Tx, t *model.RenderTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *memTaskRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RenderTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTaskRepo) FetchAndMarkProcessing(ctx context.Context) (*model.RenderTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.Status == model.RenderTaskPending {
			t.Status = model.RenderTaskProcessing
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memTaskRepo) FailStale(ctx context.Context, cutoff time.Time, reason string) (int, error) {
	return 0, nil
}

type memVideoRepo struct {
	mu     sync.Mutex
	videos map[string]*model.Video
}

var _ repository.VideoRepository = (*memVideoRepo)(nil)

func newMemVideoRepo() *memVideoRepo { return &memVideoRepo{videos: map[string]*model.Video{}} }

func (r *memVideoRepo) Save(ctx context.Context, tx repository.Tx, v *model.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.videos[v.ID] = &cp
	return nil
}

func (r *memVideoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *memVideoRepo) ListByOwner(ctx context.Context, tx repository.Tx, owner string, limit int) ([]*model.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Video
	for _, v := range r.videos {
		if v.Owner == owner {
			cp := *v
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memVideoRepo) MarkPublished(ctx context.Context, tx repository.Tx, id, externalURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.Status = model.VideoStatusPublished
	v.ExternalURL = externalURL
	return nil
}

// =============================
// Locker / Publisher
// =============================

type memLocker struct {
	mu   sync.Mutex
	held map[string]string
	Err  error
}

var _ adapter.Locker = (*memLocker)(nil)

func newMemLocker() *memLocker { return &memLocker{held: map[string]string{}} }

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return "", l.Err
	}
	if _, ok := l.held[key]; ok {
		return "", domain.ErrRegenerationInProgress
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type MockPublisher struct {
	name string
	Reqs []adapter.PublishRequest
	Err  error
}

var _ adapter.Publisher = (*MockPublisher)(nil)

func (p *MockPublisher) Name() string { return p.name }

func (p *MockPublisher) Publish(ctx context.Context, req adapter.PublishRequest) (*adapter.PublishResult, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if _, err := os.Stat(req.FilePath); err != nil {
		return nil, err
	}
	p.Reqs = append(p.Reqs, req)
	return &adapter.PublishResult{Target: p.name, ExternalID: "ext-1", URL: "https://example.test/v/ext-1"}, nil
}
