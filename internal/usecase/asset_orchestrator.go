package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/adapter"
	"shorts-studio/internal/domain/ports/repository"
	"shorts-studio/internal/infra/logging"
	"shorts-studio/internal/infra/metrics"
)

// GenerateOptions carry per-session generation parameters.
type GenerateOptions struct {
	Owner string
	Theme string
	Voice model.VoiceParams
}

// SkippedAsset records a scene slot that produced no asset.
type SkippedAsset struct {
	SceneIndex int             `json:"scene_index"`
	Kind       model.AssetKind `json:"kind"`
	Reason     string          `json:"reason"`
}

// SessionResult is the outcome of a generation run. Partial success is
// normal: Skipped lists what could not be generated.
type SessionResult struct {
	SessionID string         `json:"session_id,omitempty"`
	Assets    []*model.Asset `json:"assets"`
	Skipped   []SkippedAsset `json:"skipped,omitempty"`
}

// OrchestratorConfig tunes retries and pacing of generation calls.
type OrchestratorConfig struct {
	Policy       RetryPolicy
	Throttle     time.Duration // minimum gap between external calls
	CallTimeout  time.Duration
	LockTTL      time.Duration
	DefaultTheme string
	DefaultVoice string
}

// AssetOrchestrator drives per-scene image and narration generation.
type AssetOrchestrator interface {
	// GenerateSession generates assets for every scene in order under a new
	// session id. A failing scene is skipped, never fatal. An empty scene
	// list yields an empty result without a session id.
	GenerateSession(ctx context.Context, scenes []model.Scene, opts GenerateOptions) (*SessionResult, error)

	// Regenerate supersedes one asset with a freshly generated one in the same
	// session and scene slot. A missing asset or a session mismatch is
	// domain.ErrNotFound.
	Regenerate(ctx context.Context, assetID, sessionID string) (*model.Asset, error)
}

var _ AssetOrchestrator = (*assetOrchestrator)(nil)

type assetOrchestrator struct {
	images   adapter.ImageGenerator
	voices   adapter.VoiceGenerator
	store    adapter.ObjectStorage
	assets   repository.AssetRepository
	progress repository.ProgressRepository
	locker   adapter.Locker
	cfg      OrchestratorConfig
	clock    Clock
	log      *zerolog.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// NewAssetOrchestrator wires the orchestrator. voices, progress and locker
// may be nil: sessions are then image-only, unreported and unlocked.
func NewAssetOrchestrator(
	images adapter.ImageGenerator,
	voices adapter.VoiceGenerator,
	store adapter.ObjectStorage,
	assets repository.AssetRepository,
	progress repository.ProgressRepository,
	locker adapter.Locker,
	cfg OrchestratorConfig,
	clock Clock,
	logger *zerolog.Logger,
) AssetOrchestrator {
	if clock == nil {
		clock = SystemClock()
	}
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = DefaultRetryPolicy()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.DefaultTheme == "" {
		cfg.DefaultTheme = "cartoon"
	}
	l := logging.OrNop(logger).With().Str("component", "AssetOrchestrator").Logger()
	return &assetOrchestrator{
		images:   images,
		voices:   voices,
		store:    store,
		assets:   assets,
		progress: progress,
		locker:   locker,
		cfg:      cfg,
		clock:    clock,
		log:      &l,
	}
}

// assetRequest is one generation slot.
type assetRequest struct {
	sessionID  string
	sceneIndex int
	kind       model.AssetKind
	sourceText string
	theme      string
	voice      model.VoiceParams
	meta       map[string]string
}

func (o *assetOrchestrator) GenerateSession(ctx context.Context, scenes []model.Scene, opts GenerateOptions) (*SessionResult, error) {
	res := &SessionResult{Assets: []*model.Asset{}}
	if len(scenes) == 0 {
		return res, nil
	}
	defer logging.TraceDuration(o.log, "AssetOrchestrator.GenerateSession")()

	theme := opts.Theme
	if theme == "" {
		theme = o.cfg.DefaultTheme
	}
	voice := opts.Voice
	if voice.Name == "" {
		voice.Name = o.cfg.DefaultVoice
	}

	res.SessionID = uuid.NewString()
	log := logging.With(logging.WithSessID(ctx, res.SessionID), o.log)
	kinds := o.kinds()

	prog := &model.SessionProgress{
		SessionID: res.SessionID,
		Owner:     opts.Owner,
		Total:     len(scenes) * len(kinds),
		State:     model.ProgressRunning,
	}
	o.report(ctx, prog)
	log.Info().Int("scenes", len(scenes)).Str("theme", theme).Msg("generation started")

	for _, sc := range scenes {
		// cancellation is honored between scenes only
		if err := ctx.Err(); err != nil {
			prog.State = model.ProgressFailed
			o.report(context.WithoutCancel(ctx), prog)
			return res, err
		}
		sceneCtx := context.WithoutCancel(ctx)

		for _, kind := range kinds {
			req := assetRequest{
				sessionID:  res.SessionID,
				sceneIndex: sc.Index,
				kind:       kind,
				theme:      theme,
				voice:      voice,
				meta: map[string]string{
					model.MetaOwner: opts.Owner,
					model.MetaTheme: theme,
				},
			}
			if kind == model.AssetKindImage {
				req.sourceText = sc.Visual
				req.meta[model.MetaNarration] = sc.Narration
			} else {
				req.sourceText = sc.Narration
				req.meta[model.MetaVoice] = voice.Name
				req.meta[model.MetaVoiceParams] = voice.Encode()
			}

			a, err := o.generate(sceneCtx, req)
			if err != nil {
				log.Warn().Err(err).Int("scene", sc.Index).Str("kind", string(kind)).Msg("scene skipped")
				metrics.IncAsset(string(kind), "skipped")
				res.Skipped = append(res.Skipped, SkippedAsset{SceneIndex: sc.Index, Kind: kind, Reason: err.Error()})
				prog.Skipped++
			} else {
				res.Assets = append(res.Assets, a)
				prog.Completed++
			}
			o.report(sceneCtx, prog)
		}
	}

	prog.State = model.ProgressCompleted
	o.report(context.WithoutCancel(ctx), prog)
	log.Info().Int("assets", len(res.Assets)).Int("skipped", len(res.Skipped)).Msg("generation finished")
	return res, nil
}

func (o *assetOrchestrator) Regenerate(ctx context.Context, assetID, sessionID string) (*model.Asset, error) {
	if assetID == "" || sessionID == "" {
		return nil, domain.ErrNotFound
	}
	old, err := o.assets.FindByID(ctx, repository.NoTX, sessionID, assetID)
	if err != nil {
		return nil, err
	}
	if old.SessionID != sessionID {
		return nil, domain.ErrNotFound
	}
	log := logging.With(logging.WithSessID(ctx, sessionID), o.log).With().
		Str("asset_id", assetID).Int("scene", old.SceneIndex).Str("kind", string(old.Kind)).Logger()

	if o.locker != nil {
		key := fmt.Sprintf("lock:regen:%s:%d:%s", sessionID, old.SceneIndex, old.Kind)
		token, err := o.locker.TryLock(ctx, key, o.cfg.LockTTL)
		if err != nil {
			// a busy slot is ErrRegenerationInProgress, anything else is the store failing
			return nil, err
		}
		defer func() {
			if err := o.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
				log.Warn().Err(err).Msg("unlock failed")
			}
		}()
	}

	superseded, err := o.supersede(ctx, old)
	if err != nil {
		return nil, err
	}

	req := assetRequest{
		sessionID:  sessionID,
		sceneIndex: old.SceneIndex,
		kind:       old.Kind,
		sourceText: old.SourceText,
		theme:      old.Meta(model.MetaTheme),
		voice:      o.storedVoice(old, log),
		meta:       copyMeta(old.Metadata),
	}
	if req.theme == "" {
		req.theme = o.cfg.DefaultTheme
	}

	fresh, err := o.generate(context.WithoutCancel(ctx), req)
	if err != nil {
		// restore what was pending before so the slot is not left empty
		for _, a := range superseded {
			if rerr := o.assets.UpdateStatus(context.WithoutCancel(ctx), repository.NoTX, a.ID, model.AssetStatusPending); rerr != nil {
				log.Error().Err(rerr).Str("restore_id", a.ID).Msg("restore after failed regeneration")
			}
		}
		log.Warn().Err(err).Msg("regeneration failed")
		return nil, err
	}
	for range superseded {
		metrics.IncAsset(string(old.Kind), string(model.AssetStatusRegenerated))
	}
	log.Info().Str("new_asset_id", fresh.ID).Msg("asset regenerated")
	return fresh, nil
}

// storedVoice recovers the voice params the asset was generated with.
func (o *assetOrchestrator) storedVoice(a *model.Asset, log zerolog.Logger) model.VoiceParams {
	if raw := a.Meta(model.MetaVoiceParams); raw != "" {
		p, err := model.DecodeVoiceParams(raw)
		if err == nil {
			return p
		}
		log.Warn().Err(err).Msg("stored voice params unreadable, falling back to voice name")
	}
	return model.VoiceParams{Name: a.Meta(model.MetaVoice)}
}

// supersede flips the target and any other pending asset of its slot to
// regenerated. It returns the assets that were pending before.
func (o *assetOrchestrator) supersede(ctx context.Context, target *model.Asset) ([]*model.Asset, error) {
	var flipped []*model.Asset
	flip := func(a *model.Asset) error {
		if a.Status != model.AssetStatusPending {
			return nil
		}
		if err := o.assets.UpdateStatus(ctx, repository.NoTX, a.ID, model.AssetStatusRegenerated); err != nil {
			return fmt.Errorf("mark %s regenerated: %w", a.ID, err)
		}
		flipped = append(flipped, a)
		return nil
	}

	if err := flip(target); err != nil {
		return nil, err
	}
	cur, err := o.assets.FindCurrent(ctx, repository.NoTX, target.SessionID, target.SceneIndex, target.Kind)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return flipped, err
	case cur.ID != target.ID:
		if err := flip(cur); err != nil {
			return flipped, err
		}
	}
	return flipped, nil
}

// generate runs one slot through retry, storage and persistence.
func (o *assetOrchestrator) generate(ctx context.Context, req assetRequest) (*model.Asset, error) {
	var media *adapter.Media
	out := o.cfg.Policy.Run(ctx, o.clock, func(ctx context.Context, attempt int) error {
		if attempt > 0 {
			metrics.IncGenerationBackoff(string(req.kind))
		}
		if err := o.pace(ctx); err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()

		start := time.Now()
		m, err := o.call(callCtx, req)
		o.markCall()
		metrics.ObserveGeneration(string(req.kind), outcomeOf(err), time.Since(start))
		if err != nil {
			return err
		}
		if m == nil || len(m.Data) == 0 {
			return fmt.Errorf("%s generator returned no data: %w", req.kind, domain.ErrGenerationFailed)
		}
		media = m
		return nil
	})
	if out.Err != nil {
		return nil, out.Err
	}

	key := fmt.Sprintf("sessions/%s/scene-%03d-%s", req.sessionID, req.sceneIndex, req.kind)
	url, err := o.store.Store(ctx, media.Data, media.ContentType, key)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", req.kind, err)
	}

	meta := copyMeta(req.meta)
	meta[model.MetaContentType] = media.ContentType
	a, err := model.NewAsset(req.sessionID, req.sceneIndex, req.kind, url, req.sourceText, meta)
	if err != nil {
		return nil, err
	}
	if err := o.assets.Save(ctx, repository.NoTX, a); err != nil {
		return nil, fmt.Errorf("save asset: %w", err)
	}
	metrics.IncAsset(string(req.kind), string(a.Status))
	return a, nil
}

func (o *assetOrchestrator) call(ctx context.Context, req assetRequest) (*adapter.Media, error) {
	switch req.kind {
	case model.AssetKindImage:
		return o.images.GenerateImage(ctx, ImagePrompt(req.sourceText, req.theme), req.theme)
	case model.AssetKindAudio:
		if o.voices == nil {
			return nil, fmt.Errorf("voice generation: %w", domain.ErrNotConfigured)
		}
		return o.voices.GenerateVoice(ctx, req.sourceText, req.voice)
	default:
		return nil, domain.ErrInvalidArgument
	}
}

// pace waits until Throttle has elapsed since the previous call finished.
func (o *assetOrchestrator) pace(ctx context.Context) error {
	if o.cfg.Throttle <= 0 {
		return nil
	}
	o.mu.Lock()
	last := o.lastCall
	o.mu.Unlock()
	if last.IsZero() {
		return nil
	}
	wait := o.cfg.Throttle - o.clock.Now().Sub(last)
	if wait <= 0 {
		return nil
	}
	return o.clock.Sleep(ctx, wait)
}

func (o *assetOrchestrator) markCall() {
	o.mu.Lock()
	o.lastCall = o.clock.Now()
	o.mu.Unlock()
}

func (o *assetOrchestrator) kinds() []model.AssetKind {
	if o.voices == nil {
		return []model.AssetKind{model.AssetKindImage}
	}
	return []model.AssetKind{model.AssetKindImage, model.AssetKindAudio}
}

func (o *assetOrchestrator) report(ctx context.Context, p *model.SessionProgress) {
	if o.progress == nil {
		return
	}
	p.UpdatedAt = o.clock.Now().UTC()
	if err := o.progress.Set(ctx, p); err != nil {
		o.log.Debug().Err(err).Str("session_id", p.SessionID).Msg("progress update failed")
	}
}

// ImagePrompt appends the visual theme to a scene description.
func ImagePrompt(visual, theme string) string {
	if theme == "" {
		return visual
	}
	return fmt.Sprintf("%s, %s style, vertical 9:16 composition", visual, theme)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}

func copyMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
