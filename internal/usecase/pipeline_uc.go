// File: internal/usecase/pipeline_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/adapter"
	"shorts-studio/internal/domain/ports/repository"
	"shorts-studio/internal/infra/logging"
	"shorts-studio/internal/infra/metrics"
)

// Compile-time check
var _ PipelineUseCase = (*pipelineUC)(nil)

// GenerateRequest is the input of a generation run.
type GenerateRequest struct {
	Script string
	Owner  string
	Theme  string
	Voice  model.VoiceParams
}

// AssembleResult is a persisted render.
type AssembleResult struct {
	Video   *model.Video `json:"video"`
	Skipped []int        `json:"skipped,omitempty"`
}

type PipelineUseCase interface {
	GenerateSession(ctx context.Context, req GenerateRequest) (*SessionResult, error)
	Regenerate(ctx context.Context, owner, sessionID, assetID string) (*model.Asset, error)
	ListAssets(ctx context.Context, owner, sessionID string) ([]*model.Asset, error)
	Progress(ctx context.Context, owner, sessionID string) (*model.SessionProgress, error)

	Assemble(ctx context.Context, owner, sessionID string, opts model.RenderOptions) (*AssembleResult, error)
	EnqueueRender(ctx context.Context, owner, sessionID string, opts model.RenderOptions) (*model.RenderTask, error)
	GetRenderTask(ctx context.Context, owner, taskID string) (*model.RenderTask, error)
	ListVideos(ctx context.Context, owner string, limit int) ([]*model.Video, error)
}

type pipelineUC struct {
	parser    *ScriptParser
	orch      AssetOrchestrator
	assembler VideoAssembler
	store     adapter.ObjectStorage
	assets    repository.AssetRepository
	tasks     repository.RenderTaskRepository
	videos    repository.VideoRepository
	progress  repository.ProgressRepository
	log       *zerolog.Logger
}

func NewPipelineUseCase(
	parser *ScriptParser,
	orch AssetOrchestrator,
	assembler VideoAssembler,
	store adapter.ObjectStorage,
	assets repository.AssetRepository,
	tasks repository.RenderTaskRepository,
	videos repository.VideoRepository,
	progress repository.ProgressRepository,
	logger *zerolog.Logger,
) *pipelineUC {
	if parser == nil {
		parser = NewScriptParser(DefaultMinNarration)
	}
	return &pipelineUC{
		parser:    parser,
		orch:      orch,
		assembler: assembler,
		store:     store,
		assets:    assets,
		tasks:     tasks,
		videos:    videos,
		progress:  progress,
		log:       logging.OrNop(logger),
	}
}

func (p *pipelineUC) GenerateSession(ctx context.Context, req GenerateRequest) (*SessionResult, error) {
	if strings.TrimSpace(req.Owner) == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := req.Voice.Validate(); err != nil {
		return nil, err
	}
	scenes := p.parser.Parse(req.Script)
	if len(scenes) == 0 {
		return nil, domain.ErrParseEmpty
	}
	return p.orch.GenerateSession(logging.WithOwner(ctx, req.Owner), scenes, GenerateOptions{
		Owner: req.Owner,
		Theme: req.Theme,
		Voice: req.Voice,
	})
}

func (p *pipelineUC) Regenerate(ctx context.Context, owner, sessionID, assetID string) (*model.Asset, error) {
	if _, err := p.ownedSession(ctx, owner, sessionID); err != nil {
		return nil, err
	}
	return p.orch.Regenerate(logging.WithOwner(ctx, owner), assetID, sessionID)
}

func (p *pipelineUC) ListAssets(ctx context.Context, owner, sessionID string) ([]*model.Asset, error) {
	return p.ownedSession(ctx, owner, sessionID)
}

func (p *pipelineUC) Progress(ctx context.Context, owner, sessionID string) (*model.SessionProgress, error) {
	if p.progress == nil {
		return nil, domain.ErrNotConfigured
	}
	if owner == "" {
		return nil, domain.ErrNotFound
	}
	prog, err := p.progress.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if prog.Owner != "" {
		if prog.Owner != owner {
			return nil, domain.ErrNotFound
		}
		return prog, nil
	}
	// entries without an owner are checked against the persisted assets
	if _, err := p.ownedSession(ctx, owner, sessionID); err != nil {
		return nil, err
	}
	return prog, nil
}

func (p *pipelineUC) Assemble(ctx context.Context, owner, sessionID string, opts model.RenderOptions) (*AssembleResult, error) {
	defer logging.TraceDuration(p.log, "PipelineUseCase.Assemble")()
	log := logging.With(logging.WithSessID(logging.WithOwner(ctx, owner), sessionID), p.log)

	all, err := p.ownedSession(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	scenes, err := SceneInputs(all)
	if err != nil {
		return nil, err
	}

	out, err := p.assembler.Assemble(ctx, scenes, opts)
	if err != nil {
		return nil, err
	}
	defer os.Remove(out.Path)

	data, err := os.ReadFile(out.Path)
	if err != nil {
		return nil, fmt.Errorf("read rendered video: %w", err)
	}
	url, err := p.store.Store(ctx, data, "video/mp4", fmt.Sprintf("videos/%s", sessionID))
	if err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}
	v, err := model.NewVideo(owner, sessionID, url, out.Duration, out.Clips)
	if err != nil {
		return nil, err
	}
	if err := p.videos.Save(ctx, repository.NoTX, v); err != nil {
		return nil, fmt.Errorf("save video: %w", err)
	}
	log.Info().Str("video_id", v.ID).Int("clips", out.Clips).Msg("video stored")
	return &AssembleResult{Video: v, Skipped: out.Skipped}, nil
}

func (p *pipelineUC) EnqueueRender(ctx context.Context, owner, sessionID string, opts model.RenderOptions) (*model.RenderTask, error) {
	if _, err := p.ownedSession(ctx, owner, sessionID); err != nil {
		return nil, err
	}
	task, err := model.NewRenderTask(sessionID, owner, opts)
	if err != nil {
		return nil, err
	}
	if err := p.tasks.Save(ctx, repository.NoTX, task); err != nil {
		return nil, err
	}
	metrics.IncRenderTask(string(task.Status))
	return task, nil
}

func (p *pipelineUC) GetRenderTask(ctx context.Context, owner, taskID string) (*model.RenderTask, error) {
	task, err := p.tasks.FindByID(ctx, repository.NoTX, taskID)
	if err != nil {
		return nil, err
	}
	if task.Owner != owner {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

func (p *pipelineUC) ListVideos(ctx context.Context, owner string, limit int) ([]*model.Video, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return p.videos.ListByOwner(ctx, repository.NoTX, owner, limit)
}

// ownedSession returns the session's assets if they belong to owner.
// Foreign and unknown sessions are indistinguishable to the caller.
func (p *pipelineUC) ownedSession(ctx context.Context, owner, sessionID string) ([]*model.Asset, error) {
	if owner == "" || sessionID == "" {
		return nil, domain.ErrNotFound
	}
	all, err := p.assets.ListBySession(ctx, repository.NoTX, sessionID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, domain.ErrNotFound
	}
	for _, a := range all {
		if a.Meta(model.MetaOwner) != owner {
			return nil, domain.ErrNotFound
		}
	}
	return all, nil
}

// SceneInputs builds assembly inputs from the pending assets of a session.
// Scenes without a pending image are left out; audio is optional.
func SceneInputs(assets []*model.Asset) ([]model.SceneInput, error) {
	byScene := map[int]*model.SceneInput{}
	for _, a := range assets {
		if a.Status != model.AssetStatusPending {
			continue
		}
		in, ok := byScene[a.SceneIndex]
		if !ok {
			in = &model.SceneInput{Index: a.SceneIndex}
			byScene[a.SceneIndex] = in
		}
		switch a.Kind {
		case model.AssetKindImage:
			in.ImageURL = a.URL
			in.Narration = a.Meta(model.MetaNarration)
		case model.AssetKindAudio:
			in.AudioURL = a.URL
			if in.Narration == "" {
				in.Narration = a.SourceText
			}
		}
	}

	out := make([]model.SceneInput, 0, len(byScene))
	for _, in := range byScene {
		if in.ImageURL == "" {
			continue
		}
		out = append(out, *in)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("session has no pending images: %w", domain.ErrNoValidScenes)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// IsClientError reports whether err is caused by the request rather than
// the system.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrNoValidScenes)
}
