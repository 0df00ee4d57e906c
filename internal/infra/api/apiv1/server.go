// File: internal/infra/api/apiv1/server.go
package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/infra/api"
	"shorts-studio/internal/infra/logging"
	"shorts-studio/internal/infra/metrics"
	"shorts-studio/internal/usecase"
)

const maxBodyBytes = 1 << 20

// VoiceLister is the read side of the voice catalog.
type VoiceLister interface {
	Filter(language, gender, typ string) []model.VoiceSample
	Find(name string) (model.VoiceSample, error)
}

// RateLimiter counts requests in a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Limit is a per-owner request budget. A zero Limit disables limiting.
type Limit struct {
	Limit  int
	Window time.Duration
	Key    func(owner string) string
}

// Deps are the use cases behind the API. Nil optional deps answer 501.
type Deps struct {
	Pipeline usecase.PipelineUseCase
	Scripts  usecase.ScriptUseCase
	Voices   VoiceLister
	Publish  usecase.PublishUseCase
	Limiter  RateLimiter
	Generate Limit
	// RenderDefaults seed assemble and render requests; zero uses model defaults.
	RenderDefaults model.RenderOptions
}

type Server struct {
	d   Deps
	log *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	return &Server{d: d, log: logging.OrNop(logger)}
}

// RegisterAPIV1 mounts the API under /api/v1. auth guards every route.
func RegisterAPIV1(r chi.Router, s *Server, auth api.Middleware) {
	r.Route("/api/v1", func(r chi.Router) {
		if auth != nil {
			r.Use(auth)
		}
		r.Post("/scripts", s.writeScript)
		r.Post("/scripts/metadata", s.writeMetadata)
		r.Get("/trends", s.trending)
		r.Get("/voices", s.voices)
		r.Get("/voices/{name}", s.voice)

		r.Post("/sessions", s.createSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/assets", s.listAssets)
			r.Get("/progress", s.progress)
			r.Post("/assets/{assetID}/regenerate", s.regenerate)
			r.Post("/assemble", s.assemble)
			r.Post("/renders", s.enqueueRender)
		})
		r.Get("/renders/{id}", s.getRender)

		r.Get("/videos", s.listVideos)
		r.Post("/videos/{id}/publish", s.publish)
	})
}

func (s *Server) logger(r *http.Request) *zerolog.Logger {
	return logging.With(r.Context(), s.log)
}

// decode reads an optional JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) writeScript(w http.ResponseWriter, r *http.Request) {
	if s.d.Scripts == nil {
		writeError(w, s.logger(r), domain.ErrNotConfigured)
		return
	}
	var req WriteScriptRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	script, err := s.d.Scripts.WriteScript(r.Context(), req)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, WriteScriptResponse{Script: script})
}

func (s *Server) writeMetadata(w http.ResponseWriter, r *http.Request) {
	if s.d.Scripts == nil {
		writeError(w, s.logger(r), domain.ErrNotConfigured)
		return
	}
	var req MetadataRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	meta, err := s.d.Scripts.WriteMetadata(r.Context(), req.Context, req.Language)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) trending(w http.ResponseWriter, r *http.Request) {
	if s.d.Scripts == nil {
		writeError(w, s.logger(r), domain.ErrNotConfigured)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	topics, err := s.d.Scripts.Trending(r.Context(), q.Get("source"), limit)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[string]{Items: nonNil(topics)})
}

func (s *Server) voices(w http.ResponseWriter, r *http.Request) {
	if s.d.Voices == nil {
		writeError(w, s.logger(r), domain.ErrNotConfigured)
		return
	}
	q := r.URL.Query()
	items := s.d.Voices.Filter(q.Get("language"), q.Get("gender"), q.Get("type"))
	writeJSON(w, http.StatusOK, ListResponse[model.VoiceSample]{Items: nonNil(items)})
}

func (s *Server) voice(w http.ResponseWriter, r *http.Request) {
	if s.d.Voices == nil {
		writeError(w, s.logger(r), domain.ErrNotConfigured)
		return
	}
	v, err := s.d.Voices.Find(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := logging.OwnerFrom(ctx)
	var req CreateSessionRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if ok, err := s.allowGenerate(ctx, owner); err != nil {
		writeError(w, s.logger(r), err)
		return
	} else if !ok {
		metrics.IncRateLimited("generate")
		w.Header().Set("Retry-After", strconv.Itoa(int(s.d.Generate.Window.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "too many generation requests"})
		return
	}

	res, err := s.d.Pipeline.GenerateSession(ctx, usecase.GenerateRequest{
		Script: req.Script,
		Owner:  owner,
		Theme:  req.Theme,
		Voice:  req.Voice,
	})
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) allowGenerate(ctx context.Context, owner string) (bool, error) {
	l := s.d.Generate
	if s.d.Limiter == nil || l.Limit <= 0 || l.Key == nil {
		return true, nil
	}
	return s.d.Limiter.Allow(ctx, l.Key(owner), l.Limit, l.Window)
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assets, err := s.d.Pipeline.ListAssets(ctx, logging.OwnerFrom(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[*model.Asset]{Items: nonNil(assets)})
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.d.Pipeline.Progress(ctx, logging.OwnerFrom(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) regenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := s.d.Pipeline.Regenerate(ctx, logging.OwnerFrom(ctx), chi.URLParam(r, "id"), chi.URLParam(r, "assetID"))
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) renderOptions(r *http.Request) (model.RenderOptions, error) {
	opts := s.d.RenderDefaults
	if opts.FPS == 0 {
		opts = model.DefaultRenderOptions()
	}
	if err := decode(r, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}

func (s *Server) assemble(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts, err := s.renderOptions(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := s.d.Pipeline.Assemble(ctx, logging.OwnerFrom(ctx), chi.URLParam(r, "id"), opts)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, AssembleResponse{
		VideoID: res.Video.ID,
		URL:     res.Video.URL,
		Clips:   res.Video.Clips,
		Seconds: res.Video.DurationSec,
		Skipped: res.Skipped,
	})
}

func (s *Server) enqueueRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts, err := s.renderOptions(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	task, err := s.d.Pipeline.EnqueueRender(ctx, logging.OwnerFrom(ctx), chi.URLParam(r, "id"), opts)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	w.Header().Set("Location", "/api/v1/renders/"+task.ID)
	writeJSON(w, http.StatusAccepted, task)
}

func (s *Server) getRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	task, err := s.d.Pipeline.GetRenderTask(ctx, logging.OwnerFrom(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) listVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	videos, err := s.d.Pipeline.ListVideos(ctx, logging.OwnerFrom(ctx), limit)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[*model.Video]{Items: nonNil(videos)})
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request) {
	if s.d.Publish == nil {
		writeError(w, s.logger(r), domain.ErrNotConfigured)
		return
	}
	ctx := r.Context()
	var req PublishRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Target == "" {
		badRequest(w, "target is required")
		return
	}
	res, err := s.d.Publish.Publish(ctx, chi.URLParam(r, "id"), logging.OwnerFrom(ctx), req.Target, req.PublishMeta)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, PublishResponse{Target: res.Target, ExternalID: res.ExternalID, URL: res.URL})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
