// File: internal/infra/adapters/media/ffmpeg.go
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/adapter"
	"shorts-studio/internal/infra/logging"
)

var _ adapter.MediaEngine = (*FFmpegEngine)(nil)

// FFmpegEngine drives the ffmpeg and ffprobe binaries.
type FFmpegEngine struct {
	ffmpeg   string
	ffprobe  string
	fontFile string
	log      *zerolog.Logger
}

// NewFFmpegEngine checks that both binaries resolve on PATH (or as given).
func NewFFmpegEngine(ffmpegPath, ffprobePath, fontFile string, logger *zerolog.Logger) (*FFmpegEngine, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	ff, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	fp, err := exec.LookPath(ffprobePath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}
	l := logging.OrNop(logger).With().Str("component", "FFmpegEngine").Logger()
	return &FFmpegEngine{ffmpeg: ff, ffprobe: fp, fontFile: fontFile, log: &l}, nil
}

func (e *FFmpegEngine) Probe(ctx context.Context, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, e.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse duration %q: %w", filepath.Base(path), out, err)
	}
	return dur, nil
}

func (e *FFmpegEngine) RenderClip(ctx context.Context, spec adapter.ClipSpec) error {
	if spec.Duration <= 0 {
		return fmt.Errorf("render clip: duration %.2f", spec.Duration)
	}
	return e.run(ctx, ClipArgs(spec, e.fontFile))
}

func (e *FFmpegEngine) Concat(ctx context.Context, clips []string, out string) error {
	if len(clips) == 0 {
		return errors.New("concat: no clips")
	}
	list := out + ".txt"
	if err := os.WriteFile(list, []byte(ConcatList(clips)), 0o644); err != nil {
		return fmt.Errorf("concat list: %w", err)
	}
	defer os.Remove(list)
	return e.run(ctx, ConcatArgs(list, out))
}

func (e *FFmpegEngine) FitAudio(ctx context.Context, video, audio string, duration float64, out string) error {
	return e.run(ctx, FitAudioArgs(video, audio, duration, out))
}

func (e *FFmpegEngine) run(ctx context.Context, args []string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffmpeg, args...)
	cmd.Stderr = &stderr
	start := time.Now()
	err := cmd.Run()
	e.log.Debug().Strs("args", args).Dur("took", time.Since(start)).Msg("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String(), 400))
	}
	return nil
}

// ClipArgs builds the command line for one still-image scene clip.
// A missing audio track is replaced with generated silence.
func ClipArgs(spec adapter.ClipSpec, fontFile string) []string {
	fps := strconv.Itoa(spec.FPS)
	dur := formatSeconds(spec.Duration)

	args := []string{"-y", "-loop", "1", "-framerate", fps, "-i", spec.ImagePath}
	if spec.AudioPath != "" {
		args = append(args, "-i", spec.AudioPath)
	} else {
		args = append(args, "-f", "lavfi", "-i", "anullsrc=r=44100:cl=stereo")
	}
	return append(args,
		"-t", dur,
		"-vf", VideoFilter(spec, fontFile),
		"-af", "apad",
		"-map", "0:v", "-map", "1:a",
		"-r", fps,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "44100",
		"-ac", "2",
		"-movflags", "+faststart",
		spec.OutPath,
	)
}

// VideoFilter fills the frame (scale up then center crop), adds fades and
// burns in each caption for its time window.
func VideoFilter(spec adapter.ClipSpec, fontFile string) string {
	w, h := spec.Width, spec.Height
	parts := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", w, h),
		fmt.Sprintf("crop=%d:%d", w, h),
		"setsar=1",
	}
	if spec.Fade && spec.Duration > 2*model.FadeSeconds {
		fade := formatSeconds(model.FadeSeconds)
		parts = append(parts,
			"fade=t=in:st=0:d="+fade,
			fmt.Sprintf("fade=t=out:st=%s:d=%s", formatSeconds(spec.Duration-model.FadeSeconds), fade),
		)
	}
	for _, c := range spec.Captions {
		parts = append(parts, drawtext(c, w, fontFile))
	}
	return strings.Join(parts, ",")
}

func drawtext(c model.CaptionSegment, width int, fontFile string) string {
	size := max(width/18, 12)
	opts := []string{}
	if fontFile != "" {
		opts = append(opts, "fontfile='"+EscapeText(fontFile)+"'")
	}
	opts = append(opts,
		"text='"+EscapeText(c.Text)+"'",
		"expansion=none",
		"fontcolor=white",
		"fontsize="+strconv.Itoa(size),
		"box=1",
		"boxcolor=black@0.7",
		"boxborderw=12",
		"x=(w-text_w)/2",
		"y=h*0.78",
		fmt.Sprintf("enable='between(t,%s,%s)'", formatSeconds(c.Start), formatSeconds(c.Start+c.Duration)),
	)
	return "drawtext=" + strings.Join(opts, ":")
}

// EscapeText makes s safe inside a single-quoted filter option value.
func EscapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, "")
	s = strings.ReplaceAll(s, "'", "’")
	s = strings.ReplaceAll(s, ":", `\:`)
	return strings.Join(strings.Fields(s), " ")
}

// ConcatList renders the concat demuxer input file.
func ConcatList(clips []string) string {
	var b strings.Builder
	for _, c := range clips {
		abs, err := filepath.Abs(c)
		if err != nil {
			abs = c
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func ConcatArgs(list, out string) []string {
	return []string{"-y", "-f", "concat", "-safe", "0", "-i", list, "-c", "copy", "-movflags", "+faststart", out}
}

// FitAudioArgs loops the audio indefinitely and cuts at duration.
func FitAudioArgs(video, audio string, duration float64, out string) []string {
	return []string{
		"-y",
		"-i", video,
		"-stream_loop", "-1", "-i", audio,
		"-map", "0:v", "-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", formatSeconds(duration),
		"-movflags", "+faststart",
		out,
	}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
