package pipeline

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"fabula/internal/services"
	"fabula/internal/timeline"
)

// MuxRequest describes one container assembly job for the encoder.
type MuxRequest struct {
	ProjectID string
	Clips     []services.Asset
	Music     *timeline.Track
	Tracks    []timeline.SyncedTrack
	Format    string
	OutputDir string
}

// Encoder assembles the generated clips and audio into a delivery container.
// Encoding runs out of process; the pipeline treats it as a collaborator.
type Encoder interface {
	Mux(ctx context.Context, req MuxRequest) (services.Asset, error)
}

// FFmpegEncoder muxes via the ffmpeg binary.
type FFmpegEncoder struct {
	Binary string
}

// NewFFmpegEncoder resolves the ffmpeg binary, defaulting to PATH lookup.
func NewFFmpegEncoder(binary string) *FFmpegEncoder {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpegEncoder{Binary: binary}
}

func (e *FFmpegEncoder) Mux(ctx context.Context, req MuxRequest) (services.Asset, error) {
	var empty services.Asset
	if len(req.Clips) == 0 {
		return empty, fmt.Errorf("mux: no clips to assemble")
	}

	output := filepath.Join(req.OutputDir, fmt.Sprintf("%s.%s", req.ProjectID, req.Format))

	args := []string{"-y"}
	for _, clip := range req.Clips {
		args = append(args, "-i", clip.Location)
	}
	audioInputs := 0
	for _, track := range req.Tracks {
		args = append(args, "-i", track.Location)
		audioInputs++
	}
	if req.Music != nil {
		args = append(args, "-i", req.Music.Location)
		audioInputs++
	}
	args = append(args, "-filter_complex", buildFilterGraph(len(req.Clips), audioInputs))
	args = append(args, "-map", "[v]")
	if audioInputs > 0 {
		args = append(args, "-map", "[a]")
	}
	args = append(args, output)

	cmd := exec.CommandContext(ctx, e.Binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return empty, fmt.Errorf("mux: ffmpeg: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return services.Asset{Location: output, Format: req.Format}, nil
}

// buildFilterGraph concatenates the video inputs and mixes the audio inputs.
func buildFilterGraph(clips, audio int) string {
	var graph strings.Builder
	for i := 0; i < clips; i++ {
		fmt.Fprintf(&graph, "[%d:v]", i)
	}
	fmt.Fprintf(&graph, "concat=n=%d:v=1:a=0[v]", clips)
	if audio > 0 {
		graph.WriteString(";")
		for i := 0; i < audio; i++ {
			fmt.Fprintf(&graph, "[%d:a]", clips+i)
		}
		fmt.Fprintf(&graph, "amix=inputs=%d[a]", audio)
	}
	return graph.String()
}

// NopEncoder records the output path without invoking ffmpeg. Used in tests.
type NopEncoder struct{}

func (NopEncoder) Mux(_ context.Context, req MuxRequest) (services.Asset, error) {
	output := filepath.Join(req.OutputDir, fmt.Sprintf("%s.%s", req.ProjectID, req.Format))
	return services.Asset{Location: output, Format: req.Format}, nil
}
