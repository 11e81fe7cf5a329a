package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

type videoInfo struct {
	Width      int
	Height     int
	FrameRate  float64
	FrameCount int
	Duration   float64
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (d *Decoder) probe(ctx context.Context, videoPath string) (*videoInfo, error) {
	cmd := exec.CommandContext(ctx, d.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate,nb_frames,duration:format=duration",
		"-of", "json",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (*videoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return nil, fmt.Errorf("no video stream found")
	}

	st := out.Streams[0]
	if st.Width <= 0 || st.Height <= 0 {
		return nil, fmt.Errorf("invalid video dimensions %dx%d", st.Width, st.Height)
	}

	info := &videoInfo{Width: st.Width, Height: st.Height}

	info.FrameRate = parseRate(st.AvgFrameRate)
	if info.FrameRate == 0 {
		info.FrameRate = parseRate(st.RFrameRate)
	}

	info.Duration = parseFloat(st.Duration)
	if info.Duration == 0 {
		info.Duration = parseFloat(out.Format.Duration)
	}

	if n, err := strconv.Atoi(strings.TrimSpace(st.NbFrames)); err == nil && n > 0 {
		info.FrameCount = n
	} else if info.FrameRate > 0 {
		info.FrameCount = int(math.Round(info.Duration * info.FrameRate))
	}

	return info, nil
}

// parseRate parses ffprobe rationals such as "30000/1001"; unknown rates are 0.
func parseRate(s string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		return parseFloat(num)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
