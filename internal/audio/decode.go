package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// DecodePCM extracts mono float32 little-endian PCM from the given media file
// at the requested sample rate using ffmpeg. The whole stream is decoded into
// memory; analysis windows slice it without copying.
func DecodePCM(ctx context.Context, ffmpegBin, path string, sampleRate int) ([]float32, error) {
	ffmpegBin = strings.TrimSpace(ffmpegBin)
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("decode pcm: empty path")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("decode pcm: invalid sample rate %d", sampleRate)
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "f32le",
		"-",
	}

	cmd := exec.CommandContext(ctx, ffmpegBin, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("ffmpeg decode: %w: %s", err, detail)
		}
		return nil, fmt.Errorf("ffmpeg decode: %w", err)
	}

	raw := stdout.Bytes()
	if len(raw) == 0 {
		return nil, errors.New("ffmpeg decode: no audio data produced")
	}

	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}
