// Package audio decodes source files into mono float32 PCM via ffmpeg,
// probes container metadata via ffprobe, and slices waveforms into the
// fixed-size analysis windows the classifiers consume.
package audio
