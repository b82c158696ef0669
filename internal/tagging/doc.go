// Package tagging runs the audio-tagging classifiers over analysis windows.
//
// Two runners are provided: the PANNs CNN14 model through ONNX Runtime and
// YAMNet through TensorFlow Lite. Both satisfy the Scorer interface so the
// analysis pipeline (and its tests) can swap in synthetic scorers without
// touching model plumbing. Each scorer owns its native sample rate and label
// vocabulary; callers decode audio at the scorer's rate and map vocabulary
// labels onto instrument keys separately.
package tagging
