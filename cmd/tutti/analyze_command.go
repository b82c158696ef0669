package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tutti/internal/analysis"
	"tutti/internal/instruments"
	"tutti/internal/logging"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var useStems bool
	var diagnostics bool
	var asJSON bool
	var outputDir string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "analyze <file> [file...]",
		Short: "Classify audible instruments in audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger := logging.NewNop()
			if verbose {
				logger, err = logging.New(logging.Options{
					Level:            cfg.Logging.Level,
					Format:           cfg.Logging.Format,
					ErrorOutputPaths: []string{"stderr"},
					OutputPaths:      []string{"stderr"},
				})
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
			}

			scorers, err := analysis.Scorers(cfg)
			if err != nil {
				return fmt.Errorf("load model runners: %w", err)
			}
			defer func() {
				_ = analysis.CloseScorers(scorers)
			}()

			analyzer := analysis.New(cfg, logger, scorers...)
			opts := analysis.Options{
				StemSeparation: useStems,
				Diagnostics:    diagnostics,
			}

			out := cmd.OutOrStdout()
			for i, path := range args {
				result, err := analyzer.Analyze(cmd.Context(), path, opts)
				if err != nil {
					return fmt.Errorf("analyze %s: %w", path, err)
				}
				if outputDir != "" {
					sidecar, err := writeResultFile(outputDir, path, result)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", sidecar)
				}
				if asJSON {
					payload := struct {
						Path string `json:"path"`
						*analysis.Result
					}{Path: path, Result: result}
					encoded, err := json.MarshalIndent(payload, "", "  ")
					if err != nil {
						return fmt.Errorf("encode result: %w", err)
					}
					fmt.Fprintln(out, string(encoded))
					continue
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				printResult(out, path, result)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&useStems, "stems", false, "Refine low-confidence calls with Demucs stem separation")
	cmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "Include per-window score series in JSON output")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full result as JSON")
	cmd.Flags().StringVar(&outputDir, "output", "", "Directory for <name>.tutti.json result files")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")
	return cmd
}

func printResult(out io.Writer, path string, result *analysis.Result) {
	fmt.Fprintf(out, "%s\n", path)
	if len(result.Instruments) == 0 {
		fmt.Fprintln(out, "  no instruments detected")
		return
	}

	rows := make([][]string, 0, len(result.Instruments))
	for _, name := range result.Instruments {
		rows = append(rows, []string{name, scoreFor(result, name)})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Instrument", "Score"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
	if result.UsedDemucs {
		fmt.Fprintln(out, "  stem refinement: used")
	}
	if trace := result.DecisionTrace; trace != nil && len(trace.Warnings) > 0 {
		fmt.Fprintf(out, "  warnings: %s\n", strings.Join(trace.Warnings, "; "))
	}
}

func writeResultFile(dir, sourcePath string, result *analysis.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	target := filepath.Join(dir, base+".tutti.json")
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(target, encoded, 0o644); err != nil {
		return "", fmt.Errorf("write result file: %w", err)
	}
	return target, nil
}

// scoreFor maps a display name back to its target key score. Section labels
// produced by the family roll-up have no single score.
func scoreFor(result *analysis.Result, display string) string {
	for _, target := range instruments.Targets {
		if target.Display != display {
			continue
		}
		if score, ok := result.Scores[target.Key]; ok {
			return strconv.FormatFloat(score, 'f', 4, 64)
		}
	}
	return "-"
}
