/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/rentran/internal/batch"
	"github.com/valpere/rentran/internal/pipeline"
	"github.com/valpere/rentran/internal/store"
	"github.com/valpere/rentran/internal/translator"
)

var (
	dirPath       string
	sourceLang    string
	targetLang    string
	engineName    string
	transBinary   string
	credentials   string
	mymemoryEmail string

	delay         time.Duration
	batchMode     bool
	batchSize     int
	maxBatchChars int
	delimiter     string
	flushInterval int
	singleTimeout time.Duration
	batchTimeout  time.Duration
	protectMarkup bool

	logLevel string
	dbPath   string
	noCache  bool
)

var (
	headline = color.New(color.FgCyan, color.Bold).SprintFunc()
	okText   = color.New(color.FgGreen).SprintFunc()
	warnText = color.New(color.FgYellow).SprintFunc()
	errText  = color.New(color.FgRed).SprintFunc()
)

var translateCmd = &cobra.Command{
	Use:   "translate [files...]",
	Short: "Translate the dialogue of Ren'Py script files",
	Long: `Translate the quoted dialogue of one or more Ren'Py script files.

With no file arguments every *.rpy file in --dir is processed, skipping
files that already carry the target-language suffix. Each input produces
<name>_<target>.rpy next to it, plus a per-file translation log.

Available engines:
  - shell     translate-shell subprocess (default, needs "trans" on PATH)
  - google    Google Cloud Translation (requires credentials)
  - mymemory  MyMemory web API (free, rate-limited)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbosity, err := pipeline.ParseVerbosity(viper.GetString("log-level"))
		if err != nil {
			return err
		}

		inputs, err := discoverInputs(args, dirPath, targetLang)
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			return fmt.Errorf("no .rpy files found in %s", dirPath)
		}

		ctx := context.Background()

		svc, err := buildService(viper.GetString("engine"))
		if err != nil {
			return err
		}
		if err := svc.IsAvailable(ctx); err != nil {
			if svc.Name() == "shell" {
				fmt.Fprintf(os.Stderr, "%s translate-shell not found; install it first, e.g.:\n", errText("ERROR:"))
				fmt.Fprintf(os.Stderr, "  apt install translate-shell\n")
			}
			return fmt.Errorf("engine %s unavailable: %w", svc.Name(), err)
		}

		var db *store.Store
		if !noCache && viper.GetString("db") != "" {
			db, err = store.New(viper.GetString("db"))
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
		}

		gw := translator.NewGateway(svc, translator.GatewayConfig{
			SourceLang:    sourceLang,
			TargetLang:    targetLang,
			SingleTimeout: singleTimeout,
			BatchTimeout:  batchTimeout,
			Delimiter:     delimiter,
			MaxBatchChars: maxBatchChars,
			ProtectMarkup: protectMarkup,
		})

		fmt.Printf("%s %s -> %s via %s, %d file(s)\n\n",
			headline("rentran"), sourceLang, targetLang, svc.Name(), len(inputs))

		var total pipeline.Stats
		failures := 0
		for _, input := range inputs {
			stats, err := runFile(ctx, gw, db, verbosity, input)
			if err != nil {
				failures++
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", errText("FAILED"), input, err)
				continue
			}
			total.Success += stats.Success
			total.Failed += stats.Failed
			total.Timeouts += stats.Timeouts
			total.SkippedCode += stats.SkippedCode
			total.CacheHits += stats.CacheHits
			total.TotalProcessed += stats.TotalProcessed
			total.TotalLines += stats.TotalLines
		}

		if len(inputs) > 1 {
			fmt.Printf("\n%s %d file(s), %d span(s) translated, %d skipped, %d cache hit(s)\n",
				headline("TOTAL:"), len(inputs)-failures, total.Success, total.SkippedCode, total.CacheHits)
		}
		if failures > 0 {
			return fmt.Errorf("%d of %d files failed", failures, len(inputs))
		}
		return nil
	},
}

// runFile translates one script and writes its output and log siblings.
func runFile(ctx context.Context, gw *translator.Gateway, db *store.Store, verbosity pipeline.Verbosity, input string) (pipeline.Stats, error) {
	var stats pipeline.Stats

	data, err := os.ReadFile(input)
	if err != nil {
		return stats, fmt.Errorf("failed to read input file: %w", err)
	}

	output := outputName(input, targetLang)
	runID := uuid.New().String()

	// The log is best-effort: translation proceeds without one.
	var logW *os.File
	logPath := logName(input)
	if f, err := os.Create(logPath); err == nil {
		logW = f
		defer f.Close()
	} else {
		fmt.Fprintf(os.Stderr, "%s cannot create log %s: %v\n", warnText("WARN:"), logPath, err)
	}

	var runLog *pipeline.RunLog
	if logW != nil {
		runLog = pipeline.NewRunLog(logW, verbosity)
	}
	runLog.Header(runID, input, output, sourceLang, targetLang, batchMode, batchSize, delimiter)

	var mem pipeline.Memory
	if db != nil {
		mem = db
	}

	fmt.Printf("%s %s\n", headline("FILE:"), input)
	driver := pipeline.NewDriver(gw, runLog, mem, pipeline.Config{
		SourceLang:    sourceLang,
		TargetLang:    targetLang,
		BatchMode:     batchMode,
		BatchSize:     batchSize,
		Delay:         delay,
		FlushInterval: flushInterval,
		Progress: func(line, total int) {
			if line%50 == 0 || line == total {
				fmt.Printf("\r  %d/%d lines", line, total)
			}
		},
	})

	lines, err := driver.Run(ctx, strings.NewReader(string(data)))
	fmt.Println()
	if err != nil {
		return stats, err
	}
	stats = driver.Stats()

	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	if err := os.WriteFile(output, []byte(content), 0644); err != nil {
		return stats, fmt.Errorf("failed to write output file: %w", err)
	}

	for _, w := range validateOutput(content) {
		fmt.Printf("  %s %s\n", warnText("WARN:"), w)
	}

	runLog.Summary(stats)

	if stats.Issues() > 0 {
		fmt.Printf("  %s %d translated, %d with issues (see %s)\n",
			warnText("DONE:"), stats.Success, stats.Issues(), logPath)
	} else {
		fmt.Printf("  %s %d translated, %d skipped -> %s\n",
			okText("DONE:"), stats.Success, stats.SkippedCode, output)
	}

	if db != nil {
		_ = db.SaveRun(ctx, store.RunRecord{
			ID:           runID,
			InputFile:    input,
			OutputFile:   output,
			SourceLang:   sourceLang,
			TargetLang:   targetLang,
			TotalLines:   stats.TotalLines,
			Success:      stats.Success,
			Failed:       stats.Failed + stats.Timeouts,
			Skipped:      stats.SkippedCode,
			BatchSuccess: stats.BatchSuccess,
			BatchFailed:  stats.BatchFailed,
			Fallback:     stats.FallbackIndividual,
		})
	}
	return stats, nil
}

// discoverInputs resolves the file list: explicit arguments win, otherwise
// every *.rpy under dir that is not itself a translation output.
func discoverInputs(args []string, dir, target string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.rpy"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var inputs []string
	suffix := "_" + target + ".rpy"
	for _, m := range matches {
		if strings.HasSuffix(m, suffix) {
			continue
		}
		inputs = append(inputs, m)
	}
	return inputs, nil
}

func buildService(engine string) (translator.Service, error) {
	switch engine {
	case "shell", "":
		return translator.NewShellService(transBinary), nil
	case "google":
		return translator.NewGoogleService(credentials), nil
	case "mymemory":
		return translator.NewMyMemoryService(mymemoryEmail), nil
	}
	return nil, fmt.Errorf("unknown engine %q (want shell, google or mymemory)", engine)
}

// outputName returns the translated sibling of input: script.rpy -> script_id.rpy.
func outputName(input, target string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	return base + "_" + target + ext
}

// logName returns the per-run log sibling of input.
func logName(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	stamp := time.Now().Format("20060102_150405")
	return filepath.Join(filepath.Dir(input), "log_"+base+"_"+stamp+".txt")
}

// validateOutput runs cheap syntax checks over the rewritten script and
// returns human-readable warnings. Translation engines occasionally eat a
// closing quote or text tag; the script still gets written, but the user
// should know which lines to inspect.
func validateOutput(content string) []string {
	var warnings []string
	for i, line := range strings.Split(content, "\n") {
		if strings.Count(line, `"`)%2 != 0 {
			warnings = append(warnings, fmt.Sprintf("line %d: unbalanced quotes", i+1))
		}
		if strings.Count(line, "{") != strings.Count(line, "}") {
			warnings = append(warnings, fmt.Sprintf("line %d: unbalanced text tags", i+1))
		}
		if strings.Count(line, "[") != strings.Count(line, "]") {
			warnings = append(warnings, fmt.Sprintf("line %d: unbalanced interpolation brackets", i+1))
		}
	}
	return warnings
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVar(&dirPath, "dir", ".", "Directory to scan for .rpy files when no arguments are given")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "en", "Source language code")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "id", "Target language code")
	translateCmd.Flags().StringVarP(&engineName, "engine", "e", "shell", "Translation engine (shell, google, mymemory)")
	translateCmd.Flags().StringVar(&transBinary, "trans-binary", "trans", "translate-shell binary for the shell engine")
	translateCmd.Flags().StringVarP(&credentials, "credentials", "c", "", "Path to Google Cloud credentials")
	translateCmd.Flags().StringVar(&mymemoryEmail, "mymemory-email", "", "MyMemory email (for higher limits)")

	translateCmd.Flags().DurationVar(&delay, "delay", 500*time.Millisecond, "Pause between translation calls")
	translateCmd.Flags().BoolVar(&batchMode, "batch", true, "Pack spans into delimiter-joined batch calls")
	translateCmd.Flags().IntVar(&batchSize, "batch-size", batch.DefaultSize, "Spans per batch call")
	translateCmd.Flags().IntVar(&maxBatchChars, "max-batch-chars", batch.DefaultMaxChars, "Character budget per batch payload")
	translateCmd.Flags().StringVar(&delimiter, "delimiter", batch.DefaultDelimiter, "Batch wire delimiter")
	translateCmd.Flags().IntVar(&flushInterval, "flush-interval", pipeline.DefaultFlushInterval, "Force a flush every N input lines")
	translateCmd.Flags().DurationVar(&singleTimeout, "single-timeout", translator.DefaultSingleTimeout, "Timeout per single-text call")
	translateCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", translator.DefaultBatchTimeout, "Timeout per batch call")
	translateCmd.Flags().BoolVar(&protectMarkup, "protect-markup", true, "Shield [variables] and {tags} from the engine")

	translateCmd.Flags().StringVar(&logLevel, "log-level", "errors-only", "Log verbosity (normal, errors-only, summary-only)")
	translateCmd.Flags().StringVar(&dbPath, "db", "./data/rentran.db", "Database path for translation memory")
	translateCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable translation memory cache")

	viper.BindPFlag("engine", translateCmd.Flags().Lookup("engine"))
	viper.BindPFlag("log-level", translateCmd.Flags().Lookup("log-level"))
	viper.BindPFlag("db", translateCmd.Flags().Lookup("db"))
}
