package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dumpsleuth/internal/service"
	"github.com/dumpsleuth/pkg/filter"
	"github.com/dumpsleuth/pkg/model"
	"github.com/dumpsleuth/pkg/writer"
)

var (
	// Analyze command flags
	outputPath    string
	outputFormat  string
	plugins       string
	categories    string
	minConfidence float64
	noCache       bool
	workers       int
	showProgress  bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <dump>",
	Short: "Analyze a memory dump",
	Long: `Analyze a crash dump or raw memory image.

The dump argument is a local file path or an object reference of the form
cos://key when object storage is configured. The dump format is detected
from its header; unknown formats are still scanned as raw memory.

A truncated or partially corrupt dump degrades to a partial result over
the readable region instead of failing.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	binName := BinName()
	analyzeCmd.Example = `  # Analyze a minidump and print a summary
  ` + binName + ` analyze ./crash.dmp

  # Full JSON report to a file
  ` + binName + ` analyze ./crash.dmp -o report.json --format json

  # Strings only, no cache
  ` + binName + ` analyze ./memory.raw --plugins strings --no-cache`

	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the report to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&outputFormat, "format", "summary", "Output format: summary or json")
	analyzeCmd.Flags().StringVar(&plugins, "plugins", "", "Comma-separated extractor list overriding the config")
	analyzeCmd.Flags().StringVar(&categories, "categories", "", "Comma-separated finding categories to report (default: all)")
	analyzeCmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Drop findings below this confidence")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the result cache")
	analyzeCmd.Flags().IntVar(&workers, "workers", 0, "Worker count override (0 = config value)")
	analyzeCmd.Flags().BoolVar(&showProgress, "progress", false, "Print progress while analyzing")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	conf := GetConfig()

	if plugins != "" {
		conf.Plugins.Enabled = strings.Split(plugins, ",")
		for i := range conf.Plugins.Enabled {
			conf.Plugins.Enabled[i] = strings.TrimSpace(conf.Plugins.Enabled[i])
		}
	}
	if noCache {
		conf.Performance.CacheEnabled = false
	}
	if workers > 0 {
		conf.Performance.Workers = workers
	}

	svc, err := service.New(conf, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Initialize(ctx); err != nil {
		return err
	}

	if showProgress {
		var lastDecile int
		svc.SetProgressCallback(func(extractor string, fraction float64) {
			decile := int(fraction * 10)
			if decile > lastDecile {
				lastDecile = decile
				log.Info("progress: %3.0f%% (last: %s)", fraction*100, extractor)
			}
		})
	}

	start := time.Now()
	result, err := svc.Analyze(ctx, args[0])
	if err != nil {
		return err
	}
	log.Info("analysis finished in %s: %d findings, status=%s",
		time.Since(start).Round(time.Millisecond), len(result.Findings), result.Status)

	applyReportFilter(result)
	return writeReport(result)
}

// applyReportFilter narrows the findings to the requested categories and
// confidence floor. Presentation only, the cached result is untouched.
func applyReportFilter(result *model.AnalysisResult) {
	if categories == "" && minConfidence <= 0 {
		return
	}
	f := filter.New().MinConfidence(minConfidence)
	if categories != "" {
		for _, c := range strings.Split(categories, ",") {
			f.Include(model.Category(strings.TrimSpace(c)))
		}
	}
	result.Findings = f.Apply(result.Findings)
}

func writeReport(result *model.AnalysisResult) error {
	switch outputFormat {
	case "json":
		w := writer.NewPrettyJSONWriter[*model.AnalysisResult]()
		if outputPath != "" {
			return w.WriteToFile(result, outputPath)
		}
		return w.Write(result, os.Stdout)
	case "summary":
		out := os.Stdout
		if outputPath != "" {
			f, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		return writeSummary(out, result)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func writeSummary(out *os.File, result *model.AnalysisResult) error {
	fmt.Fprintf(out, "Dump:    %s (%d bytes, %s)\n", result.Dump.Path, result.Dump.Size, result.Dump.Format)
	if result.Dump.Truncated {
		fmt.Fprintln(out, "Note:    dump is truncated, findings cover the readable prefix")
	}
	fmt.Fprintf(out, "Status:  %s\n", result.Status)
	fmt.Fprintf(out, "Hash:    %s\n", result.Dump.ContentHash)

	counts := result.CountByCategory()
	categories := make([]string, 0, len(counts))
	for cat := range counts {
		categories = append(categories, string(cat))
	}
	sort.Strings(categories)

	fmt.Fprintf(out, "\nFindings (%d total):\n", len(result.Findings))
	for _, cat := range categories {
		fmt.Fprintf(out, "  %-20s %d\n", cat, counts[model.Category(cat)])
	}

	if len(result.Failures) > 0 {
		fmt.Fprintf(out, "\nFailures (%d):\n", len(result.Failures))
		for _, f := range result.Failures {
			fmt.Fprintf(out, "  %s chunk %d: %s\n", f.Extractor, f.ChunkIndex, f.Error)
		}
	}

	fmt.Fprintln(out, "\nExtractors:")
	for _, run := range result.Runs {
		fmt.Fprintf(out, "  %-12s %6d findings  %4d chunks  %s\n",
			run.Name, run.Findings, run.Chunks, run.Duration.Round(time.Millisecond))
	}
	return nil
}
