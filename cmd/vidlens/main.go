package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/vidlens/internal/config"
	"github.com/kikiluvv/vidlens/internal/logging"
	"github.com/kikiluvv/vidlens/internal/pipeline"
	"github.com/kikiluvv/vidlens/pkg/util"
)

var (
	cfgFile  string
	verbose  bool
	jsonLogs bool
	samples  int
	maxWidth int
	backend  string
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit code
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

var rootCmd = &cobra.Command{
	Use:          "vidlens",
	Short:        "vidlens - video content analysis",
	Long:         "Samples frames from a video, classifies its visual character, and renders a metadata prompt and a thumbnail.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(logging.Options{Verbose: verbose, JSON: jsonLogs})

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		applyFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./vidlens.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
	rootCmd.PersistentFlags().IntVarP(&samples, "samples", "n", 0, "frames to sample (default: derived from length)")
	rootCmd.PersistentFlags().IntVar(&maxWidth, "max-width", 0, "downscale sampled frames to this width")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", config.BackendExec, "ffmpeg backend (exec|ffmpeg-go)")

	analyzeCmd.Flags().Bool("prompt", false, "print the generated prompt for each input")
	analyzeCmd.Flags().String("context", "", "additional context appended to the prompt")
	promptCmd.Flags().String("context", "", "additional context appended to the prompt")
	thumbnailCmd.Flags().StringP("output", "o", "", "output JPEG (default: <input>_thumbnail.jpg)")
	thumbnailCmd.Flags().String("title", "", "title drawn on the thumbnail")
	thumbnailCmd.Flags().BoolP("force", "f", false, "overwrite an existing output")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(thumbnailCmd)
	rootCmd.AddCommand(configCmd)
}

// applyFlags folds command-line overrides into cfg so that they reach the
// decoder as well as the sampler.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("backend") {
		cfg.FFmpeg.Backend = backend
	}
	if samples > 0 {
		cfg.Analysis.SampleCount = samples
	}
	if maxWidth > 0 {
		cfg.Analysis.MaxWidth = maxWidth
	}
}

func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	cfg := config.FromContext(cmd.Context())
	return pipeline.NewFromConfig(log.Logger, cfg)
}

func analyzeOptions(cmd *cobra.Command) pipeline.AnalyzeOptions {
	var opts pipeline.AnalyzeOptions
	if f := cmd.Flags().Lookup("context"); f != nil {
		opts.Context = f.Value.String()
	}
	return opts
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [inputs...]",
	Short: "Analyze videos or frame directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		defer pipe.Close()

		showPrompt, _ := cmd.Flags().GetBool("prompt")
		out := cmd.OutOrStdout()

		results := pipe.Batch(cmd.Context(), args, analyzeOptions(cmd))

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Fprintf(out, "%s: FAILED: %v\n", r.Path, r.Err)
				continue
			}
			printSummary(out, r.Report)
			if showPrompt {
				fmt.Fprintf(out, "\n%s\n\n", r.Report.Prompt)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d inputs failed", failed, len(results))
		}
		return nil
	},
}

func printSummary(w io.Writer, r *pipeline.Report) {
	a := r.Analysis
	fmt.Fprintf(w, "%s\n", r.Path)
	fmt.Fprintf(w, "  duration:   %s (%dx%d @ %.2f fps, %s)\n",
		util.FormatClock(r.Info.Duration), r.Info.Width, r.Info.Height, r.Info.FPS,
		humanize.Bytes(uint64(r.Info.SizeBytes)))
	fmt.Fprintf(w, "  samples:    %d (%d skipped) in %s\n", a.Samples, len(r.Skipped), r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  content:    %s\n", a.ContentType)
	fmt.Fprintf(w, "  motion:     %s (%.1f, %d scene changes)\n", a.MotionLevel, a.MeanMotion, a.SceneChanges)
	fmt.Fprintf(w, "  lighting:   %s (mean %.1f)\n", a.Brightness.Label, a.Brightness.Mean)
	fmt.Fprintf(w, "  palette:    %s\n", a.ColorVariety)
	fmt.Fprintf(w, "  complexity: %s\n", a.VisualComplexity)
	fmt.Fprintf(w, "  text:       %t\n", a.TextPresent)
	if r.Thumbnail != nil {
		fmt.Fprintf(w, "  thumbnail:  frame %d at %s\n", r.Thumbnail.Index, util.FormatDuration(r.Thumbnail.Timestamp))
	}
}

var promptCmd = &cobra.Command{
	Use:   "prompt [input]",
	Short: "Print the metadata-generation prompt for a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		defer pipe.Close()

		report, err := pipe.Analyze(cmd.Context(), args[0], analyzeOptions(cmd))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), report.Prompt)
		return nil
	},
}

var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail [input]",
	Short: "Render a titled thumbnail from the best sampled frame",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		title, _ := cmd.Flags().GetString("title")
		force, _ := cmd.Flags().GetBool("force")

		if output == "" {
			output = pipeline.DefaultThumbnailPath(args[0])
		}
		if util.FileExists(output) && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", output)
		}
		if title == "" {
			title = util.BaseName(filepath.Clean(args[0]))
		}

		pipe, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		defer pipe.Close()

		report, err := pipe.Analyze(cmd.Context(), args[0], analyzeOptions(cmd))
		if err != nil {
			return err
		}

		textOnly, err := pipe.Thumbnail(report, title, output)
		if err != nil {
			return err
		}

		log.Info().
			Str("output", output).
			Bool("text_only", textOnly).
			Str("size", humanize.Bytes(uint64(util.FileSize(output)))).
			Msg("thumbnail written")

		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "vidlens.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return fmt.Errorf("%s already exists", path)
		}
		if err := util.EnsureDir(filepath.Dir(path)); err != nil {
			return err
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}
