package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"alpr-service/internal/config"
	"alpr-service/internal/logger"
	"alpr-service/internal/recognizer"
)

type scanOptions struct {
	source        string
	backend       string
	minConfidence float64
	memoryFrames  int
	saveDir       string
	reportPath    string
}

func main() {
	if err := runWithArgs(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"plate-scan"}
	}

	opts := &scanOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *scanOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plate-scan",
		Short:         "Detect and resolve Indonesian licence plates in image frames",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts)
		},
	}

	cmd.Flags().StringVar(&opts.source, "source", "", "Image file or directory of frames")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Recognizer backend: rekognition or openalpr (overrides RECOGNIZER_BACKEND)")
	cmd.Flags().Float64Var(&opts.minConfidence, "conf", 0, "Minimum detection confidence (overrides DETECTION_MIN_CONFIDENCE)")
	cmd.Flags().IntVar(&opts.memoryFrames, "memory", 0, "Frames a plate is remembered for (overrides PLATE_MEMORY_FRAMES)")
	cmd.Flags().StringVar(&opts.saveDir, "save", "", "Directory for annotated frames")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Path of the xlsx report")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runWithOptions(ctx context.Context, opts scanOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadScanner()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.backend != "" {
		cfg.Recognizer.Backend = strings.ToLower(strings.TrimSpace(opts.backend))
	}
	if opts.minConfidence > 0 {
		cfg.Detection.MinConfidence = opts.minConfidence
	}
	if opts.memoryFrames > 0 {
		cfg.Detection.MemoryFrames = opts.memoryFrames
	}
	if err := cfg.ValidateScanner(); err != nil {
		return err
	}

	log := logger.New(cfg.Environment)

	detector, err := recognizer.New(ctx, cfg.Recognizer)
	if err != nil {
		return fmt.Errorf("failed to initialize recognizer: %w", err)
	}

	scanner := newScanner(detector, cfg.Detection, log)
	summary, err := scanner.Scan(ctx, opts.source, opts.saveDir, opts.reportPath)
	if err != nil {
		return err
	}

	log.Info().
		Int("frames", summary.Frames).
		Int("failed", summary.Failed).
		Int("plates", summary.Plates).
		Int("unique", summary.Unique).
		Msg("scan finished")
	return nil
}
