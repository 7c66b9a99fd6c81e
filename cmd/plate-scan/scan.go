package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"alpr-service/internal/annotate"
	"alpr-service/internal/config"
	"alpr-service/internal/export"
	"alpr-service/internal/pipeline"
	"alpr-service/internal/plate"
	"alpr-service/internal/recognizer"
)

var frameExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
}

type summary struct {
	Frames int
	Failed int
	Plates int
	Unique int
}

type scanner struct {
	pipeline *pipeline.Pipeline
	log      zerolog.Logger
	now      func() time.Time
}

func newScanner(detector recognizer.Detector, cfg config.DetectionConfig, log zerolog.Logger) *scanner {
	p := pipeline.New(
		detector,
		plate.NewResolver(nil),
		annotate.New(),
		pipeline.NewMemory(cfg.MemoryFrames),
		cfg.MinConfidence,
		log,
	)
	return &scanner{pipeline: p, log: log, now: time.Now}
}

// Scan runs every frame under source through the pipeline in name order.
// A frame that fails is logged and skipped; the report is written even if
// some frames failed.
func (s *scanner) Scan(ctx context.Context, source, saveDir, reportPath string) (summary, error) {
	var sum summary

	frames, err := listFrames(source)
	if err != nil {
		return sum, err
	}
	if len(frames) == 0 {
		return sum, fmt.Errorf("no image frames found in %s", source)
	}
	if saveDir != "" {
		if err := os.MkdirAll(saveDir, 0o755); err != nil {
			return sum, fmt.Errorf("create save dir: %w", err)
		}
	}

	var rows []export.Row
	for _, path := range frames {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Frames++

		data, err := os.ReadFile(path)
		if err != nil {
			sum.Failed++
			s.log.Error().Err(err).Str("frame", path).Msg("failed to read frame")
			continue
		}

		res, err := s.pipeline.Run(ctx, data)
		if err != nil {
			sum.Failed++
			s.log.Error().Err(err).Str("frame", path).Msg("failed to process frame")
			continue
		}

		detectedAt := s.now()
		for i, rec := range res.Records {
			sum.Plates++
			if res.FirstSeen[i] {
				sum.Unique++
				s.log.Info().
					Str("frame", filepath.Base(path)).
					Str("region", rec.RegionInfo).
					Str("city", rec.City).
					Float64("confidence", rec.Confidence).
					Msgf("Terdeteksi: %s", rec.FormattedPlate)
			}
			rows = append(rows, export.Row{
				DetectedAt: detectedAt,
				Source:     filepath.Base(path),
				Record:     rec,
				FirstSeen:  res.FirstSeen[i],
			})
		}

		if saveDir != "" && res.Annotated != nil {
			out := filepath.Join(saveDir, filepath.Base(path))
			if err := imaging.Save(res.Annotated, out); err != nil {
				s.log.Error().Err(err).Str("output", out).Msg("failed to save annotated frame")
			}
		}
	}

	if reportPath != "" {
		if err := writeReport(reportPath, rows); err != nil {
			return sum, err
		}
		s.log.Info().Str("report", reportPath).Int("rows", len(rows)).Msg("report written")
	}

	return sum, nil
}

func writeReport(path string, rows []export.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := export.WriteExcel(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// listFrames returns source itself when it is a file, otherwise the image
// files directly inside the directory sorted by name.
func listFrames(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	if !info.IsDir() {
		return []string{source}, nil
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}
	var frames []string
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		frames = append(frames, filepath.Join(source, e.Name()))
	}
	sort.Strings(frames)
	return frames, nil
}
