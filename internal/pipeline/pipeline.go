package pipeline

import (
	"context"
	"image"

	"github.com/rs/zerolog"

	"alpr-service/internal/annotate"
	"alpr-service/internal/plate"
	"alpr-service/internal/recognizer"
)

// Result is the outcome of one frame. Records keep the detector's order.
type Result struct {
	Width     int
	Height    int
	Records   []plate.Record
	FirstSeen []bool
	Annotated image.Image
	Dropped   int
}

type Pipeline struct {
	detector      recognizer.Detector
	resolver      *plate.Resolver
	annotator     *annotate.Annotator
	memory        *Memory
	minConfidence float64
	log           zerolog.Logger
}

func New(
	detector recognizer.Detector,
	resolver *plate.Resolver,
	annotator *annotate.Annotator,
	memory *Memory,
	minConfidence float64,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		detector:      detector,
		resolver:      resolver,
		annotator:     annotator,
		memory:        memory,
		minConfidence: minConfidence,
		log:           log,
	}
}

// Run decodes a frame, detects plate candidates, resolves them and draws the
// overlay. Candidates below the confidence threshold and text that is not a
// plate are dropped.
func (p *Pipeline) Run(ctx context.Context, data []byte) (*Result, error) {
	img, err := annotate.Decode(data)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()

	detections, err := p.detector.Detect(ctx, recognizer.Frame{
		Image:  data,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	})
	if err != nil {
		return nil, err
	}

	kept := make([]plate.Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence < p.minConfidence {
			continue
		}
		kept = append(kept, d)
	}
	records := p.resolver.Resolve(kept)

	result := &Result{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Records:   records,
		FirstSeen: make([]bool, len(records)),
		Dropped:   len(detections) - len(records),
	}

	if p.memory != nil {
		p.memory.NextFrame()
	}
	for i, rec := range records {
		result.FirstSeen[i] = p.memory == nil || p.memory.Seen(rec.FormattedPlate)
	}

	if p.annotator != nil {
		result.Annotated = p.annotator.Draw(img, records)
	}

	p.log.Debug().
		Int("detections", len(detections)).
		Int("records", len(records)).
		Int("dropped", result.Dropped).
		Msg("frame processed")

	return result, nil
}
