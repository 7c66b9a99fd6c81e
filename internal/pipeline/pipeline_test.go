package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpr-service/internal/annotate"
	"alpr-service/internal/plate"
	"alpr-service/internal/recognizer"
)

type stubDetector struct {
	detections []plate.Detection
	err        error
	frames     []recognizer.Frame
}

func (s *stubDetector) Detect(_ context.Context, frame recognizer.Frame) ([]plate.Detection, error) {
	s.frames = append(s.frames, frame)
	return s.detections, s.err
}

func pngFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestPipelineRun(t *testing.T) {
	det := &stubDetector{detections: []plate.Detection{
		{Text: "d1234abc", Confidence: 0.92, BBox: plate.BBox{10, 20, 100, 50}},
		{Text: "###", Confidence: 0.99},
		{Text: "b 1 a", Confidence: 0.3},
		{Text: "dk 9 z", Confidence: 0.8, BBox: plate.BBox{1, 1, 5, 5}},
	}}
	p := New(det, plate.NewResolver(nil), annotate.New(), NewMemory(30), 0.5, zerolog.Nop())

	res, err := p.Run(context.Background(), pngFrame(t, 120, 80))
	require.NoError(t, err)

	require.Len(t, det.frames, 1)
	assert.Equal(t, 120, det.frames[0].Width)
	assert.Equal(t, 80, det.frames[0].Height)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "D 1234 ABC", res.Records[0].FormattedPlate)
	assert.Equal(t, "DK 9 Z", res.Records[1].FormattedPlate)
	assert.Equal(t, []bool{true, true}, res.FirstSeen)
	assert.Equal(t, 2, res.Dropped)
	require.NotNil(t, res.Annotated)
	assert.Equal(t, image.Rect(0, 0, 120, 80), res.Annotated.Bounds())

	again, err := p.Run(context.Background(), pngFrame(t, 120, 80))
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false}, again.FirstSeen)
}

func TestPipelineDetectorError(t *testing.T) {
	det := &stubDetector{err: recognizer.ErrUnavailable}
	p := New(det, plate.NewResolver(nil), nil, nil, 0.5, zerolog.Nop())

	_, err := p.Run(context.Background(), pngFrame(t, 4, 4))
	assert.True(t, errors.Is(err, recognizer.ErrUnavailable))
}

func TestPipelineRejectsUndecodableFrame(t *testing.T) {
	det := &stubDetector{}
	p := New(det, plate.NewResolver(nil), nil, nil, 0.5, zerolog.Nop())

	_, err := p.Run(context.Background(), []byte("garbage"))
	assert.Error(t, err)
	assert.Empty(t, det.frames, "detector must not be called")
}

func TestMemoryWindow(t *testing.T) {
	m := NewMemory(2)

	m.NextFrame()
	assert.True(t, m.Seen("B 1 A"))
	assert.False(t, m.Seen("B 1 A"))

	m.NextFrame()
	assert.False(t, m.Seen("B 1 A"), "still inside the window")

	m.NextFrame()
	m.NextFrame()
	assert.Equal(t, 0, m.Len())
	assert.True(t, m.Seen("B 1 A"), "forgotten after the window")
}
