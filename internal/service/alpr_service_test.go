package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"alpr-service/internal/annotate"
	"alpr-service/internal/domain/alpr"
	"alpr-service/internal/export"
	"alpr-service/internal/pipeline"
	"alpr-service/internal/plate"
	"alpr-service/internal/recognizer"
	"alpr-service/internal/repository"
)

type fakeStore struct {
	frames      []*alpr.FrameResult
	createErr   error
	filter      alpr.DetectionFilter
	rows        []repository.Detection
	stats       []alpr.RegionStat
	deletedDays int
}

func (f *fakeStore) CreateFrame(_ context.Context, result *alpr.FrameResult) error {
	if f.createErr != nil {
		return f.createErr
	}
	for i := range result.Records {
		result.Records[i].ID = uuid.New()
		result.Records[i].FrameID = result.FrameID
	}
	f.frames = append(f.frames, result)
	return nil
}

func (f *fakeStore) FindDetections(_ context.Context, filter alpr.DetectionFilter) ([]repository.Detection, error) {
	f.filter = filter
	return f.rows, nil
}

func (f *fakeStore) CountByRegion(context.Context, *time.Time) ([]alpr.RegionStat, error) {
	return f.stats, nil
}

func (f *fakeStore) DeleteOldFrames(_ context.Context, days int) (int64, error) {
	f.deletedDays = days
	return 3, nil
}

type fakeProcessor struct {
	result *pipeline.Result
	err    error
}

func (f *fakeProcessor) Run(context.Context, []byte) (*pipeline.Result, error) {
	return f.result, f.err
}

type fakeUploader struct {
	key  string
	size int64
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, key string, body io.Reader, size int64, _ string) (string, error) {
	f.key = key
	f.size = size
	_, _ = io.Copy(io.Discard, body)
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example/" + key, nil
}

func record(t *testing.T, text string) plate.Record {
	t.Helper()
	rec, ok := plate.ProcessDetection(text, 0.9, plate.BBox{0, 0, 10, 10})
	require.True(t, ok)
	return rec
}

func TestResolveText(t *testing.T) {
	svc := NewALPRService(&fakeStore{}, &fakeProcessor{}, nil, nil, zerolog.Nop())

	rec, err := svc.ResolveText("b1234xyz", 0.8, plate.BBox{})
	require.NoError(t, err)
	assert.Equal(t, "B 1234 XYZ", rec.FormattedPlate)
	assert.Equal(t, "DKI Jakarta, Bekasi, Depok, Tangerang", rec.RegionInfo)

	_, err = svc.ResolveText("hello", 0.8, plate.BBox{})
	assert.ErrorIs(t, err, ErrUnrecognizedPlate)

	_, err = svc.ResolveText("  ", 0.8, plate.BBox{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.ResolveText("B1A", 1.5, plate.BBox{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProcessFrame(t *testing.T) {
	store := &fakeStore{}
	uploader := &fakeUploader{}
	processor := &fakeProcessor{result: &pipeline.Result{
		Width:     64,
		Height:    32,
		Records:   []plate.Record{record(t, "d1234abc"), record(t, "dk 7 x")},
		FirstSeen: []bool{true, false},
		Annotated: image.NewNRGBA(image.Rect(0, 0, 64, 32)),
		Dropped:   1,
	}}
	svc := NewALPRService(store, processor, uploader, nil, zerolog.Nop())
	captured := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	result, err := svc.ProcessFrame(context.Background(), alpr.FrameInput{
		CameraID:   " gate-1 ",
		Image:      []byte("frame"),
		CapturedAt: captured,
	})
	require.NoError(t, err)

	require.Len(t, store.frames, 1)
	assert.Equal(t, "gate-1", result.CameraID)
	assert.Equal(t, 64, result.Width)
	require.Len(t, result.Records, 2)
	assert.True(t, result.Records[0].FirstSeen)
	assert.False(t, result.Records[1].FirstSeen)
	assert.Equal(t, "DK 7 X", result.Records[1].FormattedPlate)

	assert.Equal(t, SnapshotKey("gate-1", captured, result.FrameID), uploader.key)
	assert.Equal(t, "frames/gate-1/2026/05/06/"+result.FrameID.String()+".jpg", uploader.key)
	assert.Positive(t, uploader.size)
	assert.Equal(t, "https://cdn.example/"+uploader.key, result.SnapshotURL)
}

func TestProcessFrameUploadFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{}
	processor := &fakeProcessor{result: &pipeline.Result{
		Records:   []plate.Record{record(t, "l1a")},
		FirstSeen: []bool{true},
		Annotated: image.NewNRGBA(image.Rect(0, 0, 8, 8)),
	}}
	svc := NewALPRService(store, processor, &fakeUploader{err: errors.New("denied")}, nil, zerolog.Nop())

	result, err := svc.ProcessFrame(context.Background(), alpr.FrameInput{CameraID: "c", Image: []byte("x")})
	require.NoError(t, err)
	assert.Empty(t, result.SnapshotURL)
	assert.False(t, result.CapturedAt.IsZero())
	assert.Len(t, store.frames, 1)
}

func TestProcessFrameErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     alpr.FrameInput
		processor *fakeProcessor
		store     *fakeStore
		target    error
	}{
		{
			name:      "missing camera",
			input:     alpr.FrameInput{Image: []byte("x")},
			processor: &fakeProcessor{},
			store:     &fakeStore{},
			target:    ErrInvalidInput,
		},
		{
			name:      "missing image",
			input:     alpr.FrameInput{CameraID: "c"},
			processor: &fakeProcessor{},
			store:     &fakeStore{},
			target:    ErrInvalidInput,
		},
		{
			name:      "undecodable image",
			input:     alpr.FrameInput{CameraID: "c", Image: []byte("x")},
			processor: &fakeProcessor{err: annotate.ErrInvalidImage},
			store:     &fakeStore{},
			target:    ErrInvalidInput,
		},
		{
			name:      "recognizer down",
			input:     alpr.FrameInput{CameraID: "c", Image: []byte("x")},
			processor: &fakeProcessor{err: recognizer.ErrUnavailable},
			store:     &fakeStore{},
			target:    recognizer.ErrUnavailable,
		},
		{
			name:      "store failure",
			input:     alpr.FrameInput{CameraID: "c", Image: []byte("x")},
			processor: &fakeProcessor{result: &pipeline.Result{}},
			store:     &fakeStore{createErr: errors.New("db down")},
			target:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewALPRService(tt.store, tt.processor, nil, nil, zerolog.Nop())
			_, err := svc.ProcessFrame(context.Background(), tt.input)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestFindDetectionsFilter(t *testing.T) {
	store := &fakeStore{rows: []repository.Detection{{
		ID:         uuid.New(),
		Plate:      "D 1234 ABC",
		RegionCode: "D",
		RegionInfo: "Bandung, Bandung Barat, Cimahi",
		Number:     "1234",
		Suffix:     "ABC",
	}}}
	svc := NewALPRService(store, &fakeProcessor{}, nil, nil, zerolog.Nop())

	records, err := svc.FindDetections(context.Background(), DetectionQuery{
		Plate:  "d 1234 abc",
		Region: " D ",
		From:   "2026-01-01T00:00:00Z",
		Limit:  500,
		Offset: -3,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "D 1234 ABC", records[0].FormattedPlate)

	require.NotNil(t, store.filter.Plate)
	assert.Equal(t, "D1234ABC", *store.filter.Plate)
	require.NotNil(t, store.filter.RegionCode)
	assert.Equal(t, "D", *store.filter.RegionCode)
	require.NotNil(t, store.filter.From)
	assert.Nil(t, store.filter.To)
	assert.Equal(t, 100, store.filter.Limit)
	assert.Equal(t, 0, store.filter.Offset)

	_, err = svc.FindDetections(context.Background(), DetectionQuery{})
	require.NoError(t, err)
	assert.Nil(t, store.filter.Plate)
	assert.Equal(t, 50, store.filter.Limit)
}

func TestFindDetectionsInvalidTime(t *testing.T) {
	svc := NewALPRService(&fakeStore{}, &fakeProcessor{}, nil, nil, zerolog.Nop())

	_, err := svc.FindDetections(context.Background(), DetectionQuery{From: "yesterday"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.FindDetections(context.Background(), DetectionQuery{
		From: "2026-02-01T00:00:00Z",
		To:   "2026-01-01T00:00:00Z",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExportDetections(t *testing.T) {
	category := "Genap"
	store := &fakeStore{rows: []repository.Detection{{
		ID:         uuid.New(),
		FrameID:    uuid.New(),
		Plate:      "D 1234 ABC",
		RegionCode: "D",
		Category:   &category,
		DetectedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}}}
	svc := NewALPRService(store, &fakeProcessor{}, nil, nil, zerolog.Nop())

	var buf bytes.Buffer
	require.NoError(t, svc.ExportDetections(context.Background(), DetectionQuery{Limit: 5, Offset: 2}, &buf))
	assert.Equal(t, 10000, store.filter.Limit)
	assert.Equal(t, 0, store.filter.Offset)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "D 1234 ABC", rows[1][2])
}

func TestRegions(t *testing.T) {
	svc := NewALPRService(&fakeStore{}, &fakeProcessor{}, nil, nil, zerolog.Nop())

	regions := svc.ListRegions()
	require.NotEmpty(t, regions)
	for i := 1; i < len(regions); i++ {
		assert.Less(t, regions[i-1].Code, regions[i].Code)
	}

	dk, err := svc.LookupRegion("DK")
	require.NoError(t, err)
	assert.Equal(t, alpr.RegionInfo{Code: "DK", Kind: "single", Names: []string{"Bali"}, Display: "Bali"}, dk)

	b, err := svc.LookupRegion("B")
	require.NoError(t, err)
	assert.Equal(t, "multiple", b.Kind)
	assert.Equal(t, []string{"DKI Jakarta", "Bekasi", "Depok", "Tangerang"}, b.Names)

	_, err = svc.LookupRegion("ZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegionStats(t *testing.T) {
	svc := NewALPRService(&fakeStore{}, &fakeProcessor{}, nil, nil, zerolog.Nop())

	stats, err := svc.RegionStats(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, stats)
	assert.Empty(t, stats)

	_, err = svc.RegionStats(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCleanupOldDetections(t *testing.T) {
	store := &fakeStore{}
	svc := NewALPRService(store, &fakeProcessor{}, nil, nil, zerolog.Nop())

	deleted, err := svc.CleanupOldDetections(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Equal(t, 30, store.deletedDays)

	_, err = svc.CleanupOldDetections(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
