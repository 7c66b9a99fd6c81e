package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"alpr-service/internal/annotate"
	"alpr-service/internal/domain/alpr"
	"alpr-service/internal/export"
	"alpr-service/internal/pipeline"
	"alpr-service/internal/plate"
	"alpr-service/internal/repository"
	"alpr-service/internal/storage"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrUnrecognizedPlate = errors.New("unrecognized plate format")
)

const (
	defaultLimit = 50
	maxLimit     = 100
	exportLimit  = 10000
)

type DetectionStore interface {
	CreateFrame(ctx context.Context, result *alpr.FrameResult) error
	FindDetections(ctx context.Context, filter alpr.DetectionFilter) ([]repository.Detection, error)
	CountByRegion(ctx context.Context, from *time.Time) ([]alpr.RegionStat, error)
	DeleteOldFrames(ctx context.Context, days int) (int64, error)
}

type FrameProcessor interface {
	Run(ctx context.Context, data []byte) (*pipeline.Result, error)
}

type SnapshotUploader interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

type ALPRService struct {
	store     DetectionStore
	processor FrameProcessor
	uploader  SnapshotUploader
	resolver  *plate.Resolver
	log       zerolog.Logger
}

// NewALPRService builds the service. uploader may be nil, in which case
// annotated snapshots are not stored.
func NewALPRService(
	store DetectionStore,
	processor FrameProcessor,
	uploader SnapshotUploader,
	resolver *plate.Resolver,
	log zerolog.Logger,
) *ALPRService {
	if resolver == nil {
		resolver = plate.NewResolver(nil)
	}
	return &ALPRService{
		store:     store,
		processor: processor,
		uploader:  uploader,
		resolver:  resolver,
		log:       log,
	}
}

// ResolveText runs a single OCR string through the resolver.
func (s *ALPRService) ResolveText(text string, confidence float64, box plate.BBox) (plate.Record, error) {
	if strings.TrimSpace(text) == "" {
		return plate.Record{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if confidence < 0 || confidence > 1 {
		return plate.Record{}, fmt.Errorf("%w: confidence must be within [0, 1]", ErrInvalidInput)
	}
	rec, ok := s.resolver.ProcessDetection(text, confidence, box)
	if !ok {
		return plate.Record{}, fmt.Errorf("%w: %q", ErrUnrecognizedPlate, text)
	}
	return rec, nil
}

// ProcessFrame detects and resolves plates in an uploaded frame, stores the
// annotated snapshot when storage is configured and persists the result.
func (s *ALPRService) ProcessFrame(ctx context.Context, input alpr.FrameInput) (*alpr.FrameResult, error) {
	cameraID := strings.TrimSpace(input.CameraID)
	if cameraID == "" {
		return nil, fmt.Errorf("%w: camera_id is required", ErrInvalidInput)
	}
	if len(input.Image) == 0 {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidInput)
	}
	capturedAt := input.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	res, err := s.processor.Run(ctx, input.Image)
	if err != nil {
		if errors.Is(err, annotate.ErrInvalidImage) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("process frame: %w", err)
	}

	result := &alpr.FrameResult{
		FrameID:    uuid.New(),
		CameraID:   cameraID,
		Width:      res.Width,
		Height:     res.Height,
		CapturedAt: capturedAt,
		Records:    make([]alpr.DetectionRecord, 0, len(res.Records)),
	}
	for i, rec := range res.Records {
		result.Records = append(result.Records, alpr.DetectionRecord{
			FirstSeen: res.FirstSeen[i],
			Record:    rec,
		})
		if res.FirstSeen[i] {
			s.log.Info().
				Str("camera_id", cameraID).
				Str("plate", rec.FormattedPlate).
				Str("region", rec.RegionInfo).
				Float64("confidence", rec.Confidence).
				Msg("plate detected")
		}
	}

	if len(result.Records) > 0 && res.Annotated != nil {
		result.SnapshotURL = s.uploadSnapshot(ctx, result, res)
	}

	if err := s.store.CreateFrame(ctx, result); err != nil {
		s.log.Error().
			Err(err).
			Str("camera_id", cameraID).
			Int("records", len(result.Records)).
			Msg("failed to save frame")
		return nil, fmt.Errorf("failed to save frame: %w", err)
	}

	s.log.Info().
		Str("frame_id", result.FrameID.String()).
		Str("camera_id", cameraID).
		Int("records", len(result.Records)).
		Int("dropped", res.Dropped).
		Msg("frame processed")

	return result, nil
}

func (s *ALPRService) uploadSnapshot(ctx context.Context, result *alpr.FrameResult, res *pipeline.Result) string {
	if s.uploader == nil {
		return ""
	}

	var buf bytes.Buffer
	if err := annotate.EncodeJPEG(&buf, res.Annotated); err != nil {
		s.log.Warn().Err(err).Str("frame_id", result.FrameID.String()).Msg("failed to encode snapshot")
		return ""
	}

	key := SnapshotKey(result.CameraID, result.CapturedAt, result.FrameID)
	url, err := s.uploader.Upload(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "image/jpeg")
	if err != nil {
		if !errors.Is(err, storage.ErrNotConfigured) {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to upload snapshot")
		}
		return ""
	}
	return url
}

// SnapshotKey is the object key of an annotated frame.
func SnapshotKey(cameraID string, capturedAt time.Time, frameID uuid.UUID) string {
	return fmt.Sprintf("frames/%s/%s/%s.jpg", cameraID, capturedAt.UTC().Format("2006/01/02"), frameID)
}

// DetectionQuery holds raw filter values as they arrive from the API.
type DetectionQuery struct {
	Plate  string
	Region string
	From   string
	To     string
	Limit  int
	Offset int
}

func (s *ALPRService) FindDetections(ctx context.Context, q DetectionQuery) ([]alpr.DetectionRecord, error) {
	filter, err := buildFilter(q)
	if err != nil {
		return nil, err
	}
	return s.findDetections(ctx, filter)
}

// ExportDetections writes the matching detections as an xlsx workbook.
// Paging parameters are ignored.
func (s *ALPRService) ExportDetections(ctx context.Context, q DetectionQuery, w io.Writer) error {
	filter, err := buildFilter(q)
	if err != nil {
		return err
	}
	filter.Limit = exportLimit
	filter.Offset = 0

	records, err := s.findDetections(ctx, filter)
	if err != nil {
		return err
	}

	rows := make([]export.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, export.Row{
			DetectedAt: rec.DetectedAt,
			Source:     rec.FrameID.String(),
			Record:     rec.Record,
			FirstSeen:  rec.FirstSeen,
		})
	}
	if err := export.WriteExcel(w, rows); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

func (s *ALPRService) findDetections(ctx context.Context, filter alpr.DetectionFilter) ([]alpr.DetectionRecord, error) {
	rows, err := s.store.FindDetections(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find detections: %w", err)
	}
	result := make([]alpr.DetectionRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.ToRecord())
	}
	return result, nil
}

func buildFilter(q DetectionQuery) (alpr.DetectionFilter, error) {
	var filter alpr.DetectionFilter

	if normalized := plate.Normalize(q.Plate); normalized != "" {
		filter.Plate = &normalized
	}
	if region := strings.TrimSpace(q.Region); region != "" {
		filter.RegionCode = &region
	}

	from, err := parseTime(q.From, "from")
	if err != nil {
		return filter, err
	}
	to, err := parseTime(q.To, "to")
	if err != nil {
		return filter, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return filter, fmt.Errorf("%w: to must not be before from", ErrInvalidInput)
	}
	filter.From, filter.To = from, to

	filter.Limit = q.Limit
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	filter.Offset = q.Offset
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter, nil
}

func parseTime(value, field string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s time format", ErrInvalidInput, field)
	}
	return &t, nil
}

func (s *ALPRService) ListRegions() []alpr.RegionInfo {
	table := s.resolver.Regions()
	codes := table.Codes()
	result := make([]alpr.RegionInfo, 0, len(codes))
	for _, code := range codes {
		region, _ := table.Lookup(code)
		result = append(result, regionInfo(code, region))
	}
	return result
}

func (s *ALPRService) LookupRegion(code string) (alpr.RegionInfo, error) {
	region, ok := s.resolver.Regions().Lookup(code)
	if !ok {
		return alpr.RegionInfo{}, fmt.Errorf("%w: region %q", ErrNotFound, code)
	}
	return regionInfo(code, region), nil
}

func regionInfo(code string, region plate.Region) alpr.RegionInfo {
	return alpr.RegionInfo{
		Code:    code,
		Kind:    region.Kind.String(),
		Names:   append([]string(nil), region.Names...),
		Display: region.Display(),
	}
}

func (s *ALPRService) RegionStats(ctx context.Context, from string) ([]alpr.RegionStat, error) {
	fromTime, err := parseTime(from, "from")
	if err != nil {
		return nil, err
	}
	stats, err := s.store.CountByRegion(ctx, fromTime)
	if err != nil {
		return nil, fmt.Errorf("failed to count detections: %w", err)
	}
	if stats == nil {
		stats = []alpr.RegionStat{}
	}
	return stats, nil
}

// CleanupOldDetections removes frames and detections older than days.
func (s *ALPRService) CleanupOldDetections(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("%w: days must be positive", ErrInvalidInput)
	}
	deleted, err := s.store.DeleteOldFrames(ctx, days)
	if err != nil {
		s.log.Error().Err(err).Int("days", days).Msg("failed to cleanup old frames")
		return 0, err
	}
	if deleted > 0 {
		s.log.Info().Int64("deleted_count", deleted).Int("days", days).Msg("cleaned up old frames")
	}
	return deleted, nil
}
