package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"alpr-service/internal/domain/alpr"
	"alpr-service/internal/plate"
)

type ALPRRepository struct {
	db *gorm.DB
}

func NewALPRRepository(db *gorm.DB) *ALPRRepository {
	return &ALPRRepository{db: db}
}

func (Frame) TableName() string {
	return "alpr_frames"
}

func (Detection) TableName() string {
	return "alpr_detections"
}

type Frame struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	CameraID    string    `gorm:"not null"`
	SnapshotURL *string
	Width       int
	Height      int
	CapturedAt  time.Time `gorm:"not null"`
	CreatedAt   time.Time
}

type Detection struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	FrameID    uuid.UUID `gorm:"type:uuid;not null;index"`
	RawText    string    `gorm:"not null"`
	Plate      string    `gorm:"not null"`
	Normalized string    `gorm:"not null;index"`
	RegionCode string    `gorm:"not null;index"`
	RegionInfo string    `gorm:"not null"`
	Number     string    `gorm:"not null"`
	Suffix     string    `gorm:"not null"`
	Category   *string
	City       *string
	Confidence *float64
	X1         float64
	Y1         float64
	X2         float64
	Y2         float64
	FirstSeen  bool
	RawPayload datatypes.JSON `gorm:"type:jsonb"`
	DetectedAt time.Time      `gorm:"not null"`
	CreatedAt  time.Time
}

// CreateFrame stores a frame together with its resolved detections in one
// transaction and fills in the generated IDs. A preset FrameID is kept.
func (r *ALPRRepository) CreateFrame(ctx context.Context, result *alpr.FrameResult) error {
	frameID := result.FrameID
	if frameID == uuid.Nil {
		frameID = uuid.New()
	}
	frame := Frame{
		ID:         frameID,
		CameraID:   result.CameraID,
		Width:      result.Width,
		Height:     result.Height,
		CapturedAt: result.CapturedAt,
		CreatedAt:  time.Now(),
	}
	if result.SnapshotURL != "" {
		frame.SnapshotURL = &result.SnapshotURL
	}

	rows := make([]Detection, 0, len(result.Records))
	for i := range result.Records {
		row, err := toDetectionRow(frame.ID, result.CapturedAt, &result.Records[i])
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&frame).Error; err != nil {
			return fmt.Errorf("failed to create frame: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to create detections: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	result.FrameID = frame.ID
	for i := range result.Records {
		result.Records[i].ID = rows[i].ID
		result.Records[i].FrameID = frame.ID
		result.Records[i].DetectedAt = rows[i].DetectedAt
	}
	return nil
}

func toDetectionRow(frameID uuid.UUID, detectedAt time.Time, rec *alpr.DetectionRecord) (Detection, error) {
	row := Detection{
		ID:         uuid.New(),
		FrameID:    frameID,
		RawText:    rec.OriginalText,
		Plate:      rec.FormattedPlate,
		Normalized: plate.Normalize(rec.FormattedPlate),
		RegionCode: rec.RegionCode,
		RegionInfo: rec.RegionInfo,
		Number:     rec.Number,
		Suffix:     rec.Suffix,
		X1:         rec.BBox[0],
		Y1:         rec.BBox[1],
		X2:         rec.BBox[2],
		Y2:         rec.BBox[3],
		FirstSeen:  rec.FirstSeen,
		DetectedAt: detectedAt,
		CreatedAt:  time.Now(),
	}
	if rec.Category != "" {
		category := string(rec.Category)
		row.Category = &category
	}
	if rec.City != "" {
		row.City = &rec.City
	}
	if rec.Confidence != 0 {
		row.Confidence = &rec.Confidence
	}

	raw, err := json.Marshal(rec.Record)
	if err != nil {
		return Detection{}, fmt.Errorf("marshal raw payload: %w", err)
	}
	row.RawPayload = datatypes.JSON(raw)
	return row, nil
}

func (r *ALPRRepository) FindDetections(ctx context.Context, filter alpr.DetectionFilter) ([]Detection, error) {
	query := r.db.WithContext(ctx).Model(&Detection{})

	if filter.Plate != nil {
		query = query.Where("normalized = ?", *filter.Plate)
	}
	if filter.RegionCode != nil {
		query = query.Where("region_code = ?", *filter.RegionCode)
	}
	if filter.From != nil {
		query = query.Where("detected_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("detected_at <= ?", *filter.To)
	}

	query = query.Order("detected_at DESC").Order("id")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var detections []Detection
	err := query.Find(&detections).Error
	return detections, err
}

func (r *ALPRRepository) CountByRegion(ctx context.Context, from *time.Time) ([]alpr.RegionStat, error) {
	var stats []alpr.RegionStat

	query := r.db.WithContext(ctx).
		Model(&Detection{}).
		Select("region_code, region_info, COUNT(*) AS count")
	if from != nil {
		query = query.Where("detected_at >= ?", *from)
	}
	err := query.
		Group("region_code, region_info").
		Order("count DESC").
		Order("region_code").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *ALPRRepository) GetFrame(ctx context.Context, id uuid.UUID) (*Frame, error) {
	var frame Frame
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&frame).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &frame, nil
}

// DeleteOldFrames removes frames older than the given number of days along
// with their detections.
func (r *ALPRRepository) DeleteOldFrames(ctx context.Context, days int) (int64, error) {
	cutoffTime := time.Now().AddDate(0, 0, -days)

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&Frame{}).Select("id").Where("created_at < ?", cutoffTime)
		if err := tx.Where("frame_id IN (?)", old).Delete(&Detection{}).Error; err != nil {
			return err
		}
		result := tx.Where("created_at < ?", cutoffTime).Delete(&Frame{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// ToRecord converts a stored row back to the API representation.
func (d Detection) ToRecord() alpr.DetectionRecord {
	rec := alpr.DetectionRecord{
		ID:         d.ID,
		FrameID:    d.FrameID,
		FirstSeen:  d.FirstSeen,
		DetectedAt: d.DetectedAt,
		Record: plate.Record{
			OriginalText:   d.RawText,
			FormattedPlate: d.Plate,
			RegionCode:     d.RegionCode,
			RegionInfo:     d.RegionInfo,
			Number:         d.Number,
			Suffix:         d.Suffix,
			BBox:           plate.BBox{d.X1, d.Y1, d.X2, d.Y2},
		},
	}
	if d.Category != nil {
		rec.Category = plate.Parity(*d.Category)
	}
	if d.City != nil {
		rec.City = *d.City
	}
	if d.Confidence != nil {
		rec.Confidence = *d.Confidence
	}
	return rec
}
