package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"alpr-service/internal/domain/alpr"
	"alpr-service/internal/plate"
)

func newTestRepository(t *testing.T) (*ALPRRepository, *gorm.DB) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&Frame{}, &Detection{}))

	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewALPRRepository(database), database
}

func mustRecord(t *testing.T, text string) alpr.DetectionRecord {
	t.Helper()
	rec, ok := plate.ProcessDetection(text, 0.9, plate.BBox{1, 2, 3, 4})
	require.True(t, ok, "plate %q must parse", text)
	return alpr.DetectionRecord{Record: rec, FirstSeen: true}
}

func TestCreateFrameAndFindDetections(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	captured := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	result := &alpr.FrameResult{
		CameraID:    "gate-1",
		Width:       640,
		Height:      480,
		SnapshotURL: "https://cdn.example/frames/1.jpg",
		CapturedAt:  captured,
		Records: []alpr.DetectionRecord{
			mustRecord(t, "d1234abc"),
			mustRecord(t, "dk 77 xy"),
		},
	}
	require.NoError(t, repo.CreateFrame(ctx, result))

	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", result.FrameID.String())
	for _, rec := range result.Records {
		assert.Equal(t, result.FrameID, rec.FrameID)
		assert.NotEqual(t, result.FrameID, rec.ID)
	}

	all, err := repo.FindDetections(ctx, alpr.DetectionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	normalized := "D1234ABC"
	byPlate, err := repo.FindDetections(ctx, alpr.DetectionFilter{Plate: &normalized})
	require.NoError(t, err)
	require.Len(t, byPlate, 1)
	assert.Equal(t, "D 1234 ABC", byPlate[0].Plate)
	assert.Equal(t, "Bandung, Bandung Barat, Cimahi", byPlate[0].RegionInfo)
	require.NotNil(t, byPlate[0].Category)
	assert.Equal(t, "Genap", *byPlate[0].Category)
	assert.Equal(t, 3.0, byPlate[0].X2)

	region := "DK"
	byRegion, err := repo.FindDetections(ctx, alpr.DetectionFilter{RegionCode: &region, Limit: 10})
	require.NoError(t, err)
	require.Len(t, byRegion, 1)
	assert.Equal(t, "DK 77 XY", byRegion[0].Plate)

	frame, err := repo.GetFrame(ctx, result.FrameID)
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.Equal(t, "gate-1", frame.CameraID)
	require.NotNil(t, frame.SnapshotURL)
}

func TestCreateFrameWithoutRecords(t *testing.T) {
	repo, _ := newTestRepository(t)

	result := &alpr.FrameResult{CameraID: "gate-2", CapturedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateFrame(context.Background(), result))

	frame, err := repo.GetFrame(context.Background(), result.FrameID)
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.Nil(t, frame.SnapshotURL)
}

func TestCountByRegion(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	result := &alpr.FrameResult{
		CameraID:   "gate-1",
		CapturedAt: time.Now().UTC(),
		Records: []alpr.DetectionRecord{
			mustRecord(t, "B1A"),
			mustRecord(t, "B2B"),
			mustRecord(t, "D3C"),
		},
	}
	require.NoError(t, repo.CreateFrame(ctx, result))

	stats, err := repo.CountByRegion(ctx, nil)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "B", stats[0].RegionCode)
	assert.EqualValues(t, 2, stats[0].Count)
	assert.Equal(t, "D", stats[1].RegionCode)
	assert.EqualValues(t, 1, stats[1].Count)
}

func TestDeleteOldFrames(t *testing.T) {
	repo, database := newTestRepository(t)
	ctx := context.Background()

	old := &alpr.FrameResult{CameraID: "gate-1", CapturedAt: time.Now().UTC(), Records: []alpr.DetectionRecord{mustRecord(t, "B1A")}}
	fresh := &alpr.FrameResult{CameraID: "gate-1", CapturedAt: time.Now().UTC(), Records: []alpr.DetectionRecord{mustRecord(t, "B2A")}}
	require.NoError(t, repo.CreateFrame(ctx, old))
	require.NoError(t, repo.CreateFrame(ctx, fresh))

	require.NoError(t, database.Model(&Frame{}).
		Where("id = ?", old.FrameID).
		Update("created_at", time.Now().AddDate(0, 0, -40)).Error)

	deleted, err := repo.DeleteOldFrames(ctx, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	remaining, err := repo.FindDetections(ctx, alpr.DetectionFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "B 2 A", remaining[0].Plate)

	missing, err := repo.GetFrame(ctx, old.FrameID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDetectionToRecord(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	original := mustRecord(t, "b 1 ab")
	result := &alpr.FrameResult{
		CameraID:   "gate-3",
		CapturedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Records:    []alpr.DetectionRecord{original},
	}
	require.NoError(t, repo.CreateFrame(ctx, result))

	rows, err := repo.FindDetections(ctx, alpr.DetectionFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := rows[0].ToRecord()
	assert.Equal(t, result.Records[0].ID, got.ID)
	assert.Equal(t, result.FrameID, got.FrameID)
	assert.Equal(t, original.Record, got.Record)
	assert.True(t, got.FirstSeen)
}
