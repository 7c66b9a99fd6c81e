package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,

	// One row per processed frame; the annotated snapshot lives in object storage.
	`CREATE TABLE IF NOT EXISTS alpr_frames (
		id              UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		camera_id       TEXT NOT NULL,
		snapshot_url    TEXT,
		width           INT NOT NULL DEFAULT 0,
		height          INT NOT NULL DEFAULT 0,
		captured_at     TIMESTAMPTZ NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_alpr_frames_camera_id ON alpr_frames(camera_id);`,
	`CREATE INDEX IF NOT EXISTS idx_alpr_frames_captured_at ON alpr_frames(captured_at);`,

	// Resolved plates. Detections that did not match the plate grammar are never stored.
	`CREATE TABLE IF NOT EXISTS alpr_detections (
		id              UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		frame_id        UUID NOT NULL REFERENCES alpr_frames(id) ON DELETE CASCADE,
		raw_text        TEXT NOT NULL,
		plate           TEXT NOT NULL,
		normalized      TEXT NOT NULL,
		region_code     TEXT NOT NULL,
		region_info     TEXT NOT NULL,
		number          TEXT NOT NULL,
		suffix          TEXT NOT NULL,
		category        TEXT,
		city            TEXT,
		confidence      NUMERIC(5,4),
		x1              DOUBLE PRECISION NOT NULL,
		y1              DOUBLE PRECISION NOT NULL,
		x2              DOUBLE PRECISION NOT NULL,
		y2              DOUBLE PRECISION NOT NULL,
		first_seen      BOOLEAN NOT NULL DEFAULT false,
		raw_payload     JSONB,
		detected_at     TIMESTAMPTZ NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_alpr_detections_frame_id ON alpr_detections(frame_id);`,
	`CREATE INDEX IF NOT EXISTS idx_alpr_detections_region_code ON alpr_detections(region_code);`,
	`CREATE INDEX IF NOT EXISTS idx_alpr_detections_normalized_time ON alpr_detections(normalized, detected_at DESC);`,
	`ALTER TABLE alpr_detections ADD COLUMN IF NOT EXISTS city TEXT;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
