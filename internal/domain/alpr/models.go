package alpr

import (
	"time"

	"github.com/google/uuid"

	"alpr-service/internal/plate"
)

type FrameInput struct {
	CameraID   string
	Image      []byte
	CapturedAt time.Time
}

// DetectionRecord is a resolved plate as stored and returned by the API.
type DetectionRecord struct {
	ID         uuid.UUID `json:"id"`
	FrameID    uuid.UUID `json:"frame_id"`
	FirstSeen  bool      `json:"first_seen"`
	DetectedAt time.Time `json:"detected_at"`
	plate.Record
}

type FrameResult struct {
	FrameID     uuid.UUID         `json:"frame_id"`
	CameraID    string            `json:"camera_id"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	SnapshotURL string            `json:"snapshot_url,omitempty"`
	CapturedAt  time.Time         `json:"captured_at"`
	Records     []DetectionRecord `json:"records"`
}

type DetectionFilter struct {
	Plate      *string
	RegionCode *string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type RegionStat struct {
	RegionCode string `json:"region_code"`
	RegionInfo string `json:"region_info"`
	Count      int64  `json:"count"`
}

type RegionInfo struct {
	Code    string   `json:"code"`
	Kind    string   `json:"kind"`
	Names   []string `json:"names"`
	Display string   `json:"display"`
}
