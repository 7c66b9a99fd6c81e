package recognizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"

	"alpr-service/internal/config"
	"alpr-service/internal/plate"
)

// ErrUnavailable wraps failures of the upstream detection/OCR stage.
var ErrUnavailable = errors.New("recognizer unavailable")

// Frame is an encoded image plus its decoded dimensions, so backends that
// report relative geometry can return pixel boxes.
type Frame struct {
	Image  []byte
	Width  int
	Height int
}

// Detector finds plate candidates in a frame. Detections are returned in the
// order reported by the backend.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]plate.Detection, error)
}

func New(ctx context.Context, cfg config.RecognizerConfig) (Detector, error) {
	switch cfg.Backend {
	case config.BackendRekognition:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewRekognitionDetector(rekognition.NewFromConfig(awsCfg)), nil
	case config.BackendOpenALPR:
		client := &http.Client{Timeout: cfg.Timeout}
		return NewOpenALPRDetector(client, cfg.OpenALPRURL, cfg.OpenALPRCountry), nil
	default:
		return nil, fmt.Errorf("unknown recognizer backend %q", cfg.Backend)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
