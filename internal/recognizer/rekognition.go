package recognizer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"alpr-service/internal/plate"
)

// TextDetectionAPI is the subset of the Rekognition client used here.
type TextDetectionAPI interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

type RekognitionDetector struct {
	client TextDetectionAPI
}

func NewRekognitionDetector(client TextDetectionAPI) *RekognitionDetector {
	return &RekognitionDetector{client: client}
}

// Detect returns every LINE text block as a candidate. Rekognition reports
// confidence in percent and geometry relative to the frame size; both are
// converted here.
func (d *RekognitionDetector) Detect(ctx context.Context, frame Frame) ([]plate.Detection, error) {
	if d.client == nil {
		return nil, fmt.Errorf("%w: rekognition client is not initialized", ErrUnavailable)
	}

	out, err := d.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: frame.Image},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: rekognition detect text: %w", ErrUnavailable, err)
	}

	detections := make([]plate.Detection, 0, len(out.TextDetections))
	for _, td := range out.TextDetections {
		if td.Type != types.TextTypesLine || td.DetectedText == nil {
			continue
		}
		detections = append(detections, plate.Detection{
			Text:       aws.ToString(td.DetectedText),
			Confidence: clamp(float64(aws.ToFloat32(td.Confidence))/100, 0, 1),
			BBox:       pixelBox(td.Geometry, frame.Width, frame.Height),
		})
	}
	return detections, nil
}

func pixelBox(g *types.Geometry, width, height int) plate.BBox {
	if g == nil || g.BoundingBox == nil {
		return plate.BBox{}
	}
	bb := g.BoundingBox
	left := float64(aws.ToFloat32(bb.Left))
	top := float64(aws.ToFloat32(bb.Top))
	w := float64(aws.ToFloat32(bb.Width))
	h := float64(aws.ToFloat32(bb.Height))

	fw, fh := float64(width), float64(height)
	return plate.BBox{
		clamp(left*fw, 0, fw),
		clamp(top*fh, 0, fh),
		clamp((left+w)*fw, 0, fw),
		clamp((top+h)*fh, 0, fh),
	}
}
