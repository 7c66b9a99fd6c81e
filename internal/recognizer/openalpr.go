package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"

	"alpr-service/internal/plate"
)

// OpenALPRDetector talks to an OpenALPR compatible recognition daemon over
// HTTP.
type OpenALPRDetector struct {
	client  *http.Client
	baseURL string
	country string
}

func NewOpenALPRDetector(client *http.Client, baseURL, country string) *OpenALPRDetector {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenALPRDetector{client: client, baseURL: baseURL, country: country}
}

type openALPRResponse struct {
	ImgWidth  int              `json:"img_width"`
	ImgHeight int              `json:"img_height"`
	Results   []openALPRResult `json:"results"`
}

type openALPRResult struct {
	Plate       string          `json:"plate"`
	Confidence  float64         `json:"confidence"`
	Coordinates []openALPRPoint `json:"coordinates"`
}

type openALPRPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (d *OpenALPRDetector) Detect(ctx context.Context, frame Frame) ([]plate.Detection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(frame.Image); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	endpoint := d.baseURL + "/recognize?" + url.Values{"country": {d.country}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: openalpr request: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: openalpr returned %d: %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var decoded openALPRResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode openalpr response: %w", ErrUnavailable, err)
	}

	detections := make([]plate.Detection, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		detections = append(detections, plate.Detection{
			Text:       r.Plate,
			Confidence: clamp(r.Confidence/100, 0, 1),
			BBox:       enclosingBox(r.Coordinates),
		})
	}
	return detections, nil
}

// enclosingBox converts the plate polygon into an axis-aligned box.
func enclosingBox(points []openALPRPoint) plate.BBox {
	if len(points) == 0 {
		return plate.BBox{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return plate.BBox{minX, minY, maxX, maxY}
}
