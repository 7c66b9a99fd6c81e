package annotate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"alpr-service/internal/plate"
)

var ErrInvalidImage = errors.New("invalid image")

var (
	BoxColor  = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	TextColor = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
)

const (
	boxThickness = 2
	linePadding  = 10
	labelPadding = 5
)

type Annotator struct {
	face font.Face
}

func New() *Annotator {
	return &Annotator{face: basicfont.Face7x13}
}

// Decode reads an encoded frame, honouring EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return img, nil
}

func EncodeJPEG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(90))
}

// Labels returns the overlay lines for a record, top to bottom.
func Labels(rec plate.Record) []string {
	labels := []string{"Plat: " + rec.FormattedPlate}
	if rec.Category != "" {
		labels = append(labels, "Tipe: "+string(rec.Category))
	}
	switch {
	case rec.City != "":
		labels = append(labels, "Wilayah: "+rec.City)
	case rec.RegionInfo != "" && rec.RegionInfo != plate.RegionNotFound:
		labels = append(labels, "Wilayah: "+rec.RegionInfo)
	}
	return labels
}

// Draw returns a copy of src with a box and a label block drawn for every
// record. The source image is not modified.
func (a *Annotator) Draw(src image.Image, records []plate.Record) *image.NRGBA {
	dst := imaging.Clone(src)
	for _, rec := range records {
		a.drawRecord(dst, rec)
	}
	return dst
}

func (a *Annotator) drawRecord(dst *image.NRGBA, rec plate.Record) {
	box := image.Rect(int(rec.BBox[0]), int(rec.BBox[1]), int(rec.BBox[2]), int(rec.BBox[3]))
	strokeRect(dst, box, BoxColor, boxThickness)

	labels := Labels(rec)
	lineHeight := a.face.Metrics().Ascent.Ceil() + linePadding

	maxWidth := 0
	for _, l := range labels {
		if w := font.MeasureString(a.face, l).Ceil(); w > maxWidth {
			maxWidth = w
		}
	}

	background := image.Rect(
		box.Min.X,
		box.Min.Y-lineHeight*len(labels)-labelPadding,
		box.Min.X+maxWidth+2*labelPadding,
		box.Min.Y,
	)
	draw.Draw(dst, background, image.NewUniform(BoxColor), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(TextColor),
		Face: a.face,
	}
	for i, l := range labels {
		y := box.Min.Y - lineHeight*(len(labels)-1-i) - labelPadding
		drawer.Dot = fixed.P(box.Min.X+labelPadding, y)
		drawer.DrawString(l)
	}
}

func strokeRect(dst draw.Image, r image.Rectangle, c color.Color, thickness int) {
	u := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, u, image.Point{}, draw.Src)
	}
}
