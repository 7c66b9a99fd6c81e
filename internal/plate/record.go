package plate

// BBox is a detection box [x1, y1, x2, y2] in pixel space of the source frame.
type BBox [4]float64

func (b BBox) Width() float64  { return b[2] - b[0] }
func (b BBox) Height() float64 { return b[3] - b[1] }

// Detection is one plate candidate as reported by the detection/OCR stage.
type Detection struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// Record is a resolved plate, ready to be drawn, printed or exported.
type Record struct {
	OriginalText   string  `json:"original_text"`
	FormattedPlate string  `json:"formatted_plate"`
	RegionCode     string  `json:"region_code"`
	RegionInfo     string  `json:"region_info"`
	Number         string  `json:"number"`
	Suffix         string  `json:"suffix"`
	Category       Parity  `json:"category"`
	City           string  `json:"city,omitempty"`
	Confidence     float64 `json:"confidence"`
	BBox           BBox    `json:"bbox"`
}

// Resolver turns OCR text into records against a fixed region table.
type Resolver struct {
	regions RegionTable
}

func NewResolver(regions RegionTable) *Resolver {
	if regions == nil {
		regions = DefaultRegions()
	}
	return &Resolver{regions: regions}
}

func (r *Resolver) Regions() RegionTable {
	return r.regions
}

// ProcessDetection normalizes and parses raw OCR text. Text that is not a
// plate yields false and should be dropped by the caller.
func (r *Resolver) ProcessDetection(raw string, confidence float64, box BBox) (Record, bool) {
	p, ok := Parse(Normalize(raw))
	if !ok {
		return Record{}, false
	}
	city, _ := ResolveCity(p)
	return Record{
		OriginalText:   raw,
		FormattedPlate: Format(p),
		RegionCode:     p.RegionCode,
		RegionInfo:     r.regions.Resolve(p.RegionCode),
		Number:         p.Number,
		Suffix:         p.Suffix,
		Category:       Category(p),
		City:           city,
		Confidence:     confidence,
		BBox:           box,
	}, true
}

// Resolve runs ProcessDetection over a frame's detections, keeping their
// order and dropping the ones that are not plates.
func (r *Resolver) Resolve(detections []Detection) []Record {
	records := make([]Record, 0, len(detections))
	for _, d := range detections {
		if rec, ok := r.ProcessDetection(d.Text, d.Confidence, d.BBox); ok {
			records = append(records, rec)
		}
	}
	return records
}

var defaultResolver = NewResolver(nil)

// ProcessDetection uses the built-in region table.
func ProcessDetection(raw string, confidence float64, box BBox) (Record, bool) {
	return defaultResolver.ProcessDetection(raw, confidence, box)
}
