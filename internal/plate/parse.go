package plate

// Group length bounds of the Indonesian plate grammar:
// 1-2 letters, 1-4 digits, 1-3 letters.
const (
	MaxRegionLen = 2
	MaxNumberLen = 4
	MaxSuffixLen = 3
)

type Parsed struct {
	RegionCode string `json:"region_code"`
	Number     string `json:"number"`
	Suffix     string `json:"suffix"`
}

// Parse splits a normalized plate into its three groups. The second return
// value is false when the text is not a recognizable plate.
//
// Each group is matched greedily: the region code takes the whole leading
// letter run (up to MaxRegionLen). A digit misread as a letter right after a
// one-letter code therefore yields a two-letter region code, e.g. "DI234AB"
// parses as region "DI" rather than "D" + "1234". This is a known limitation
// of the grammar and is intentionally not second-guessed here.
func Parse(normalized string) (Parsed, bool) {
	region, rest := takeRun(normalized, isLetter, MaxRegionLen)
	if region == "" {
		return Parsed{}, false
	}
	number, rest := takeRun(rest, isDigit, MaxNumberLen)
	if number == "" {
		return Parsed{}, false
	}
	suffix, rest := takeRun(rest, isLetter, MaxSuffixLen)
	if suffix == "" || rest != "" {
		return Parsed{}, false
	}
	return Parsed{RegionCode: region, Number: number, Suffix: suffix}, true
}

// takeRun consumes the maximal run of bytes accepted by class. A run longer
// than max is rejected as a whole: the next group starts with a different
// class, so no shorter split could match either.
func takeRun(s string, class func(byte) bool, max int) (string, string) {
	n := 0
	for n < len(s) && class(s[n]) {
		n++
	}
	if n > max {
		return "", s
	}
	return s[:n], s[n:]
}

func isLetter(c byte) bool { return c >= 'A' && c <= 'Z' }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
