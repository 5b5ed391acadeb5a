package llm

import (
	"errors"
	"strings"
)

var (
	ErrMarkersMissing = errors.New("generator response is missing script markers")
	ErrEmptySection   = errors.New("generator response has an empty script section")
)

// Scripts is the English and Hindi script pair produced by one generation.
type Scripts struct {
	English string `json:"eng_pod"`
	Hindi   string `json:"hin_pod"`
}

// SplitScripts separates a marked generator response into its English and
// Hindi sections. Any trailing "IMPORTANT:" note in the English section is
// dropped.
func SplitScripts(response string) (Scripts, error) {
	engIdx := strings.Index(response, EnglishMarker)
	hinIdx := strings.Index(response, HindiMarker)
	if engIdx < 0 || hinIdx < 0 || hinIdx < engIdx {
		return Scripts{}, ErrMarkersMissing
	}
	eng := strings.TrimSpace(response[engIdx+len(EnglishMarker) : hinIdx])
	hin := strings.TrimSpace(response[hinIdx+len(HindiMarker):])
	if i := strings.Index(eng, "IMPORTANT:"); i >= 0 {
		eng = strings.TrimSpace(eng[:i])
	}
	if eng == "" || hin == "" {
		return Scripts{}, ErrEmptySection
	}
	return Scripts{English: eng, Hindi: hin}, nil
}
