package llm

import (
	"fmt"
	"strings"
)

const (
	EnglishMarker = "=====ENGLISH PODCAST SCRIPT====="
	HindiMarker   = "=====HINDI PODCAST SCRIPT====="

	DefaultAttribution = "Financial Research Team"
)

const systemPrompt = "You are a financial research agent writing podcast scripts that will be read aloud by a text-to-speech engine."

// BuildPrompt returns the market briefing prompt for date, asking for an
// English and a Hindi script separated by the section markers.
func BuildPrompt(date, attribution string) string {
	if strings.TrimSpace(date) == "" {
		date = "yesterday"
	}
	if strings.TrimSpace(attribution) == "" {
		attribution = DefaultAttribution
	}
	return fmt.Sprintf(`TASK:
Write a professional financial market podcast covering %[1]s, once in English and once in Hindi.

COVER:
- US indices (S&P 500, Dow Jones, Nasdaq) with levels and percentage changes
- Crude oil and gold prices
- Federal Reserve and global rate news
- Sensex and Nifty 50 closing levels and percentage changes
- Sector performance (Banking, IT, Pharma, Metals, Auto, FMCG)
- RBI policy, FPI flows and the rupee against the dollar
- Major corporate earnings and domestic economic indicators

STYLE:
- One continuous narrative written for speech, no headers or sections
- No markdown, asterisks or special formatting
- Specific numbers, percentages and price levels
- Explain why markets moved
- Open with "This podcast is created by %[2]s" and the date

OUTPUT FORMAT (exactly):
%[3]s
<English script, at least 800 characters>

%[4]s
<Hindi script in Devanagari, at least 800 characters>`, date, attribution, EnglishMarker, HindiMarker)
}

// SystemPrompt returns the system instruction used for script generation.
func SystemPrompt() string {
	return systemPrompt
}
