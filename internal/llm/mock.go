package llm

import (
	"context"
	"regexp"
	"time"
)

type mockGenerator struct{}

// NewMockGenerator returns a generator that answers every prompt with a
// fixed bilingual market briefing.
func NewMockGenerator() Generator { return &mockGenerator{} }

var promptAttribution = regexp.MustCompile(`created by ([^"\n]+)"`)

func (m *mockGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	attribution := DefaultAttribution
	if match := promptAttribution.FindStringSubmatch(req.Prompt); match != nil {
		attribution = match[1]
	}
	return consumer(Chunk{
		Content: EnglishMarker + "\n" + mockEnglish(attribution) + "\n\n" + HindiMarker + "\n" + mockHindi(attribution),
		Latency: 20 * time.Millisecond,
	})
}

func mockEnglish(attribution string) string {
	return "This podcast is created by " + attribution + ", providing detailed financial market analysis. " +
		"Global markets ended the session mixed as investors weighed fresh inflation data against steady central bank guidance. " +
		"The S&P 500 added four tenths of a percent while the Nasdaq gained nearly one percent on strength in large technology names. " +
		"Crude oil slipped on supply concerns easing, and gold held close to its recent highs. " +
		"At home, the Sensex and Nifty 50 both closed higher, led by banking and information technology stocks. " +
		"Foreign portfolio investors were net buyers for a third straight day, and the rupee firmed slightly against the dollar. " +
		"That wraps up today's briefing. Stay invested, stay informed."
}

func mockHindi(attribution string) string {
	return "यह पॉडकास्ट " + attribution + " द्वारा बनाया गया है, जो विस्तृत वित्तीय बाजार विश्लेषण प्रदान करता है। " +
		"वैश्विक बाजार मिले जुले रुख के साथ बंद हुए क्योंकि निवेशकों ने महंगाई के नए आंकड़ों को परखा। " +
		"एस एंड पी पांच सौ में मामूली बढ़त रही जबकि नैस्डैक लगभग एक प्रतिशत चढ़ा। " +
		"कच्चे तेल में गिरावट आई और सोना अपने हाल के उच्च स्तर के पास बना रहा। " +
		"घरेलू बाजार में सेंसेक्स और निफ्टी दोनों बढ़त के साथ बंद हुए, बैंकिंग और आईटी शेयरों ने बाजार को सहारा दिया। " +
		"विदेशी निवेशक लगातार तीसरे दिन शुद्ध खरीदार रहे और रुपया डॉलर के मुकाबले थोड़ा मजबूत हुआ। " +
		"आज की रिपोर्ट में इतना ही। निवेशित रहें, जानकार रहें।"
}
