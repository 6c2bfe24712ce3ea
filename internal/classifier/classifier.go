// Package classifier decides from the wording of an AI reply whether the
// customer's issue is resolved or more evidence is being requested.
//
// The match is a lexical heuristic over fixed Vietnamese phrases. A reply
// that mentions "hình ảnh" in passing will be read as an evidence request.
package classifier

import "strings"

// Verdict is the closed set of classification results.
type Verdict int

const (
	Continue Verdict = iota
	Resolved
	NeedsEvidence
)

func (v Verdict) String() string {
	switch v {
	case Resolved:
		return "resolved"
	case NeedsEvidence:
		return "needs_evidence"
	default:
		return "continue"
	}
}

// ResolutionPhrases signal that the assistant considers the issue fixed.
var ResolutionPhrases = []string{"tuyệt vời", "rất vui", "đã giúp được"}

// EvidencePhrases signal that the assistant wants a photo or video.
var EvidencePhrases = []string{"chụp ảnh", "gửi video", "ảnh/video", "hình ảnh"}

// Classify inspects answer text. Resolved wins over NeedsEvidence.
func Classify(text string) Verdict {
	lower := strings.ToLower(text)
	if containsAny(lower, ResolutionPhrases) {
		return Resolved
	}
	if containsAny(lower, EvidencePhrases) {
		return NeedsEvidence
	}
	return Continue
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
