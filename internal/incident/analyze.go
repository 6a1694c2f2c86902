package incident

import "strings"

// faultSignature maps a known substring in evidence text to a hypothesis at
// a fixed confidence.
type faultSignature struct {
	marker     string
	hypothesis string
	confidence float64
}

var faultSignatures = []faultSignature{
	{"CrashLoopBackOff", "Pod crash loops detected", 0.6},
	{"ImagePullBackOff", "Image pull failures", 0.5},
}

// deriveHypotheses scans evidence text for known fault signatures. It is
// pure: the same evidence always yields the same hypotheses. When nothing
// matches it emits a single generic low-confidence hypothesis so the report
// never leaves analysis empty-handed.
func deriveHypotheses(evidence []Evidence) []Hypothesis {
	var out []Hypothesis
	seen := make(map[string]bool)
	for _, item := range evidence {
		for _, sig := range faultSignatures {
			if seen[sig.marker] || !strings.Contains(item.Detail, sig.marker) {
				continue
			}
			seen[sig.marker] = true
			out = append(out, Hypothesis{Hypothesis: sig.hypothesis, Confidence: sig.confidence})
		}
	}
	if len(out) == 0 {
		out = append(out, Hypothesis{
			Hypothesis: "Investigate recent changes in workload",
			Confidence: 0.3,
		})
	}
	return out
}
