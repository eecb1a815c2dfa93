package triage

import "strings"

// InjectionRisk classifies how likely a text is attempting prompt injection.
type InjectionRisk int

const (
	// RiskNone means no injection markers were found.
	RiskNone InjectionRisk = iota
	// RiskLow means a weak marker was found; analysis proceeds.
	RiskLow
	// RiskHigh means a strong marker was found; the surgeon pass is blocked.
	RiskHigh
	// RiskCritical means an explicit override attempt was found.
	RiskCritical
)

// String returns the risk level name.
func (r InjectionRisk) String() string {
	switch r {
	case RiskCritical:
		return "critical"
	case RiskHigh:
		return "high"
	case RiskLow:
		return "low"
	default:
		return "none"
	}
}

// Marker phrases checked case-insensitively. Critical markers are explicit
// instruction-override attempts; high markers impersonate the prompt
// structure; low markers merely mention prompt machinery.
var (
	criticalMarkers = []string{
		"ignore previous instructions",
		"ignore all previous instructions",
		"disregard your instructions",
		"disregard all previous",
		"override your instructions",
		"forget your instructions",
	}
	highMarkers = []string{
		"new instructions:",
		"your new instructions",
		"you are now a",
		"you are no longer",
		"<system>",
		"[system]",
		"system prompt:",
		"do not follow the above",
	}
	lowMarkers = []string{
		"system prompt",
		"jailbreak",
	}
)

// InjectionScan is the outcome of scanning texts for injection markers.
type InjectionScan struct {
	Risk   InjectionRisk
	Marker string // the first marker found at the reported risk level
}

// Blocked reports whether the surgeon pass must be skipped.
func (s InjectionScan) Blocked() bool {
	return s.Risk >= RiskHigh
}

// ScanForInjection checks the given texts (issue body, fetched file
// contents) for known injection markers and returns the highest risk found.
func ScanForInjection(texts ...string) InjectionScan {
	scan := InjectionScan{Risk: RiskNone}

	for _, text := range texts {
		lower := strings.ToLower(text)

		for _, m := range criticalMarkers {
			if strings.Contains(lower, m) {
				return InjectionScan{Risk: RiskCritical, Marker: m}
			}
		}
		for _, m := range highMarkers {
			if strings.Contains(lower, m) && scan.Risk < RiskHigh {
				scan = InjectionScan{Risk: RiskHigh, Marker: m}
			}
		}
		for _, m := range lowMarkers {
			if strings.Contains(lower, m) && scan.Risk < RiskLow {
				scan = InjectionScan{Risk: RiskLow, Marker: m}
			}
		}
	}
	return scan
}
