package domain

import "strings"

// Keyword buckets for investment activity classification. Exclusions win only
// when no inclusion keyword matches; ties and no-matches stay visible.
var (
	excludeKeywords = []string{"dividend", "interest", "trade", "security", "margin", "distribution", "fx"}
	includeKeywords = []string{"zelle", "direct dep", "cash transfer", "payment", "ach", "wire", "check"}
)

// ClassifyReportingMode maps an investment activity's descriptor and subtype
// to a reporting mode. Pure function, no I/O; defaults toward visibility.
func ClassifyReportingMode(descriptor, subtype string) ReportingMode {
	haystack := strings.ToLower(descriptor + " " + subtype)

	exclude := containsAny(haystack, excludeKeywords)
	include := containsAny(haystack, includeKeywords)

	if include {
		return ReportingIncludeDefault
	}
	if exclude {
		return ReportingExcludeDefault
	}
	return ReportingIncludeDefault
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
