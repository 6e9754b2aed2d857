package engine

import (
	"fmt"
	"strings"

	"github.com/CybercentreCanada/assemblyline-service-document-preview/engine/indicator"
)

// aggregateDetections runs the indicator matcher over the full
// extracted text, merges in the per-image detection sets and derives
// the password-candidate list.
func aggregateDetections(text string, perImage []indicator.Detections) (indicator.Detections, []string) {
	detections := indicator.Scan(text)
	for _, d := range perImage {
		detections.Merge(d)
	}

	var passwords []string
	if hits := detections["password"]; len(hits) > 0 {
		passwords = indicator.PasswordCandidates(hits, text)
	}
	return detections, passwords
}

// suspectedPhishing fires on the classic lure shape: a single rendered
// PDF page telling the reader to click something.
func suspectedPhishing(hadPDF bool, pageCount int, text string) bool {
	return hadPDF && pageCount == 1 && strings.Contains(strings.ToLower(text), "click")
}

// buildDetectionSections converts the aggregated detections into
// result sections, one per category in sorted order.
func buildDetectionSections(detections indicator.Detections) []DetectionSection {
	var sections []DetectionSection
	for _, category := range detections.Categories() {
		values := detections[category]
		sections = append(sections, DetectionSection{
			Category: category,
			Values:   values,
			Count:    len(values),
		})
	}
	return sections
}

// buildNetworkSection extracts network indicators from text. Returns
// nil when nothing was found so the section is omitted entirely.
func buildNetworkSection(text string) *NetworkSection {
	emails, urls, ips := indicator.NetworkIndicators(text)
	if len(emails) == 0 && len(urls) == 0 && len(ips) == 0 {
		return nil
	}
	return &NetworkSection{Emails: emails, URLs: urls, IPs: ips}
}

// buildHeuristics assembles the heuristic sections from the detections
// and the standalone phishing signal.
func buildHeuristics(detections indicator.Detections, phishing bool) []HeuristicSection {
	var sections []HeuristicSection
	if phishing {
		sections = append(sections, HeuristicSection{
			HeuristicID: HeuristicSuspectedPhishing,
			Title:       "Suspected phishing",
			Body:        "Single-page document asking the reader to click",
		})
	}
	if hits := detections["ransomware"]; len(hits) > 0 {
		sections = append(sections, HeuristicSection{
			HeuristicID: HeuristicRansomwareTerms,
			Title:       "Ransomware note language",
			Body:        fmt.Sprintf("Matched terms: %s", strings.Join(hits, ", ")),
		})
	}
	if hits := detections["macro"]; len(hits) > 0 {
		sections = append(sections, HeuristicSection{
			HeuristicID: HeuristicMacroLureTerms,
			Title:       "Macro-enabling lure language",
			Body:        fmt.Sprintf("Matched terms: %s", strings.Join(hits, ", ")),
		})
	}
	return sections
}
