package engine

// Result is the structured output of one preview invocation. A failed
// or unsupported invocation yields a Result with no gallery rather
// than a partial one.
type Result struct {
	Gallery *GallerySection `json:"image_gallery,omitempty"`
	// PageCount is the document's true page count, which can exceed
	// the gallery length when rendering was capped by max_pages_rendered.
	PageCount          int                `json:"page_count,omitempty"`
	Detections         []DetectionSection `json:"detections,omitempty"`
	NetworkIndicators  *NetworkSection    `json:"network_indicators,omitempty"`
	Heuristics         []HeuristicSection `json:"heuristics,omitempty"`
	Extracted          []FileRef          `json:"extracted,omitempty"`
	Supplementary      []FileRef          `json:"supplementary,omitempty"`
	PasswordCandidates []string           `json:"password_candidates,omitempty"`
}

// GallerySection is the ordered page-image gallery. Representative
// marks it as the single-glance preview for the submission.
type GallerySection struct {
	Images         []FileRef `json:"images"`
	Representative bool      `json:"representative"`
}

// DetectionSection reports one indicator category with its matched
// values and a frequency count.
type DetectionSection struct {
	Category string   `json:"category"`
	Values   []string `json:"values"`
	Count    int      `json:"count"`
}

// NetworkSection lists network indicators found in extracted text,
// independent of the category-based detections.
type NetworkSection struct {
	Emails []string `json:"emails,omitempty"`
	URLs   []string `json:"urls,omitempty"`
	IPs    []string `json:"ips,omitempty"`
}

// HeuristicSection flags a coarse behavioral signal.
type HeuristicSection struct {
	HeuristicID int    `json:"heuristic_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
}

// FileRef points at an artifact in the scratch directory with its
// user-facing name and description.
type FileRef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

// Heuristic identifiers reported in result sections.
const (
	HeuristicSuspectedPhishing = 1
	HeuristicRansomwareTerms   = 2
	HeuristicMacroLureTerms    = 3
)

// NewResult returns an empty but valid result.
func NewResult() *Result {
	return &Result{}
}
