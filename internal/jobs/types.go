// Package jobs holds the canonical job lifecycle model shared by all
// provider adapters: one status vocabulary, one asset shape, one result
// shape, regardless of which upstream executes the work.
package jobs

// Status is the canonical lifecycle state of a submitted job.
// Providers each speak their own vocabulary; adapters map onto this set.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MoreAdvanced returns the further-along of two non-terminal statuses,
// used to drive progress indication while neither source is terminal.
func MoreAdvanced(a, b Status) Status {
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func rank(s Status) int {
	switch s {
	case StatusQueued:
		return 1
	case StatusRunning:
		return 2
	case StatusCompleted, StatusFailed:
		return 3
	default:
		return 0
	}
}

// Handle is the opaque identifier a provider returns on submission. It is
// the only linkage key between a submission and later status lookups;
// uniqueness is the provider's problem, not ours.
type Handle string

// MediaAsset is one produced media file with a retrievable URL.
type MediaAsset struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// SlotKind enumerates the payload kinds a named input slot can carry.
type SlotKind string

const (
	SlotImage  SlotKind = "image"
	SlotText   SlotKind = "text"
	SlotNumber SlotKind = "number"
	SlotChoice SlotKind = "choice"
)

// SlotValue is one input payload. Exactly one of the value fields is
// meaningful, selected by Kind.
type SlotValue struct {
	Kind   SlotKind
	Text   string
	Number float64
	// Image payload. MIME is used to build a data-URI prefix when the
	// target provider wants one.
	Data     []byte
	MIME     string
	Filename string
}

// TextValue builds a text slot.
func TextValue(s string) SlotValue { return SlotValue{Kind: SlotText, Text: s} }

// NumberValue builds a numeric slot.
func NumberValue(f float64) SlotValue { return SlotValue{Kind: SlotNumber, Number: f} }

// ChoiceValue builds an enumerated-choice slot.
func ChoiceValue(s string) SlotValue { return SlotValue{Kind: SlotChoice, Text: s} }

// ImageValue builds an image slot from raw bytes.
func ImageValue(data []byte, mime, filename string) SlotValue {
	return SlotValue{Kind: SlotImage, Data: data, MIME: mime, Filename: filename}
}

// Request is the provider-agnostic description of one generation request:
// named input slots plus the target workflow. Built once per submission and
// never mutated afterwards.
type Request struct {
	// Workflow identifies the target deployment/endpoint on the provider
	// side. Interpretation is adapter-specific.
	Workflow string
	Slots    map[string]SlotValue
	// WebhookURL, when set, asks the provider to push completion events.
	// Providers without webhook support ignore it.
	WebhookURL string
}

// Result is the converged view of one job, owned by the lifecycle
// controller. Once Status is terminal the result never changes again.
type Result struct {
	Handle Handle       `json:"runId"`
	Status Status       `json:"status"`
	Assets []MediaAsset `json:"images,omitempty"`
	Err    string       `json:"error,omitempty"`
}
