package types

// Event is the generic attribute bag surfaced to subscribers when a state
// transition completes.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
