package engine

// Event is a notable occurrence during the run, kept for the observation
// API and the end-of-run report.
type Event struct {
	Round       int    `json:"round"`
	Description string `json:"description"`
	Category    string `json:"category"` // "trade", "bankruptcy", "death", "survival", "broadcast"
}

// maxEvents bounds the in-memory event log.
const maxEvents = 1000
