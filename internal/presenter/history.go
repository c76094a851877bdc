package presenter

// HistoryLimit is the number of confidence scores kept for the trend display.
const HistoryLimit = 6

// HistoryEntry is one point on the confidence trend.
type HistoryEntry struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// History is a sliding window of the most recent entries, oldest first.
type History struct {
	limit   int
	entries []HistoryEntry
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return &History{limit: limit}
}

// Append adds e and drops entries from the front beyond the limit.
func (h *History) Append(e HistoryEntry) {
	h.entries = append(h.entries, e)
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append([]HistoryEntry(nil), h.entries[over:]...)
	}
}

// Entries returns a copy of the window.
func (h *History) Entries() []HistoryEntry {
	return append([]HistoryEntry{}, h.entries...)
}

func (h *History) Len() int {
	return len(h.entries)
}
