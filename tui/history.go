package tui

// History remembers submitted commands for Up/Down recall.
type History struct {
	entries []string
	limit   int
	pos     int // len(entries) when not recalling
}

// NewHistory creates a history that keeps at most limit commands.
func NewHistory(limit int) *History {
	return &History{entries: make([]string, 0, limit), limit: limit}
}

// Push records cmd and ends any recall in progress. A repeat of the most
// recent command is not stored twice.
func (h *History) Push(cmd string) {
	if n := len(h.entries); n == 0 || h.entries[n-1] != cmd {
		h.entries = append(h.entries, cmd)
		if len(h.entries) > h.limit {
			h.entries = h.entries[len(h.entries)-h.limit:]
		}
	}
	h.pos = len(h.entries)
}

// Prev steps back to an older command, stopping at the oldest.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.pos > 0 {
		h.pos--
	}
	return h.entries[h.pos], true
}

// Next steps forward to a newer command. Stepping past the newest ends
// the recall and reports false.
func (h *History) Next() (string, bool) {
	if h.pos >= len(h.entries)-1 {
		h.pos = len(h.entries)
		return "", false
	}
	h.pos++
	return h.entries[h.pos], true
}

// ResetCursor ends any recall in progress.
func (h *History) ResetCursor() {
	h.pos = len(h.entries)
}
