package api

// Finding is the result of one rule evaluation.
type Finding struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Certainty   string   `json:"certainty"`
	// Locations are "file:line:start_col-end_col" strings, one per matched node.
	Locations []string `json:"locations"`
	// Debug keeps printed lines that were not node results.
	Debug []string `json:"debug,omitempty"`
}

// Empty reports whether the rule matched nothing.
func (f Finding) Empty() bool { return len(f.Locations) == 0 }
