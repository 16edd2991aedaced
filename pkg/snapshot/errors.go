package snapshot

import "fmt"

// FormatError reports a malformed snapshot record or command payload. Only
// the offending record is rejected.
type FormatError struct {
	Section string // "walls", "furniture", "snapshot", or a command name
	Index   int    // record index, -1 when not a list element
	Field   string
	Reason  string
}

func (e *FormatError) Error() string {
	loc := e.Section
	if e.Index >= 0 {
		loc = fmt.Sprintf("%s[%d]", loc, e.Index)
	}
	if e.Field != "" {
		loc += "." + e.Field
	}
	return fmt.Sprintf("format error: %s: %s", loc, e.Reason)
}
