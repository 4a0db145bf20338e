package endpoint

import (
	"fmt"
	"strings"
	"time"
)

// Trace collects the named latency marks of one capture session. Marks
// are optional; a missing mark simply drops its line from the summary.
type Trace struct {
	Keyword     time.Time
	CommandEnd  time.Time
	ModelStart  time.Time
	ModelEnd    time.Time
	ToolsStart  time.Time
	ToolsEnd    time.Time
	ResponseEnd time.Time
}

func (t *Trace) MarkModelStart(now time.Time) { t.ModelStart = now }
func (t *Trace) MarkModelEnd(now time.Time)   { t.ModelEnd = now }
func (t *Trace) MarkToolsStart(now time.Time) { t.ToolsStart = now }
func (t *Trace) MarkToolsEnd(now time.Time)   { t.ToolsEnd = now }
func (t *Trace) MarkResponseEnd(now time.Time) { t.ResponseEnd = now }

// Summary renders the latency breakdown for logging, one segment per
// pair of marks that are both present.
func (t *Trace) Summary() string {
	var sb strings.Builder

	seg := func(label string, from, to time.Time) {
		if from.IsZero() || to.IsZero() {
			return
		}
		fmt.Fprintf(&sb, "%s=%.1fms ", label, float64(to.Sub(from).Microseconds())/1000)
	}

	seg("capture", t.Keyword, t.CommandEnd)
	seg("model", t.ModelStart, t.ModelEnd)
	seg("tools", t.ToolsStart, t.ToolsEnd)
	seg("response", t.ModelEnd, t.ResponseEnd)
	seg("total", t.Keyword, t.ResponseEnd)

	return strings.TrimSpace(sb.String())
}
