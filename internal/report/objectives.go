package report

import (
	"fmt"
	"strings"

	"github.com/amirbrooks/task-tracker/internal/taskmd"
)

// FormatObjectives lists objective progress, flagging objectives with no
// completed children as at risk.
func FormatObjectives(list []taskmd.ObjectiveProgress) string {
	var b strings.Builder
	b.WriteString("🏁 **Objectives**\n")
	if len(list) == 0 {
		b.WriteString("  _No objectives found_\n")
		return b.String()
	}
	for _, o := range list {
		box := " "
		if o.Done {
			box = "x"
		}
		fmt.Fprintf(&b, "  - [%s] %s", box, o.Title)
		if o.Department != "" {
			fmt.Fprintf(&b, " #%s", o.Department)
		}
		fmt.Fprintf(&b, " — %d/%d (%d%%)", o.ChildrenDone, o.ChildrenTotal, o.CompletionPct)
		if o.AtRisk {
			b.WriteString(" ⚠️ at risk")
		}
		b.WriteString("\n")
	}
	return b.String()
}
