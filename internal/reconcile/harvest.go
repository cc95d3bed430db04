package reconcile

import (
	"regexp"
	"strings"
)

var (
	doneHeaderRe   = regexp.MustCompile(`(?i)^##\s+(?:✅\s*)?done\s*$`)
	anyH2Re        = regexp.MustCompile(`^##\s+`)
	checkedItemRe  = regexp.MustCompile(`^[-*+]\s*\[[xX]\]`)
	uncheckedRe    = regexp.MustCompile(`^[-*+]\s*\[ \]`)
	plainItemRe    = regexp.MustCompile(`^[-*+]\s+\S`)
	doneLogEntryRe = regexp.MustCompile(`^[-*+]\s+\d{1,2}:\d{2}\s+✅\s+\S`)
)

var placeholders = map[string]bool{
	"- (update as day progresses)": true,
	"- (none today)":                true,
	"- (none)":                      true,
}

func isDoneItem(stripped string) bool {
	if placeholders[strings.ToLower(stripped)] {
		return false
	}
	if checkedItemRe.MatchString(stripped) {
		return true
	}
	if uncheckedRe.MatchString(stripped) {
		return false
	}
	return plainItemRe.MatchString(stripped)
}

// DoneSectionItems returns the items of a daily note's "## ✅ Done" section
// plus any timestamped done-log entries elsewhere in the note.
func DoneSectionItems(note string) []string {
	var out []string
	seen := map[string]bool{}
	inDone := false
	for _, line := range strings.Split(note, "\n") {
		if doneHeaderRe.MatchString(strings.TrimSpace(line)) {
			inDone = true
			continue
		}
		if anyH2Re.MatchString(line) {
			inDone = false
		}
		if line != strings.TrimLeft(line, " \t") {
			continue
		}
		stripped := strings.TrimSpace(line)
		if (inDone && isDoneItem(stripped)) || doneLogEntryRe.MatchString(stripped) {
			if !seen[stripped] {
				seen[stripped] = true
				out = append(out, stripped)
			}
		}
	}
	return out
}

// DoneLines returns every top-level done bullet in free text: checked boxes
// and plain bullets, never unchecked boxes.
func DoneLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line != strings.TrimLeft(line, " \t") {
			continue
		}
		stripped := strings.TrimSpace(line)
		if isDoneItem(stripped) {
			out = append(out, stripped)
		}
	}
	return out
}
