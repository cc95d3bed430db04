package taskmd

import (
	"regexp"
	"strings"
)

// Lines splits content on "\n". Joining the result with "\n" restores content
// byte for byte.
func Lines(content string) []string {
	return strings.Split(content, "\n")
}

// Join is the inverse of Lines.
func Join(lines []string) string {
	return strings.Join(lines, "\n")
}

// FindLine returns the index of the first line equal to raw (ignoring trailing
// whitespace), or -1.
func FindLine(lines []string, raw string) int {
	want := strings.TrimRight(raw, " \t\r")
	for i, l := range lines {
		if strings.TrimRight(l, " \t\r") == want {
			return i
		}
	}
	return -1
}

// BlockEnd returns the index just past the task at idx and its deeper-indented
// children. Blank lines are kept in the block only when the next non-blank line
// is still deeper than the task.
func BlockEnd(lines []string, idx int) int {
	base := IndentWidth(lines[idx])
	end := idx + 1
	for end < len(lines) {
		if strings.TrimSpace(lines[end]) == "" {
			next := end + 1
			for next < len(lines) && strings.TrimSpace(lines[next]) == "" {
				next++
			}
			if next < len(lines) && IndentWidth(lines[next]) > base {
				end = next
				continue
			}
			break
		}
		if IndentWidth(lines[end]) <= base {
			break
		}
		end++
	}
	return end
}

// TaskIndex locates t in lines. The parsed line number wins while that line
// still holds t's raw text; otherwise the first line with the same text is
// used. It returns -1 when the task is gone.
func TaskIndex(lines []string, t *Task) int {
	want := strings.TrimRight(t.RawLine, " \t\r")
	if t.Line >= 0 && t.Line < len(lines) && strings.TrimRight(lines[t.Line], " \t\r") == want {
		return t.Line
	}
	return FindLine(lines, t.RawLine)
}

// RemoveTask deletes t together with its children. ok is false when t is no
// longer present.
func RemoveTask(content string, t *Task) (string, bool) {
	lines := Lines(content)
	idx := TaskIndex(lines, t)
	if idx < 0 {
		return content, false
	}
	end := BlockEnd(lines, idx)
	out := append(append([]string{}, lines[:idx]...), lines[end:]...)
	return Join(out), true
}

// TaskBlock returns t's line and its children.
func TaskBlock(content string, t *Task) ([]string, bool) {
	lines := Lines(content)
	idx := TaskIndex(lines, t)
	if idx < 0 {
		return nil, false
	}
	end := BlockEnd(lines, idx)
	return append([]string{}, lines[idx:end]...), true
}

// ReplaceLine swaps t's line for replacement.
func ReplaceLine(content string, t *Task, replacement string) (string, bool) {
	lines := Lines(content)
	idx := TaskIndex(lines, t)
	if idx < 0 {
		return content, false
	}
	lines[idx] = replacement
	return Join(lines), true
}

// FindHeader returns the index of the first line accepted by match, or -1.
func FindHeader(lines []string, match func(string) bool) int {
	for i, l := range lines {
		if match(l) {
			return i
		}
	}
	return -1
}

// SectionEnd returns the index of the next header at the same or a higher level
// after the header at idx (or len(lines)).
func SectionEnd(lines []string, idx int) int {
	level := headerLevel(lines[idx])
	for i := idx + 1; i < len(lines); i++ {
		if l := headerLevel(lines[i]); l > 0 && l <= level {
			return i
		}
	}
	return len(lines)
}

func headerLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n >= len(line) || line[n] != ' ' {
		return 0
	}
	return n
}

// InsertAfterHeader places block directly under the header at idx, skipping
// blank lines that follow the header.
func InsertAfterHeader(lines []string, idx int, block []string) []string {
	at := idx + 1
	for at < len(lines) && strings.TrimSpace(lines[at]) == "" {
		at++
	}
	return insertAt(lines, at, block)
}

// AppendToSection places block after the last non-blank line of the section
// whose header is at idx.
func AppendToSection(lines []string, idx int, block []string) []string {
	end := SectionEnd(lines, idx)
	at := end
	for at > idx+1 && strings.TrimSpace(lines[at-1]) == "" {
		at--
	}
	return insertAt(lines, at, block)
}

// AppendSection adds "header" with block at the end of the document.
func AppendSection(lines []string, header string, block []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	out := append([]string{}, lines...)
	if len(out) > 0 {
		out = append(out, "")
	}
	out = append(out, header)
	out = append(out, block...)
	return append(out, "")
}

func insertAt(lines []string, at int, block []string) []string {
	out := make([]string, 0, len(lines)+len(block))
	out = append(out, lines[:at]...)
	out = append(out, block...)
	return append(out, lines[at:]...)
}

var (
	checkboxOpenRe = regexp.MustCompile(`^(\s*)- \[ \]`)
	dueTokenRe     = regexp.MustCompile(`(🗓\x{FE0F}?|📅)\s*\d{4}-\d{2}-\d{2}`)
	dueFieldRe     = regexp.MustCompile(`due::\s*\d{4}-\d{2}-\d{2}`)
)

// MarkDone checks an open checkbox line and stamps "✅ date", replacing any
// completion date already on it.
func MarkDone(line, date string) string {
	line = checkboxOpenRe.ReplaceAllString(line, "$1- [x]")
	line = completedTailRe.ReplaceAllString(line, "")
	return strings.TrimRight(line, " \t\r") + " ✅ " + date
}

// SetDue rewrites the due token of line, appending one when absent.
func SetDue(line, date string) string {
	if loc := dueTokenRe.FindStringSubmatchIndex(line); loc != nil {
		glyph := line[loc[2]:loc[3]]
		sep := ""
		if strings.HasPrefix(glyph, "📅") {
			sep = " "
		}
		return line[:loc[0]] + glyph + sep + date + line[loc[1]:]
	}
	if dueFieldRe.MatchString(line) {
		return dueFieldRe.ReplaceAllString(line, "due:: "+date)
	}
	return strings.TrimRight(line, " \t\r") + " 🗓️" + date
}

func fieldRe(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|\s+)\[?` + regexp.QuoteMeta(key) + `::\s*[^\s\]]*\]?`)
}

// SetField replaces key:: value in line or appends it.
func SetField(line, key, value string) string {
	re := fieldRe(key)
	field := " " + key + "::" + value
	if re.MatchString(line) {
		done := false
		return re.ReplaceAllStringFunc(line, func(string) string {
			if done {
				return ""
			}
			done = true
			return field
		})
	}
	return strings.TrimRight(line, " \t\r") + field
}

// RemoveField drops every key:: value occurrence from line.
func RemoveField(line, key string) string {
	return fieldRe(key).ReplaceAllString(line, "")
}
