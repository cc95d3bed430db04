package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// table writes aligned columns, or raw TSV under --plain.
type table struct {
	out io.Writer
	tw  *tabwriter.Writer
}

func newTable(plain bool) *table {
	if plain {
		return &table{out: stdout}
	}
	tw := tabwriter.NewWriter(stdout, 2, 4, 2, ' ', 0)
	return &table{out: tw, tw: tw}
}

func (t *table) row(cols ...string) {
	for i, c := range cols {
		cols[i] = strings.ReplaceAll(c, "\t", " ")
	}
	fmt.Fprintln(t.out, strings.Join(cols, "\t"))
}

func (t *table) flush() int {
	if t.tw != nil {
		if err := t.tw.Flush(); err != nil {
			fmt.Fprintln(stderr, "output:", err)
			return ExitError
		}
	}
	return ExitOK
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
