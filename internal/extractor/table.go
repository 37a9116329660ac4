package extractor

import (
	"regexp"
	"strings"
)

var cellSeparator = regexp.MustCompile(`\t+|\s{2,}`)

// detectTables finds runs of at least two consecutive lines that split into the same
// number (two or more) of tab- or wide-space-separated cells.
func detectTables(text string) [][][]string {
	var (
		tables [][][]string
		run    [][]string
	)
	flush := func() {
		if len(run) >= 2 {
			tables = append(tables, run)
		}
		run = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		cells := cellSeparator.Split(line, -1)
		if line == "" || len(cells) < 2 {
			flush()
			continue
		}
		if len(run) > 0 && len(run[0]) != len(cells) {
			flush()
		}
		run = append(run, cells)
	}
	flush()
	return tables
}

// markdownTable renders rows as a pipe table under title. The first row is the header.
func markdownTable(title string, rows [][]string) string {
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")
	if len(rows) == 0 {
		return sb.String()
	}

	writeRow := func(cells []string) {
		sb.WriteString("|")
		for _, c := range cells {
			sb.WriteString(" ")
			sb.WriteString(strings.ReplaceAll(strings.TrimSpace(c), "|", `\|`))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(rows[0])
	if len(rows) > 1 {
		sep := make([]string, len(rows[0]))
		for i := range sep {
			sep[i] = "---"
		}
		writeRow(sep)
		for _, r := range rows[1:] {
			writeRow(r)
		}
	}
	return sb.String()
}
