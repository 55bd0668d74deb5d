package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"platter/internal/jobs"
)

// statusKind is the severity of one rendered status line.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

// jobStatusKind maps a job lifecycle state onto a rendering severity:
// terminal states carry their verdict, a waiting job is flagged because it
// wants operator input, and the in-flight states are plain information.
func jobStatusKind(status jobs.Status) statusKind {
	switch status {
	case jobs.StatusSuccess:
		return statusOK
	case jobs.StatusFailed:
		return statusError
	case jobs.StatusWaiting:
		return statusWarn
	default:
		return statusInfo
	}
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var statusKindNames = map[statusKind]string{
	statusInfo:  "INFO",
	statusOK:    "OK",
	statusWarn:  "WARN",
	statusError: "ERROR",
}

var statusKindColors = map[statusKind]string{
	statusInfo:  ansiBlue,
	statusOK:    ansiGreen,
	statusWarn:  ansiYellow,
	statusError: ansiRed,
}

// statusTag renders the bracketed severity tag, optionally followed by a
// message. Color covers the tag only so long messages stay readable.
func statusTag(kind statusKind, message string, colorize bool) string {
	tag := "[" + statusKindNames[kind] + "]"
	if colorize {
		tag = statusKindColors[kind] + tag + ansiReset
	}
	if message == "" {
		return tag
	}
	return tag + " " + message
}

// renderStatusLine renders one aligned "label: [KIND] message" line.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	var b strings.Builder
	b.WriteString(statusIndent)
	fmt.Fprintf(&b, "%-*s ", statusLabelWidth, label+":")
	b.WriteString(statusTag(kind, message, colorize))
	return b.String()
}

// writeSectionHeader writes an underlined "== Title ==" section header.
func writeSectionHeader(w io.Writer, title string, colorize bool) {
	heading := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(heading))
	if colorize {
		heading = ansiBlue + heading + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	fmt.Fprintln(w, heading)
	fmt.Fprintln(w, rule)
}

// renderTable renders rows under headers in a rounded table. Columns listed
// in rightAligned (zero-based) are right-aligned; headers always align left.
// Rows shorter than the header count render with trailing blanks.
func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	if len(headers) == 0 {
		return ""
	}

	rightSet := make(map[int]bool, len(rightAligned))
	for _, column := range rightAligned {
		rightSet[column] = true
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	configs := make([]table.ColumnConfig, len(headers))
	for i, name := range headers {
		header[i] = name
		align := text.AlignLeft
		if rightSet[i] {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(headers))
		for i := range cells {
			if i < len(row) {
				cells[i] = row[i]
			} else {
				cells[i] = ""
			}
		}
		tw.AppendRow(cells)
	}

	return tw.Render()
}

// shouldColorize gates ANSI styling: only real terminals get color, and the
// NO_COLOR convention wins over the tty check.
func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
