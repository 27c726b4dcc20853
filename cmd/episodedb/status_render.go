package main

import (
	"fmt"
	"strings"

	"episodedb/internal/catalog"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	fieldLabelWidth = 16
	fieldIndent     = "  "
)

type statusStyle struct {
	label string
	color string
}

var statusStyles = map[statusKind]statusStyle{
	statusInfo:  {label: "INFO", color: ansiBlue},
	statusOK:    {label: "OK", color: ansiGreen},
	statusWarn:  {label: "WARN", color: ansiYellow},
	statusError: {label: "ERROR", color: ansiRed},
}

// kindForStatus maps catalog lifecycle states onto display severities.
func kindForStatus(status catalog.Status) statusKind {
	switch status {
	case catalog.StatusCompleted:
		return statusOK
	case catalog.StatusProcessing:
		return statusWarn
	case catalog.StatusFailed:
		return statusError
	default:
		return statusInfo
	}
}

// renderField prints an aligned "label: value" line, with "-" for empty values.
func renderField(label, value string) string {
	return fmt.Sprintf("%s%-*s %s", fieldIndent, fieldLabelWidth, label+":", dashIfEmpty(value))
}

// renderStatusLine prints "label: [KIND] message", colored on terminals.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	value := "[" + style.label + "]"
	if message != "" {
		value += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", fieldIndent, fieldLabelWidth, label+":", value)
	if colorize && style.color != "" {
		return style.color + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	heading := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(heading))
	if !colorize {
		return []string{heading, rule}
	}
	return []string{ansiBlue + heading + ansiReset, ansiBlue + rule + ansiReset}
}
