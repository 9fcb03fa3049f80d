package common

import (
	"fmt"
	"strings"
)

const (
	// ReportWidth is the console width status reports are framed to.
	ReportWidth = 80
)

// PrintRule prints a horizontal rule of the given character and width.
func PrintRule(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintReportHeader frames a report title between full-width rules.
func PrintReportHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintRule("=", width)
}

// PrintReportSummary frames the closing summary line of a report.
func PrintReportSummary(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// TreePrefix returns the branch prefix for a report row, switching to the
// closing corner on the last row.
func TreePrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}
