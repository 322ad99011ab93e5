package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, color.CyanString(logo))
	if title != "" {
		fmt.Fprintln(w, title)
		fmt.Fprintln(w, strings.Repeat("─", 21))
	}
}

func printCheck(w io.Writer, ok bool, label, detail string) {
	mark := color.GreenString("✓")
	if !ok {
		mark = color.RedString("✗")
	}
	fmt.Fprintf(w, "%-10s %s %s\n", label+":", mark, detail)
}

// truncate shortens s to n runes for table output.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
