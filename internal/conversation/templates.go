package conversation

import (
	"embed"
	"strings"
)

//go:embed templates/*.md
var templateFS embed.FS

// Template names, one per file under templates/.
const (
	tmplSetupPreview  = "setup_preview.md"
	tmplSetupSummary  = "setup_summary.md"
	tmplSetupProblems = "setup_problems.md"
	tmplCreateGuide   = "create_guide.md"
	tmplCronHelp      = "cron_help.md"
	tmplSandboxHelp   = "sandbox_help.md"
	tmplHelp          = "help.md"
	tmplStatus        = "status.md"
)

// template returns the embedded text of name without the trailing newline.
func template(name string) string {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		panic("conversation: missing template " + name)
	}
	return strings.TrimRight(string(data), "\n")
}
