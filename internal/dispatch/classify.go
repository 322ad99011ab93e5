package dispatch

import (
	"fmt"
	"strings"

	"github.com/clawdesk/clawdesk/internal/timeline"
)

// Category is the kind of externally visible action an agent performs.
type Category string

const (
	CategoryTrending Category = "trending"
	CategoryHashtag  Category = "hashtag"
	CategoryGeneric  Category = "generic"
)

// Approval action types, one per category.
const (
	ActionSocialPost       = "social_post"
	ActionSocialEngagement = "social_engagement"
	ActionBrowser          = "browser_action"
)

// Classify maps free text to a category. Trending wins over hashtag.
func Classify(text string) Category {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "trend"):
		return CategoryTrending
	case strings.Contains(lower, "hashtag"), strings.Contains(lower, "#"):
		return CategoryHashtag
	default:
		return CategoryGeneric
	}
}

// ActionType returns the approval action type for c.
func (c Category) ActionType() string {
	switch c {
	case CategoryTrending:
		return ActionSocialPost
	case CategoryHashtag:
		return ActionSocialEngagement
	}
	return ActionBrowser
}

// Preview is the text stored on the approval item. It carries the category
// keyword so the item can be reclassified when it is resolved.
func Preview(a *timeline.Agent, c Category) string {
	switch c {
	case CategoryTrending:
		return fmt.Sprintf("%s wants to publish a trending topics summary post. Goal: %s", a.Name, a.Goal)
	case CategoryHashtag:
		return fmt.Sprintf("%s wants to reply to posts under your hashtags. Goal: %s", a.Name, a.Goal)
	}
	return fmt.Sprintf("%s wants to perform a browser action. Goal: %s", a.Name, a.Goal)
}

// SandboxReport is the dry-run output for a sandboxed agent.
func SandboxReport(a *timeline.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[SANDBOX] Dry run of %s\n\n", a.Name)
	fmt.Fprintf(&b, "Goal: %s\n", orNone(a.Goal))
	if len(a.Tools) > 0 {
		fmt.Fprintf(&b, "Would use: %s\n", strings.Join(a.Tools, ", "))
	}
	b.WriteString("\nNo real action taken.")
	return b.String()
}

// AutoReport is the output of an agent that runs without approval.
func AutoReport(a *timeline.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Executed %s\n\n", a.Name)
	fmt.Fprintf(&b, "Role: %s\nGoal: %s\n\n", orNone(a.Role), orNone(a.Goal))
	b.WriteString("Steps:\n")
	for i, step := range autoSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	b.WriteString("\nStatus: completed")
	return b.String()
}

var autoSteps = []string{
	"Loaded agent configuration",
	"Gathered input data",
	"Processed task against goal",
	"Stored results",
}

// ExecutionReport is the simulated output of an approved action.
func ExecutionReport(c Category, preview string) string {
	var b strings.Builder
	switch c {
	case CategoryTrending:
		b.WriteString("Trending topics summary posted\n\n")
		b.WriteString("Top topics:\n1. #AIAgents (+320% mentions)\n2. #OpenSource (+140%)\n3. #DevTools (+85%)\n\n")
		b.WriteString("Summary post published to your timeline.")
	case CategoryHashtag:
		b.WriteString("Hashtag engagement completed\n\n")
		b.WriteString("Replied to 5 posts, liked 12 posts, followed 3 accounts.\n\n")
		b.WriteString("All replies used your approved tone.")
	default:
		b.WriteString("Browser action completed\n\n")
		b.WriteString("The approved action ran and its results were recorded.")
	}
	if preview != "" {
		fmt.Fprintf(&b, "\n\nApproved action: %s", preview)
	}
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
