// Package report turns run results into the reader-facing artifacts: key
// insight extraction and the run summary document that accompanies the main
// report.
package report

import (
	"fmt"
	"strings"

	"github.com/nevscope/nevscope/pkg/models"
)

// maxInsights caps how many insights a single role contributes.
const maxInsights = 5

// sectionTitles maps the built-in roles to their display names in summaries.
var sectionTitles = map[string]string{
	"macro":    "Macroeconomic Environment",
	"finance":  "Industry Financial Performance",
	"market":   "Market Production and Sales Trends",
	"policy":   "Policy and Environmental Impact",
	"forecast": "Forecast and Outlook",
}

// ExtractKeyInsights pulls up to five short insights from a role's parsed
// result. A key_insights list is used verbatim when present; otherwise the
// leading sentences of the role's summary fields are taken.
func ExtractKeyInsights(role string, content map[string]any) []string {
	var insights []string

	if list, ok := content["key_insights"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				insights = append(insights, s)
			}
		}
	}

	if len(insights) == 0 {
		for _, field := range []string{"summary", role + "_summary"} {
			text, ok := content[field].(string)
			if !ok || text == "" {
				continue
			}
			insights = append(insights, leadingSentences(text, 3)...)
			break
		}
	}

	if len(insights) == 0 {
		for _, value := range content {
			text, ok := value.(string)
			if !ok || len(text) < 50 {
				continue
			}
			insights = append(insights, leadingSentences(text, 2)...)
			if len(insights) >= 3 {
				break
			}
		}
	}

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

// leadingSentences splits text into sentences and returns the first n that
// carry enough substance to stand alone.
func leadingSentences(text string, n int) []string {
	var out []string
	for _, sentence := range splitSentences(text) {
		if len(out) >= n {
			break
		}
		sentence = strings.TrimSpace(sentence)
		if len(sentence) > 10 {
			out = append(out, sentence+".")
		}
	}
	return out
}

// splitSentences breaks text on sentence-ending punctuation, handling both
// ASCII and CJK full stops.
func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '!', '?', '。', '！', '？':
			return true
		default:
			return false
		}
	})
}

// Summary builds the Markdown digest of a run: key insights per role in the
// given order, plus a note for roles without results.
func Summary(summary *models.RunSummary) string {
	var b strings.Builder
	b.WriteString("# New Energy Vehicle Industry Analysis Summary\n\n")
	fmt.Fprintf(&b, "Run: %s\nStatus: %s\nDuration: %s\n\n", summary.RunID, summary.Status, summary.Duration.Round(1e6))

	results := make(map[string]*models.AgentResult)
	if summary.Report != nil {
		for i := range summary.Report.BuiltFrom {
			r := &summary.Report.BuiltFrom[i]
			results[r.Role] = r
		}
	}
	for i := range summary.Results {
		r := &summary.Results[i]
		results[r.Role] = r
	}

	for _, rs := range summary.Roles {
		title := sectionTitles[rs.Role]
		if title == "" {
			title = rs.Role
		}
		fmt.Fprintf(&b, "## %s\n\n", title)

		result := results[rs.Role]
		if result == nil {
			fmt.Fprintf(&b, "No result (%s).\n\n", rs.State)
			continue
		}
		insights := ExtractKeyInsights(rs.Role, result.Content)
		if len(insights) == 0 {
			b.WriteString("No key insights extracted.\n\n")
			continue
		}
		for _, insight := range insights {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
		b.WriteString("\n")
	}

	if len(summary.Failures) > 0 {
		b.WriteString("## Issues\n\n")
		for _, f := range summary.Failures {
			fmt.Fprintf(&b, "- %s (%s): %s\n", f.Role, f.Class, f.Message)
		}
		b.WriteString("\n")
	}

	return b.String()
}
