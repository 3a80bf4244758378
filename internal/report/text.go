package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"

	"github.com/micahrl/cobsync/internal/converge"
	"github.com/micahrl/cobsync/internal/resource"
)

var (
	green  = lipgloss.Color("76")
	yellow = lipgloss.Color("214")
	purple = lipgloss.Color("99")
	dim    = lipgloss.Color("243")
)

var (
	accentStyle  = lipgloss.NewStyle().Foreground(purple)
	successStyle = lipgloss.NewStyle().Foreground(green)
	warnStyle    = lipgloss.NewStyle().Foreground(yellow)
	mutedStyle   = lipgloss.NewStyle().Foreground(dim)
)

// Text renders a result for people: a status line, the resulting properties
// (or one line per item of a listing), warnings, and the diff if requested.
func Text(res *converge.Result) string {
	var b strings.Builder

	if res.State == converge.StateQuery && res.Name == "" {
		fmt.Fprintf(&b, "%s %d %s\n", accentStyle.Render("●"), len(res.Collection), res.Kind.Plural())
		for _, item := range res.Collection {
			name, _ := item["name"].(string)
			fmt.Fprintf(&b, "  %s\n", name)
		}
		return b.String()
	}

	b.WriteString(statusLine(res))
	b.WriteString("\n")
	b.WriteString(identity("  ", res.Resource))
	b.WriteString(keyValues("  ", res.After, identityKeys))

	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "%s %s\n", warnStyle.Render("!"), w)
	}

	if res.Diff != nil {
		if d := DiffText(res.Diff.Before, res.Diff.After); d != "" {
			b.WriteString(mutedStyle.Render("diff (-before +after):"))
			b.WriteString("\n")
			b.WriteString(d)
		}
	}
	return b.String()
}

func statusLine(res *converge.Result) string {
	name := res.Name
	if res.Resource != nil && res.Resource.Name != "" {
		name = res.Resource.Name
	}
	subject := fmt.Sprintf("%s %s", res.Kind, accentStyle.Render(name))
	if res.State == converge.StateQuery {
		if res.After == nil {
			return mutedStyle.Render("-") + " " + subject + " not found"
		}
		return accentStyle.Render("●") + " " + subject
	}

	var verb string
	switch {
	case !res.Changed:
		return successStyle.Render("✓") + " " + subject + " " + mutedStyle.Render("unchanged")
	case res.Plan != nil && res.Plan.Create:
		verb = "created"
	case res.Plan != nil && res.Plan.Remove:
		verb = "removed"
	default:
		verb = "updated"
	}
	line := successStyle.Render("✓") + " " + subject + " " + verb
	if res.DryRun {
		line = warnStyle.Render("~") + " " + subject + " would be " + verb + " " + mutedStyle.Render("(dry run)")
	}
	if res.Synced {
		line += ", synced"
	}
	return line
}

// identityKeys are rendered by identity rather than with the other properties.
var identityKeys = map[string]bool{"name": true, "uid": true, "owners": true, "comment": true}

// identity renders the fields every Cobbler item carries.
func identity(indent string, r *resource.Resource) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	if r.UID != "" {
		fmt.Fprintf(&b, "%s%s\n", indent, mutedStyle.Render("uid "+r.UID))
	}
	if len(r.Owners) > 0 {
		fmt.Fprintf(&b, "%sowned by %s\n", indent, strings.Join(r.Owners, ", "))
	}
	if r.Comment != "" {
		fmt.Fprintf(&b, "%s%s\n", indent, mutedStyle.Render("# "+r.Comment))
	}
	return b.String()
}

func keyValues(indent string, props resource.Properties, skip map[string]bool) string {
	var keys []string
	for _, k := range props.Keys() {
		if !skip[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}
	var b strings.Builder
	for _, k := range keys {
		label := mutedStyle.Render(k + ":")
		pad := strings.Repeat(" ", width-len(k)+1)
		fmt.Fprintf(&b, "%s%s%s%s\n", indent, label, pad, formatValue(props[k]))
	}
	return b.String()
}

func formatValue(v any) string {
	switch t := resource.Normalize(v).(type) {
	case nil:
		return ""
	case map[string]any:
		return resource.FlattenOptions(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(t)
	}
}

// DiffText returns a human-readable diff between two snapshots, or "" when
// they are equal.
func DiffText(before, after resource.Properties) string {
	return cmp.Diff(normalized(before), normalized(after))
}

func normalized(p resource.Properties) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = resource.Normalize(v)
	}
	return out
}
