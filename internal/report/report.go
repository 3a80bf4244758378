package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/micahrl/cobsync/internal/converge"
	"github.com/micahrl/cobsync/internal/resource"
)

// Format selects how a result is written.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// ParseFormat returns the Format named by s.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatYAML, FormatText:
		return Format(s), nil
	}
	return "", fmt.Errorf("invalid output format %q (want json, yaml or text)", s)
}

// Record builds the result document: changed, the resource under its kind
// ("distro") or the listing under the plural ("distros"), elapsed seconds,
// and optionally diff, warnings and dry_run.
func Record(res *converge.Result) map[string]any {
	rec := map[string]any{
		"changed": res.Changed,
		"elapsed": int(res.Elapsed.Seconds()),
	}

	if res.State == converge.StateQuery && res.Name == "" {
		items := res.Collection
		if items == nil {
			items = []resource.Properties{}
		}
		rec[res.Kind.Plural()] = items
	} else {
		rec[res.Kind.String()] = orEmpty(res.After)
	}

	if res.Diff != nil {
		rec["diff"] = map[string]any{
			"before": orEmpty(res.Diff.Before),
			"after":  orEmpty(res.Diff.After),
		}
	}
	if len(res.Warnings) > 0 {
		rec["warnings"] = res.Warnings
	}
	if res.DryRun {
		rec["dry_run"] = true
	}
	return rec
}

func orEmpty(p resource.Properties) resource.Properties {
	if p == nil {
		return resource.Properties{}
	}
	return p
}

// Write renders res to w in the given format.
func Write(w io.Writer, format Format, res *converge.Result) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Record(res)); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		_, err := io.WriteString(w, Text(res))
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Record(res))
	}
}
