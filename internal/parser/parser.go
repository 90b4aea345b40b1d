// Package parser extracts frontmatter, asset references, and tags from
// entry documents.
package parser

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/jera/internal/models"
)

var (
	// Matches ![alt](target) and [text](target), with an optional quoted title.
	refRe = regexp.MustCompile(`(!?)\[[^\]]*\]\(\s*([^)\s]+)(?:\s+"[^"]*")?\s*\)`)
	tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Result holds the output of parsing an entry document.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	Date        string
	Draft       bool
	Tags        []string
	AssetRefs   []models.AssetRef
}

// Parse extracts frontmatter, body, metadata, and asset references from
// raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Date:        deriveDate(fm),
		Draft:       deriveDraft(fm),
		Tags:        extractTags(body, fm),
		AssetRefs:   ExtractRefs(body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	// Find end delimiter.
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter — treat everything as body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	// Body starts after closing delimiter line.
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML — fall back to treating everything as body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// ExtractRefs returns every image and local link reference found in body,
// in document order, deduplicated by target path. External URLs, anchors,
// and mailto links are skipped; absolute filesystem paths are kept and
// marked so the integrity check can flag them.
func ExtractRefs(body string) []models.AssetRef {
	matches := refRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []models.AssetRef
	for _, m := range matches {
		image := m[1] == "!"
		target := strings.TrimSpace(m[2])
		if target == "" {
			continue
		}
		if strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:") || strings.HasPrefix(target, "#") {
			continue
		}
		// Strip any fragment from local references.
		if i := strings.Index(target, "#"); i >= 0 {
			target = target[:i]
			if target == "" {
				continue
			}
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, models.AssetRef{
			Path:     target,
			Image:    image,
			Absolute: strings.HasPrefix(target, "/"),
		})
	}
	return out
}

// extractTags collects #tags from body and from the frontmatter "tags" field.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string

	// Tags from frontmatter.
	if fm != nil {
		if raw, ok := fm["tags"]; ok {
			switch v := raw.(type) {
			case []interface{}:
				for _, item := range v {
					if s, ok := item.(string); ok {
						s = strings.TrimSpace(s)
						if s != "" {
							if _, dup := seen[s]; !dup {
								seen[s] = struct{}{}
								out = append(out, s)
							}
						}
					}
				}
			}
		}
	}

	// Inline #tags from body.
	matches := tagRe.FindAllStringSubmatch(body, -1)
	for _, m := range matches {
		t := m[1]
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// deriveDate returns the frontmatter "date" normalised to YYYY-MM-DD.
// yaml.v3 decodes timestamp-shaped values into time.Time in untyped mode,
// so both representations are handled.
func deriveDate(fm map[string]interface{}) string {
	if fm == nil {
		return ""
	}
	switch v := fm["date"].(type) {
	case string:
		s := strings.TrimSpace(v)
		if len(s) >= 10 {
			if _, err := time.Parse("2006-01-02", s[:10]); err == nil {
				return s[:10]
			}
		}
		return s
	case time.Time:
		return v.Format("2006-01-02")
	}
	return ""
}

// deriveDraft returns the frontmatter "draft" flag, defaulting to false.
func deriveDraft(fm map[string]interface{}) bool {
	if fm == nil {
		return false
	}
	if d, ok := fm["draft"].(bool); ok {
		return d
	}
	return false
}
