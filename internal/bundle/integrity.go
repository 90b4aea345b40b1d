package bundle

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/jera/internal/apperr"
	"github.com/starford/jera/internal/parser"
	"github.com/starford/jera/internal/storage"
)

// Issue kinds reported by the integrity check.
const (
	IssueAbsolute = "absolute" // reference uses an absolute path
	IssueEscapes  = "escapes"  // reference resolves outside the bundle
	IssueMissing  = "missing"  // referenced file does not exist
	IssueNoEntry  = "no-entry" // bundle has no entry document
)

// Issue is a single integrity violation inside a bundle.
type Issue struct {
	Bundle string `json:"bundle"`
	Ref    string `json:"ref,omitempty"`
	Kind   string `json:"kind"`
}

// Report is the result of checking one bundle.
type Report struct {
	Bundle string  `json:"bundle"`
	Issues []Issue `json:"issues"`
}

// OK reports whether the bundle passed the check.
func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

// Check verifies a bundle's referential integrity: every reference in the
// entry document must be relative and resolve to an existing file inside
// the bundle directory. Absolute references break when the bundle moves
// and are always violations.
func Check(store storage.Provider, l Layout, dir string) (*Report, error) {
	if !IsBundleName(path.Base(dir)) {
		return nil, fmt.Errorf("bundle: %s: %w", dir, apperr.ErrNotBundle)
	}

	rep := &Report{Bundle: dir, Issues: []Issue{}}

	data, err := store.Read(l.EntryPath(dir))
	if err != nil {
		rep.Issues = append(rep.Issues, Issue{Bundle: dir, Kind: IssueNoEntry})
		return rep, nil
	}

	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}

	for _, ref := range res.AssetRefs {
		switch {
		case ref.Absolute:
			rep.Issues = append(rep.Issues, Issue{Bundle: dir, Ref: ref.Path, Kind: IssueAbsolute})
		default:
			resolved := path.Join(dir, ref.Path)
			if !strings.HasPrefix(resolved, dir+"/") {
				rep.Issues = append(rep.Issues, Issue{Bundle: dir, Ref: ref.Path, Kind: IssueEscapes})
				continue
			}
			if !store.Exists(resolved) {
				rep.Issues = append(rep.Issues, Issue{Bundle: dir, Ref: ref.Path, Kind: IssueMissing})
			}
		}
	}
	return rep, nil
}

// CheckAll runs Check over every bundle directory under the content root
// and returns one report per bundle, in directory order. Directories that
// do not follow the naming convention are skipped.
func CheckAll(store storage.Provider, l Layout) ([]*Report, error) {
	dirs, err := store.ListDirs()
	if err != nil {
		return nil, err
	}
	var out []*Report
	for _, d := range dirs {
		if !IsBundleName(d) {
			continue
		}
		rep, err := Check(store, l, d)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}
