// Package texture finds, loads and previews the texture files referenced by
// BES materials.
package texture

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Extensions lists indexed texture formats in resolution priority order.
var Extensions = []string{".dds", ".tga", ".bmp", ".png", ".jpg", ".jpeg"}

// Index maps case-folded texture stems to every matching file under the
// search directories.
type Index struct {
	entries map[string][]string
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// BuildIndex walks dirs recursively. Earlier directories win ties between
// files of the same stem and extension. Missing directories are an error.
func BuildIndex(dirs ...string) (*Index, error) {
	idx := &Index{entries: make(map[string][]string)}
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := fold(filepath.Ext(path))
			if !slices.Contains(Extensions, ext) {
				return nil
			}
			stem := fold(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())))
			idx.entries[stem] = append(idx.entries[stem], path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Resolve maps a texture name as stored in a material, possibly carrying a
// Windows directory prefix, to a file. A file with the requested extension
// wins; otherwise the first format in Extensions order is used.
func (idx *Index) Resolve(name string) (string, bool) {
	name = strings.ReplaceAll(name, `\`, "/")
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return "", false
	}
	wantExt := fold(filepath.Ext(base))
	stem := fold(strings.TrimSuffix(base, filepath.Ext(base)))

	candidates := idx.entries[stem]
	if len(candidates) == 0 {
		return "", false
	}
	for _, c := range candidates {
		if fold(filepath.Ext(c)) == wantExt {
			return c, true
		}
	}
	best, bestRank := "", len(Extensions)
	for _, c := range candidates {
		if r := slices.Index(Extensions, fold(filepath.Ext(c))); r >= 0 && r < bestRank {
			best, bestRank = c, r
		}
	}
	return best, best != ""
}

// Len returns the number of distinct indexed stems.
func (idx *Index) Len() int {
	return len(idx.entries)
}
