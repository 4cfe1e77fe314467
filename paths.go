package ws2md

import (
	"path/filepath"
	"strings"
)

// SourceExtensions are the file extensions picked up when converting directories
var SourceExtensions = []string{".ws", ".ws3", ".ws4", ".ws5", ".ws6", ".ws7", ".wsd"}

// IsSourceFile reports whether path has a WordStar extension
func IsSourceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ResolveOutputPath determines the output path for a source file: an explicit
// output wins, a relative one is taken relative to the source directory,
// otherwise the source extension is swapped for the mode's extension
func ResolveOutputPath(wsPath, output string, mode WriteMode) string {
	if output == "" {
		return strings.TrimSuffix(wsPath, filepath.Ext(wsPath)) + mode.Ext()
	}
	if filepath.IsAbs(output) {
		return output
	}
	return filepath.Join(filepath.Dir(wsPath), output)
}

func MustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		panic(err)
	}
	return abs
}
