package store

import (
	"path/filepath"
	"strings"
)

// ProjectNameFromPath derives a stable store name from an absolute root path.
// "/home/u/src/app" becomes "home-u-src-app".
func ProjectNameFromPath(absPath string) string {
	cleaned := filepath.ToSlash(filepath.Clean(absPath))
	cleaned = strings.ReplaceAll(cleaned, ":", "")
	name := strings.Trim(strings.ReplaceAll(cleaned, "/", "-"), "-")
	if name == "" {
		return "root"
	}
	return name
}

// StoreName combines a root's project name with its version-control
// qualifier, so separate branches of one checkout keep separate indexes.
func StoreName(root, qualifier string) string {
	name := ProjectNameFromPath(root)
	if qualifier == "" {
		return name
	}
	return name + "@" + qualifier
}
