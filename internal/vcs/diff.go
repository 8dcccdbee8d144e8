package vcs

import (
	"bufio"
	"context"
	"path/filepath"
	"strings"
)

// DiffScope selects which changes ChangedFiles reports.
type DiffScope string

const (
	DiffUnstaged DiffScope = "unstaged"
	DiffStaged   DiffScope = "staged"
	DiffAll      DiffScope = "all"
	DiffBranch   DiffScope = "branch"
)

// ChangedFile is one entry of git diff --name-status, with absolute paths.
type ChangedFile struct {
	Status  string `json:"status"` // M, A, D or R
	Path    string `json:"path"`
	OldPath string `json:"old_path,omitempty"`
}

func diffArgs(scope DiffScope, base string) []string {
	args := []string{"diff", "--name-status"}
	switch scope {
	case DiffStaged:
		return append(args, "--cached")
	case DiffUnstaged:
		return args
	case DiffBranch:
		if base == "" {
			base = "main"
		}
		return append(args, base+"...HEAD")
	default:
		return append(args, "HEAD")
	}
}

// ChangedFiles lists files changed in the work tree at root. The default
// scope compares the work tree against HEAD.
func ChangedFiles(ctx context.Context, root string, scope DiffScope, base string) ([]ChangedFile, error) {
	top, err := runGit(ctx, root, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	out, err := runGit(ctx, root, diffArgs(scope, base)...)
	if err != nil {
		return nil, err
	}
	return ParseNameStatus(top, out), nil
}

// ParseNameStatus parses git diff --name-status output, joining paths to top.
func ParseNameStatus(top, output string) []ChangedFile {
	var files []ChangedFile
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		parts := strings.Split(sc.Text(), "\t")
		if len(parts) < 2 || parts[0] == "" {
			continue
		}
		cf := ChangedFile{Status: parts[0][:1], Path: filepath.Join(top, filepath.FromSlash(parts[1]))}
		if cf.Status == "R" && len(parts) >= 3 {
			cf.OldPath = cf.Path
			cf.Path = filepath.Join(top, filepath.FromSlash(parts[2]))
		}
		files = append(files, cf)
	}
	return files
}
