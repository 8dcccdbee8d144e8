// Package vcs derives the version-control qualifier used in store names.
package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// gitTimeout bounds every git invocation.
const gitTimeout = 10 * time.Second

// unsafeChars are replaced with '_' when a branch name becomes part of a file name.
const unsafeChars = "/\\:*?\"<>| \t"

// Qualifier returns the branch-qualified identity of the checkout at root:
// the sanitized branch name, "detached-<shortsha>" on a detached HEAD, or ""
// when root is not inside a git work tree or git is unavailable.
func Qualifier(ctx context.Context, root string) string {
	if branch, err := runGit(ctx, root, "symbolic-ref", "--quiet", "--short", "HEAD"); err == nil && branch != "" {
		return Sanitize(branch)
	}
	sha, err := runGit(ctx, root, "rev-parse", "--short", "HEAD")
	if err != nil || sha == "" {
		slog.Debug("vcs.qualifier.none", "root", root, "err", err)
		return ""
	}
	return "detached-" + Sanitize(sha)
}

// Sanitize replaces characters that are unsafe in a file name.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeChars, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
}

// runGit executes a git command in dir and returns trimmed stdout.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return "", fmt.Errorf("git not found in PATH: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, gitPath, args...)
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(output)), nil
}
