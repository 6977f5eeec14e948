package packager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
)

// IgnoreFilename lists extra ignore patterns inside a source folder.
const IgnoreFilename = ".fedmlignore"

// IgnoreMatcher decides which paths of a tree are left out of a package.
// Patterns without a separator match at any depth.
type IgnoreMatcher struct {
	matcher *patternmatcher.PatternMatcher
}

// NewIgnoreMatcher compiles patterns. Blank patterns are dropped.
func NewIgnoreMatcher(patterns []string) (*IgnoreMatcher, error) {
	compiled := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		compiled = append(compiled, anyDepth(pattern))
	}

	matcher, err := patternmatcher.New(compiled)
	if err != nil {
		return nil, fmt.Errorf("compile ignore patterns: %w", err)
	}

	return &IgnoreMatcher{matcher: matcher}, nil
}

// ReadIgnoreMatcher extends patterns with the IgnoreFilename of dir, if present.
func ReadIgnoreMatcher(dir string, patterns []string) (*IgnoreMatcher, error) {
	all := append([]string(nil), patterns...)

	file, err := os.Open(filepath.Join(dir, IgnoreFilename))

	switch {
	case err == nil:
		defer file.Close()

		filePatterns, readErr := ignorefile.ReadAll(file)
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", IgnoreFilename, readErr)
		}

		all = append(all, filePatterns...)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("open %s: %w", IgnoreFilename, err)
	}

	return NewIgnoreMatcher(all)
}

// Ignored reports whether rel, a path relative to the tree root, is excluded.
func (m *IgnoreMatcher) Ignored(rel string, isDir bool) bool {
	if m == nil || rel == "" || rel == "." {
		return false
	}

	relSlash := filepath.ToSlash(rel)
	if isDir && !strings.HasSuffix(relSlash, "/") {
		relSlash += "/"
	}

	ignored, err := m.matcher.MatchesOrParentMatches(relSlash)

	return err == nil && ignored
}

// ParseIgnoreList splits a comma separated pattern list.
func ParseIgnoreList(list string) []string {
	var patterns []string

	for _, pattern := range strings.Split(list, ",") {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			patterns = append(patterns, pattern)
		}
	}

	return patterns
}

func anyDepth(pattern string) string {
	negated := strings.HasPrefix(pattern, "!")
	body := strings.TrimPrefix(pattern, "!")

	if strings.Contains(body, "/") {
		return pattern
	}

	body = "**/" + body
	if negated {
		return "!" + body
	}

	return body
}
