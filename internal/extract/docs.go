package extract

import (
	"bytes"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// docFor extracts the documentation comment directly above n.
func (fx *fileExtractor) docFor(n *tree_sitter.Node) string {
	return extractCommentDocstring(fx.src, int(n.StartPosition().Row))
}

// extractCommentDocstring scans backwards from the line above row (0-based)
// for a block comment or a run of // comments.
func extractCommentDocstring(source []byte, row int) string {
	lines := bytes.Split(source, []byte("\n"))
	if row <= 0 || row > len(lines) {
		return ""
	}

	lineIdx := row - 1
	trimmed := strings.TrimSpace(string(lines[lineIdx]))
	if trimmed == "" {
		return ""
	}

	if strings.HasSuffix(trimmed, "*/") {
		return extractBlockComment(lines, lineIdx)
	}
	if strings.HasPrefix(trimmed, "//") {
		return extractLineComments(lines, lineIdx, "//")
	}
	return ""
}

// extractBlockComment scans backwards from endLineIdx to find the start of a /* or /** block.
func extractBlockComment(lines [][]byte, endLineIdx int) string {
	startIdx := endLineIdx
	for startIdx >= 0 {
		line := strings.TrimSpace(string(lines[startIdx]))
		if strings.HasPrefix(line, "/*") {
			break
		}
		startIdx--
	}
	if startIdx < 0 {
		return ""
	}

	var result []string
	for i := startIdx; i <= endLineIdx; i++ {
		result = append(result, string(lines[i]))
	}
	return cleanBlockComment(strings.Join(result, "\n"))
}

// cleanBlockComment strips /** ... */ delimiters and leading * prefixes.
func cleanBlockComment(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "/**") {
		s = s[3:]
	} else if strings.HasPrefix(s, "/*") {
		s = s[2:]
	}
	s = strings.TrimSuffix(s, "*/")

	lines := strings.Split(s, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimPrefix(line, "*")
		cleaned = append(cleaned, line)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// extractLineComments collects consecutive line comments ending at startIdx.
func extractLineComments(lines [][]byte, startIdx int, prefix string) string {
	var commentLines []string
	idx := startIdx
	for idx >= 0 {
		trimmed := strings.TrimSpace(string(lines[idx]))
		if !strings.HasPrefix(trimmed, prefix) {
			break
		}
		content := strings.TrimPrefix(trimmed, prefix)
		content = strings.TrimPrefix(content, " ")
		commentLines = append(commentLines, content)
		idx--
	}
	for i, j := 0, len(commentLines)-1; i < j; i, j = i+1, j-1 {
		commentLines[i], commentLines[j] = commentLines[j], commentLines[i]
	}
	return strings.TrimSpace(strings.Join(commentLines, "\n"))
}

// leadingFileDoc returns a file-level comment: the first comment in the
// file when a blank line separates it from the first statement.
func leadingFileDoc(root *tree_sitter.Node, src []byte) string {
	if root == nil || root.NamedChildCount() == 0 {
		return ""
	}
	first := root.NamedChild(0)
	if first == nil || first.Kind() != "comment" {
		return ""
	}
	text := string(src[first.StartByte():first.EndByte()])
	if strings.HasPrefix(text, "#!") {
		return ""
	}
	if root.NamedChildCount() > 1 {
		next := root.NamedChild(1)
		if next != nil && next.StartPosition().Row <= first.EndPosition().Row+1 {
			return ""
		}
	}
	if strings.HasPrefix(text, "//") {
		return strings.TrimSpace(strings.TrimPrefix(text, "//"))
	}
	return cleanBlockComment(text)
}
