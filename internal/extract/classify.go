package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/DeusData/codebase-index/internal/lang"
)

// Capability flags describe side effects a symbol's source appears to have.
// Detection is a regex heuristic over the symbol text.
const (
	CapNetwork    = "network"
	CapDatabase   = "database"
	CapFilesystem = "filesystem"
	CapStorage    = "storage"
	CapEnv        = "env"
)

var capabilityPatterns = []struct {
	flag string
	re   *regexp.Regexp
}{
	{CapNetwork, regexp.MustCompile(`\bfetch\s*\(|\baxios\b|\bXMLHttpRequest\b|\bWebSocket\b|\bhttps?\.(request|get)\s*\(|\bgot\s*\(|\bky\.`)},
	{CapDatabase, regexp.MustCompile(`\bprisma\.|\bknex\b|\bmongoose\b|\bsequelize\b|\bdrizzle\b|\.query\s*\(|\b(SELECT|INSERT|UPDATE|DELETE)\s+.*\b(FROM|INTO|SET)\b|\bcreatePool\s*\(`)},
	{CapFilesystem, regexp.MustCompile(`\bfs\.|\bfs/promises\b|\breadFile(Sync)?\s*\(|\bwriteFile(Sync)?\s*\(|\bcreateReadStream\s*\(|\bcreateWriteStream\s*\(`)},
	{CapStorage, regexp.MustCompile(`\blocalStorage\b|\bsessionStorage\b|\bindexedDB\b|\bS3Client\b|\bputObject\b|\bredis\b|\bcaches\.open\s*\(`)},
	{CapEnv, regexp.MustCompile(`\bprocess\.env\b|\bimport\.meta\.env\b|\bDeno\.env\b`)},
}

// detectCapabilities returns the sorted capability flags matched in src.
func detectCapabilities(src string) []string {
	var caps []string
	for _, p := range capabilityPatterns {
		if p.re.MatchString(src) {
			caps = append(caps, p.flag)
		}
	}
	sort.Strings(caps)
	return caps
}

var reTestPath = regexp.MustCompile(`(\.|_)(test|spec)\.[cm]?[jt]sx?$|(^|/)(__tests__|__mocks__|test|tests)/`)

var reConfigName = regexp.MustCompile(`(\.config|rc)\.[cm]?[jt]s$`)

func isTestPath(path string) bool {
	return reTestPath.MatchString(filepath.ToSlash(path))
}

func isPascal(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func isUpperSnake(name string) bool {
	hasLetter := false
	for _, r := range name {
		switch {
		case unicode.IsLower(r):
			return false
		case unicode.IsUpper(r):
			hasLetter = true
		case r == '_' || unicode.IsDigit(r):
		default:
			return false
		}
	}
	return hasLetter
}

func isHookName(name string) bool {
	return len(name) > 3 && strings.HasPrefix(name, "use") && unicode.IsUpper(rune(name[3]))
}

// classifySymbol assigns a coarse role tag to an export.
func classifySymbol(path string, e Export) string {
	if isTestPath(path) {
		return "test"
	}
	switch e.Kind {
	case KindReexport, KindReexportAll:
		return "reexport"
	case KindInterface, KindType, KindEnum:
		return "type"
	case KindClass:
		return "class"
	case KindMember:
		return "member"
	}
	ext := lang.Ext(path)
	jsx := ext == ".tsx" || ext == ".jsx"
	switch {
	case isHookName(e.Name):
		return "hook"
	case jsx && isPascal(e.Name) && (e.Kind == KindFunction || e.Kind == KindVariable || e.Kind == KindDefault):
		return "component"
	case e.Kind == KindVariable && isUpperSnake(e.Name):
		return "constant"
	case e.Kind == KindFunction || strings.Contains(e.Signature, "=>") || strings.Contains(e.Signature, "function"):
		return "function"
	}
	return "value"
}

// classifyFile assigns a role tag to a whole source file.
func classifyFile(path string, rec *FileRecord) string {
	base := filepath.Base(path)
	switch {
	case isTestPath(path):
		return "test"
	case lang.Ext(path) == ".d.ts":
		return "declaration"
	case reConfigName.MatchString(base):
		return "config"
	}
	if len(rec.Exports) == 0 {
		if len(rec.Imports) > 0 {
			return "script"
		}
		return "empty"
	}
	reexports, types, components := 0, 0, 0
	for _, e := range rec.Exports {
		switch {
		case e.Kind.IsReexport():
			reexports++
		case e.Classification == "type":
			types++
		case e.Classification == "component":
			components++
		}
	}
	switch {
	case reexports == len(rec.Exports):
		return "barrel"
	case types == len(rec.Exports):
		return "types"
	case components > 0:
		return "component"
	}
	return "module"
}

// summarize builds the one-line file summary.
func summarize(fileDoc string, rec *FileRecord) string {
	if fileDoc != "" {
		first, _, _ := strings.Cut(fileDoc, "\n")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	names := make([]string, 0, 4)
	for _, e := range rec.Exports {
		if e.Kind == KindReexportAll {
			continue
		}
		if len(names) == 4 {
			break
		}
		names = append(names, e.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", rec.Language, rec.Classification)
	if len(names) > 0 {
		fmt.Fprintf(&b, " exporting %s", strings.Join(names, ", "))
		if extra := countDefinitions(rec) - len(names); extra > 0 {
			fmt.Fprintf(&b, " (+%d more)", extra)
		}
	}
	if n := len(rec.Imports); n > 0 {
		fmt.Fprintf(&b, "; %d imports", n)
	}
	return b.String()
}

func countDefinitions(rec *FileRecord) int {
	n := 0
	for _, e := range rec.Exports {
		if e.Kind != KindReexportAll {
			n++
		}
	}
	return n
}
