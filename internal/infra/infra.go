// Package infra extracts key/value entries from non-declaration files:
// container manifests, environment templates, TOML manifests and SQL schemas.
package infra

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Kind tags for extracted entries.
const (
	KindCompose    = "compose-service"
	KindDockerfile = "dockerfile"
	KindEnv        = "env"
	KindYAML       = "yaml"
	KindK8s        = "k8s"
	KindTOML       = "toml"
	KindSQLTable   = "sql-table"
)

// maxEntries caps how many entries a single file contributes.
const maxEntries = 500

// redacted replaces values whose key or content looks like a credential.
const redacted = "<redacted>"

// Entry is one extracted configuration fact.
type Entry struct {
	Key   string
	Value string
	Kind  string
}

// Result is what Extract produces for one file.
type Result struct {
	Entries []Entry
	Summary string
}

type extractor func(content []byte) (*Result, error)

// IsConfigFile reports whether path names a file Extract understands.
func IsConfigFile(path string) bool {
	return extractorFor(path) != nil
}

// Extract parses content according to the file name of path.
func Extract(path string, content []byte) (*Result, error) {
	fn := extractorFor(path)
	if fn == nil {
		return nil, fmt.Errorf("infra: unsupported file %s", filepath.Base(path))
	}
	res, err := fn(content)
	if err != nil {
		return nil, fmt.Errorf("infra %s: %w", filepath.Base(path), err)
	}
	if len(res.Entries) > maxEntries {
		res.Entries = res.Entries[:maxEntries]
	}
	return res, nil
}

// ignoredYAML are YAML files that are machine-generated or too large to be
// useful as configuration facts.
var ignoredYAML = map[string]bool{
	"pnpm-lock.yaml": true,
	"yarn.lock":      true,
	".yarnrc.yml":    true,
}

func extractorFor(path string) extractor {
	name := strings.ToLower(filepath.Base(path))
	ext := filepath.Ext(name)
	switch {
	case isSecretFile(name):
		return nil
	case isDockerfile(name):
		return extractDockerfile
	case isEnvFile(name):
		return extractEnv
	case isComposeFile(name):
		return extractCompose
	case ext == ".yaml" || ext == ".yml":
		if ignoredYAML[name] {
			return nil
		}
		return extractYAML
	case ext == ".toml":
		return extractTOML
	case ext == ".sql":
		return extractSQL
	}
	return nil
}

func isDockerfile(lower string) bool {
	return lower == "dockerfile" || strings.HasPrefix(lower, "dockerfile.") || strings.HasSuffix(lower, ".dockerfile")
}

func isEnvFile(lower string) bool {
	return lower == ".env" || strings.HasPrefix(lower, ".env.") || strings.HasSuffix(lower, ".env")
}

func isComposeFile(lower string) bool {
	if strings.HasPrefix(lower, "docker-compose") || strings.HasPrefix(lower, "compose.") {
		ext := filepath.Ext(lower)
		return ext == ".yml" || ext == ".yaml"
	}
	return false
}

var secretKeyPattern = regexp.MustCompile(
	`(?i)(secret|password|passwd|token|api_key|apikey|private_key|` +
		`credential|auth_token|access_key|client_secret|signing_key|` +
		`encryption_key|ssh_key|deploy_key|bearer|jwt_secret)`)

var secretValuePattern = regexp.MustCompile(
	`(?i)(-----BEGIN|AKIA[0-9A-Z]{16}|sk-[a-zA-Z0-9]{20,}|` +
		`ghp_[a-zA-Z0-9]{36}|glpat-[a-zA-Z0-9\-]{20,}|xox[bps]-[a-zA-Z0-9\-]+)`)

func isSecretFile(lower string) bool {
	for _, p := range []string{"credentials", "key.json", "key.pem", "id_rsa", "id_ed25519", ".pem", ".key"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func isSecretBinding(key, value string) bool {
	return secretKeyPattern.MatchString(key) || secretValuePattern.MatchString(value)
}

// entry builds an Entry, redacting credential-looking values but keeping the
// key so templates still document which variables exist.
func entry(kind, key, value string) Entry {
	if isSecretBinding(key, value) {
		value = redacted
	}
	return Entry{Key: key, Value: value, Kind: kind}
}

// flatten walks a decoded document and emits dotted-path leaves in key order.
func flatten(kind, prefix string, v any, out *[]Entry) {
	if len(*out) >= maxEntries {
		return
	}
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(kind, joinKey(prefix, k), val[k], out)
		}
	case []any:
		if scalars, ok := scalarList(val); ok {
			*out = append(*out, entry(kind, prefix, strings.Join(scalars, ",")))
			return
		}
		for i, item := range val {
			flatten(kind, fmt.Sprintf("%s[%d]", prefix, i), item, out)
		}
	case []map[string]any:
		for i, item := range val {
			flatten(kind, fmt.Sprintf("%s[%d]", prefix, i), item, out)
		}
	case nil:
		*out = append(*out, entry(kind, prefix, ""))
	default:
		*out = append(*out, entry(kind, prefix, fmt.Sprint(val)))
	}
}

func scalarList(items []any) ([]string, bool) {
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch it.(type) {
		case map[string]any, []any:
			return nil, false
		}
		out = append(out, fmt.Sprint(it))
	}
	return out, true
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// cleanJSONBrackets strips JSON array brackets from CMD/ENTRYPOINT values.
// e.g. ["./app", "--flag"] → ./app --flag
func cleanJSONBrackets(s string) string {
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner := s[1 : len(s)-1]
		inner = strings.ReplaceAll(inner, `"`, "")
		inner = strings.ReplaceAll(inner, ",", " ")
		return strings.Join(strings.Fields(inner), " ")
	}
	return s
}
