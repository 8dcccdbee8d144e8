package resolve

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// Reason classifies the outcome of resolving one specifier.
type Reason string

const (
	ReasonResolved           Reason = "resolved"
	ReasonFileMissing        Reason = "file_missing"
	ReasonAliasTargetMissing Reason = "alias_target_missing"
	ReasonNoProjectConfig    Reason = "no_project_config"
	ReasonExternalPackage    Reason = "external_package"
)

// Diagnosis explains why a specifier did or did not resolve.
type Diagnosis struct {
	Specifier string `json:"specifier"`
	Importer  string `json:"importer"`
	Reason    Reason `json:"reason"`
	Resolved  string `json:"resolved,omitempty"`
	Config    string `json:"config,omitempty"`
	Alias     string `json:"alias,omitempty"`
	Detail    string `json:"detail"`
}

var rePackageName = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9][a-z0-9-._~]*(/.*)?$`)

// Diagnose classifies the resolution of specifier. It never changes what
// Resolve returns.
func (s *Session) Diagnose(specifier, importingFile, repoRoot string) Diagnosis {
	d := Diagnosis{Specifier: specifier, Importer: importingFile}
	if p, ok := s.Resolve(specifier, importingFile, repoRoot); ok {
		d.Reason, d.Resolved = ReasonResolved, p
		d.Detail = "resolved to " + p
		return d
	}

	dir := filepath.Dir(importingFile)
	if isRelative(specifier) {
		d.Reason = ReasonFileMissing
		d.Detail = fmt.Sprintf("no file or index for %s", joinSpecifier(dir, specifier))
		return d
	}

	pc := s.contextFor(dir, repoRoot)
	if pc != nil {
		d.Config = pc.configFile
		if pattern, ok := pc.matchingAlias(specifier); ok {
			d.Reason, d.Alias = ReasonAliasTargetMissing, pattern
			d.Detail = fmt.Sprintf("alias %q matched but no target file exists", pattern)
			return d
		}
	}

	if p, sub, ok := s.lookupPackage(specifier, dir, repoRoot); ok {
		d.Reason = ReasonFileMissing
		if sub == "" {
			d.Detail = fmt.Sprintf("package %s at %s has no resolvable entry point", p.name, p.dir)
		} else {
			d.Detail = fmt.Sprintf("package %s has no file for subpath %s", p.name, sub)
		}
		return d
	}

	switch {
	case rePackageName.MatchString(specifier) || isNodeBuiltin(specifier):
		d.Reason = ReasonExternalPackage
		d.Detail = "bare specifier not provided by the workspace; treated as an external dependency"
	case pc == nil:
		d.Reason = ReasonNoProjectConfig
		d.Detail = "no tsconfig.json or jsconfig.json between the importer and the repository root"
	case pc.baseURL == "":
		d.Reason = ReasonNoProjectConfig
		d.Detail = fmt.Sprintf("%s declares neither baseUrl nor paths", pc.configFile)
	default:
		d.Reason = ReasonFileMissing
		d.Detail = fmt.Sprintf("no file under base directory %s", pc.baseURL)
	}
	return d
}

func isNodeBuiltin(spec string) bool {
	return len(spec) > 5 && spec[:5] == "node:"
}
