package infra

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// composeFile represents the top-level structure of a docker-compose file.
type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Build       any      `yaml:"build"`
	Image       string   `yaml:"image"`
	Ports       []string `yaml:"ports"`
	Environment any      `yaml:"environment"`
	DependsOn   any      `yaml:"depends_on"`
	Volumes     []string `yaml:"volumes"`
	Command     any      `yaml:"command"`
}

func extractCompose(content []byte) (*Result, error) {
	var cf composeFile
	if err := yaml.Unmarshal(content, &cf); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cf.Services))
	for name := range cf.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	var entries []Entry
	for _, name := range names {
		svc := cf.Services[name]
		prefix := "services." + name
		if svc.Image != "" {
			entries = append(entries, entry(KindCompose, prefix+".image", svc.Image))
		}
		if bc := buildContext(svc.Build); bc != "" {
			entries = append(entries, entry(KindCompose, prefix+".build", bc))
		}
		if len(svc.Ports) > 0 {
			entries = append(entries, entry(KindCompose, prefix+".ports", strings.Join(svc.Ports, ",")))
		}
		if len(svc.Volumes) > 0 {
			entries = append(entries, entry(KindCompose, prefix+".volumes", strings.Join(svc.Volumes, ",")))
		}
		if deps := namesOf(svc.DependsOn); len(deps) > 0 {
			entries = append(entries, entry(KindCompose, prefix+".depends_on", strings.Join(deps, ",")))
		}
		env := composeEnvironment(svc.Environment)
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			entries = append(entries, entry(KindCompose, prefix+".environment."+k, env[k]))
		}
	}
	return &Result{
		Entries: entries,
		Summary: fmt.Sprintf("docker compose file with %d services", len(names)),
	}, nil
}

// buildContext extracts the build context from string or map form.
func buildContext(build any) string {
	switch v := build.(type) {
	case string:
		return v
	case map[string]any:
		if ctx, ok := v["context"].(string); ok {
			return ctx
		}
	}
	return ""
}

// composeEnvironment handles both map and list formats for environment.
func composeEnvironment(env any) map[string]string {
	result := make(map[string]string)
	switch v := env.(type) {
	case map[string]any:
		for k, val := range v {
			if val == nil {
				result[k] = ""
				continue
			}
			result[k] = fmt.Sprint(val)
		}
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				continue
			}
			k, val, _ := strings.Cut(s, "=")
			result[k] = val
		}
	}
	return result
}

// namesOf handles both list and map formats for depends_on.
func namesOf(v any) []string {
	var result []string
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
	case map[string]any:
		for name := range val {
			result = append(result, name)
		}
		sort.Strings(result)
	}
	return result
}

// extractYAML handles multi-document YAML. Kubernetes-style documents are
// keyed by kind/name; anything else is flattened into dotted keys.
func extractYAML(content []byte) (*Result, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	var entries []Entry
	var kinds []string
	docs := 0
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		docs++
		kind, _ := doc["kind"].(string)
		_, hasAPI := doc["apiVersion"].(string)
		if kind != "" && hasAPI {
			name := ""
			if md, ok := doc["metadata"].(map[string]any); ok {
				name, _ = md["name"].(string)
			}
			kinds = append(kinds, kind)
			flatten(KindK8s, kind+"/"+name, doc, &entries)
			continue
		}
		flatten(KindYAML, "", doc, &entries)
	}
	summary := fmt.Sprintf("YAML configuration with %d documents", docs)
	if len(kinds) > 0 {
		summary = "Kubernetes manifest: " + strings.Join(kinds, ", ")
	}
	return &Result{Entries: entries, Summary: summary}, nil
}
