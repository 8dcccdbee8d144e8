package infra

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

func extractTOML(content []byte) (*Result, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(content), &doc); err != nil {
		return nil, err
	}
	var entries []Entry
	flatten(KindTOML, "", doc, &entries)

	tables := make([]string, 0)
	for k, v := range doc {
		if _, ok := v.(map[string]any); ok {
			tables = append(tables, k)
		}
	}
	sort.Strings(tables)
	summary := fmt.Sprintf("TOML manifest with %d keys", len(entries))
	if len(tables) > 0 {
		summary = "TOML manifest: " + strings.Join(tables, ", ")
	}
	return &Result{Entries: entries, Summary: summary}, nil
}
