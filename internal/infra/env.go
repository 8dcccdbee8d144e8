package infra

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/joho/godotenv"
)

func extractEnv(content []byte) (*Result, error) {
	vars, err := godotenv.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, entry(KindEnv, k, vars[k]))
	}
	return &Result{
		Entries: entries,
		Summary: fmt.Sprintf("environment template with %d variables", len(keys)),
	}, nil
}
