package infra

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

var (
	reFrom       = regexp.MustCompile(`(?i)^FROM\s+(\S+)(?:\s+AS\s+(\w+))?`)
	reExpose     = regexp.MustCompile(`(?i)^EXPOSE\s+(.+)`)
	reEnv        = regexp.MustCompile(`(?i)^ENV\s+(\w+)[= ](.+)`)
	reArg        = regexp.MustCompile(`(?i)^ARG\s+(\w+)(?:=(.+))?`)
	reWorkdir    = regexp.MustCompile(`(?i)^WORKDIR\s+(.+)`)
	reCmd        = regexp.MustCompile(`(?i)^CMD\s+(.+)`)
	reEntrypoint = regexp.MustCompile(`(?i)^ENTRYPOINT\s+(.+)`)
)

// dockerfileState accumulates parsed Dockerfile directives.
type dockerfileState struct {
	images  []string
	entries []Entry
}

func (d *dockerfileState) parseLine(line string) {
	if m := reFrom.FindStringSubmatch(line); m != nil {
		d.images = append(d.images, m[1])
		key := fmt.Sprintf("stage[%d]", len(d.images)-1)
		if m[2] != "" {
			key = "stage." + m[2]
		}
		d.add(key, m[1])
		return
	}
	if m := reExpose.FindStringSubmatch(line); m != nil {
		for _, port := range strings.Fields(m[1]) {
			d.add("expose", strings.Split(port, "/")[0])
		}
		return
	}
	if m := reEnv.FindStringSubmatch(line); m != nil {
		d.add("env."+m[1], strings.Trim(strings.TrimSpace(m[2]), `"'`))
		return
	}
	if m := reArg.FindStringSubmatch(line); m != nil {
		d.add("arg."+m[1], strings.TrimSpace(m[2]))
		return
	}
	if m := reWorkdir.FindStringSubmatch(line); m != nil {
		d.add("workdir", strings.TrimSpace(m[1]))
		return
	}
	if m := reCmd.FindStringSubmatch(line); m != nil {
		d.add("cmd", cleanJSONBrackets(strings.TrimSpace(m[1])))
		return
	}
	if m := reEntrypoint.FindStringSubmatch(line); m != nil {
		d.add("entrypoint", cleanJSONBrackets(strings.TrimSpace(m[1])))
	}
}

func (d *dockerfileState) add(key, value string) {
	d.entries = append(d.entries, entry(KindDockerfile, key, value))
}

func extractDockerfile(content []byte) (*Result, error) {
	var d dockerfileState
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d.parseLine(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	summary := "Dockerfile"
	if len(d.images) > 0 {
		summary = fmt.Sprintf("Dockerfile based on %s (%d stages)", d.images[len(d.images)-1], len(d.images))
	}
	return &Result{Entries: d.entries, Summary: summary}, nil
}
