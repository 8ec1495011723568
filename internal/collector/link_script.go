package collector

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
)

var _ LinkCollector = (*ScriptLinkCollector)(nil)

var (
	// assignmentRegexp matches string literals assigned to navigation targets, such as `location.href = "..."`.
	assignmentRegexp = regexp.MustCompile(`(?:href|src|action|location\s*\.\s*(?:assign|replace))\s*=\s*['"]([^'"]*)['"]`)
	// callRegexp matches string literals passed to navigation calls, such as `window.open("...")`.
	callRegexp = regexp.MustCompile(`(?:location\s*\.\s*(?:assign|replace)|window\s*\.\s*open)\s*\(\s*['"]([^'"]+)['"]`)
	// literalRegexp matches quoted absolute http urls.
	literalRegexp = regexp.MustCompile(`['"](https?://[^'"\s]+)['"]`)
)

// ScriptLinkCollector is a collector that collects url literals from a reader of a script.
//
//	c := NewScriptLinkCollector()
//	links, err := c.GetLinks(r)
//	if err != nil {
//		return nil, err
//	}
//
//	fmt.Println(links)
type ScriptLinkCollector struct{}

// GetLinks collects url literals from a reader of a script. A literal matched by several patterns is reported once per
// line.
func (t ScriptLinkCollector) GetLinks(r io.Reader) ([]Link, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 4*1024*1024)

	links := make([]Link, 0, initialLinksCapacity)

	for s.Scan() {
		seen := make(map[string]struct{})

		for _, re := range []*regexp.Regexp{assignmentRegexp, callRegexp, literalRegexp} {
			for _, m := range re.FindAllStringSubmatch(s.Text(), -1) {
				if m[1] == "" {
					continue
				}

				if _, ok := seen[m[1]]; ok {
					continue
				}

				seen[m[1]] = struct{}{}
				links = append(links, Link{URL: m[1]})
			}
		}
	}

	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("could not collect links from script: %w", err)
	}

	// Reduce memory allocation. GC will clean up the old links slice.
	result := make([]Link, len(links))
	copy(result, links)

	return result, nil
}

// NewScriptLinkCollector creates a new collector for collecting url literals from a script.
func NewScriptLinkCollector() *ScriptLinkCollector {
	return &ScriptLinkCollector{}
}
