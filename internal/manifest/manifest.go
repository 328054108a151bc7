package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Requirement is a single dependency specifier from the manifest.
type Requirement struct {
	// Name is the distribution name without extras or constraints.
	Name string
	// Extras lists optional feature names from the bracketed segment.
	Extras []string
	// Constraint is the version constraint portion ("==1.2.3", ">=2,<3"), if any.
	Constraint string
	// Marker is the environment marker after ";", if any.
	Marker string
	// Raw is the original line with surrounding whitespace removed.
	Raw string
}

// constraint operators in the order they may start a constraint segment.
//
//nolint:gochecknoglobals // Fixed lookup table.
var constraintOperators = []string{"===", "==", "~=", "!=", ">=", "<=", ">", "<"}

// Load reads and parses the manifest at path.
func Load(path string) ([]Requirement, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	return Parse(file)
}

// Parse reads requirement specifiers, one per line.
// Comments and blank lines are skipped; option lines ("-r other.txt",
// "--index-url ...") are skipped as well since the installer interprets them.
func Parse(r io.Reader) ([]Requirement, error) {
	var requirements []Requirement

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}

		// Trailing comment.
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}

		requirements = append(requirements, parseLine(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return requirements, nil
}

// Names returns the distribution names of the provided requirements.
func Names(requirements []Requirement) []string {
	names := make([]string, 0, len(requirements))
	for _, requirement := range requirements {
		names = append(names, requirement.Name)
	}

	return names
}

// parseLine splits a specifier into name, extras, constraint and marker.
func parseLine(line string) Requirement {
	requirement := Requirement{Raw: line}

	rest := line
	if i := strings.Index(rest, ";"); i >= 0 {
		requirement.Marker = strings.TrimSpace(rest[i+1:])
		rest = strings.TrimSpace(rest[:i])
	}

	if i := constraintIndex(rest); i >= 0 {
		requirement.Constraint = strings.TrimSpace(rest[i:])
		rest = strings.TrimSpace(rest[:i])
	}

	if open := strings.Index(rest, "["); open >= 0 {
		if closing := strings.Index(rest, "]"); closing > open {
			for _, extra := range strings.Split(rest[open+1:closing], ",") {
				if extra = strings.TrimSpace(extra); extra != "" {
					requirement.Extras = append(requirement.Extras, extra)
				}
			}
		}

		rest = rest[:open]
	}

	requirement.Name = strings.TrimSpace(rest)

	return requirement
}

// constraintIndex returns the position where the version constraint starts, or -1.
func constraintIndex(s string) int {
	result := -1

	for _, operator := range constraintOperators {
		if i := strings.Index(s, operator); i >= 0 && (result < 0 || i < result) {
			result = i
		}
	}

	return result
}
