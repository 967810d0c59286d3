package model

import (
	"fmt"
	"os"
	"strings"
)

// LabelMap maps an output-vector index to its letter.
type LabelMap struct {
	labels []string
}

// DefaultLabels is the static sign alphabet. J and Z are gestures with
// motion and have no class.
func DefaultLabels() LabelMap {
	return LabelMap{labels: []string{
		"A", "B", "C", "D", "E", "F", "G", "H", "I", "K", "L", "M",
		"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y",
	}}
}

func NewLabelMap(labels []string) (LabelMap, error) {
	if len(labels) == 0 {
		return LabelMap{}, fmt.Errorf("label map is empty")
	}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			return LabelMap{}, fmt.Errorf("duplicate label %q", l)
		}
		seen[l] = struct{}{}
	}
	return LabelMap{labels: append([]string(nil), labels...)}, nil
}

// LoadLabels reads one label per line; blank lines are skipped.
func LoadLabels(path string) (LabelMap, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return LabelMap{}, fmt.Errorf("failed to read labels: %w", err)
	}
	return NewLabelMap(lines)
}

func (m LabelMap) Len() int {
	return len(m.labels)
}

func (m LabelMap) At(index int) (string, error) {
	if index < 0 || index >= len(m.labels) {
		return "", fmt.Errorf("%w: %d not in [0,%d)", ErrLabelIndex, index, len(m.labels))
	}
	return m.labels[index], nil
}

func (m LabelMap) Labels() []string {
	return append([]string(nil), m.labels...)
}

func ReadLines(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(b), "\n")
	var out []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}
