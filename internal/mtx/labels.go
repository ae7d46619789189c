package mtx

import (
	"fmt"
	"strings"
)

// ReadLabels reads a label file. Line N holds the identifier for index N;
// only the first tab-separated field of each line is kept.
func ReadLabels(path string) ([]string, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	sc := newLineScanner(f)
	for sc.Scan() {
		field, _, _ := strings.Cut(sc.Text(), "\t")
		labels = append(labels, strings.TrimSpace(field))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return labels, nil
}
