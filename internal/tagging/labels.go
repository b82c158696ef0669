package tagging

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads a model label file. Two formats are accepted: the AudioSet
// class map CSV (index,mid,display_name header) and plain one-label-per-line
// text. Returns labels in output-index order.
func LoadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label file: %w", err)
	}
	defer file.Close()

	var labels []string
	scanner := bufio.NewScanner(file)
	csvFormat := false
	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if first {
			first = false
			if strings.HasPrefix(strings.ToLower(line), "index,") {
				csvFormat = true
				continue
			}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if csvFormat {
			labels = append(labels, parseClassMapRow(line))
		} else {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read label file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label file %s contains no labels", path)
	}
	return labels, nil
}

// parseClassMapRow extracts the display_name column from an AudioSet class
// map row (index,mid,display_name). Display names containing commas are
// quoted in the upstream CSV.
func parseClassMapRow(line string) string {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) < 3 {
		return strings.TrimSpace(line)
	}
	name := strings.TrimSpace(parts[2])
	name = strings.Trim(name, `"`)
	return name
}
