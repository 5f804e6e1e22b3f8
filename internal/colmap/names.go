package colmap

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// ReadNames loads a newline-delimited list of filenames. Blank lines are
// skipped and surrounding whitespace trimmed. The result is never nil, so an
// empty file still counts as a (zero-length) rename list.
func ReadNames(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NotFound("names file", path)
		}
		return nil, fmt.Errorf("failed to open names file: %w", err)
	}
	defer file.Close()

	names := []string{}
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
			return nil, fmt.Errorf("%w: name on line %d contains whitespace: %q", errs.ErrFormat, lineNum, name)
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading names file: %w", err)
	}
	return names, nil
}
