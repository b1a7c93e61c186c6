package plink

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// ConflictReportPath returns where the tool writes its conflict report for
// a given merge output prefix.
func ConflictReportPath(outPrefix string) string {
	return outPrefix + "-merge.missnp"
}

// ReadConflictReport parses a conflict report: one variant ID per line,
// surrounding whitespace trimmed, blank lines skipped. IDs come back in
// file order; deduplication is the caller's concern.
func ReadConflictReport(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "plink: open conflict report %s", path)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "plink: read conflict report %s", path)
	}
	return ids, nil
}

// WriteMergeList writes a merge list file: one fileset prefix per line
// with a trailing newline, the format --merge-list expects.
func WriteMergeList(path string, prefixes []string) error {
	var sb strings.Builder
	for _, p := range prefixes {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return eris.Wrapf(err, "plink: write merge list %s", path)
	}
	return nil
}

// CountLines counts non-empty lines in a fileset index (.bim rows are
// variants, .fam rows are samples).
func CountLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "plink: open %s", path)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, eris.Wrapf(err, "plink: read %s", path)
	}
	return count, nil
}
