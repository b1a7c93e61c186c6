package plink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictReportPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/work/merge_attempt-merge.missnp", ConflictReportPath("/work/merge_attempt"))
}

func TestReadConflictReport(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "merge_attempt-merge.missnp")
	require.NoError(t, os.WriteFile(path, []byte("rs123\n\n  rs456  \nrs123\n"), 0644))

	ids, err := ReadConflictReport(path)
	require.NoError(t, err)
	// Order preserved, blanks dropped, duplicates kept for the caller.
	assert.Equal(t, []string{"rs123", "rs456", "rs123"}, ids)
}

func TestReadConflictReportEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.missnp")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))

	ids, err := ReadConflictReport(path)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReadConflictReportMissing(t *testing.T) {
	t.Parallel()

	_, err := ReadConflictReport(filepath.Join(t.TempDir(), "nope.missnp"))
	assert.Error(t, err)
}

func TestWriteMergeList(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "merge_list.txt")
	require.NoError(t, WriteMergeList(path, []string{"/w/batch2_subset", "/w/batch3_subset"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/w/batch2_subset\n/w/batch3_subset\n", string(data))
}

func TestWriteMergeListEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "merge_list.txt")
	require.NoError(t, WriteMergeList(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "", string(data))
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch1.fam")
	content := "F1 S1 0 0 1 -9\nF2 S2 0 0 2 -9\n\nF3 S3 0 0 1 -9\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	n, err := CountLines(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCountLinesMissingFile(t *testing.T) {
	t.Parallel()

	_, err := CountLines(filepath.Join(t.TempDir(), "missing.bim"))
	assert.Error(t, err)
}
