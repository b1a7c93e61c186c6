package plink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractArgs(t *testing.T) {
	t.Parallel()

	args := ExtractArgs("/data/batch1", "/work/keep.txt", "", "/work/batch1_subset")
	assert.Equal(t, []string{
		"--bfile", "/data/batch1",
		"--keep", "/work/keep.txt",
		"--make-bed",
		"--out", "/work/batch1_subset",
	}, args)
}

func TestExtractArgsWithExclude(t *testing.T) {
	t.Parallel()

	args := ExtractArgs("/data/batch1", "/work/keep.txt", "/work/exclude.txt", "/work/batch1_corrected")
	assert.Equal(t, []string{
		"--bfile", "/data/batch1",
		"--keep", "/work/keep.txt",
		"--exclude", "/work/exclude.txt",
		"--make-bed",
		"--out", "/work/batch1_corrected",
	}, args)
}

func TestMergeArgs(t *testing.T) {
	t.Parallel()

	args := MergeArgs("/work/batch1_subset", "/work/merge_list.txt", "/work/merge_attempt")
	assert.Equal(t, []string{
		"--bfile", "/work/batch1_subset",
		"--merge-list", "/work/merge_list.txt",
		"--make-bed",
		"--out", "/work/merge_attempt",
	}, args)
}

func TestVCFArgs(t *testing.T) {
	t.Parallel()

	args := VCFArgs("/delivery/proj_final_genotypes")
	assert.Equal(t, []string{
		"--bfile", "/delivery/proj_final_genotypes",
		"--recode", "vcf", "bgz",
		"--out", "/delivery/proj_final_genotypes",
	}, args)
}

func TestVCFPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/delivery/proj_final_genotypes.vcf.gz", VCFPath("/delivery/proj_final_genotypes"))
}
