package plink

// ExtractArgs builds the argument list for subsetting a batch fileset to a
// keep list, optionally excluding variants, writing a new fileset at
// outPrefix.
func ExtractArgs(bfile, keepFile, excludeFile, outPrefix string) []string {
	args := []string{"--bfile", bfile, "--keep", keepFile}
	if excludeFile != "" {
		args = append(args, "--exclude", excludeFile)
	}
	return append(args, "--make-bed", "--out", outPrefix)
}

// MergeArgs builds the argument list for merging filesets: the first
// fileset anchors the merge, the rest are named in mergeListFile.
func MergeArgs(firstPrefix, mergeListFile, outPrefix string) []string {
	return []string{"--bfile", firstPrefix, "--merge-list", mergeListFile, "--make-bed", "--out", outPrefix}
}

// VCFArgs builds the argument list for recoding a fileset to bgzipped VCF
// next to the fileset itself (the tool appends .vcf.gz to the prefix).
func VCFArgs(bfilePrefix string) []string {
	return []string{"--bfile", bfilePrefix, "--recode", "vcf", "bgz", "--out", bfilePrefix}
}

// VCFPath returns where VCFArgs output lands for a given fileset prefix.
func VCFPath(bfilePrefix string) string {
	return bfilePrefix + ".vcf.gz"
}
