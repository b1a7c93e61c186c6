package model

// Batch is one genotyping batch: a PLINK fileset of genotype matrix (.bed),
// variant index (.bim) and sample index (.fam) sharing a common prefix.
type Batch struct {
	ID      string `json:"id"`
	Prefix  string `json:"prefix"`
	BedPath string `json:"bed_path"`
	BimPath string `json:"bim_path"`
	FamPath string `json:"fam_path"`
}

// BatchStat carries the line-counted dimensions of a batch fileset.
type BatchStat struct {
	BatchID      string `json:"batch_id"`
	VariantCount int    `json:"variant_count"`
	SampleCount  int    `json:"sample_count"`
}

// SampleID identifies a sample by family and within-family ID, the first
// two columns of a .fam row.
type SampleID struct {
	FID string `json:"fid"`
	IID string `json:"iid"`
}

// KeepList is the cohort sample set a merge run is restricted to, loaded
// from a whitespace-delimited FID/IID file. Immutable once loaded.
type KeepList struct {
	Path    string     `json:"path"`
	Samples []SampleID `json:"samples"`
}

// Len returns the cohort cardinality.
func (k KeepList) Len() int { return len(k.Samples) }

// ExtractedBatch is a batch restricted to the keep list. Extraction is
// derivation: source filesets are never modified, and corrections write a
// fresh fileset under a new prefix instead of rewriting this one.
type ExtractedBatch struct {
	SourceID  string `json:"source_id"`
	Prefix    string `json:"prefix"`
	Corrected bool   `json:"corrected"`
}
