package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profiles holds per-project delivery overrides. Projects without a
// profile get the defaults; fields left empty in a project's profile
// fall back to the defaults, then to the global configuration.
type Profiles struct {
	Defaults Profile            `yaml:"defaults"`
	Projects map[string]Profile `yaml:"projects"`
}

// Profile overrides delivery behavior for one project.
type Profile struct {
	ConvertVCF *bool           `yaml:"convert_vcf,omitempty"`
	Filter     FilterProfile   `yaml:"filter"`
	Transfer   TransferProfile `yaml:"transfer"`
}

// FilterProfile overrides exclusion list parsing. Receiving sites send
// exclusion spreadsheets with their own column conventions.
type FilterProfile struct {
	IDColumn     string `yaml:"id_column"`
	ReasonColumn string `yaml:"reason_column"`
	Sheet        *int   `yaml:"sheet,omitempty"`
	Encoding     string `yaml:"encoding"`
}

// TransferProfile overrides how a project's delivery is staged.
type TransferProfile struct {
	Method      string `yaml:"method"`
	StagingRoot string `yaml:"staging_root"`
	ChmodDirs   string `yaml:"chmod_dirs"`
	ChmodFiles  string `yaml:"chmod_files"`
}

// LoadProfiles reads delivery profiles from a YAML file.
func LoadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read profiles %s", path)
	}

	// The YAML has a top-level "profiles" key
	var wrapper struct {
		Profiles Profiles `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse profiles")
	}

	return &wrapper.Profiles, nil
}

// For returns the effective profile for a project: the defaults with the
// project's own entries layered on top.
func (p *Profiles) For(project string) Profile {
	merged := p.Defaults
	prof, ok := p.Projects[project]
	if !ok {
		return merged
	}

	if prof.ConvertVCF != nil {
		merged.ConvertVCF = prof.ConvertVCF
	}
	if prof.Filter.IDColumn != "" {
		merged.Filter.IDColumn = prof.Filter.IDColumn
	}
	if prof.Filter.ReasonColumn != "" {
		merged.Filter.ReasonColumn = prof.Filter.ReasonColumn
	}
	if prof.Filter.Sheet != nil {
		merged.Filter.Sheet = prof.Filter.Sheet
	}
	if prof.Filter.Encoding != "" {
		merged.Filter.Encoding = prof.Filter.Encoding
	}
	if prof.Transfer.Method != "" {
		merged.Transfer.Method = prof.Transfer.Method
	}
	if prof.Transfer.StagingRoot != "" {
		merged.Transfer.StagingRoot = prof.Transfer.StagingRoot
	}
	if prof.Transfer.ChmodDirs != "" {
		merged.Transfer.ChmodDirs = prof.Transfer.ChmodDirs
	}
	if prof.Transfer.ChmodFiles != "" {
		merged.Transfer.ChmodFiles = prof.Transfer.ChmodFiles
	}
	return merged
}
