package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProfilesYAML = `profiles:
  defaults:
    convert_vcf: true
    transfer:
      method: rsync
      chmod_dirs: Du=rwx,Dgo=rx
  projects:
    NBR030:
      convert_vcf: false
      filter:
        id_column: Participant_ID
        sheet: 1
      transfer:
        method: ftp
    NBR031:
      transfer:
        staging_root: /mnt/secure/nbr031
`

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadProfiles(t *testing.T) {
	t.Parallel()
	p, err := LoadProfiles(writeProfiles(t, testProfilesYAML))
	require.NoError(t, err)

	require.NotNil(t, p.Defaults.ConvertVCF)
	assert.True(t, *p.Defaults.ConvertVCF)
	assert.Equal(t, "rsync", p.Defaults.Transfer.Method)
	assert.Len(t, p.Projects, 2)

	nbr030 := p.Projects["NBR030"]
	require.NotNil(t, nbr030.ConvertVCF)
	assert.False(t, *nbr030.ConvertVCF)
	assert.Equal(t, "Participant_ID", nbr030.Filter.IDColumn)
	require.NotNil(t, nbr030.Filter.Sheet)
	assert.Equal(t, 1, *nbr030.Filter.Sheet)
}

func TestLoadProfilesMissingFile(t *testing.T) {
	t.Parallel()
	_, err := LoadProfiles(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read profiles")
}

func TestLoadProfilesBadYAML(t *testing.T) {
	t.Parallel()
	_, err := LoadProfiles(writeProfiles(t, "profiles: [not: a: map"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse profiles")
}

func TestProfilesFor(t *testing.T) {
	t.Parallel()
	p, err := LoadProfiles(writeProfiles(t, testProfilesYAML))
	require.NoError(t, err)

	t.Run("project overrides layer onto defaults", func(t *testing.T) {
		prof := p.For("NBR030")
		require.NotNil(t, prof.ConvertVCF)
		assert.False(t, *prof.ConvertVCF)
		assert.Equal(t, "ftp", prof.Transfer.Method)
		// Not overridden, inherited from defaults.
		assert.Equal(t, "Du=rwx,Dgo=rx", prof.Transfer.ChmodDirs)
	})

	t.Run("partial override keeps other defaults", func(t *testing.T) {
		prof := p.For("NBR031")
		assert.Equal(t, "/mnt/secure/nbr031", prof.Transfer.StagingRoot)
		assert.Equal(t, "rsync", prof.Transfer.Method)
		require.NotNil(t, prof.ConvertVCF)
		assert.True(t, *prof.ConvertVCF)
	})

	t.Run("unknown project gets defaults", func(t *testing.T) {
		prof := p.For("NBR999")
		assert.Equal(t, "rsync", prof.Transfer.Method)
		assert.Empty(t, prof.Filter.IDColumn)
	})
}
