package injector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/code-airgap/internal/domain/artifact"
	"github.com/oshokin/code-airgap/internal/remote"
)

func provision(t *testing.T, layout Layout, staged []string) (*artifact.Installation, error) {
	t.Helper()

	local := remote.NewLocal()
	require.NoError(t, local.Copy(context.Background(), staged, layout.StagingDir))

	plan, err := NewPlan(testVersion, layout, DefaultProbe())
	require.NoError(t, err)

	return NewProvisioner(local).Provision(context.Background(), plan)
}

// TestProvision_Success unpacks both archives, writes the sentinel and removes the staged archives.
func TestProvision_Success(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)
	archives := writeArchives(t, t.TempDir(), healthyNode)

	installation, err := provision(t, layout, archives)
	require.NoError(t, err)
	require.Equal(t, artifact.InstallValidated, installation.State)

	requireExists(t, filepath.Join(installation.ServerDir, "node"))
	requireExists(t, filepath.Join(installation.ServerDir, "product.json"))
	require.Zero(t, requireExists(t, filepath.Join(installation.ServerDir, SentinelName)).Size())

	cli := requireExists(t, installation.CLIPath)
	require.NotZero(t, cli.Mode().Perm()&0o100)

	requireAbsent(t, filepath.Join(layout.StagingDir, testServerArchive))
	requireAbsent(t, filepath.Join(layout.StagingDir, testCLIArchive))
	requireAbsent(t, filepath.Join(layout.StagingDir, ".code-cli-"+testVersion))
}

// TestProvision_ProbeFailure reports an environment mismatch and finalizes nothing.
func TestProvision_ProbeFailure(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)
	archives := writeArchives(t, t.TempDir(), brokenNode)

	installation, err := provision(t, layout, archives)
	require.ErrorIs(t, err, ErrEnvironmentMismatch)
	require.Equal(t, artifact.InstallFailed, installation.State)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, StepValidate, stepErr.Step)
	require.Contains(t, stepErr.Output, "GLIBC_2.28")

	requireAbsent(t, filepath.Join(installation.ServerDir, SentinelName))
	requireExists(t, filepath.Join(layout.StagingDir, testServerArchive))
	requireExists(t, filepath.Join(layout.StagingDir, testCLIArchive))
}

// TestProvision_ArchiveMissing fails at the extract step of the absent archive.
func TestProvision_ArchiveMissing(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)
	archives := writeArchives(t, t.TempDir(), healthyNode)

	_, err := provision(t, layout, archives[1:])
	require.ErrorIs(t, err, ErrArchiveMissing)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, StepExtractServer, stepErr.Step)
	require.Equal(t, 21, stepErr.Status)

	requireAbsent(t, layout.ServerDir(testVersion))
}

// TestProvision_RerunWithoutArchivesKeepsInstallation fails on the missing
// archives and leaves the validated installation as it was.
func TestProvision_RerunWithoutArchivesKeepsInstallation(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)

	installation, err := provision(t, layout, writeArchives(t, t.TempDir(), healthyNode))
	require.NoError(t, err)

	plan, err := NewPlan(testVersion, layout, DefaultProbe())
	require.NoError(t, err)

	// Finalize removed the staged archives, nothing is copied again.
	_, err = NewProvisioner(remote.NewLocal()).Provision(context.Background(), plan)
	require.ErrorIs(t, err, ErrArchiveMissing)

	requireExists(t, filepath.Join(installation.ServerDir, SentinelName))
	requireExists(t, filepath.Join(installation.ServerDir, "node"))
	requireExists(t, installation.CLIPath)
}

// TestProvision_MissingCLIArchiveKeepsInstallation checks every archive before touching the installation.
func TestProvision_MissingCLIArchiveKeepsInstallation(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)

	installation, err := provision(t, layout, writeArchives(t, t.TempDir(), healthyNode))
	require.NoError(t, err)

	_, err = provision(t, layout, writeArchives(t, t.TempDir(), brokenNode)[:1])
	require.ErrorIs(t, err, ErrArchiveMissing)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, StepExtractCLI, stepErr.Step)

	requireExists(t, filepath.Join(installation.ServerDir, SentinelName))
}

// TestProvision_Idempotent gives the same final layout when run twice.
func TestProvision_Idempotent(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)
	archives := writeArchives(t, t.TempDir(), healthyNode)

	first, err := provision(t, layout, archives)
	require.NoError(t, err)

	second, err := provision(t, layout, archives)
	require.NoError(t, err)
	require.Equal(t, first, second)

	requireExists(t, filepath.Join(second.ServerDir, SentinelName))
	requireExists(t, second.CLIPath)
	requireAbsent(t, filepath.Join(layout.StagingDir, testServerArchive))
}

// TestProvision_StaleSentinelRemoved leaves no sentinel when a re-run fails validation.
func TestProvision_StaleSentinelRemoved(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)

	installation, err := provision(t, layout, writeArchives(t, t.TempDir(), healthyNode))
	require.NoError(t, err)
	requireExists(t, filepath.Join(installation.ServerDir, SentinelName))

	_, err = provision(t, layout, writeArchives(t, t.TempDir(), brokenNode))
	require.ErrorIs(t, err, ErrEnvironmentMismatch)
	requireAbsent(t, filepath.Join(installation.ServerDir, SentinelName))
}
