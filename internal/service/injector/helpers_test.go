package injector

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testVersion       = "f1a4fb101478ce6ec82fe9627c43efbf9e98c813"
	testServerArchive = "vscode-server-linux-x64.tar.gz"
	testCLIArchive    = "vscode-cli-alpine-x64.tar.gz"

	healthyNode = "#!/bin/sh\necho v20.18.0\n"
	brokenNode  = "#!/bin/sh\necho 'node: /lib64/libc.so.6: version GLIBC_2.28 not found' >&2\nexit 1\n"
)

type tarEntry struct {
	name string
	body string
	mode int64
}

func writeTarGz(t *testing.T, path string, entries ...tarEntry) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)

	gz := gzip.NewWriter(file)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.name,
			Mode:     e.mode,
			Size:     int64(len(e.body)),
			Typeflag: tar.TypeReg,
		}))

		_, err = tw.Write([]byte(e.body))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, file.Close())
}

// writeArchives creates both release archives in dir and returns their paths, server first.
func writeArchives(t *testing.T, dir, node string) []string {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o755))

	server := filepath.Join(dir, testServerArchive)
	writeTarGz(t, server,
		tarEntry{name: "vscode-server-linux-x64/node", body: node, mode: 0o755},
		tarEntry{name: "vscode-server-linux-x64/product.json", body: `{"commit":"` + testVersion + `"}`, mode: 0o644},
	)

	cli := filepath.Join(dir, testCLIArchive)
	writeTarGz(t, cli, tarEntry{name: "code", body: "#!/bin/sh\necho code\n", mode: 0o644})

	return []string{server, cli}
}

// testLayout returns a layout rooted in fresh temporary directories.
func testLayout(t *testing.T) Layout {
	t.Helper()

	root := t.TempDir()

	return Layout{
		InstallRoot:   filepath.Join(root, "home", ".vscode-server"),
		StagingDir:    filepath.Join(root, "tmp"),
		ServerArchive: testServerArchive,
		CLIArchive:    testCLIArchive,
	}
}

func requireExists(t *testing.T, path string) os.FileInfo {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err)

	return info
}

func requireAbsent(t *testing.T, path string) {
	t.Helper()

	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}
