package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestParseCleanFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "server.cfg", `
name: cluster-a
host: hpc.example.org
protocol: ssh
port: 22
`)

	p := New(path)
	p.Start()
	require.NoError(t, p.Wait(context.Background()))

	assert.Empty(t, p.Errors())
	require.Len(t, p.ConfigBlocks(), 1)
}

func TestParseMultiDocumentFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "servers.cfg", `
name: cluster-a
host: a.example.org
---
name: cluster-b
host: b.example.org
`)

	p := New(path)
	p.Start()
	require.NoError(t, p.Wait(context.Background()))

	assert.Empty(t, p.Errors())
	assert.Len(t, p.ConfigBlocks(), 2)
}

func TestParseMissingFile(t *testing.T) {
	t.Parallel()

	p := New(filepath.Join(t.TempDir(), "absent.cfg"))
	p.Start()
	require.NoError(t, p.Wait(context.Background()))

	require.Len(t, p.Errors(), 1)
	assert.Contains(t, p.Errors()[0], "cannot open")
	assert.Empty(t, p.ConfigBlocks())
}

func TestParseNonMappingDocument(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "odd.cfg", `
- just
- a
- list
---
name: cluster-a
host: a.example.org
`)

	p := New(path)
	p.Start()
	require.NoError(t, p.Wait(context.Background()))

	require.Len(t, p.Errors(), 1)
	assert.Contains(t, p.Errors()[0], "not a configuration block")
	assert.Len(t, p.ConfigBlocks(), 1)
}

func TestParseSyntaxError(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "broken.cfg", "name: [unclosed\n")

	p := New(path)
	p.Start()
	require.NoError(t, p.Wait(context.Background()))

	assert.NotEmpty(t, p.Errors())
	assert.Empty(t, p.ConfigBlocks())
}

func TestWaitWithoutStart(t *testing.T) {
	t.Parallel()

	p := New("whatever.cfg")
	require.Error(t, p.Wait(context.Background()))
}

func TestStartTwice(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "server.cfg", "name: cluster-a\n")

	p := New(path)
	p.Start()
	p.Start()
	require.NoError(t, p.Wait(context.Background()))
	assert.Len(t, p.ConfigBlocks(), 1)
}
