package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxflow/voxflow/internal/adapters/file"
	"github.com/voxflow/voxflow/pkg/domain"
)

const supportFlow = `
nodes:
  - id: start
    type: playback
    file: welcome
    o_connection: bye
  - id: mystery
    type: quantum_leap
  - id: bye
    type: hangup
`

const utilsBundle = `
middlewares:
  - id: tts-main
    type: tts
    method: POST
    url: http://tts.local/synth
email_servers:
  - server_id: mail-main
    host: smtp.local
    port: 587
`

func writeFlows(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestFileSourceFlow(t *testing.T) {
	dir := writeFlows(t, map[string]string{"support.yaml": supportFlow})
	source := file.New(dir, nil)

	flow, err := source.Flow(context.Background(), "support")
	require.NoError(t, err)

	assert.NotNil(t, flow.Node("start"))
	assert.NotNil(t, flow.Node("bye"))
	assert.Nil(t, flow.Node("mystery"), "unknown node types are dropped")
	assert.Equal(t, "bye", flow.Node("start").Next)
}

func TestFileSourceYmlFallback(t *testing.T) {
	dir := writeFlows(t, map[string]string{"support.yml": supportFlow})
	source := file.New(dir, nil)

	flow, err := source.Flow(context.Background(), "support")
	require.NoError(t, err)
	assert.NotNil(t, flow.Node("start"))
}

func TestFileSourceMissingFlow(t *testing.T) {
	source := file.New(t.TempDir(), nil)

	_, err := source.Flow(context.Background(), "ghost")
	assert.True(t, errors.Is(err, domain.ErrFlowNotFound))
}

func TestFileSourceUtilities(t *testing.T) {
	dir := writeFlows(t, map[string]string{"flow_utils.yaml": utilsBundle})
	source := file.New(dir, nil)

	utils, err := source.Utilities(context.Background())
	require.NoError(t, err)

	mw := utils.Middleware("tts-main")
	require.NotNil(t, mw)
	assert.Equal(t, domain.MiddlewareTTS, mw.Kind)

	server, ok := utils.EmailServer("mail-main")
	require.True(t, ok)
	assert.Equal(t, "smtp.local", server.Host)
}

func TestFileSourceUtilitiesMissingIsEmpty(t *testing.T) {
	source := file.New(t.TempDir(), nil)

	utils, err := source.Utilities(context.Background())
	require.NoError(t, err)
	assert.Nil(t, utils.Middleware("tts-main"))
}
