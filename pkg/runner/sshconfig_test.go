package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSSHConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	content := `
Host staging
  HostName 10.0.0.5
  User deploy
  Port 2222
  IdentityFile ~/.ssh/staging_key
  ProxyJump bastion

Host *.internal
  User svc
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	alias := parseSSHConfig(path, "staging")
	assert.Equal(t, "10.0.0.5", alias.HostName)
	assert.Equal(t, "deploy", alias.User)
	assert.Equal(t, "2222", alias.Port)
	assert.Equal(t, "bastion", alias.ProxyJump)
	assert.Contains(t, alias.IdentityFile, ".ssh/staging_key")

	wild := parseSSHConfig(path, "db.internal")
	assert.Equal(t, "svc", wild.User)

	none := parseSSHConfig(path, "unrelated")
	assert.Empty(t, none.HostName)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'hello'`, shellQuote("hello"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}
