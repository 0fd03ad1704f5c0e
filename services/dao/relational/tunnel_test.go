package relational

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"strings"
	"testing"

	"dbadminapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func newHostKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return key
}

func TestHostKeyCallbackPinsStoredKey(t *testing.T) {
	key := newHostKey(t)
	other := newHostKey(t)
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))
	addr := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 22}

	tests := []struct {
		name   string
		stored string
	}{
		{"authorized_keys line", line},
		{"known_hosts line", "bastion.example.com " + line},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verify, err := hostKeyCallback(models.Connection{SSHHostKey: tt.stored})
			require.NoError(t, err)
			assert.NoError(t, verify("bastion.example.com:22", addr, key))
			assert.Error(t, verify("bastion.example.com:22", addr, other))
		})
	}
}

func TestHostKeyCallbackRequiresKey(t *testing.T) {
	_, err := hostKeyCallback(models.Connection{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host key is not set")

	_, err = hostKeyCallback(models.Connection{SSHHostKey: "not a key"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse ssh host key")
}

func TestOpenTunnelRefusesUnpinnedHost(t *testing.T) {
	_, err := openTunnel(context.Background(), models.Connection{
		SSH:         true,
		SSHHost:     "127.0.0.1",
		SSHPort:     1,
		SSHUsername: "tunnel",
	}, "db", 5432)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host key is not set")
}
