package relational

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"dbadminapi/models"
	"dbadminapi/pkg/logger"

	"golang.org/x/crypto/ssh"
)

// sshTunnel forwards a local listener to the database host through an SSH jump host.
type sshTunnel struct {
	client   *ssh.Client
	listener net.Listener
	remote   string
	wg       sync.WaitGroup
}

// hostKeyCallback pins the jump host to the key stored on the connection, given either as
// an authorized_keys line or as a known_hosts line.
func hostKeyCallback(conn models.Connection) (ssh.HostKeyCallback, error) {
	raw := []byte(strings.TrimSpace(conn.SSHHostKey))
	if len(raw) == 0 {
		return nil, errors.New("ssh host key is not set on the connection")
	}
	key, _, _, _, err := ssh.ParseAuthorizedKey(raw)
	if err != nil {
		var kerr error
		if _, _, key, _, _, kerr = ssh.ParseKnownHosts(raw); kerr != nil {
			return nil, fmt.Errorf("parse ssh host key: %w", err)
		}
	}
	return ssh.FixedHostKey(key), nil
}

func openTunnel(ctx context.Context, conn models.Connection, remoteHost string, remotePort int) (*sshTunnel, error) {
	verifyHost, err := hostKeyCallback(conn)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey([]byte(conn.SSHPrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse ssh private key: %w", err)
	}
	sshPort := conn.SSHPort
	if sshPort == 0 {
		sshPort = 22
	}
	addr := net.JoinHostPort(conn.SSHHost, strconv.Itoa(sshPort))
	cfg := &ssh.ClientConfig{
		User:            conn.SSHUsername,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: verifyHost,
		Timeout:         10 * time.Second,
	}

	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial ssh host %s: %w", addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(raw, addr, cfg)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	client := ssh.NewClient(c, chans, reqs)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("listen for ssh tunnel: %w", err)
	}

	t := &sshTunnel{
		client:   client,
		listener: ln,
		remote:   net.JoinHostPort(remoteHost, strconv.Itoa(remotePort)),
	}
	t.wg.Add(1)
	go t.serve()
	logger.Debugf("ssh tunnel %s -> %s via %s", ln.Addr(), t.remote, addr)
	return t, nil
}

// LocalAddr is the host and port the driver should connect to.
func (t *sshTunnel) LocalAddr() (string, int) {
	a := t.listener.Addr().(*net.TCPAddr)
	return a.IP.String(), a.Port
}

func (t *sshTunnel) serve() {
	defer t.wg.Done()
	for {
		local, err := t.listener.Accept()
		if err != nil {
			return
		}
		go t.forward(local)
	}
}

func (t *sshTunnel) forward(local net.Conn) {
	defer local.Close()
	remote, err := t.client.Dial("tcp", t.remote)
	if err != nil {
		logger.Warnf("ssh tunnel dial %s: %v", t.remote, err)
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}

func (t *sshTunnel) Close() error {
	err := t.listener.Close()
	t.wg.Wait()
	if cerr := t.client.Close(); err == nil {
		err = cerr
	}
	return err
}
