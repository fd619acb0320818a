package delivery

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"transcript-request-service/internal/config"
	"transcript-request-service/internal/logger"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// connectFunc opens one SFTP session; the returned closer tears down the
// session and its transport.
type connectFunc func(ctx context.Context) (*sftp.Client, io.Closer, error)

// SFTPDeliverer uploads over a fresh SSH connection per call.
type SFTPDeliverer struct {
	remoteDir string
	connect   connectFunc
	log       zerolog.Logger
}

func NewSFTPDeliverer(cfg config.DeliveryConfig, addr string) (*SFTPDeliverer, error) {
	hostKeyCallback, err := hostKeyCallback(cfg.KnownHostsPath)
	if err != nil {
		return nil, err
	}

	log := logger.Component("delivery")
	if cfg.KnownHostsPath == "" {
		log.Warn().Msg("No known_hosts configured, SFTP host key is not verified")
	}

	sshConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.Timeout,
	}

	return &SFTPDeliverer{
		remoteDir: cfg.RemoteDir,
		connect:   dialSFTP(addr, sshConfig),
		log:       log,
	}, nil
}

func hostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if knownHostsPath == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if _, err := os.Stat(knownHostsPath); err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}
	cb, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("parse known_hosts: %w", err)
	}
	return cb, nil
}

func dialSFTP(addr string, sshConfig *ssh.ClientConfig) connectFunc {
	return func(ctx context.Context) (*sftp.Client, io.Closer, error) {
		dialer := net.Dialer{Timeout: sshConfig.Timeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
		}

		sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("ssh handshake: %w", err)
		}
		sshClient := ssh.NewClient(sshConn, chans, reqs)

		client, err := sftp.NewClient(sshClient)
		if err != nil {
			sshClient.Close()
			return nil, nil, fmt.Errorf("start sftp subsystem: %w", err)
		}
		return client, sshClient, nil
	}
}

func (d *SFTPDeliverer) Deliver(ctx context.Context, content []byte, fileName string) (string, error) {
	target := remotePath(d.remoteDir, fileName)
	log := d.log.With().Str("remote_path", target).Logger()

	client, closer, err := d.connect(ctx)
	if err != nil {
		log.Error().Err(err).Msg("SFTP connection failed")
		return "", err
	}
	defer func() {
		client.Close()
		closer.Close()
	}()

	f, err := client.Create(target)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", target, err)
	}

	log.Info().Int("bytes", len(content)).Msg("XML uploaded")
	return target, nil
}

// Check connects and lists the remote directory.
func (d *SFTPDeliverer) Check(ctx context.Context) error {
	client, closer, err := d.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		client.Close()
		closer.Close()
	}()

	if _, err := client.ReadDir(d.remoteDir); err != nil {
		return fmt.Errorf("list %s: %w", d.remoteDir, err)
	}
	return nil
}

func (d *SFTPDeliverer) Mode() string {
	return ModeLive
}
