package delivery

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memConnector serves every connection from the same in-memory filesystem.
func memConnector(t *testing.T, handlers sftp.Handlers) connectFunc {
	return func(ctx context.Context) (*sftp.Client, io.Closer, error) {
		serverConn, clientConn := net.Pipe()
		server := sftp.NewRequestServer(serverConn, handlers)
		go server.Serve()

		client, err := sftp.NewClientPipe(clientConn, clientConn)
		if err != nil {
			server.Close()
			return nil, nil, err
		}
		return client, server, nil
	}
}

func newMemDeliverer(t *testing.T, dir string) (*SFTPDeliverer, connectFunc) {
	t.Helper()
	connect := memConnector(t, sftp.InMemHandler())

	client, closer, err := connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, client.MkdirAll(dir))
	client.Close()
	closer.Close()

	return &SFTPDeliverer{remoteDir: dir, connect: connect, log: zerolog.Nop()}, connect
}

func TestSFTPDeliverWritesFile(t *testing.T) {
	d, connect := newMemDeliverer(t, "/incoming")
	content := []byte("<?xml version=\"1.0\"?><ns1:TranscriptRequest/>")

	remote, err := d.Deliver(context.Background(), content, "transcript_request_1700000000000_abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "/incoming/transcript_request_1700000000000_abcd1234_request.xml", remote)

	client, closer, err := connect(context.Background())
	require.NoError(t, err)
	defer closer.Close()
	defer client.Close()

	f, err := client.Open(remote)
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSFTPDeliverMissingDirectoryFails(t *testing.T) {
	d, _ := newMemDeliverer(t, "/incoming")
	d.remoteDir = "/does-not-exist"

	_, err := d.Deliver(context.Background(), []byte("x"), "file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/does-not-exist/file_request.xml")
}

func TestSFTPCheckListsDirectory(t *testing.T) {
	d, _ := newMemDeliverer(t, "/incoming")
	assert.NoError(t, d.Check(context.Background()))

	d.remoteDir = "/missing"
	assert.Error(t, d.Check(context.Background()))
}

func TestSFTPDeliverConnectionFailure(t *testing.T) {
	d := &SFTPDeliverer{
		remoteDir: "/incoming",
		connect: func(ctx context.Context) (*sftp.Client, io.Closer, error) {
			return nil, nil, errors.New("dial sftp.example.org:22: connection refused")
		},
		log: zerolog.Nop(),
	}

	_, err := d.Deliver(context.Background(), []byte("x"), "file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, ModeLive, d.Mode())
}

func TestSimulatedDeliverer(t *testing.T) {
	d := NewSimulatedDeliverer()

	remote, err := d.Deliver(context.Background(), []byte("x"), "transcript_request_1")
	require.NoError(t, err)
	assert.Equal(t, "dev-mode/transcript_request_1_request.xml", remote)
	assert.NoError(t, d.Check(context.Background()))
	assert.Equal(t, ModeSimulated, d.Mode())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Deliver(ctx, []byte("x"), "f")
	assert.ErrorIs(t, err, context.Canceled)
}
