package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type SFTPOptions struct {
	Host       string
	Port       int
	Username   string
	Password   string
	RemotePath string
}

// sftpStorage opens a fresh session per operation. Backup traffic is rare
// enough that holding a long-lived SSH connection is not worth the
// reconnect handling.
type sftpStorage struct {
	opts SFTPOptions
}

func NewSFTPStorage(opts SFTPOptions) Storage {
	if opts.Port == 0 {
		opts.Port = 22
	}
	return &sftpStorage{opts: opts}
}

func (s *sftpStorage) connect() (*ssh.Client, *sftp.Client, error) {
	cfg := &ssh.ClientConfig{
		User:            s.opts.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(s.opts.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         15 * time.Second,
	}
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	conn, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("sftp session: %w", err)
	}
	return conn, client, nil
}

func (s *sftpStorage) Upload(ctx context.Context, body io.Reader, filename string) (string, error) {
	conn, client, err := s.connect()
	if err != nil {
		return "", err
	}
	defer conn.Close()
	defer client.Close()

	if s.opts.RemotePath != "" {
		if err := client.MkdirAll(s.opts.RemotePath); err != nil {
			return "", fmt.Errorf("create remote dir: %w", err)
		}
	}
	remote := path.Join(s.opts.RemotePath, filename)

	f, err := client.Create(remote)
	if err != nil {
		return "", fmt.Errorf("create remote file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		client.Remove(remote)
		return "", fmt.Errorf("write remote file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return remote, nil
}

func (s *sftpStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	conn, client, err := s.connect()
	if err != nil {
		return nil, err
	}

	f, err := client.Open(storagePath)
	if err != nil {
		client.Close()
		conn.Close()
		return nil, fmt.Errorf("open remote file: %w", err)
	}

	// Buffer the artifact so the connection can be released before the
	// caller finishes streaming it out.
	var buf bytes.Buffer
	_, err = io.Copy(&buf, f)
	f.Close()
	client.Close()
	conn.Close()
	if err != nil {
		return nil, fmt.Errorf("read remote file: %w", err)
	}
	return io.NopCloser(&buf), nil
}

func (s *sftpStorage) Delete(ctx context.Context, storagePath string) error {
	conn, client, err := s.connect()
	if err != nil {
		return err
	}
	defer conn.Close()
	defer client.Close()

	if err := client.Remove(storagePath); err != nil {
		return fmt.Errorf("delete remote file: %w", err)
	}
	return nil
}

func (s *sftpStorage) TestConnection(ctx context.Context) error {
	conn, client, err := s.connect()
	if err != nil {
		return err
	}
	defer conn.Close()
	defer client.Close()

	if s.opts.RemotePath != "" {
		if err := client.MkdirAll(s.opts.RemotePath); err != nil {
			return fmt.Errorf("remote path not writable: %w", err)
		}
	}
	return nil
}
