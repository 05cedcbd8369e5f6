// Package sftp provides an SFTP-backed Backend using pkg/sftp over
// golang.org/x/crypto/ssh, grounded on the upstream SFTP provider's
// connection setup and per-file operations.
package sftp

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	obackend "github.com/openfs/openfs/internal/backend"
)

// Config names the pieces a Backend needs to reach an SFTP server.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyFile  string // path to a private key file; if Password is also set, both methods are offered
	Root     string // remote directory this Backend is scoped to
}

// Backend is an SFTP-backed Backend scoped to a remote root directory. It
// holds one SSH connection and one SFTP client for its lifetime; callers
// needing more concurrency should mount several Backends.
type Backend struct {
	name string
	root string

	sshClient  *ssh.Client
	sftpClient *sftp.Client
}

// New dials host:port and authenticates with either Config.Password or a
// private key from Config.KeyFile.
func New(ctx context.Context, name string, cfg Config) (*Backend, error) {
	auths, err := authMethods(cfg)
	if err != nil {
		return nil, obackend.ConnectionFailed(name, err)
	}
	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auths,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	addr := net.JoinHostPort(cfg.Host, portOrDefault(cfg.Port))
	sshClient, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, obackend.ConnectionFailed(name, err)
	}
	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, obackend.ConnectionFailed(name, err)
	}
	return &Backend{
		name:       name,
		root:       strings.TrimSuffix(cfg.Root, "/"),
		sshClient:  sshClient,
		sftpClient: sftpClient,
	}, nil
}

func portOrDefault(p int) string {
	if p == 0 {
		return "22"
	}
	return fmt.Sprintf("%d", p)
}

func authMethods(cfg Config) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.KeyFile != "" {
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no authentication method configured")
	}
	return methods, nil
}

// Close tears down the SFTP client and underlying SSH connection.
func (b *Backend) Close() error {
	b.sftpClient.Close()
	return b.sshClient.Close()
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) fullPath(p string) string {
	p = strings.TrimPrefix(p, "/")
	if b.root == "" {
		return "/" + p
	}
	if p == "" {
		return b.root
	}
	return b.root + "/" + p
}

func (b *Backend) translate(err error, p string) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return obackend.NotFound(p)
	}
	if os.IsPermission(err) {
		return obackend.PermissionDenied(p)
	}
	if err == sftp.ErrSSHFxNoSuchFile {
		return obackend.NotFound(p)
	}
	return obackend.IO(err)
}

func (b *Backend) Read(ctx context.Context, p string) ([]byte, error) {
	f, err := b.sftpClient.Open(b.fullPath(p))
	if err != nil {
		return nil, b.translate(err, p)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, obackend.IO(err)
	}
	return data, nil
}

func (b *Backend) Write(ctx context.Context, p string, data []byte) error {
	full := b.fullPath(p)
	if err := b.mkdirAll(path.Dir(full)); err != nil {
		return err
	}
	f, err := b.sftpClient.Create(full)
	if err != nil {
		return b.translate(err, p)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return obackend.IO(err)
	}
	return nil
}

func (b *Backend) Append(ctx context.Context, p string, data []byte) error {
	full := b.fullPath(p)
	f, err := b.sftpClient.OpenFile(full, os.O_WRONLY|os.O_APPEND|os.O_CREATE)
	if err != nil {
		return b.translate(err, p)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return obackend.IO(err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, p string) error {
	err := b.sftpClient.Remove(b.fullPath(p))
	return b.translate(err, p)
}

func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	_, err := b.sftpClient.Stat(b.fullPath(p))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, b.translate(err, p)
	}
	return true, nil
}

func (b *Backend) Stat(ctx context.Context, p string) (obackend.Entry, error) {
	fi, err := b.sftpClient.Stat(b.fullPath(p))
	if err != nil {
		return obackend.Entry{}, b.translate(err, p)
	}
	return obackend.Entry{
		Path: p, Name: path.Base(p), IsDir: fi.IsDir(),
		Size: fi.Size(), HasSize: !fi.IsDir(),
		Modified: fi.ModTime(), HasMod: true,
	}, nil
}

func (b *Backend) List(ctx context.Context, p string) ([]obackend.Entry, error) {
	infos, err := b.sftpClient.ReadDir(b.fullPath(p))
	if err != nil {
		return nil, b.translate(err, p)
	}
	entries := make([]obackend.Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, obackend.Entry{
			Path: path.Join(p, fi.Name()), Name: fi.Name(), IsDir: fi.IsDir(),
			Size: fi.Size(), HasSize: !fi.IsDir(),
			Modified: fi.ModTime(), HasMod: true,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func (b *Backend) Rename(ctx context.Context, from, to string) error {
	full := b.fullPath(to)
	if err := b.mkdirAll(path.Dir(full)); err != nil {
		return err
	}
	err := b.sftpClient.Rename(b.fullPath(from), full)
	return b.translate(err, from)
}

// mkdirAll creates dir and its ancestors below b.root, ignoring the
// already-exists case the way os.MkdirAll does locally.
func (b *Backend) mkdirAll(dir string) error {
	if dir == "" || dir == "/" || dir == b.root {
		return nil
	}
	if err := b.mkdirAll(path.Dir(dir)); err != nil {
		return err
	}
	err := b.sftpClient.Mkdir(dir)
	if err != nil && !os.IsExist(err) {
		if fi, statErr := b.sftpClient.Stat(dir); statErr == nil && fi.IsDir() {
			return nil
		}
		return obackend.IO(err)
	}
	return nil
}

var _ obackend.Backend = (*Backend)(nil)
