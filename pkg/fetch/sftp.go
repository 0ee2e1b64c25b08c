package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

var _ Fetcher = (*sftpFetcher)(nil)

type sftpFetcher struct {
	opts       *Options
	host       string
	remotePath string
	user       string
	password   string
	probed     bool
}

func newSFTPFetcher(rawURL string, opts *Options) (Fetcher, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewPermanentError("sftp", "factory:parse", err)
	}
	if !strings.EqualFold(parsed.Scheme, "sftp") {
		return nil, NewPermanentError("sftp", "factory:scheme",
			fmt.Errorf("unsupported scheme %q, expected sftp", parsed.Scheme))
	}
	if parsed.Path == "" || strings.HasSuffix(parsed.Path, "/") {
		return nil, NewPermanentError("sftp", "factory:path",
			fmt.Errorf("file path is required, got %q", parsed.Path))
	}
	var user, password string
	if parsed.User != nil {
		user = parsed.User.Username()
		password, err = lookupPassword(parsed, opts.Credentials)
		if err != nil {
			return nil, NewPermanentError("sftp", "factory:credentials", err)
		}
	}
	host := parsed.Host
	if parsed.Port() == "" {
		host = net.JoinHostPort(parsed.Hostname(), "22")
	}
	return &sftpFetcher{
		opts:       opts,
		host:       host,
		remotePath: parsed.Path,
		user:       user,
		password:   password,
	}, nil
}

func (f *sftpFetcher) connect(ctx context.Context) (*ssh.Client, *sftp.Client, error) {
	auth, err := buildAuthMethods(f.password, f.opts.SSHKeyPath)
	if err != nil {
		return nil, nil, err
	}
	config := &ssh.ClientConfig{
		User:            f.user,
		Auth:            auth,
		HostKeyCallback: newTOFUHostKeyCallback(knownHostsPath(f.opts.KnownHostsPath)),
		Timeout:         30 * time.Second,
	}
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", f.host)
	if err != nil {
		return nil, nil, err
	}
	conn, chans, reqs, err := ssh.NewClientConn(raw, f.host, config)
	if err != nil {
		raw.Close()
		return nil, nil, err
	}
	sshClient := ssh.NewClient(conn, chans, reqs)
	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, err
	}
	return sshClient, sftpClient, nil
}

func (f *sftpFetcher) Probe(ctx context.Context) (ProbeResult, error) {
	sshClient, client, err := f.connect(ctx)
	if err != nil {
		return ProbeResult{}, classifySFTPError("probe:connect", err)
	}
	defer sshClient.Close()
	defer client.Close()

	info, err := client.Stat(f.remotePath)
	if err != nil {
		return ProbeResult{}, classifySFTPError("probe:stat", err)
	}
	f.probed = true
	return ProbeResult{ContentLength: info.Size()}, nil
}

func (f *sftpFetcher) Fetch(ctx context.Context, w io.Writer, progress func(int)) (int64, error) {
	if !f.probed {
		return 0, ErrProbeRequired
	}
	sshClient, client, err := f.connect(ctx)
	if err != nil {
		return 0, classifySFTPError("fetch:connect", err)
	}
	defer sshClient.Close()
	defer client.Close()
	stop := context.AfterFunc(ctx, func() { sshClient.Close() })
	defer stop()

	src, err := client.Open(f.remotePath)
	if err != nil {
		return 0, classifySFTPError("fetch:open", err)
	}
	defer src.Close()

	n, err := copyBody(ctx, w, src, f.opts.RateLimit, progress)
	if err != nil {
		return n, classifySFTPError("fetch:copy", err)
	}
	return n, nil
}

// buildAuthMethods prefers the password, then an explicit key, then the
// default key locations.
func buildAuthMethods(password, sshKeyPath string) ([]ssh.AuthMethod, error) {
	if password != "" {
		return []ssh.AuthMethod{ssh.Password(password)}, nil
	}
	keyPaths := resolveSSHKeyPaths(sshKeyPath)
	for _, kp := range keyPaths {
		pemBytes, err := os.ReadFile(kp)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(pemBytes)
		if err != nil {
			var ppErr *ssh.PassphraseMissingError
			if errors.As(err, &ppErr) {
				return nil, fmt.Errorf("sftp: SSH key %q is passphrase-protected, which is not supported", kp)
			}
			continue
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	return nil, fmt.Errorf("sftp: no authentication method available, provide a password or an SSH key at %s",
		strings.Join(keyPaths, ", "))
}

func resolveSSHKeyPaths(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
	}
}

// classifySFTPError treats missing files and remote exits as permanent and
// network errors as transient.
func classifySFTPError(op string, err error) *FetchError {
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, ErrHostKeyChanged) {
		return NewPermanentError("sftp", op, err)
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return NewPermanentError("sftp", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return NewTransientError("sftp", op, err)
	}
	return NewPermanentError("sftp", op, err)
}
