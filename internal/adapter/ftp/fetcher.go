// Package ftp downloads and unpacks hourly VISSR archives from the
// anonymous FTP archive server.
package ftp

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	jftp "github.com/jlaffaye/ftp"
	"github.com/klauspost/compress/gzip"
	"github.com/sony/gobreaker"

	"github.com/couchcryptid/vissr-imagery-service/internal/domain"
	"github.com/couchcryptid/vissr-imagery-service/internal/observability"
)

// Config holds the archive server connection settings.
type Config struct {
	// Host is the server address including port, e.g. "gms.cr.chiba-u.ac.jp:21".
	Host string

	// Timeout bounds the control-connection dial.
	Timeout time.Duration

	// DisableEPSV forces legacy PASV instead of extended passive mode.
	// The archive's 1990s-era server rejects EPSV.
	DisableEPSV bool
}

// Conn is the subset of an FTP session the fetcher needs. The production
// implementation wraps jlaffaye/ftp; tests substitute a fake.
type Conn interface {
	ChangeDir(path string) error
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

// DialFunc opens an authenticated session with the archive server.
type DialFunc func(ctx context.Context) (Conn, error)

// Fetcher retrieves one hourly archive per call and unpacks the IR1 member
// into a caller-owned scratch directory. A circuit breaker fails requests
// fast when the archive host is down, instead of eating the full dial
// timeout each time.
type Fetcher struct {
	dial    DialFunc
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher that dials the configured archive server
// with anonymous credentials.
func NewFetcher(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Fetcher {
	dial := func(ctx context.Context) (Conn, error) {
		c, err := jftp.Dial(cfg.Host,
			jftp.DialWithContext(ctx),
			jftp.DialWithTimeout(cfg.Timeout),
			jftp.DialWithDisabledEPSV(cfg.DisableEPSV),
		)
		if err != nil {
			return nil, err
		}
		if err := c.Login("anonymous", "anonymous"); err != nil {
			_ = c.Quit()
			return nil, err
		}
		return serverConn{c}, nil
	}
	return newFetcher(dial, metrics, logger)
}

func newFetcher(dial DialFunc, metrics *observability.Metrics, logger *slog.Logger) *Fetcher {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "ftp-archive",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Not-found failures describe the request, not the server's
		// health; they must not open the circuit.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrRemoteDirNotFound) ||
				errors.Is(err, domain.ErrRemoteFileNotFound) ||
				errors.Is(err, domain.ErrMemberNotFound)
		},
	})
	return &Fetcher{dial: dial, breaker: breaker, metrics: metrics, logger: logger}
}

// Fetch downloads the request's hourly tar, validates it, and unpacks the
// gzip-compressed IR1 member to its fixed local name inside scratchDir.
// It returns the path of the decompressed sensor file. scratchDir cleanup
// belongs to the caller.
func (f *Fetcher) Fetch(ctx context.Context, sat domain.Satellite, req domain.Request, scratchDir string) (string, error) {
	start := time.Now()
	result, err := f.breaker.Execute(func() (any, error) {
		return f.fetch(ctx, sat, req, scratchDir)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: archive host circuit open", domain.ErrTransport)
		}
		return "", err
	}
	f.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	return result.(string), nil
}

func (f *Fetcher) fetch(ctx context.Context, sat domain.Satellite, req domain.Request, scratchDir string) (string, error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: dial: %v", domain.ErrTransport, err)
	}
	defer conn.Quit() //nolint:errcheck // session teardown is best-effort

	dir := domain.RemoteDir(sat, req)
	if err := conn.ChangeDir(dir); err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrRemoteDirNotFound, dir)
		}
		return "", fmt.Errorf("%w: cwd %s: %v", domain.ErrTransport, dir, err)
	}

	name := domain.ArchiveName(sat, req)
	tarPath := filepath.Join(scratchDir, name)
	size, err := f.download(conn, name, tarPath)
	if err != nil {
		return "", err
	}
	if size == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrEmptyDownload, name)
	}
	f.metrics.DownloadBytes.Observe(float64(size))

	imgPath := filepath.Join(scratchDir, domain.ImageFileName(req))
	if err := extractMember(tarPath, domain.ArchiveMemberSuffix, imgPath); err != nil {
		return "", err
	}

	f.logger.Info("archive fetched",
		"satellite", sat,
		"archive", name,
		"bytes", size,
		"image", filepath.Base(imgPath),
	)
	return imgPath, nil
}

func (f *Fetcher) download(conn Conn, name, dest string) (int64, error) {
	r, err := conn.Retr(name)
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: %s", domain.ErrRemoteFileNotFound, name)
		}
		return 0, fmt.Errorf("%w: retr %s: %v", domain.ErrTransport, name, err)
	}
	defer r.Close() //nolint:errcheck // data connection teardown is best-effort

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("%w: download %s: %v", domain.ErrTransport, name, err)
	}
	return n, nil
}

// extractMember scans the tar for the single member ending in suffix and
// writes its gunzipped contents to destPath.
func extractMember(tarPath, suffix, destPath string) error {
	in, err := os.Open(tarPath)
	if err != nil {
		return fmt.Errorf("%w: open tar: %v", domain.ErrArchiveExtraction, err)
	}
	defer in.Close() //nolint:errcheck // read-only file

	tr := tar.NewReader(in)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: no member ends with %s", domain.ErrMemberNotFound, suffix)
		}
		if err != nil {
			return fmt.Errorf("%w: read tar: %v", domain.ErrArchiveExtraction, err)
		}
		if !strings.HasSuffix(hdr.Name, suffix) {
			continue
		}
		return gunzipTo(tr, destPath)
	}
}

func gunzipTo(r io.Reader, destPath string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: gzip header: %v", domain.ErrArchiveExtraction, err)
	}
	defer gz.Close() //nolint:errcheck // reader, nothing to flush

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrArchiveExtraction, destPath, err)
	}
	_, err = io.Copy(out, gz)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: decompress to %s: %v", domain.ErrArchiveExtraction, destPath, err)
	}
	return nil
}

// isNotFound reports whether an FTP reply means "no such file or directory"
// (550) rather than a transport fault.
func isNotFound(err error) bool {
	var proto *textproto.Error
	return errors.As(err, &proto) && proto.Code == jftp.StatusFileUnavailable
}

// serverConn adapts *jftp.ServerConn to the Conn interface.
type serverConn struct {
	c *jftp.ServerConn
}

func (s serverConn) ChangeDir(path string) error { return s.c.ChangeDir(path) }

func (s serverConn) Retr(path string) (io.ReadCloser, error) {
	r, err := s.c.Retr(path)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s serverConn) Quit() error { return s.c.Quit() }
