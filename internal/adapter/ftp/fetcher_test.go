package ftp

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/vissr-imagery-service/internal/domain"
	"github.com/couchcryptid/vissr-imagery-service/internal/observability"
)

// --- fake FTP session ---

type fakeConn struct {
	cwdErr  error
	retrErr error
	payload []byte

	gotDir  string
	gotName string
	quits   int
}

func (f *fakeConn) ChangeDir(path string) error {
	f.gotDir = path
	return f.cwdErr
}

func (f *fakeConn) Retr(name string) (io.ReadCloser, error) {
	f.gotName = name
	if f.retrErr != nil {
		return nil, f.retrErr
	}
	return io.NopCloser(bytes.NewReader(f.payload)), nil
}

func (f *fakeConn) Quit() error {
	f.quits++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fetcherFor(conn Conn, dialErr error) *Fetcher {
	dial := func(_ context.Context) (Conn, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		return conn, nil
	}
	return newFetcher(dial, observability.NewMetricsForTesting(), discardLogger())
}

// buildArchive produces a tar whose single member is the gzip of contents.
func buildArchive(t *testing.T, memberName string, contents []byte) []byte {
	t.Helper()

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write(contents)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: memberName,
		Mode: 0o644,
		Size: int64(gzBuf.Len()),
	}))
	_, err = tw.Write(gzBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	return tarBuf.Bytes()
}

func notFoundErr() error {
	return &textproto.Error{Code: 550, Msg: "No such file or directory"}
}

var testReq = domain.Request{Year: 2000, Month: 1, Day: 1, Hour: 0}

func TestFetchHappyPath(t *testing.T) {
	sensor := []byte("header-and-pixels")
	conn := &fakeConn{
		payload: buildArchive(t, "VISSR_20000101_0000_IR1.A.IMG.gz", sensor),
	}
	f := fetcherFor(conn, nil)

	scratch := t.TempDir()
	path, err := f.Fetch(context.Background(), domain.SatelliteGMS5, testReq, scratch)
	require.NoError(t, err)

	assert.Equal(t, "/pub/GMS5/VISSR/200001/01", conn.gotDir)
	assert.Equal(t, "VISSR_GMS5_200001010000.tar", conn.gotName)
	assert.Equal(t, filepath.Join(scratch, "VISSR_20000101_0000_IR1.A.IMG"), path)
	assert.Equal(t, 1, conn.quits, "session closed after fetch")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sensor, got, "member decompressed to the fixed local name")
}

func TestFetchDirectoryNotFound(t *testing.T) {
	conn := &fakeConn{cwdErr: notFoundErr()}
	f := fetcherFor(conn, nil)

	_, err := f.Fetch(context.Background(), domain.SatelliteGMS5, testReq, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrRemoteDirNotFound)
}

func TestFetchFileNotFound(t *testing.T) {
	conn := &fakeConn{retrErr: notFoundErr()}
	f := fetcherFor(conn, nil)

	_, err := f.Fetch(context.Background(), domain.SatelliteGMS5, testReq, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrRemoteFileNotFound)
}

func TestFetchEmptyDownload(t *testing.T) {
	conn := &fakeConn{payload: nil}
	f := fetcherFor(conn, nil)

	_, err := f.Fetch(context.Background(), domain.SatelliteGMS5, testReq, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrEmptyDownload)
}

func TestFetchMemberNotFound(t *testing.T) {
	// Archive holds only the visible band, no IR1 member.
	conn := &fakeConn{
		payload: buildArchive(t, "VISSR_20000101_0000_VIS.A.IMG.gz", []byte("x")),
	}
	f := fetcherFor(conn, nil)

	_, err := f.Fetch(context.Background(), domain.SatelliteGMS5, testReq, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestFetchCorruptMember(t *testing.T) {
	// Member has the right name but is not gzip data.
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	body := []byte("not gzip at all")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "VISSR_20000101_0000_IR1.A.IMG.gz",
		Mode: 0o644,
		Size: int64(len(body)),
	}))
	_, err := tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	conn := &fakeConn{payload: tarBuf.Bytes()}
	f := fetcherFor(conn, nil)

	_, err = f.Fetch(context.Background(), domain.SatelliteGMS5, testReq, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrArchiveExtraction)
}

func TestFetchDialFailure(t *testing.T) {
	f := fetcherFor(nil, errors.New("connection refused"))

	_, err := f.Fetch(context.Background(), domain.SatelliteGMS5, testReq, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestBreakerOpensAfterConsecutiveTransportFailures(t *testing.T) {
	f := fetcherFor(nil, errors.New("connection refused"))

	for i := 0; i < 5; i++ {
		_, err := f.Fetch(context.Background(), domain.SatelliteGMS5, testReq, t.TempDir())
		require.ErrorIs(t, err, domain.ErrTransport)
	}

	// Circuit is now open: the dial is skipped entirely.
	_, err := f.Fetch(context.Background(), domain.SatelliteGMS5, testReq, t.TempDir())
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "circuit open")
}

func TestBreakerIgnoresNotFoundFailures(t *testing.T) {
	conn := &fakeConn{retrErr: notFoundErr()}
	f := fetcherFor(conn, nil)

	// Many consecutive not-founds must not open the circuit.
	for i := 0; i < 10; i++ {
		_, err := f.Fetch(context.Background(), domain.SatelliteGMS5, testReq, t.TempDir())
		require.ErrorIs(t, err, domain.ErrRemoteFileNotFound)
	}
}
