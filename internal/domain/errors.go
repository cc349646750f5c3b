package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for every terminal failure the pipeline can produce.
// Callers branch with errors.Is; StageError adds request context on top.
var (
	ErrOutOfCoverage      = errors.New("requested time is outside the archive's period of coverage")
	ErrRemoteDirNotFound  = errors.New("directory not found on FTP server")
	ErrRemoteFileNotFound = errors.New("file not found on FTP server")
	ErrEmptyDownload      = errors.New("downloaded archive is empty")
	ErrTransport          = errors.New("FTP transport error")
	ErrMemberNotFound     = errors.New("IR1 member not found in tar archive")
	ErrArchiveExtraction  = errors.New("archive extraction failed")
	ErrInsufficientData   = errors.New("no pixel data after file header")
	ErrBothDecodersFailed = errors.New("both decode strategies failed")
	ErrRender             = errors.New("render failed")
)

// StageError wraps a pipeline failure with the stage it occurred in and the
// request being served, so the top level can emit a one-line message.
type StageError struct {
	Stage   string
	Request Request
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Request, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
