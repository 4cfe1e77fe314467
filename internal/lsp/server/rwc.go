package server

import (
	"io"
	"os"
)

// RWC joins a reader and a writer into the stream a jsonrpc2 connection runs on
type RWC struct {
	r io.ReadCloser
	w io.WriteCloser
}

// NewStdRWC creates a new RWC using standard input/output
func NewStdRWC() *RWC {
	return &RWC{
		r: os.Stdin,
		w: os.Stdout,
	}
}

// NewRWC creates a new RWC with custom reader and writer
func NewRWC(r io.ReadCloser, w io.WriteCloser) *RWC {
	return &RWC{
		r: r,
		w: w,
	}
}

func (rw *RWC) Read(p []byte) (int, error)  { return rw.r.Read(p) }
func (rw *RWC) Write(p []byte) (int, error) { return rw.w.Write(p) }
func (rw *RWC) Close() error {
	var rerr, werr error
	if rw.r != nil {
		rerr = rw.r.Close()
	}
	if rw.w != nil {
		werr = rw.w.Close()
	}
	if rerr != nil {
		return rerr
	}
	return werr
}
