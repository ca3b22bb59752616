package lsp

import (
	"errors"
	"io"
)

// StdioConn joins a reader and a writer into the stream Run expects.
type StdioConn struct {
	In  io.ReadCloser
	Out io.WriteCloser
}

func (c StdioConn) Read(p []byte) (int, error)  { return c.In.Read(p) }
func (c StdioConn) Write(p []byte) (int, error) { return c.Out.Write(p) }

func (c StdioConn) Close() error {
	return errors.Join(c.In.Close(), c.Out.Close())
}
