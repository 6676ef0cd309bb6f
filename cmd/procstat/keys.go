package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"

	"golang.org/x/term"
)

// ctrlC is the byte a terminal in raw mode delivers for Ctrl-C instead of
// raising an interrupt.
const ctrlC = 0x03

// startKeyReader pumps the key presses read from in into the returned
// channel until ctx is done or in is exhausted. When in is a terminal it is
// switched to raw mode, so single key presses arrive without Enter; restore
// returns the terminal to its previous state.
func startKeyReader(ctx context.Context, in io.Reader) (keys <-chan byte, raw bool, restore func()) {
	restore = func() {}
	if in == nil {
		return nil, false, restore
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if state, err := term.MakeRaw(int(f.Fd())); err == nil {
			raw = true
			restore = func() { _ = term.Restore(int(f.Fd()), state) }
		}
	}

	ch := make(chan byte, 16)
	go pumpKeys(ctx, bufio.NewReader(in), ch)
	return ch, raw, restore
}

func pumpKeys(ctx context.Context, r io.ByteReader, ch chan<- byte) {
	defer close(ch)
	for {
		key, err := r.ReadByte()
		if err != nil {
			return
		}
		switch key {
		case '\r', '\n', ' ', '\t':
			continue
		}
		select {
		case ch <- key:
		case <-ctx.Done():
			return
		}
	}
}

// crlfWriter translates line feeds into CRLF pairs.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

func newlineWriter(w io.Writer, raw bool) io.Writer {
	if raw {
		return crlfWriter{w: w}
	}
	return w
}
