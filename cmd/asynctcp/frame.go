package main

import (
	"io"

	"github.com/database64128/asynctcp-go/bytestrings"
)

// frameWriter writes received data to w.
//
// With a delimiter, it splits the stream into frames at each occurrence of the delimiter,
// which may span reads, and writes one frame per line without the delimiter.
type frameWriter struct {
	w        io.Writer
	searcher *bytestrings.MarkSearcher

	// frameStart is the stream offset of the first byte of the current frame.
	frameStart int64

	// pending holds the bytes of the current frame received so far.
	pending []byte
}

func newFrameWriter(w io.Writer, delimiter []byte) *frameWriter {
	fw := frameWriter{w: w}
	if len(delimiter) > 0 {
		fw.searcher = bytestrings.NewMarkSearcher(delimiter)
	}
	return &fw
}

// Write consumes the next chunk of the stream.
func (fw *frameWriter) Write(b []byte) (int, error) {
	if fw.searcher == nil {
		return fw.w.Write(b)
	}

	n := len(b)
	for len(b) > 0 {
		start, end, found := fw.searcher.Search(b)
		if !found {
			fw.pending = append(fw.pending, b...)
			break
		}

		fw.pending = append(fw.pending, b[:end]...)
		frame := fw.pending[:start-fw.frameStart]
		if err := fw.writeLine(frame); err != nil {
			return 0, err
		}

		fw.frameStart = start + int64(len(fw.searcher.Mark()))
		fw.pending = fw.pending[:0]
		b = b[end:]
	}
	return n, nil
}

// Flush writes the incomplete frame at the end of the stream, if any.
func (fw *frameWriter) Flush() error {
	if len(fw.pending) == 0 {
		return nil
	}
	err := fw.writeLine(fw.pending)
	fw.pending = fw.pending[:0]
	return err
}

func (fw *frameWriter) writeLine(frame []byte) error {
	line := make([]byte, 0, len(frame)+1)
	line = append(line, frame...)
	line = append(line, '\n')
	_, err := fw.w.Write(line)
	return err
}
