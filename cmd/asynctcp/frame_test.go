package main

import (
	"bytes"
	"testing"
)

func TestFrameWriter(t *testing.T) {
	for _, c := range []struct {
		name      string
		delimiter string
		chunks    []string
		want      string
	}{
		{"Raw", "", []string{"ab\r", "\ncd"}, "ab\r\ncd"},
		{"SingleChunk", "\r\n", []string{"one\r\ntwo\r\n"}, "one\ntwo\n"},
		{"SpanningMark", "\r\n", []string{"one\r", "\ntwo\r", "\n"}, "one\ntwo\n"},
		{"MarkAlone", "||", []string{"a|", "|", "|b", "|"}, "a\n|b|\n"},
		{"EmptyFrames", ";", []string{";;x;"}, "\n\nx\n"},
		{"TrailingPartial", "END", []string{"abcEN", "Dxy"}, "abc\nxy\n"},
		{"FalseStart", "aab", []string{"aa", "aab"}, "aa\n"},
	} {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			fw := newFrameWriter(&buf, []byte(c.delimiter))
			for _, chunk := range c.chunks {
				n, err := fw.Write([]byte(chunk))
				if err != nil {
					t.Fatalf("Write failed: %v", err)
				}
				if n != len(chunk) {
					t.Errorf("Write returned %d, want %d", n, len(chunk))
				}
			}
			if err := fw.Flush(); err != nil {
				t.Fatalf("Flush failed: %v", err)
			}
			if got := buf.String(); got != c.want {
				t.Errorf("output = %q, want %q", got, c.want)
			}
		})
	}
}
