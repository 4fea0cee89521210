package tripcsv

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("name,address")...),
			expected: "name,address",
		},
		{
			name:     "file without BOM",
			input:    []byte("name,address"),
			expected: "name,address",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM kept",
			input:    []byte{0xEF, 0xBB, 'a'},
			expected: string([]byte{0xEF, 0xBB, 'a'}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewBOMSkippingReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{name: "ascii", input: []byte("Milano,45.46"), expected: "Milano,45.46"},
		{name: "multibyte kept", input: []byte("K\xc3\xb6ln"), expected: "K\xc3\xb6ln"},
		{name: "invalid byte replaced", input: []byte("caf\xe9,x"), expected: "caf?,x"},
		{name: "truncated sequence at end", input: []byte("ab\xc3"), expected: "ab?"},
		{name: "empty", input: []byte{}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer_SplitAcrossReads(t *testing.T) {
	// One byte per read splits every multi-byte rune.
	input := []byte("K\xc3\xb6ln \xe4\xb8\x96")
	got, err := io.ReadAll(NewUTF8Sanitizer(iotest.OneByteReader(bytes.NewReader(input))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestUTF8Sanitizer_SmallCallerBuffer(t *testing.T) {
	input := []byte("K\xc3\xb6ln \xe4\xb8\x96 \xf0\x9f\x9a\x97 \xff end")
	want := []byte("K\xc3\xb6ln \xe4\xb8\x96 \xf0\x9f\x9a\x97 ? end")

	tests := []struct {
		name string
		wrap func(io.Reader) io.Reader
	}{
		{name: "one byte reads", wrap: iotest.OneByteReader},
		{name: "half reads", wrap: iotest.HalfReader},
		{name: "data with eof", wrap: iotest.DataErrReader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Inner reads split runes and the outer reader asks for one byte
			// at a time, so carried bytes never fit in a single read.
			src := NewUTF8Sanitizer(tt.wrap(bytes.NewReader(input)))
			got, err := io.ReadAll(iotest.OneByteReader(src))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("got %q, want %q", got, want)
			}
		})
	}
}

func TestWrapForStreaming(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte{'h', 'e', 0x80, 'l', 'o'}...)

	r, counter := WrapForStreaming(bytes.NewReader(input))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "he?lo" {
		t.Errorf("got %q, want %q", got, "he?lo")
	}
	if counter.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", counter.BytesRead, len(input))
	}
}
