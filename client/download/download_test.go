package download

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var discardLogger = slog.New(slog.DiscardHandler)

func TestHandle_WritesFile(t *testing.T) {
	body := []byte("hello download world")
	destPath := filepath.Join(t.TempDir(), "file.bin")

	if err := Handle(t.Context(), bytes.NewReader(body), int64(len(body)), destPath, discardLogger); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}

	if diff := cmp.Diff(body, got); diff != "" {
		t.Errorf("file contents mismatch (-want +got):\n%s", diff)
	}
}

func TestHandle_CreatesIntermediateDirectories(t *testing.T) {
	destPath := filepath.Join(t.TempDir(), "a", "b", "c", "file.bin")

	if err := Handle(t.Context(), strings.NewReader("nested"), -1, destPath, discardLogger); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if _, err := os.Stat(destPath); err != nil {
		t.Errorf("expected file at %s: %v", destPath, err)
	}
}

func TestHandle_ReplacesPreviousFile(t *testing.T) {
	destPath := filepath.Join(t.TempDir(), "file.bin")
	if err := os.WriteFile(destPath, []byte("a much longer previous file body"), 0o644); err != nil {
		t.Fatalf("seeding previous file: %v", err)
	}

	if err := Handle(t.Context(), strings.NewReader("new"), 3, destPath, discardLogger); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}

	if string(got) != "new" {
		t.Errorf("expected previous file to be replaced, got %q", got)
	}
}

func TestHandle_Progress(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 64*1024)
	destPath := filepath.Join(t.TempDir(), "file.bin")

	var reports []Progress
	progressFn := func(p Progress) {
		reports = append(reports, p)
	}

	r := &chunkReader{data: body, size: 4096}

	if err := Handle(t.Context(), r, int64(len(body)), destPath, discardLogger, WithProgress(progressFn), WithProgressLog()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(reports) < 2 {
		t.Fatalf("expected several progress reports, got %d", len(reports))
	}

	for i := 1; i < len(reports); i++ {
		if reports[i].Received <= reports[i-1].Received {
			t.Errorf("progress not increasing at %d: %d <= %d", i, reports[i].Received, reports[i-1].Received)
		}
	}

	last := reports[len(reports)-1]
	if diff := cmp.Diff(Progress{Received: int64(len(body)), Expected: int64(len(body))}, last); diff != "" {
		t.Errorf("final progress mismatch (-want +got):\n%s", diff)
	}
	if last.Fraction() != 1 {
		t.Errorf("expected fraction 1, got %f", last.Fraction())
	}
}

func TestHandle_ProgressUnknownLength(t *testing.T) {
	destPath := filepath.Join(t.TempDir(), "file.bin")

	var last Progress
	if err := Handle(t.Context(), strings.NewReader("abc"), -1, destPath, discardLogger, WithProgress(func(p Progress) { last = p })); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if last.Expected != -1 || last.Received != 3 {
		t.Errorf("unexpected progress %+v", last)
	}
	if last.Fraction() != -1 {
		t.Errorf("expected unknown fraction, got %f", last.Fraction())
	}
}

func TestHandle_ContentLengthMismatch(t *testing.T) {
	dir := t.TempDir()
	destPath := filepath.Join(dir, "file.bin")

	err := Handle(t.Context(), strings.NewReader("short"), 100, destPath, discardLogger)
	if !errors.Is(err, ErrContentLengthMismatch) {
		t.Fatalf("expected ErrContentLengthMismatch, got: %v", err)
	}

	assertNoTempFiles(t, dir)
	if _, err := os.Stat(destPath); !os.IsNotExist(err) {
		t.Errorf("expected no file at %s", destPath)
	}
}

func TestHandle_Checksum(t *testing.T) {
	body := []byte("checksum test data")
	sum := sha256.Sum256(body)
	good := hex.EncodeToString(sum[:])

	testCases := map[string]struct {
		expected string
		expErr   error
	}{
		"match":            {expected: good},
		"match upper case": {expected: strings.ToUpper(good)},
		"mismatch":         {expected: strings.Repeat("0", 64), expErr: ErrChecksumMismatch},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			destPath := filepath.Join(t.TempDir(), "file.bin")

			err := Handle(t.Context(), bytes.NewReader(body), int64(len(body)), destPath, discardLogger, WithChecksum(sha256.New(), tc.expected))
			if !errors.Is(err, tc.expErr) {
				t.Fatalf("exp err %v, got: %v", tc.expErr, err)
			}
		})
	}
}

func TestHandle_InvalidOptions(t *testing.T) {
	destPath := filepath.Join(t.TempDir(), "file.bin")

	testCases := map[string]Option{
		"nil progress":   WithProgress(nil),
		"nil hash":       WithChecksum(nil, "abc"),
		"empty checksum": WithChecksum(sha256.New(), ""),
	}

	for name, opt := range testCases {
		t.Run(name, func(t *testing.T) {
			if err := Handle(t.Context(), strings.NewReader("x"), 1, destPath, discardLogger, opt); err == nil {
				t.Error("expected option error")
			}
		})
	}
}

func TestHandle_Cancelled(t *testing.T) {
	dir := t.TempDir()
	destPath := filepath.Join(dir, "file.bin")
	if err := os.WriteFile(destPath, []byte("previous"), 0o644); err != nil {
		t.Fatalf("seeding previous file: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())

	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("partial"))
		cancel()
		_, _ = pw.Write([]byte("more"))
		_ = pw.Close()
	}()

	err := Handle(ctx, pr, 1024, destPath, discardLogger)
	_ = pr.Close()
	if !errors.Is(err, ErrDownloadCancelled) {
		t.Fatalf("expected ErrDownloadCancelled, got: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got: %v", err)
	}

	assertNoTempFiles(t, dir)

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading previous file: %v", err)
	}
	if string(got) != "previous" {
		t.Errorf("expected previous file untouched, got %q", got)
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()

	matches, _ := filepath.Glob(filepath.Join(dir, ".apiclient-dl-*"))
	if len(matches) > 0 {
		t.Errorf("expected no temp files, found: %v", matches)
	}
}

// chunkReader returns at most size bytes per Read.
type chunkReader struct {
	data []byte
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}

	n := min(len(p), c.size, len(c.data))
	copy(p, c.data[:n])
	c.data = c.data[n:]

	return n, nil
}
