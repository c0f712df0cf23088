// Package lzma decompresses files using the specific LZMA framing the
// manifest archiver writes: 5 bytes of coder properties, followed by 8
// little-endian bytes of the plaintext length, followed by the compressed
// stream. That is exactly the classic "LZMA-alone" container, so decoding
// itself is delegated to github.com/ulikunitz/xz/lzma, but the
// plaintext-length field is additionally enforced here rather than
// trusted blindly.
package lzma

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	xzlzma "github.com/ulikunitz/xz/lzma"
)

// ErrTruncated is returned when the compressed stream ends before the
// declared plaintext length has been produced.
var ErrTruncated = errors.New("lzma: truncated stream, fewer bytes than declared length")

const headerSize = 5 + 8
const chunkSize = 256 * 1024

// Decompress reads the LZMA-framed file at srcPath and writes its
// plaintext to destPath. Cancelling ctx aborts mid-stream and removes the
// partial output.
func Decompress(ctx context.Context, srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("lzma: open %s: %w", srcPath, err)
	}
	defer src.Close()

	br := bufio.NewReaderSize(src, headerSize)
	header, err := br.Peek(headerSize)
	if err != nil {
		return fmt.Errorf("lzma: read header of %s: %w", srcPath, err)
	}
	plaintextLen := int64(binary.LittleEndian.Uint64(header[5:headerSize]))

	zr, err := xzlzma.NewReader(br)
	if err != nil {
		return fmt.Errorf("lzma: init decoder for %s: %w", srcPath, err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("lzma: create %s: %w", destPath, err)
	}

	written, copyErr := copyExactly(ctx, out, zr, plaintextLen)
	closeErr := out.Close()

	if ctx.Err() != nil {
		os.Remove(destPath)
		return fmt.Errorf("lzma: %w", context.Canceled)
	}
	if copyErr != nil {
		os.Remove(destPath)
		if errors.Is(copyErr, io.EOF) || errors.Is(copyErr, io.ErrUnexpectedEOF) {
			return fmt.Errorf("lzma: decompress %s: %w (wanted %d bytes, got %d)", srcPath, ErrTruncated, plaintextLen, written)
		}
		return fmt.Errorf("lzma: decompress %s: %w", srcPath, copyErr)
	}
	if closeErr != nil {
		os.Remove(destPath)
		return fmt.Errorf("lzma: write %s: %w", destPath, closeErr)
	}
	return nil
}

// copyExactly copies exactly n bytes from r to w in chunks, checking ctx
// between chunks so cancellation is honored promptly even mid-decompress.
// Extra trailing bytes in r beyond n are left unread, matching the "MAY
// succeed silently" allowance for trailing garbage.
func copyExactly(ctx context.Context, w io.Writer, r io.Reader, n int64) (int64, error) {
	var written int64
	buf := make([]byte, chunkSize)
	for written < n {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		want := int64(len(buf))
		if remaining := n - written; remaining < want {
			want = remaining
		}
		nr, err := io.ReadFull(r, buf[:want])
		if nr > 0 {
			nw, werr := w.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				if written < n {
					return written, io.ErrUnexpectedEOF
				}
				return written, nil
			}
			return written, err
		}
	}
	return written, nil
}
