package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Digest describes a file's content.
type Digest struct {
	Size   int64  `json:"size_bytes"`
	SHA256 string `json:"sha256"`
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the size and hex SHA-256 of the file at path.
func HashFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Digest{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return Digest{Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

// PublishVerified copies src to dst, creating dst's parent directories. The
// data goes to a temporary sibling first and is renamed over dst only after
// its size and on-disk SHA-256 match the source, so readers never observe a
// partial file. On failure dst is left untouched.
func PublishVerified(src, dst string) (Digest, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return Digest{}, fmt.Errorf("stat source: %w", err)
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Digest{}, fmt.Errorf("create output directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return Digest{}, err
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".partial-*")
	if err != nil {
		return Digest{}, fmt.Errorf("create temporary output: %w", err)
	}
	tmp := out.Name()
	committed := false
	defer func() {
		_ = out.Close()
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHasher))
	if err != nil {
		return Digest{}, err
	}
	if err := out.Sync(); err != nil {
		return Digest{}, fmt.Errorf("sync output: %w", err)
	}
	if err := out.Close(); err != nil {
		return Digest{}, err
	}

	if written != srcInfo.Size() {
		return Digest{}, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	// Hash the bytes that reached the disk.
	landed, err := HashFile(tmp)
	if err != nil {
		return Digest{}, fmt.Errorf("verify output: %w", err)
	}
	if landed.Size != written || landed.SHA256 != hex.EncodeToString(srcHasher.Sum(nil)) {
		return Digest{}, fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}

	if err := os.Chmod(tmp, 0o644); err != nil {
		return Digest{}, fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return Digest{}, fmt.Errorf("rename output into place: %w", err)
	}
	committed = true
	return landed, nil
}
