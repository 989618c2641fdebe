// Package vault manages the local markdown vault: folder creation, atomic
// note and attachment writes, and link verification.
package vault

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrlokans/notebridge/internal/logger"
)

// Vault is rooted at a single directory; all paths handed to it are
// vault-relative with forward slashes, as produced by path resolution.
type Vault struct {
	root string
}

// NewVault creates (if needed) and opens a vault rooted at dir.
func NewVault(dir string) (*Vault, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vault dir: %w", err)
	}
	return &Vault{root: abs}, nil
}

// Root returns the absolute vault root.
func (v *Vault) Root() string {
	return v.root
}

// Abs translates a vault-relative forward-slash path to an absolute one.
func (v *Vault) Abs(rel string) string {
	return filepath.Join(v.root, filepath.FromSlash(rel))
}

// EnsureFolder creates the folder (and parents) for a vault-relative path.
func (v *Vault) EnsureFolder(rel string) error {
	if err := os.MkdirAll(v.Abs(rel), 0755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", rel, err)
	}
	return nil
}

// Exists reports whether a file already exists at the vault-relative path.
func (v *Vault) Exists(rel string) bool {
	info, err := os.Stat(v.Abs(rel))
	return err == nil && !info.IsDir()
}

// dirExists reports whether a directory exists at the vault-relative path.
func (v *Vault) dirExists(rel string) bool {
	info, err := os.Stat(v.Abs(rel))
	return err == nil && info.IsDir()
}

// WriteNote writes a markdown note. The write goes to a temp file in the
// destination folder first and is renamed into place, so a crash never
// leaves a truncated note behind.
func (v *Vault) WriteNote(rel string, content string) error {
	return v.writeAtomic(rel, []byte(content))
}

// WriteBinary writes attachment bytes with the same atomic strategy.
func (v *Vault) WriteBinary(rel string, data []byte) error {
	return v.writeAtomic(rel, data)
}

func (v *Vault) writeAtomic(rel string, data []byte) error {
	dest := v.Abs(rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create parent folder for %s: %w", rel, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".notebridge-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file for %s: %w", rel, err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", rel, err)
	}

	logger.Debug("wrote vault file", logger.Fields{"path": rel, "bytes": len(data)})
	return nil
}

