package softtoken

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	pinFileName   = ".pin"
	privateKeyExt = ".key"
	publicKeyExt  = ".pub"
)

// pinFile is the JSON document stored in pinFileName.
type pinFile struct {
	Version        int    `json:"version"`
	Verifier       []byte `json:"verifier"`
	Salt           []byte `json:"salt"`
	ScryptN        int    `json:"scryptN"`
	SealedDataKey  []byte `json:"sealedDataKey"`
	FailedAttempts int    `json:"failedAttempts"`
}

func (t *Token) pinPath() string {
	return filepath.Join(t.dir, pinFileName)
}

func (t *Token) keyPath(keyID, ext string) string {
	return filepath.Join(t.dir, keyID+ext)
}

// readPinFile returns os.ErrNotExist when the token is uninitialized.
func (t *Token) readPinFile() (*pinFile, error) {
	data, err := os.ReadFile(t.pinPath())
	if err != nil {
		return nil, err
	}
	var pf pinFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("corrupt pin file: %w", err)
	}
	return &pf, nil
}

func (t *Token) writePinFile(pf *pinFile) error {
	data, err := json.Marshal(pf)
	if err != nil {
		return fmt.Errorf("failed to encode pin file: %w", err)
	}
	return writeFileAtomic(t.pinPath(), data, 0o600)
}

// writeFileAtomic replaces path with data through a synced temp file and a
// rename in the same directory.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
