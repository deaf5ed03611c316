// Package host provides the default implementations of the environment
// probes the installer consumes: host process detection, content
// checksums, and host-framework status. All are small capabilities behind
// interfaces so the core never shells out or inspects binaries itself.
package host

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modfort/modfort/pkg/errors"
)

// ProcessProbe reports whether the host game process is running. The
// installer refuses to start a transaction while it is: destination files
// may be locked by the game. This is a precondition check, not a lock - a
// process starting mid-transaction is an accepted, documented residual
// risk.
type ProcessProbe interface {
	IsHostProcessRunning() (bool, error)
}

// ProcProbe detects a process by executable name via the /proc
// filesystem. On platforms without /proc it reports not-running, which
// degrades to "no precondition" rather than a false block.
type ProcProbe struct {
	// Name is the executable name to look for, e.g. "stormworks64".
	Name string
}

// IsHostProcessRunning implements ProcessProbe.
func (p ProcProbe) IsHostProcessRunning() (bool, error) {
	if p.Name == "" {
		return false, nil
	}
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return false, nil
	}
	for _, e := range entries {
		if !e.IsDir() || !isNumeric(e.Name()) {
			continue
		}
		comm, err := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(string(comm)), p.Name) {
			return true, nil
		}
	}
	return false, nil
}

// StaticProbe always reports a fixed answer. For tests and for setups
// where detection is disabled.
type StaticProbe struct{ Running bool }

// IsHostProcessRunning implements ProcessProbe.
func (p StaticProbe) IsHostProcessRunning() (bool, error) { return p.Running, nil }

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Checksummer digests package contents for integrity records.
type Checksummer interface {
	// Digest returns the hex digest of data.
	Digest(data []byte) string
	// DigestTree returns a stable hex digest of every regular file under
	// dir, walked in sorted relative-path order.
	DigestTree(dir string) (string, error)
}

// SHA256 is the default Checksummer.
type SHA256 struct{}

// Digest implements Checksummer.
func (SHA256) Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestTree implements Checksummer. Paths and contents both feed the
// digest, so a rename changes the checksum just like an edit does.
func (SHA256) DigestTree(dir string) (string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFilesystem, err, "walk %s", dir)
	}
	sort.Strings(files)

	h := sha256.New()
	for _, rel := range files {
		io.WriteString(h, rel)
		h.Write([]byte{0})
		f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeFilesystem, err, "open %s", rel)
		}
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", errors.Wrap(errors.ErrCodeFilesystem, err, "read %s", rel)
		}
		f.Close()
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FrameworkStatus describes the host modding framework's presence.
type FrameworkStatus struct {
	Present bool
	Version string
}

// StatusProvider reports host-framework health, consumed only as an
// install precondition.
type StatusProvider interface {
	Status() (FrameworkStatus, error)
}

// FileStatusProvider checks for the framework loader file inside the game
// directory and reads its version marker if present.
type FileStatusProvider struct {
	// LoaderPath is the file whose existence marks the framework as
	// installed, relative to the game directory.
	LoaderPath string
	// VersionPath optionally names a file whose trimmed contents are the
	// framework version.
	VersionPath string
	// GameDir is the host game's installation directory.
	GameDir string
}

// Status implements StatusProvider.
func (p FileStatusProvider) Status() (FrameworkStatus, error) {
	if p.GameDir == "" || p.LoaderPath == "" {
		return FrameworkStatus{Present: true}, nil
	}
	if _, err := os.Stat(filepath.Join(p.GameDir, p.LoaderPath)); err != nil {
		if os.IsNotExist(err) {
			return FrameworkStatus{}, nil
		}
		return FrameworkStatus{}, errors.Wrap(errors.ErrCodeFilesystem, err, "probe framework loader")
	}
	status := FrameworkStatus{Present: true}
	if p.VersionPath != "" {
		if data, err := os.ReadFile(filepath.Join(p.GameDir, p.VersionPath)); err == nil {
			status.Version = strings.TrimSpace(string(data))
		}
	}
	return status, nil
}

// StaticStatus always reports a fixed status. For tests.
type StaticStatus struct{ S FrameworkStatus }

// Status implements StatusProvider.
func (p StaticStatus) Status() (FrameworkStatus, error) { return p.S, nil }
