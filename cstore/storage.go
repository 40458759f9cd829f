// Package cstore implements the server-side storage adapter of spec.md
// §4.7: a per-user flat directory, with every name re-validated at this
// boundary (defense in depth, even though ctransfer already validates
// filenames coming off the wire).
package cstore

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tredeske/cloudbox/uio"
	"github.com/tredeske/cloudbox/ustrings"
	"github.com/tredeske/cloudbox/usync"

	"github.com/tredeske/cloudbox/cerr"
	"github.com/tredeske/cloudbox/csession"
)

// TempSuffix marks an in-flight upload. Swept at server startup and
// periodically thereafter (cmd/cloud-server wires the periodic sweep
// through usched).
const TempSuffix = ".upl.tmp"

// housekeepingFile records, per user directory, when each in-flight temp
// file was opened. It carries no information about the stored file
// objects themselves - only enough to let SweepTemp tell a recently
// started upload from one started longer than orphanAge ago (spec.md
// §6's sweep would otherwise also remove a temp file backing an upload
// that has only just begun).
const housekeepingFile = ".cloudbox.yml"

// orphanAge is how long after its recorded start a temp file is kept by
// a sweep. The age counts from when the temp file was opened, not from
// its last write.
const orphanAge = 10 * time.Minute

type housekeeping struct {
	// TempStarted maps a temp file's basename to when it was opened,
	// unix seconds.
	TempStarted map[string]int64 `yaml:"temp_started"`
}

func loadHousekeeping(dir string) housekeeping {
	var hk housekeeping
	path := filepath.Join(dir, housekeepingFile)
	if err := uio.YamlLoad(path, &hk); err != nil {
		hk = housekeeping{}
	}
	if hk.TempStarted == nil {
		hk.TempStarted = map[string]int64{}
	}
	return hk
}

func storeHousekeeping(dir string, hk housekeeping) error {
	path := filepath.Join(dir, housekeepingFile)
	if 0 == len(hk.TempStarted) {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return cerr.Wrap(cerr.ErrStorage, err, "removing housekeeping file %q", path)
		}
		return nil
	}
	if err := uio.YamlStore(path, hk); err != nil {
		return cerr.Wrap(cerr.ErrStorage, err, "writing housekeeping file %q", path)
	}
	return nil
}

var hiddenNames = map[string]bool{
	".gitignore":     true,
	".gitkeep":       true,
	housekeepingFile: true,
}

// ValidateFilename enforces spec.md §3: a single path component, no
// separators, no "." or "..", at most FnameMaxLen-1 bytes after
// trimming a trailing newline.
func ValidateFilename(name string) (string, error) {
	name = strings.TrimSuffix(name, "\n")
	if len(name) == 0 {
		return "", cerr.Wrap(cerr.ErrPolicy, nil, "empty filename")
	}
	if len(name) > csession.FnameMaxLen-1 {
		return "", cerr.Wrap(cerr.ErrPolicy, nil,
			"filename %d bytes exceeds limit %d", len(name), csession.FnameMaxLen-1)
	}
	if name == "." || name == ".." {
		return "", cerr.Wrap(cerr.ErrPolicy, nil, "filename %q is not a regular name", name)
	}
	if strings.ContainsAny(name, "/\\") {
		return "", cerr.Wrap(cerr.ErrPolicy, nil, "filename %q contains a path separator", name)
	}
	if filepath.Base(name) != name {
		return "", cerr.Wrap(cerr.ErrPolicy, nil, "filename %q is not a single path component", name)
	}
	return name, nil
}

// Storage is a handle on one user's flat directory under root.
type Storage struct {
	root     string
	username string
	dir      string

	hkLock sync.Mutex // guards the housekeeping file for this user
}

// Open ensures <root>/<username>/ exists and returns a handle to it.
func Open(root, username string) (*Storage, error) {
	dir := filepath.Join(root, username)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, cerr.Wrap(cerr.ErrStorage, err, "creating user dir %q", dir)
	}
	return &Storage{root: root, username: username, dir: dir}, nil
}

// tempName derives a deterministic, collision-free temp file name for an
// in-flight upload of name: siphash over username+name (usync.HashString)
// avoids a random generator on the upload hot path while still keeping
// concurrent uploads of distinct names from colliding on one temp path.
func (s *Storage) tempName(name string) string {
	h := usync.HashString(s.username + "\x00" + name)
	return "." + strconv.FormatUint(uint64(h), 16) + TempSuffix
}

// List returns the sorted, deduplicated set of stored filenames,
// excluding hidden housekeeping names and any in-flight temp file.
func (s *Storage) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, cerr.Wrap(cerr.ErrStorage, err, "listing %q", s.dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if hiddenNames[n] || strings.HasSuffix(n, TempSuffix) {
			continue
		}
		names = append(names, n)
	}
	if len(names) == 0 {
		return names, nil
	}
	return ustrings.SortUnique(names), nil
}

// OpenWriteTemp creates (or truncates) the temp file backing an
// in-flight upload of name, records its start time in the per-user
// housekeeping file, and returns it for appending chunks.
func (s *Storage) OpenWriteTemp(name string) (*os.File, error) {
	tmp := s.tempName(name)
	p := filepath.Join(s.dir, tmp)
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, cerr.Wrap(cerr.ErrStorage, err, "opening temp file for %q", name)
	}

	s.hkLock.Lock()
	hk := loadHousekeeping(s.dir)
	hk.TempStarted[tmp] = time.Now().Unix()
	hkErr := storeHousekeeping(s.dir, hk)
	s.hkLock.Unlock()
	if hkErr != nil {
		f.Close()
		os.Remove(p)
		return nil, hkErr
	}
	return f, nil
}

// clearTempRecord removes name's temp file entry from the housekeeping
// file, called once its temp file is gone (committed or aborted).
func (s *Storage) clearTempRecord(tmp string) {
	s.hkLock.Lock()
	defer s.hkLock.Unlock()
	hk := loadHousekeeping(s.dir)
	if _, ok := hk.TempStarted[tmp]; !ok {
		return
	}
	delete(hk.TempStarted, tmp)
	storeHousekeeping(s.dir, hk)
}

// AbortTemp deletes the temp file backing an in-flight upload of name,
// ignoring a not-exist error.
func (s *Storage) AbortTemp(name string) error {
	tmp := s.tempName(name)
	p := filepath.Join(s.dir, tmp)
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return cerr.Wrap(cerr.ErrStorage, err, "removing temp file for %q", name)
	}
	s.clearTempRecord(tmp)
	return nil
}

// CommitTempTo atomically renames the temp file backing name into its
// final location, within the same directory, per spec.md §4.7.
func (s *Storage) CommitTempTo(name string) error {
	tmp := s.tempName(name)
	from := filepath.Join(s.dir, tmp)
	to := filepath.Join(s.dir, name)
	if err := os.Rename(from, to); err != nil {
		return cerr.Wrap(cerr.ErrStorage, err, "committing %q", name)
	}
	s.clearTempRecord(tmp)
	return nil
}

// OpenRead opens name for reading a download stream.
func (s *Storage) OpenRead(name string) (*os.File, int64, error) {
	p := filepath.Join(s.dir, name)
	f, err := os.Open(p)
	if err != nil {
		return nil, 0, cerr.Wrap(cerr.ErrStorage, err, "opening %q", name)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, cerr.Wrap(cerr.ErrStorage, err, "stat %q", name)
	}
	return f, info.Size(), nil
}

// Delete removes name.
func (s *Storage) Delete(name string) error {
	p := filepath.Join(s.dir, name)
	if err := os.Remove(p); err != nil {
		return cerr.Wrap(cerr.ErrStorage, err, "deleting %q", name)
	}
	return nil
}

// Exists reports whether name is already a stored file.
func (s *Storage) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil
}

// Rename renames oldName to newName, refusing to clobber an existing
// newName (spec.md §4.6: "Collisions with an existing new_name cause a
// failure status").
func (s *Storage) Rename(oldName, newName string) error {
	if s.Exists(newName) {
		return cerr.Wrap(cerr.ErrPolicy, nil, "%q already exists", newName)
	}
	from := filepath.Join(s.dir, oldName)
	to := filepath.Join(s.dir, newName)
	if err := os.Rename(from, to); err != nil {
		return cerr.Wrap(cerr.ErrStorage, err, "renaming %q to %q", oldName, newName)
	}
	return nil
}

// SweepTemp deletes every orphaned temp file under root, across all
// users, per spec.md §6 ("Temp files ... are swept at server startup").
// It is also invoked periodically by cmd/cloud-server via usched, to
// catch uploads abandoned mid-stream by a client that never reconnects.
// A temp file is only removed once it is either unrecorded in its user's
// housekeeping file (a crash before the record was written) or older
// than orphanAge; this keeps the startup sweep from racing a legitimate
// upload still streaming over a slow link.
func SweepTemp(root string) (swept int, err error) {
	userDirs, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, cerr.Wrap(cerr.ErrStorage, err, "reading storage root %q", root)
	}
	now := time.Now().Unix()
	for _, ud := range userDirs {
		if !ud.IsDir() {
			continue
		}
		dir := filepath.Join(root, ud.Name())
		entries, rerr := os.ReadDir(dir)
		if rerr != nil {
			continue
		}
		hk := loadHousekeeping(dir)
		changed := false
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), TempSuffix) {
				continue
			}
			started, known := hk.TempStarted[e.Name()]
			if known && now-started < int64(orphanAge/time.Second) {
				continue
			}
			if rmErr := os.Remove(filepath.Join(dir, e.Name())); rmErr == nil {
				swept++
				if known {
					delete(hk.TempStarted, e.Name())
					changed = true
				}
			}
		}
		if changed {
			storeHousekeeping(dir, hk)
		}
	}
	return swept, nil
}
