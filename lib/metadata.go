package lib

import (
	"time"
)

// Metadata is a point-in-time snapshot of one filesystem entry. Timestamps
// keep at least millisecond resolution. CreateTime falls back to ModTime on
// platforms or filesystems that do not record a birth time; Inode is 0 where
// the platform has no stable file id.
type Metadata struct {
	Size        int64
	ModTime     time.Time
	AccessTime  time.Time
	CreateTime  time.Time
	Permissions string
	Inode       uint64
	IsFile      bool
	IsDir       bool
	IsSymlink   bool
}

// Kind classifies a discovered path.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
)

// Probe stats path and returns a metadata snapshot. With followSymlinks set
// the link target is statted; otherwise the link itself is, and a symlink is
// reported as such. Errors (permission denied, races with deletion) are
// returned for the caller to count and skip.
func Probe(path string, followSymlinks bool) (*Metadata, error) {
	return probe(path, followSymlinks)
}

// Kind derives the entry classification from the snapshot.
func (m *Metadata) EntryKind() Kind {
	switch {
	case m.IsSymlink:
		return KindSymlink
	case m.IsDir:
		return KindDir
	default:
		return KindFile
	}
}
