//go:build linux

package lib

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// probe on Linux stats through x/sys so access time, change time, and inode
// come from the same syscall as size and mode. Linux rarely exposes a birth
// time, so CreateTime falls back to ModTime.
func probe(path string, followSymlinks bool) (*Metadata, error) {
	var st unix.Stat_t
	var err error
	if followSymlinks {
		err = unix.Stat(path, &st)
	} else {
		err = unix.Lstat(path, &st)
	}
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	modTime := time.Unix(st.Mtim.Unix())
	meta := &Metadata{
		Size:        st.Size,
		ModTime:     modTime,
		AccessTime:  time.Unix(st.Atim.Unix()),
		CreateTime:  modTime,
		Permissions: fmt.Sprintf("%o", st.Mode),
		Inode:       st.Ino,
		IsFile:      st.Mode&unix.S_IFMT == unix.S_IFREG,
		IsDir:       st.Mode&unix.S_IFMT == unix.S_IFDIR,
		IsSymlink:   st.Mode&unix.S_IFMT == unix.S_IFLNK,
	}
	return meta, nil
}
