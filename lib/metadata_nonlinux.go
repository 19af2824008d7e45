//go:build !linux

package lib

import (
	"fmt"
	"os"
)

// probe on non-Linux platforms uses the portable stat; access and create
// times degrade to the modification time and Inode is 0.
func probe(path string, followSymlinks bool) (*Metadata, error) {
	var info os.FileInfo
	var err error
	if followSymlinks {
		info, err = os.Stat(path)
	} else {
		info, err = os.Lstat(path)
	}
	if err != nil {
		return nil, err
	}
	mode := info.Mode()
	meta := &Metadata{
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		AccessTime:  info.ModTime(),
		CreateTime:  info.ModTime(),
		Permissions: fmt.Sprintf("%o", mode.Perm()),
		IsFile:      mode.IsRegular(),
		IsDir:       mode.IsDir(),
		IsSymlink:   mode&os.ModeSymlink != 0,
	}
	return meta, nil
}
