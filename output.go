package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nicad/filescan/lib"
	"gopkg.in/yaml.v3"
)

func sortedByPath(records []lib.FileRecord) []lib.FileRecord {
	out := make([]lib.FileRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func kindLetter(record lib.FileRecord) string {
	switch {
	case record.IsSymlink:
		return "l"
	case record.IsDir:
		return "d"
	default:
		return "f"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// formatText writes records as an indented tree, case-sensitive sort by path.
func formatText(records []lib.FileRecord, w io.Writer) {
	if len(records) == 0 {
		return
	}
	seenDirs := make(map[string]bool)
	for _, record := range sortedByPath(records) {
		rel := strings.TrimPrefix(filepath.ToSlash(record.Path), "/")
		parts := strings.Split(rel, "/")
		for partIdx := 1; partIdx < len(parts); partIdx++ {
			prefix := strings.Join(parts[:partIdx], "/")
			if !seenDirs[prefix] {
				seenDirs[prefix] = true
				indent := strings.Repeat("  ", partIdx-1)
				fmt.Fprintf(w, "%s%s/\n", indent, parts[partIdx-1])
			}
		}
		indent := strings.Repeat("  ", len(parts)-1)
		line := fmt.Sprintf("%s%s  [%s]  size=%d  mtime=%s  perms=%s",
			indent, parts[len(parts)-1], kindLetter(record), record.Size,
			formatTime(record.ModTime), record.Permissions)
		if record.Hash != "" {
			line += "  hash=" + record.Hash
		}
		fmt.Fprintln(w, line)
	}
}

// formatTable writes records as tab-separated columns.
func formatTable(records []lib.FileRecord, w io.Writer) {
	fmt.Fprintln(w, "path\ttype\tsize\tmtime\tperms\tinode\thash")
	for _, record := range sortedByPath(records) {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%s\n",
			record.Path, kindLetter(record), record.Size,
			formatTime(record.ModTime), record.Permissions, record.Inode, record.Hash)
	}
}

type recordItem struct {
	Path         string `json:"path" yaml:"path"`
	Size         int64  `json:"size" yaml:"size"`
	ModifiedTime string `json:"modified_time" yaml:"modified_time"`
	AccessedTime string `json:"accessed_time" yaml:"accessed_time"`
	CreatedTime  string `json:"created_time" yaml:"created_time"`
	Permissions  string `json:"permissions" yaml:"permissions"`
	Inode        uint64 `json:"inode" yaml:"inode"`
	IsFile       bool   `json:"is_file" yaml:"is_file"`
	IsDir        bool   `json:"is_dir" yaml:"is_dir"`
	IsSymlink    bool   `json:"is_symlink" yaml:"is_symlink"`
	Hash         string `json:"hash,omitempty" yaml:"hash,omitempty"`
}

func recordItems(records []lib.FileRecord) []recordItem {
	var items []recordItem
	for _, record := range sortedByPath(records) {
		items = append(items, recordItem{
			Path:         record.Path,
			Size:         record.Size,
			ModifiedTime: formatTime(record.ModTime),
			AccessedTime: formatTime(record.AccessTime),
			CreatedTime:  formatTime(record.CreateTime),
			Permissions:  record.Permissions,
			Inode:        record.Inode,
			IsFile:       record.IsFile,
			IsDir:        record.IsDir,
			IsSymlink:    record.IsSymlink,
			Hash:         record.Hash,
		})
	}
	return items
}

// formatJSON writes records as an indented JSON array.
func formatJSON(records []lib.FileRecord, w io.Writer) {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.Encode(recordItems(records))
}

// formatYAML writes records as a YAML sequence.
func formatYAML(records []lib.FileRecord, w io.Writer) {
	encoder := yaml.NewEncoder(w)
	encoder.Encode(recordItems(records))
	encoder.Close()
}
