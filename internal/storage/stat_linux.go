//go:build linux

package storage

import (
	"os"
	"syscall"
	"time"
)

// createdTime approximates the file's creation time. Linux does not
// expose a birth time through os.Stat, so the inode change time is the
// closest signal: for a freshly created file it matches the first mtime.
func createdTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return info.ModTime()
}
