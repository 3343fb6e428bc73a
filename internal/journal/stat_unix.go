//go:build unix

package journal

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func statFile(path string) (Stat, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return Stat{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return Stat{
		Size:    st.Size,
		Inode:   st.Ino,
		MtimeNs: st.Mtim.Nano(),
	}, nil
}
