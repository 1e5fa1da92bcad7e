package procfs

import (
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"
)

// readOwner resolves the owning user of the pid directory. Falls back to
// the numeric uid when the name cannot be resolved.
func (r *Reader) readOwner(pid PID, rec *Record) error {
	var st unix.Stat_t
	if err := unix.Stat(r.procDir(pid), &st); err != nil {
		return err
	}
	uid := strconv.FormatUint(uint64(st.Uid), 10)
	if u, err := user.LookupId(uid); err == nil {
		rec.Owner = u.Username
		return nil
	}
	rec.Owner = uid
	return nil
}
