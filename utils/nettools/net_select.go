//go:build freebsd || netbsd || openbsd
// +build freebsd netbsd openbsd

package nettools

import (
	"golang.org/x/sys/unix"
)

var _ = func() error { // make sure this executes before func init()
	supported[ModeSelect] = selectIdle
	return nil
}()

func selectIdle(fd int) verdict {
	if fd >= 1024 {
		return verdictUnsure // beyond FD_SETSIZE
	}
	rset := &unix.FdSet{}
	rset.Set(fd)
	tv := unix.Timeval{}
	n, err := unix.Select(fd+1, rset, nil, nil, &tv)
	if err != nil {
		return verdictUnsure
	}
	if n == 0 {
		return verdictAlive
	}
	return verdictBroken
}
