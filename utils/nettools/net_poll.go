//go:build darwin || linux
// +build darwin linux

package nettools

import (
	"golang.org/x/sys/unix"
)

var _ = func() error { // make sure this executes before func init()
	supported[ModePoll] = pollIdle
	return nil
}()

func pollIdle(fd int) verdict {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(pfd, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return verdictUnsure
		}
		if n == 0 {
			return verdictAlive
		}
		// readable, hung up or in error: all disqualify an idle socket
		return verdictBroken
	}
}
