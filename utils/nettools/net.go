// Package nettools answers one question cheaply: is an idle socket
// still usable? An idle connection that polls readable is not — the
// peer either closed it (EOF pending) or sent bytes outside any
// request/response exchange, and both would corrupt the next exchange.
package nettools

import (
	"net"
	"syscall"
)

type Mode int

const (
	ModePoll Mode = iota
	ModeSelect
)

type verdict int

const (
	verdictUnsure verdict = iota
	verdictAlive
	verdictBroken
)

var (
	supported = map[Mode]func(fd int) verdict{}
	picked    func(fd int) verdict
)

func init() {
	for _, mode := range []Mode{ModePoll, ModeSelect} {
		if supported[mode] != nil {
			picked = supported[mode]
			break
		}
	}
	if picked == nil {
		// no probe available on this platform, assume the best and let
		// the retry path deal with peers that hung up
		picked = func(int) verdict { return verdictUnsure }
	}
}

// ConnAlive reports whether an idle connection can be handed out for
// another exchange. It never blocks.
func ConnAlive(c net.Conn) bool {
	rc := rawConn(c)
	if rc == nil {
		return true
	}
	v := verdictUnsure
	if err := rc.Control(func(fd uintptr) {
		v = picked(int(fd))
	}); err != nil {
		return false
	}
	return v != verdictBroken
}

func rawConn(raw net.Conn) syscall.RawConn {
	if t, ok := raw.(interface{ NetConn() net.Conn }); ok {
		// *tls.Conn or a polyfilled TLS connection
		raw = t.NetConn()
	}
	if c, ok := raw.(syscall.Conn); ok {
		if rc, err := c.SyscallConn(); err == nil {
			return rc
		}
	}
	return nil
}
