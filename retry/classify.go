package retry

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"
)

// Class partitions operation errors by whether a retry can help.
type Class int

const (
	ClassNone Class = iota
	ClassTransient
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	}
	return "none"
}

// Server replies that indicate a momentary cluster condition. MOVED/ASK
// show up during resharding when a node answers for a slot it no longer
// owns; a retry lands on the refreshed topology.
var transientReplies = []string{
	"TRYAGAIN",
	"LOADING",
	"CLUSTERDOWN",
	"MOVED",
	"ASK",
	"READONLY",
}

// Classify maps an operation error to its retry class. nil maps to
// ClassNone; a cache miss is not an error and must not reach here.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	if Transient(err) {
		return ClassTransient
	}
	return ClassPermanent
}

// Transient reports whether the error is expected to clear on retry:
// timeouts, connection-level failures, and cluster redirection or
// resharding replies. Everything else (NOAUTH, WRONGPASS, ERR, ...) is
// permanent.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	msg := err.Error()
	for _, reply := range transientReplies {
		if strings.HasPrefix(msg, reply) {
			return true
		}
	}
	return strings.Contains(msg, "connection pool timeout")
}
