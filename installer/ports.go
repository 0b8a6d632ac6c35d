package installer

import (
	"errors"
	"net"
	"strconv"
	"syscall"
)

// HostFamilies records which IP families this host supports, as a
// first-class cacheable value (SPEC_FULL.md §4, grounded on the style of
// small host-capability probes). R5 validation reuses it (the installer
// API server probes once at construction) rather than re-probing the host
// per plan; the service-lifecycle process-enumeration step does not use it.
type HostFamilies struct {
	IPv4 bool
	IPv6 bool
}

// ProbeHostFamilies opens a throwaway listener on each family to
// determine what the host actually supports, rather than trusting a
// static assumption.
func ProbeHostFamilies() HostFamilies {
	return HostFamilies{
		IPv4: canListen("tcp4"),
		IPv6: canListen("tcp6"),
	}
}

func canListen(network string) bool {
	l, err := net.Listen(network, ":0")
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// ProbePortFree reports whether port can be bound on every IP family the
// host reports available (spec.md §4.3.1 R5). A bind-listen failure on a
// family the host does not support is not itself a rejection; only an
// EADDRINUSE-equivalent failure on a supported family fails the plan.
func ProbePortFree(port int, families HostFamilies) bool {
	ok := true
	if families.IPv4 {
		ok = ok && probeBind("tcp4", port)
	}
	if families.IPv6 {
		ok = ok && probeBind("tcp6", port)
	}
	if !families.IPv4 && !families.IPv6 {
		// Host reports no usable IP family at all; nothing to bind,
		// treat as free since the port question is moot.
		return true
	}
	return ok
}

func probeBind(network string, port int) bool {
	addr := portAddr(network, port)
	l, err := net.Listen(network, addr)
	if err != nil {
		// Only an address-in-use failure marks the port as taken; any
		// other bind error is not a rejection.
		return !errors.Is(err, syscall.EADDRINUSE)
	}
	_ = l.Close()
	return true
}

func portAddr(network string, port int) string {
	if network == "tcp6" {
		return "[::]:" + strconv.Itoa(port)
	}
	return "0.0.0.0:" + strconv.Itoa(port)
}
