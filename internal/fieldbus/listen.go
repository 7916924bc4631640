package fieldbus

import (
	"fmt"
	"net"
	"os"
	"syscall"
)

// listenBacklog binds a TCP listener on host:port with an explicit
// accept-queue backlog. The net package has no public way to pass a
// custom backlog to the kernel's listen(2) call, so the socket is
// built by hand and handed back to net as a *os.File.
func listenBacklog(host string, port int, backlog int) (net.Listener, error) {
	if backlog <= 0 {
		backlog = syscall.SOMAXCONN
	}

	ip, err := resolveHost(host)
	if err != nil {
		return nil, err
	}

	var domain int
	var sa syscall.Sockaddr
	if v4 := ip.To4(); v4 != nil {
		domain = syscall.AF_INET
		var addr [4]byte
		copy(addr[:], v4)
		sa = &syscall.SockaddrInet4{Port: port, Addr: addr}
	} else {
		domain = syscall.AF_INET6
		var addr [16]byte
		copy(addr[:], ip.To16())
		sa = &syscall.SockaddrInet6{Port: port, Addr: addr}
	}

	fd, err := syscall.Socket(domain, syscall.SOCK_STREAM, syscall.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("fieldbus: socket: %w", err)
	}

	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("fieldbus: setsockopt SO_REUSEADDR: %w", err)
	}
	if err := syscall.Bind(fd, sa); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("fieldbus: bind %s:%d: %w", host, port, err)
	}
	if err := syscall.Listen(fd, backlog); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("fieldbus: listen %s:%d backlog %d: %w", host, port, backlog, err)
	}

	file := os.NewFile(uintptr(fd), fmt.Sprintf("%s:%d", host, port))
	defer file.Close()

	ln, err := net.FileListener(file)
	if err != nil {
		return nil, fmt.Errorf("fieldbus: file listener: %w", err)
	}
	return ln, nil
}

func resolveHost(host string) (net.IP, error) {
	if host == "" {
		return net.IPv4zero, nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	addrs, err := net.LookupIP(host)
	if err != nil || len(addrs) == 0 {
		return nil, fmt.Errorf("fieldbus: resolve host %q: %w", host, err)
	}
	return addrs[0], nil
}
