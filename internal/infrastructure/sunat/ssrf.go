package sunat

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"syscall"

	"github.com/jhoicas/facturador-sunat/internal/domain"
)

// Resolver resolución DNS (net.DefaultResolver en producción).
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// DestinationGuard bloquea destinos que resuelven a direcciones privadas,
// loopback o link-local antes de abrir cualquier conexión saliente.
type DestinationGuard struct {
	Resolver Resolver
	// AllowPrivate desactiva el bloqueo (solo pruebas locales contra httptest).
	AllowPrivate bool
}

// NewDestinationGuard guard con el resolver del sistema.
func NewDestinationGuard(allowPrivate bool) *DestinationGuard {
	return &DestinationGuard{Resolver: net.DefaultResolver, AllowPrivate: allowPrivate}
}

// IsBlockedIP true para 10/8, 172.16/12, 192.168/16, 127/8, 169.254/16, ::1, fc00::/7,
// fe80::/10 y la dirección no especificada.
func IsBlockedIP(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}

// Check resuelve el host de rawURL y falla con BlockedDestinationError si alguna
// dirección está en un rango bloqueado.
func (g *DestinationGuard) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return &domain.TransmissionError{Op: "resolver destino", Err: fmt.Errorf("URL inválida %q", rawURL)}
	}
	if g == nil || g.AllowPrivate {
		return nil
	}
	host := u.Hostname()
	if addr, err := netip.ParseAddr(host); err == nil {
		if IsBlockedIP(addr) {
			return &domain.BlockedDestinationError{Host: host, IP: addr.String()}
		}
		return nil
	}
	resolver := g.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	ips, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return &domain.TransmissionError{Op: "resolver destino", Err: err}
	}
	for _, ip := range ips {
		addr, ok := netip.AddrFromSlice(ip.IP)
		if ok && IsBlockedIP(addr) {
			return &domain.BlockedDestinationError{Host: host, IP: addr.String()}
		}
	}
	return nil
}

// Control se engancha en net.Dialer.Control: vuelve a validar la IP efectiva al
// conectar, lo que cubre redirecciones y cambios de DNS entre Check y el dial.
func (g *DestinationGuard) Control(_, address string, _ syscall.RawConn) error {
	if g == nil || g.AllowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	if IsBlockedIP(addr) {
		return &domain.BlockedDestinationError{Host: host, IP: addr.String()}
	}
	return nil
}
