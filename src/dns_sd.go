package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce the UDP keying service using DNS-SD
 *
 * Description:
 *
 *     Most people have typed in enough IP addresses and ports by now, and
 *     would rather just select an available keyer that is automatically
 *     discovered on the local network.
 *
 *     This uses the pure-Go github.com/brutella/dnssd package for
 *     cross-platform mDNS/DNS-SD service announcement without requiring
 *     any system daemon or C library dependencies.
 */

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/brutella/dnssd"
)

const DNS_SD_SERVICE = "_cwdaemon._udp"

/* Get a default service name to publish. By default,
 * "cwkey on <hostname>", or just "cwkey" if hostname cannot
 * be obtained.
 */
func dnsSDDefaultServiceName() string {
	var hostname, hostnameErr = os.Hostname()
	if hostnameErr != nil {
		return "cwkey"
	}

	// on some systems, an FQDN is returned; remove domain part
	hostname, _, _ = strings.Cut(hostname, ".")

	return "cwkey on " + hostname
}

// DNSSDAnnounce publishes the service until ctx is done.  It returns
// once the responder is set up; the announcement runs in the background.
func DNSSDAnnounce(ctx context.Context, name string, port int) error {
	if name == "" {
		name = dnsSDDefaultServiceName()
	}

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: DNS_SD_SERVICE,
		Port: port,
	}

	var sv, svErr = dnssd.NewService(cfg)
	if svErr != nil {
		return fmt.Errorf("DNS-SD: failed to create service: %w", svErr)
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		return fmt.Errorf("DNS-SD: failed to create responder: %w", rpErr)
	}

	var _, addErr = rp.Add(sv)
	if addErr != nil {
		return fmt.Errorf("DNS-SD: failed to add service: %w", addErr)
	}

	logger.Infof("DNS-SD: Announcing %s on port %d as '%s'", DNS_SD_SERVICE, port, name)

	go func() {
		var respondErr = rp.Respond(ctx)
		if respondErr != nil && ctx.Err() == nil {
			logger.Error("DNS-SD: Responder error", "err", respondErr)
		}
	}()

	return nil
}
