package preflight

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	xproxy "golang.org/x/net/proxy"
)

const (
	// discordOrigin is probed to verify egress before the gateway connects.
	discordOrigin = "https://discord.com/api/v10/gateway"

	checkTimeout = 10 * time.Second
)

// Reason classifies why the origin could not be reached.
type Reason string

const (
	ReasonTimeout Reason = "timeout"
	ReasonProxy   Reason = "proxy-connect-failure"
	ReasonTLS     Reason = "tls-validation-failure"
	ReasonOther   Reason = "other"
)

// Result is the outcome of a connectivity check.
type Result struct {
	Reachable bool
	Reason    Reason
	Err       error
}

// Check performs a single bounded GET to the Discord origin, directly or
// through the configured proxy. The result is advisory: callers log it and
// start the session regardless, since discordgo retries on its own.
func Check(proxyURL string) Result {
	return checkOrigin(discordOrigin, proxyURL, checkTimeout)
}

func checkOrigin(origin, proxyURL string, timeout time.Duration) Result {
	client, err := buildClient(proxyURL, timeout)
	if err != nil {
		return Result{Reachable: false, Reason: ReasonProxy, Err: err}
	}

	resp, err := client.Get(origin)
	if err != nil {
		return Result{Reachable: false, Reason: classify(err), Err: err}
	}
	resp.Body.Close()

	return Result{Reachable: true}
}

func buildClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	if proxyURL == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	transport := &http.Transport{}
	switch u.Scheme {
	case "socks5", "socks5h":
		dialer, err := xproxy.FromURL(u, xproxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to build socks5 dialer: %w", err)
		}
		if cd, ok := dialer.(xproxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.Dial = dialer.Dial
		}
	default:
		transport.Proxy = http.ProxyURL(u)
	}

	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

// classify maps a transport error onto a Reason.
func classify(err error) Reason {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	var unknownAuthority x509.UnknownAuthorityError
	var certInvalid x509.CertificateInvalidError
	var hostnameErr x509.HostnameError
	if errors.As(err, &unknownAuthority) || errors.As(err, &certInvalid) || errors.As(err, &hostnameErr) {
		return ReasonTLS
	}

	// net/http prefixes errors from the proxy CONNECT phase, and the
	// socks5 dialer names its protocol in the error text.
	msg := err.Error()
	if strings.Contains(msg, "proxyconnect") || strings.Contains(msg, "socks") {
		return ReasonProxy
	}

	return ReasonOther
}
