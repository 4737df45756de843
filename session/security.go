package session

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/database64128/asynctcp-go/negotiate"
	"github.com/database64128/asynctcp-go/tlscerts"
)

// SecurityOptions configures the authenticated stream transports.
type SecurityOptions struct {
	// Protocols is the set of allowed TLS versions, such as [tls.VersionTLS12].
	// It is applied as a version range, so it must not skip a version between
	// its lowest and highest member. If empty, crypto/tls defaults apply.
	Protocols []uint16

	// RootCAs is the set of trusted roots. If nil, the host's CA set is used.
	RootCAs *x509.CertPool

	// Certificates are the client certificates offered to the server.
	Certificates []tls.Certificate

	// Credential authenticates the negotiate transport.
	// If nil, [negotiate.DefaultCredential] is used.
	Credential *negotiate.Credential

	// AllowUntrustedRoot accepts a self-issued server certificate
	// whose only chain problem is an untrusted root.
	AllowUntrustedRoot bool

	// AllowNameMismatch ignores a server certificate that does not match the target host.
	AllowNameMismatch bool

	// AllowChainErrors ignores all chain validation errors.
	AllowChainErrors bool
}

// ErrNonContiguousProtocols is returned by NewClient when the allowed TLS versions
// leave a gap that a version range cannot express.
var ErrNonContiguousProtocols = errors.New("allowed TLS versions are not contiguous")

// validateProtocols checks that Protocols can be expressed as a version range.
func (o *SecurityOptions) validateProtocols() error {
	if len(o.Protocols) == 0 {
		return nil
	}
	versions := slices.Clone(o.Protocols)
	slices.Sort(versions)
	versions = slices.Compact(versions)
	if int(versions[len(versions)-1]-versions[0])+1 != len(versions) {
		return fmt.Errorf("%w: %#x", ErrNonContiguousProtocols, versions)
	}
	return nil
}

// SecurityOptionsFromStore returns options with the client certificates and trusted roots
// loaded into store under the given names. An empty name leaves that field unset.
func SecurityOptionsFromStore(store *tlscerts.Store, certList, rootCAs string) (*SecurityOptions, error) {
	var opts SecurityOptions

	if certList != "" {
		certs, ok := store.GetCertList(certList)
		if !ok {
			return nil, fmt.Errorf("certificate list not found: %q", certList)
		}
		opts.Certificates = certs
	}

	if rootCAs != "" {
		pool, ok := store.GetX509CertPool(rootCAs)
		if !ok {
			return nil, fmt.Errorf("X.509 certificate pool not found: %q", rootCAs)
		}
		opts.RootCAs = pool
	}

	return &opts, nil
}

// PolicyErrors is a set of certificate validation problems.
type PolicyErrors uint8

const (
	// PolicyErrorNameMismatch means the certificate does not match the target host.
	PolicyErrorNameMismatch PolicyErrors = 1 << iota

	// PolicyErrorChainErrors means the certificate chain failed to validate.
	PolicyErrorChainErrors

	// PolicyErrorNotAvailable means the server sent no certificate.
	PolicyErrorNotAvailable
)

// String returns the names of the problems in the set.
func (e PolicyErrors) String() string {
	if e == 0 {
		return "none"
	}
	var names []string
	if e&PolicyErrorNameMismatch != 0 {
		names = append(names, "name mismatch")
	}
	if e&PolicyErrorChainErrors != 0 {
		names = append(names, "chain errors")
	}
	if e&PolicyErrorNotAvailable != 0 {
		names = append(names, "certificate not available")
	}
	return strings.Join(names, ", ")
}

// ChainStatus classifies a chain validation failure.
type ChainStatus uint8

const (
	ChainStatusNoError ChainStatus = iota
	ChainStatusUntrustedRoot
	ChainStatusExpired
	ChainStatusOther
)

// String implements [fmt.Stringer.String].
func (s ChainStatus) String() string {
	switch s {
	case ChainStatusNoError:
		return "no error"
	case ChainStatusUntrustedRoot:
		return "untrusted root"
	case ChainStatusExpired:
		return "expired"
	default:
		return "other"
	}
}

// chainStatusFromError maps an error from [x509.Certificate.Verify].
func chainStatusFromError(err error) ChainStatus {
	if err == nil {
		return ChainStatusNoError
	}

	var uaErr x509.UnknownAuthorityError
	if errors.As(err, &uaErr) {
		return ChainStatusUntrustedRoot
	}

	var ciErr x509.CertificateInvalidError
	if errors.As(err, &ciErr) && ciErr.Reason == x509.Expired {
		return ChainStatusExpired
	}

	return ChainStatusOther
}

// CertificateError is returned when the server certificate is rejected
// after the relaxation flags have been applied.
type CertificateError struct {
	// Errors are the problems that remained.
	Errors PolicyErrors

	// Chain lists the chain validation statuses.
	Chain []ChainStatus

	// Err is the underlying validation error, if any.
	Err error
}

// Error implements [error.Error].
func (e *CertificateError) Error() string {
	s := "server certificate rejected: " + e.Errors.String()
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying validation error.
func (e *CertificateError) Unwrap() error {
	return e.Err
}

// certificateCheck is the outcome of validating a server certificate before policy is applied.
type certificateCheck struct {
	errors     PolicyErrors
	chain      []ChainStatus
	selfIssued bool
	err        error
}

// checkCertificates validates the certificates presented for host.
func (o *SecurityOptions) checkCertificates(certs []*x509.Certificate, host string, now time.Time) (c certificateCheck) {
	if len(certs) == 0 {
		c.errors = PolicyErrorNotAvailable
		return c
	}

	leaf := certs[0]
	c.selfIssued = bytes.Equal(leaf.RawIssuer, leaf.RawSubject)

	if err := leaf.VerifyHostname(host); err != nil {
		c.errors |= PolicyErrorNameMismatch
		c.err = err
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}

	if _, err := leaf.Verify(x509.VerifyOptions{
		Roots:         o.RootCAs,
		Intermediates: intermediates,
		CurrentTime:   now,
	}); err != nil {
		c.errors |= PolicyErrorChainErrors
		c.chain = append(c.chain, chainStatusFromError(err))
		c.err = errors.Join(c.err, err)
	}

	return c
}

// acceptCertificate applies the relaxation flags to a certificate check.
//
// Hostname mismatch and chain errors are masked out when allowed. If chain errors remain
// and AllowUntrustedRoot is set, the chain is accepted only when its sole problem is an
// untrusted root on a self-issued leaf.
func (o *SecurityOptions) acceptCertificate(c certificateCheck) error {
	remaining := c.errors
	if remaining == 0 {
		return nil
	}
	if o.AllowNameMismatch {
		remaining &^= PolicyErrorNameMismatch
	}
	if o.AllowChainErrors {
		remaining &^= PolicyErrorChainErrors
	}
	if remaining == 0 {
		return nil
	}

	if o.AllowUntrustedRoot && remaining == PolicyErrorChainErrors && c.selfIssued {
		accepted := true
		for _, status := range c.chain {
			switch status {
			case ChainStatusNoError, ChainStatusUntrustedRoot:
			default:
				accepted = false
			}
		}
		if accepted {
			return nil
		}
	}

	return &CertificateError{
		Errors: remaining,
		Chain:  c.chain,
		Err:    c.err,
	}
}

// tlsConfig returns the client TLS configuration for host.
// Chain and name validation happen in VerifyConnection so that the relaxation flags apply.
func (o *SecurityOptions) tlsConfig(host string) *tls.Config {
	config := &tls.Config{
		Certificates:       o.Certificates,
		ServerName:         host,
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			return o.acceptCertificate(o.checkCertificates(cs.PeerCertificates, host, time.Now()))
		},
	}
	if len(o.Protocols) > 0 {
		config.MinVersion = slices.Min(o.Protocols)
		config.MaxVersion = slices.Max(o.Protocols)
	}
	return config
}
