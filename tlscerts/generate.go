package tlscerts

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/netip"
	"time"
)

// GenerateConfig describes a certificate to generate.
type GenerateConfig struct {
	// CommonName is the subject common name.
	CommonName string

	// DNSNames and IPAddresses are the subject alternative names.
	DNSNames    []string
	IPAddresses []netip.Addr

	// NotBefore defaults to one hour before now.
	NotBefore time.Time

	// ValidFor defaults to 24 hours. A negative value yields an already expired certificate.
	ValidFor time.Duration

	// IsCA makes the certificate usable as an issuer.
	IsCA bool

	// Issuer signs the certificate. If nil, the certificate is self-signed.
	Issuer *tls.Certificate
}

// Generate creates a new ECDSA P-256 key pair and certificate.
// The returned certificate has its Leaf populated and its chain includes the issuer's chain.
func (c GenerateConfig) Generate() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, err
	}

	notBefore := c.NotBefore
	if notBefore.IsZero() {
		notBefore = time.Now().Add(-time.Hour)
	}
	validFor := c.ValidFor
	if validFor == 0 {
		validFor = 24 * time.Hour
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: c.CommonName},
		DNSNames:              c.DNSNames,
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  c.IsCA,
	}
	if validFor < 0 {
		template.NotAfter = notBefore
		template.NotBefore = notBefore.Add(validFor)
	}
	if c.IsCA {
		template.KeyUsage |= x509.KeyUsageCertSign
	}
	for _, ip := range c.IPAddresses {
		template.IPAddresses = append(template.IPAddresses, net.IP(ip.AsSlice()))
	}

	parent, signer := template, any(key)
	var chain [][]byte
	if c.Issuer != nil {
		if c.Issuer.Leaf == nil {
			return tls.Certificate{}, errors.New("issuer certificate has no parsed leaf")
		}
		parent, signer = c.Issuer.Leaf, c.Issuer.PrivateKey
		chain = c.Issuer.Certificate
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, signer)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}

	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: append([][]byte{der}, chain...),
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}
