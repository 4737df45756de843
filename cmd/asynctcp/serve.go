package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/database64128/asynctcp-go/conn"
	"github.com/database64128/asynctcp-go/negotiate"
	"github.com/database64128/asynctcp-go/session"
	"github.com/database64128/asynctcp-go/tlscerts"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an echo server for testing the client transports",
	Long: `Accepts connections and echoes back everything it receives.

With the tls transport and no certificate, a self-signed certificate is generated
for the names given by --tls-host. With the negotiate transport, the only user is
the one named by the negotiate environment variables.`,
	Args:    cobra.NoArgs,
	PreRunE: bindFlags,
	RunE:    runServe,
}

func init() {
	flags := serveCmd.Flags()

	flags.String("listen", "127.0.0.1:7000", "Address to listen on")
	flags.String("transport", "plain", "Transport: plain, tls, or negotiate")
	flags.Int("fwmark", 0, "Set SO_MARK on the listener (Linux only)")
	flags.Bool("tcp-fast-open", false, "Enable TCP Fast Open on the listener")
	flags.Duration("handshake-timeout", 10*time.Second, "Time allowed for the TLS or negotiate handshake")

	flags.String("tls-cert", "", "Path to the PEM-encoded server certificate")
	flags.String("tls-key", "", "Path to the PEM-encoded server private key")
	flags.StringSlice("tls-host", []string{"localhost", "127.0.0.1", "::1"}, "Names and addresses in the generated certificate")

	flags.String("negotiate-service", "localhost", "Service name clients must ask for, usually the host they connect to")
}

// serverHandshake authenticates an accepted connection and returns the stream to echo on
// and the authenticated peer name, if any.
type serverHandshake func(nc net.Conn) (stream net.Conn, peer string, err error)

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	transport, err := session.ParseTransportKind(viper.GetString("transport"))
	if err != nil {
		return err
	}

	handshake, err := newServerHandshake(transport)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lc := conn.NewListenConfig(viper.GetBool("tcp-fast-open"), viper.GetInt("fwmark"))
	ln, err := lc.Listen(ctx, "tcp", viper.GetString("listen"))
	if err != nil {
		return err
	}

	logger.Info("Started echo server",
		zap.Stringer("listenAddress", ln.Addr()),
		zap.Stringer("transport", transport),
	)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Received exit signal", zap.Stringer("signal", sig))
		signal.Stop(sigCh)
		cancel()
		ln.Close()
	}()

	handshakeTimeout := viper.GetDuration("handshake-timeout")

	for {
		nc, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warn("Failed to accept connection", zap.Error(err))
			continue
		}
		go serveEchoConn(nc, handshake, handshakeTimeout, logger)
	}
}

func serveEchoConn(nc net.Conn, handshake serverHandshake, handshakeTimeout time.Duration, logger *zap.Logger) {
	defer nc.Close()

	remoteAddr := nc.RemoteAddr()
	stream := nc
	var peer string

	if handshake != nil {
		if handshakeTimeout > 0 {
			_ = nc.SetDeadline(time.Now().Add(handshakeTimeout))
		}
		var err error
		stream, peer, err = handshake(nc)
		if err != nil {
			logger.Warn("Handshake failed",
				zap.Stringer("clientAddress", remoteAddr),
				zap.String("peer", peer),
				zap.Error(err),
			)
			return
		}
		_ = nc.SetDeadline(time.Time{})
	}

	logger.Info("Accepted connection",
		zap.Stringer("clientAddress", remoteAddr),
		zap.String("peer", peer),
	)

	n, err := io.Copy(stream, stream)
	if err != nil && !conn.IsIgnorable(err) {
		logger.Warn("Echo failed",
			zap.Stringer("clientAddress", remoteAddr),
			zap.Int64("bytes", n),
			zap.Error(err),
		)
		return
	}

	logger.Info("Closed connection",
		zap.Stringer("clientAddress", remoteAddr),
		zap.Int64("bytes", n),
	)
}

// newServerHandshake returns the server side of the transport, or nil for plain connections.
func newServerHandshake(transport session.TransportKind) (serverHandshake, error) {
	switch transport {
	case session.TransportPlain:
		return nil, nil

	case session.TransportTLS:
		cert, err := loadOrGenerateServerCert(
			viper.GetString("tls-cert"),
			viper.GetString("tls-key"),
			viper.GetStringSlice("tls-host"),
		)
		if err != nil {
			return nil, err
		}
		tlsConfig := &tls.Config{
			Certificates: []tls.Certificate{cert},
		}
		return func(nc net.Conn) (net.Conn, string, error) {
			tc := tls.Server(nc, tlsConfig)
			if err := tc.Handshake(); err != nil {
				return nil, "", err
			}
			return tc, tc.ConnectionState().ServerName, nil
		}, nil

	case session.TransportNegotiate:
		cred, err := negotiate.DefaultCredential()
		if err != nil {
			return nil, err
		}
		server := negotiate.ServerConfig{
			ServiceName: viper.GetString("negotiate-service"),
			LookupKey: func(username string) ([]byte, bool) {
				if username != cred.Username {
					return nil, false
				}
				return cred.Key, true
			},
		}.NewServer()
		return func(nc net.Conn) (net.Conn, string, error) {
			username, err := server.Handshake(nc)
			return nc, username, err
		}, nil

	default:
		return nil, fmt.Errorf("unsupported transport: %s", transport)
	}
}

// loadOrGenerateServerCert loads the certificate at certPath and keyPath,
// or generates a self-signed one for hosts if certPath is empty.
func loadOrGenerateServerCert(certPath, keyPath string, hosts []string) (tls.Certificate, error) {
	if certPath != "" {
		const certList = "server"
		storeConfig := tlscerts.Config{
			CertLists: []tlscerts.TLSCertListConfig{
				{
					Name: certList,
					Certs: []tlscerts.TLSCertConfig{
						{
							CertPath: certPath,
							KeyPath:  keyPath,
						},
					},
				},
			},
		}
		store, err := storeConfig.NewStore()
		if err != nil {
			return tls.Certificate{}, err
		}
		certs, _ := store.GetCertList(certList)
		return certs[0], nil
	}

	if len(hosts) == 0 {
		return tls.Certificate{}, errors.New("no host names for the generated certificate")
	}

	gc := tlscerts.GenerateConfig{
		CommonName: hosts[0],
		ValidFor:   365 * 24 * time.Hour,
	}
	for _, host := range hosts {
		if addr, err := netip.ParseAddr(host); err == nil {
			gc.IPAddresses = append(gc.IPAddresses, addr)
		} else {
			gc.DNSNames = append(gc.DNSNames, host)
		}
	}
	return gc.Generate()
}
