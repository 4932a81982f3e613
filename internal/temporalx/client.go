package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/eduvideo-backend/internal/platform/httpx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

// NewClient dials Temporal, retrying until cfg.DialMaxWait. It returns a nil
// client and no error when cfg.Address is empty.
func NewClient(cfg Config, log *logger.Logger) (temporalsdkclient.Client, error) {
	if cfg.Address == "" {
		log.Warn("TEMPORAL_ADDRESS not set; dispatch replay runs inline")
		return nil, nil
	}
	opts := temporalsdkclient.Options{
		HostPort:  cfg.Address,
		Namespace: cfg.Namespace,
		Logger:    log,
	}
	if cfg.mTLS() {
		tlsCfg, err := loadTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.ConnectionOptions.TLS = tlsCfg
	}

	deadline := time.Now().Add(cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
		c, err := temporalsdkclient.DialContext(ctx, opts)
		cancel()
		if err == nil {
			log.Info("connected to temporal", "address", cfg.Address, "namespace", cfg.Namespace, "attempts", attempt)
			if cfg.AutoRegisterNamespace {
				if err := EnsureNamespace(context.Background(), cfg, log); err != nil {
					c.Close()
					return nil, err
				}
			}
			return c, nil
		}
		if cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			return nil, fmt.Errorf("temporal dial failed (address=%s namespace=%s): %w", cfg.Address, cfg.Namespace, err)
		}
		log.Warn("temporal not reachable; retrying", "address", cfg.Address, "attempt", attempt, "error", err)
		time.Sleep(httpx.ClampBackoff(cfg.DialBackoff, cfg.DialBackoffMax, attempt))
	}
}

// EnsureNamespace registers cfg.Namespace when it does not exist. Meant for
// self-hosted Temporal; managed namespaces should be provisioned ahead of time.
func EnsureNamespace(ctx context.Context, cfg Config, log *logger.Logger) error {
	if cfg.Address == "" || cfg.Namespace == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// The namespace client sends no namespace header, so it can create a missing one.
	nsOpts := temporalsdkclient.Options{HostPort: cfg.Address, Logger: log}
	if cfg.mTLS() {
		tlsCfg, err := loadTLSConfig(cfg)
		if err != nil {
			return err
		}
		nsOpts.ConnectionOptions.TLS = tlsCfg
	}
	ns, err := temporalsdkclient.NewNamespaceClient(nsOpts)
	if err != nil {
		return fmt.Errorf("temporal namespace client: %w", err)
	}
	defer ns.Close()

	retention := cfg.RetentionDays
	if retention < 1 || retention > 365 {
		retention = 7
	}
	for attempt := 1; ; attempt++ {
		_, err := ns.Describe(ctx, cfg.Namespace)
		if err == nil {
			return nil
		}
		var nfe *serviceerror.NamespaceNotFound
		if errors.As(err, &nfe) {
			err = ns.Register(ctx, &workflowservice.RegisterNamespaceRequest{
				Namespace:                        cfg.Namespace,
				Description:                      "eduvideo dispatch replay",
				WorkflowExecutionRetentionPeriod: durationpb.New(time.Duration(retention) * 24 * time.Hour),
			})
			var exists *serviceerror.NamespaceAlreadyExists
			if err == nil || errors.As(err, &exists) {
				log.Info("temporal namespace registered", "namespace", cfg.Namespace, "retention_days", retention)
				return nil
			}
		}
		if !isRetryableRPC(err) || ctx.Err() != nil {
			return fmt.Errorf("temporal namespace ensure (namespace=%s): %w", cfg.Namespace, err)
		}
		log.Warn("temporal namespace ensure retrying", "namespace", cfg.Namespace, "attempt", attempt, "error", err)
		if err := httpx.Sleep(ctx, httpx.ClampBackoff(250*time.Millisecond, 5*time.Second, attempt)); err != nil {
			return err
		}
	}
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, fmt.Errorf("temporal tls: TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH are both required")
	}
	cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: load client cert: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if cfg.ClientCAPath != "" {
		pem, err := os.ReadFile(cfg.ClientCAPath)
		if err != nil {
			return nil, fmt.Errorf("temporal tls: read CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("temporal tls: invalid CA pem")
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

func isRetryableRPC(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return errors.Is(err, context.DeadlineExceeded)
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}
