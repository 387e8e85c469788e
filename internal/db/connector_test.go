package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/skyload/skyload/internal/logging"
	"github.com/skyload/skyload/pkg/skyload"
)

func TestWrapConnectionError(t *testing.T) {
	tests := []struct {
		name         string
		errMsg       string
		wantContains string
	}{
		{"connection refused", "dial tcp 127.0.0.1:5432: connection refused", "connection refused to db:5432"},
		{"actively refused", "connectex: No connection could be made because the target machine actively refused it", "connection refused to db:5432"},
		{"no such host", "lookup db: no such host", `cannot resolve host "db"`},
		{"password", "FATAL: password authentication failed for user \"astro\"", `password authentication failed for database "sky"`},
		{"missing database", "FATAL: database \"sky\" does not exist", "--create-database"},
		{"timeout", "dial tcp: i/o timeout", "connection timed out to db:5432"},
		{"tls", "tls: failed to verify certificate", "SSL/TLS connection error"},
		{"too many", "FATAL: sorry, too many connections for role", `too many connections to database "sky"`},
		{"other", "something odd", "failed to connect to database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := errors.New(tt.errMsg)
			err := wrapConnectionError(original, "db", 5432, "sky")

			if !strings.Contains(err.Error(), tt.wantContains) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantContains)
			}
			if !errors.Is(err, original) {
				t.Error("wrapped error does not unwrap to the original")
			}
			if !errors.Is(err, skyload.ErrConnectionFailed) {
				t.Error("wrapped error does not match ErrConnectionFailed")
			}
			if code := skyload.ExitCodeForError(err); code != skyload.ExitConnectionError {
				t.Errorf("ExitCodeForError() = %d, want %d", code, skyload.ExitConnectionError)
			}
		})
	}
}

func TestNewConnector_SelectsByAuthMethod(t *testing.T) {
	logger := logging.NewNullLogger()

	tests := []struct {
		name    string
		config  *skyload.ConnectionConfig
		check   func(skyload.Connector) bool
		wantErr error
	}{
		{
			name:   "standard",
			config: &skyload.ConnectionConfig{AuthMethod: skyload.AuthMethodStandard},
			check: func(c skyload.Connector) bool {
				pc, ok := c.(*PoolConnector)
				return ok && pc.tokenProvider == nil
			},
		},
		{
			name:   "certificate",
			config: &skyload.ConnectionConfig{AuthMethod: skyload.AuthMethodCertificate},
			check: func(c skyload.Connector) bool {
				_, ok := c.(*PoolConnector)
				return ok
			},
		},
		{
			name: "aws",
			config: &skyload.ConnectionConfig{
				AuthMethod: skyload.AuthMethodAWSIAM, Host: "rds", Port: 5432, Username: "astro", AWSRegion: "us-east-1",
			},
			check: func(c skyload.Connector) bool {
				pc, ok := c.(*PoolConnector)
				if !ok {
					return false
				}
				_, isAWS := pc.tokenProvider.(*AWSIAMTokenProvider)
				return isAWS
			},
		},
		{
			name: "google",
			config: &skyload.ConnectionConfig{
				AuthMethod: skyload.AuthMethodGoogleIAM, Username: "astro", GoogleInstance: "p:r:i",
			},
			check: func(c skyload.Connector) bool {
				_, ok := c.(*GoogleCloudSQLConnector)
				return ok
			},
		},
		{
			name:    "google without instance",
			config:  &skyload.ConnectionConfig{AuthMethod: skyload.AuthMethodGoogleIAM, Username: "astro"},
			wantErr: skyload.ErrInvalidConfig,
		},
		{
			name:    "aws without region",
			config:  &skyload.ConnectionConfig{AuthMethod: skyload.AuthMethodAWSIAM, Host: "rds", Port: 5432, Username: "astro"},
			wantErr: skyload.ErrInvalidConfig,
		},
		{
			name:    "unknown",
			config:  &skyload.ConnectionConfig{AuthMethod: skyload.AuthMethod(42)},
			wantErr: skyload.ErrUnsupportedAuthMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connector, err := NewConnector(tt.config, logger)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewConnector() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewConnector() error = %v", err)
			}
			if !tt.check(connector) {
				t.Errorf("NewConnector() returned %T", connector)
			}
		})
	}
}

type failingTokenProvider struct {
	calls int
}

func (p *failingTokenProvider) GetToken(context.Context) (string, time.Time, error) {
	p.calls++
	return "", time.Time{}, errors.New("credentials expired")
}

func (p *failingTokenProvider) String() string { return "test provider" }

func TestPoolConnector_TokenFailureIsNotRetried(t *testing.T) {
	provider := &failingTokenProvider{}
	connector := NewTokenBasedConnector(&skyload.ConnectionConfig{Host: "db", Port: 5432, Database: "sky"}, provider, logging.NewNullLogger())

	_, err := connector.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect() expected error")
	}
	if !strings.Contains(err.Error(), "test provider") {
		t.Errorf("error %q does not name the provider", err.Error())
	}
	if provider.calls != 1 {
		t.Errorf("GetToken calls = %d, want 1", provider.calls)
	}
}

func TestNewAWSIAMTokenProvider_Validation(t *testing.T) {
	if _, err := NewAWSIAMTokenProvider("", "r", "u"); !errors.Is(err, skyload.ErrInvalidConfig) {
		t.Errorf("missing endpoint error = %v", err)
	}
	if _, err := NewAWSIAMTokenProvider("h:1", "", "u"); !errors.Is(err, skyload.ErrInvalidConfig) {
		t.Errorf("missing region error = %v", err)
	}
	p, err := NewAWSIAMTokenProvider("h:1", "r", "u")
	if err != nil {
		t.Fatalf("NewAWSIAMTokenProvider() error = %v", err)
	}
	if !strings.Contains(p.String(), "region=r") {
		t.Errorf("String() = %q", p.String())
	}
}

func TestNewAzureServicePrincipalProvider_RequiresAllFields(t *testing.T) {
	if _, err := NewAzureServicePrincipalProvider("t", "c", ""); !errors.Is(err, skyload.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}
