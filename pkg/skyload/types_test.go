package skyload

import (
	"errors"
	"testing"
)

func validLoadConfig() LoadConfig {
	return LoadConfig{
		SourcePath: "star_classification.csv",
		Connection: &ConnectionConfig{Host: "localhost", Port: 5432, Database: "sky"},
		BatchSize:  DefaultBatchSize,
		SchemaMode: SchemaModeCreate,
	}
}

func TestLoadConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LoadConfig)
		wantErr bool
	}{
		{"valid", func(*LoadConfig) {}, false},
		{"missing source", func(c *LoadConfig) { c.SourcePath = "" }, true},
		{"missing connection", func(c *LoadConfig) { c.Connection = nil }, true},
		{"missing database", func(c *LoadConfig) { c.Connection.Database = "" }, true},
		{"zero batch size", func(c *LoadConfig) { c.BatchSize = 0 }, true},
		{"bad schema mode", func(c *LoadConfig) { c.SchemaMode = "truncate" }, true},
		{"negative timeout", func(c *LoadConfig) { c.Timeout = -1 }, true},
		{"duplicate seeded class", func(c *LoadConfig) { c.Classes = []string{"STAR", "STAR"} }, true},
		{"blank seeded class", func(c *LoadConfig) { c.Classes = []string{" "} }, true},
		{"seeded classes", func(c *LoadConfig) { c.Classes = []string{"GALAXY", "STAR", "QSO"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validLoadConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestParseSchemaMode(t *testing.T) {
	for in, want := range map[string]SchemaMode{"": SchemaModeCreate, "create": SchemaModeCreate, "Recreate": SchemaModeRecreate} {
		got, err := ParseSchemaMode(in)
		if err != nil || got != want {
			t.Errorf("ParseSchemaMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseSchemaMode("drop"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unknown mode, got %v", err)
	}
}

func TestSession_CloseRunsReleasesOnce(t *testing.T) {
	var order []string
	s := NewSession(nilConn{}, func() { order = append(order, "conn") }, func() { order = append(order, "pool") })

	s.Close()
	s.Close()

	if len(order) != 2 || order[0] != "conn" || order[1] != "pool" {
		t.Errorf("release order = %v, want [conn pool]", order)
	}
}

func TestLoadReport_Rows(t *testing.T) {
	r := &LoadReport{Tables: []TableReport{{Table: TableClass, Rows: 3}}}
	if r.Rows(TableClass) != 3 || r.Rows(TableObject) != 0 {
		t.Errorf("unexpected Rows result: %+v", r.Tables)
	}
}

type nilConn struct{ SessionConn }
