package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skyload/skyload/internal/db"
	"github.com/skyload/skyload/internal/extract"
	"github.com/skyload/skyload/internal/retry"
	"github.com/skyload/skyload/internal/schema"
	"github.com/skyload/skyload/internal/writer"
	"github.com/skyload/skyload/pkg/skyload"
)

// maxAppNameLen is PostgreSQL's NAMEDATALEN - 1.
const maxAppNameLen = 63

// SchemaInitializer prepares the target tables on the session connection.
type SchemaInitializer interface {
	Init(ctx context.Context, conn skyload.SessionConn, mode skyload.SchemaMode) error
}

type managementDBConnFunc func(ctx context.Context, connConfig *skyload.ConnectionConfig, dbName string) (skyload.DBConnection, func(), error)

// LoadService implements skyload.Loader.
//
// Thread-Safety: NOT safe for concurrent Load() calls on the same instance.
// Create separate instances for concurrent loads.
type LoadService struct {
	connectorFactory ConnectorFactory
	sessions         skyload.SessionOpener
	reader           skyload.DatasetReader
	schema           SchemaInitializer
	dbManager        skyload.DatabaseManager
	logger           skyload.Logger
	mgmtConnector    managementDBConnFunc

	observer   skyload.ProgressObserver
	commitHook writer.CommitHook
	newRunID   func() uuid.UUID
	now        func() time.Time
}

// LoadOption configures a LoadService.
type LoadOption func(*LoadService)

// WithProgress reports per-table progress after every committed batch.
func WithProgress(o skyload.ProgressObserver) LoadOption {
	return func(s *LoadService) { s.observer = o }
}

// WithCommitHook is called after every committed batch of every table.
func WithCommitHook(hook writer.CommitHook) LoadOption {
	return func(s *LoadService) { s.commitHook = hook }
}

// NewLoadService creates a LoadService with all dependencies injected.
//
// Panics on nil dependencies: these are wiring mistakes that should fail at
// startup, not in the middle of a load.
func NewLoadService(
	connectorFactory ConnectorFactory,
	sessions skyload.SessionOpener,
	reader skyload.DatasetReader,
	schemaInit SchemaInitializer,
	dbManager skyload.DatabaseManager,
	logger skyload.Logger,
	opts ...LoadOption,
) *LoadService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if reader == nil {
		panic("reader cannot be nil")
	}
	if schemaInit == nil {
		panic("schemaInit cannot be nil")
	}
	if dbManager == nil {
		panic("dbManager cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	svc := &LoadService{
		connectorFactory: connectorFactory,
		sessions:         sessions,
		reader:           reader,
		schema:           schemaInit,
		dbManager:        dbManager,
		logger:           logger,
		newRunID:         uuid.New,
		now:              time.Now,
	}
	svc.mgmtConnector = svc.defaultMgmtConnector
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *LoadService) defaultMgmtConnector(ctx context.Context, connConfig *skyload.ConnectionConfig, dbName string) (skyload.DBConnection, func(), error) {
	pool, cleanup, err := managementConn(ctx, s.connectorFactory, connConfig, dbName)
	if err != nil {
		return nil, nil, err
	}
	return db.NewPoolAdapter(pool), cleanup, nil
}

// Load runs one load pass:
//
//	open session -> schema -> read -> class -> class lookup ->
//	celestial_object -> object lookup -> photometric_reading ->
//	spectroscopic_reading
//
// The returned report is never nil. On failure it lists every table reached,
// with the rows committed before the error, and the error is a
// *skyload.StageError naming the stage and table to resume from.
func (s *LoadService) Load(ctx context.Context, config skyload.LoadConfig) (*skyload.LoadReport, error) {
	report := &skyload.LoadReport{
		RunID:   s.newRunID(),
		Status:  skyload.StatusFailed,
		Started: s.now(),
	}

	err := s.load(ctx, config, report)
	report.Duration = s.now().Sub(report.Started)
	if err != nil {
		report.Message = err.Error()
		s.logger.Error("Load %s failed: %v", report.RunID, err)
		return report, err
	}

	report.Status = skyload.StatusSucceeded
	s.logger.Info("✓ Load %s completed in %s", report.RunID, report.Duration.Round(time.Millisecond))
	return report, nil
}

func (s *LoadService) load(ctx context.Context, config skyload.LoadConfig, report *skyload.LoadReport) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	connConfig := *config.Connection
	connConfig.AppName = runAppName(connConfig.AppName, report.RunID)

	s.logger.Verbose("Starting load %s into database '%s'", report.RunID, connConfig.Database)
	s.logger.Verbose("Source path: %s", config.SourcePath)

	if config.CreateDatabase {
		if err := s.ensureDatabaseExists(ctx, &connConfig, config.MaintenanceDatabase); err != nil {
			return &skyload.StageError{Stage: skyload.StageConnect, Err: err}
		}
	}

	session, err := s.sessions.Open(ctx, &connConfig)
	if err != nil {
		return &skyload.StageError{Stage: skyload.StageConnect, Err: err}
	}
	defer session.Close()
	conn := session.Conn()

	if err := s.schema.Init(ctx, conn, config.SchemaMode); err != nil {
		return &skyload.StageError{Stage: skyload.StageSchema, Err: err}
	}

	obs, err := s.reader.ReadObservations(config.SourcePath)
	if err != nil {
		return &skyload.StageError{Stage: skyload.StageRead, Err: err}
	}
	s.logger.Info("Read %d observations from %s", len(obs), config.SourcePath)

	w, err := writer.New(conn, config.BatchSize,
		writer.WithObserver(s.observer),
		writer.WithCommitHook(s.commitHook),
		writer.WithLogger(s.logger),
	)
	if err != nil {
		return &skyload.StageError{Stage: skyload.StageWrite, Err: err}
	}

	templates := extract.Templates(config.Strict)
	classTmpl, objectTmpl, photoTmpl, spectraTmpl := templates[0], templates[1], templates[2], templates[3]

	classNames := config.Classes
	if len(classNames) == 0 {
		classNames = extract.DistinctClasses(obs)
	}
	if err := s.write(ctx, w, report, classTmpl, extract.Classes(classNames)); err != nil {
		return err
	}

	classes, err := extract.LoadClassLookup(ctx, conn)
	if err != nil {
		return resolveError(skyload.TableClass, err)
	}
	if err := extract.CheckClasses(obs, classes); err != nil {
		return &skyload.StageError{Stage: skyload.StageExtract, Table: skyload.TableObject, Err: err}
	}

	objectTuples, err := extract.Objects(obs, classes)
	if err != nil {
		return &skyload.StageError{Stage: skyload.StageExtract, Table: skyload.TableObject, Err: err}
	}
	if err := s.write(ctx, w, report, objectTmpl, objectTuples); err != nil {
		return err
	}

	objects, err := extract.LoadObjectLookup(ctx, conn, extract.DistinctObjIDs(obs))
	if err != nil {
		return resolveError(skyload.TableObject, err)
	}

	photoTuples, err := extract.Photometry(obs, objects)
	if err != nil {
		return &skyload.StageError{Stage: skyload.StageExtract, Table: skyload.TablePhotometry, Err: err}
	}
	if err := s.write(ctx, w, report, photoTmpl, photoTuples); err != nil {
		return err
	}

	spectraTuples, err := extract.Spectra(obs, objects, classes)
	if err != nil {
		return &skyload.StageError{Stage: skyload.StageExtract, Table: skyload.TableSpectroscopy, Err: err}
	}
	if err := s.write(ctx, w, report, spectraTmpl, spectraTuples); err != nil {
		return err
	}

	report.Message = fmt.Sprintf("loaded %d observations into %d tables", len(obs), len(report.Tables))
	return nil
}

func (s *LoadService) write(ctx context.Context, w *writer.BatchWriter, report *skyload.LoadReport, tmpl writer.Template, tuples [][]any) error {
	s.logger.Verbose("Writing %d rows to %s in batches of %d", len(tuples), tmpl.Table, w.BatchSize(tmpl))

	result, err := w.Write(ctx, tmpl, tuples)
	report.Tables = append(report.Tables, skyload.TableReport{
		Table:   tmpl.Table,
		Rows:    result.Rows,
		Batches: result.Batches,
	})
	if err != nil {
		return &skyload.StageError{Stage: skyload.StageWrite, Table: tmpl.Table, Err: err}
	}

	s.logger.Info("✓ %s: %d rows in %d batches", tmpl.Table, result.Rows, result.Batches)
	return nil
}

// InitSchema creates (or recreates) the target tables without loading data.
// resolveError attributes a failed key lookup to the resolve stage. A lost
// connection is reported the same way a failed batch reports it.
func resolveError(table string, err error) error {
	if retry.IsConnectivity(err) {
		err = &skyload.ConnectivityError{BatchError: skyload.BatchError{Table: table, Err: err}}
	}
	return &skyload.StageError{Stage: skyload.StageResolve, Table: table, Err: err}
}

func (s *LoadService) InitSchema(ctx context.Context, connConfig *skyload.ConnectionConfig, mode skyload.SchemaMode) error {
	session, err := s.sessions.Open(ctx, connConfig)
	if err != nil {
		return &skyload.StageError{Stage: skyload.StageConnect, Err: err}
	}
	defer session.Close()

	if err := s.schema.Init(ctx, session.Conn(), mode); err != nil {
		return &skyload.StageError{Stage: skyload.StageSchema, Err: err}
	}
	s.logger.Info("✓ Schema initialized (%s)", mode)
	return nil
}

// Verify reports row counts and orphaned dependent rows.
func (s *LoadService) Verify(ctx context.Context, connConfig *skyload.ConnectionConfig) (*schema.IntegrityReport, error) {
	session, err := s.sessions.Open(ctx, connConfig)
	if err != nil {
		return nil, &skyload.StageError{Stage: skyload.StageConnect, Err: err}
	}
	defer session.Close()

	report, err := schema.Verify(ctx, session.Conn())
	if err != nil {
		return nil, &skyload.StageError{Stage: skyload.StageVerify, Err: err}
	}
	return report, nil
}

// ensureDatabaseExists creates the target database through the maintenance
// database when it is missing.
func (s *LoadService) ensureDatabaseExists(ctx context.Context, connConfig *skyload.ConnectionConfig, managementDB string) error {
	if managementDB == "" {
		managementDB = skyload.DefaultManagementDB
	}
	if strings.EqualFold(connConfig.Database, managementDB) {
		return nil
	}

	s.logger.Verbose("Connecting to management database '%s' to check if target database exists", managementDB)

	dbConn, cleanup, err := s.mgmtConnector(ctx, connConfig, managementDB)
	if err != nil {
		return err
	}
	defer cleanup()

	exists, err := s.dbManager.Exists(ctx, dbConn, connConfig.Database)
	if err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		s.logger.Verbose("Database '%s' already exists", connConfig.Database)
		return nil
	}

	s.logger.Info("Database '%s' does not exist. Creating...", connConfig.Database)
	if err := s.dbManager.Create(ctx, dbConn, connConfig.Database); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	return nil
}

// runAppName stamps the run id onto application_name so a load can be
// found in pg_stat_activity.
func runAppName(base string, runID uuid.UUID) string {
	if base == "" {
		base = skyload.DefaultAppName
	}
	name := base + "/" + runID.String()
	if len(name) > maxAppNameLen {
		name = name[:maxAppNameLen]
	}
	return name
}

var _ skyload.Loader = (*LoadService)(nil)
