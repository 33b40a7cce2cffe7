// Package datarecording stores the results of a simulation run in a SQL
// database.
package datarecording

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	// Need to use MySQL connections.
	_ "github.com/go-sql-driver/mysql"
	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

// Recorder kinds accepted by Open.
const (
	KindSQLite     = "sqlite"
	KindMySQL      = "mysql"
	KindClickHouse = "clickhouse"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData queues an entry for a table that already exists.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of the tables, sorted.
	ListTables() []string

	// Flush writes all the queued entries into the database.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// New creates a DataRecorder that writes into a new SQLite file. An empty
// path picks a unique file name.
func New(path string) (DataRecorder, error) {
	if path == "" {
		path = "alpidesim_results_" + xid.New().String() + ".sqlite3"
	}

	if _, err := os.Stat(path); err == nil {
		return nil, errors.Errorf("file %s already exists", path)
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	return newSQLWriter(db, sqliteDialect), nil
}

// NewMySQL creates a DataRecorder that writes into a MySQL database.
func NewMySQL(dsn string) (DataRecorder, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to MySQL")
	}

	return newSQLWriter(db, mysqlDialect), nil
}

// NewClickHouse creates a DataRecorder that writes into a ClickHouse
// database.
func NewClickHouse(dsn string) (DataRecorder, error) {
	options, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parsing ClickHouse DSN")
	}

	db := sqlx.NewDb(clickhouse.OpenDB(options), "clickhouse")
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "connecting to ClickHouse")
	}

	return newSQLWriter(db, clickhouseDialect), nil
}

// NewWithDB creates a new DataRecorder with a given SQLite database.
func NewWithDB(db *sqlx.DB) DataRecorder {
	return newSQLWriter(db, sqliteDialect)
}

// Open creates the DataRecorder of the given kind. The SQLite recorder
// takes a file path as dsn.
func Open(kind, dsn string) (DataRecorder, error) {
	switch kind {
	case KindSQLite:
		return New(dsn)
	case KindMySQL:
		return NewMySQL(dsn)
	case KindClickHouse:
		return NewClickHouse(dsn)
	default:
		return nil, errors.Errorf("unknown recorder %q", kind)
	}
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqlWriter writes entries in batches, one transaction per flush.
type sqlWriter struct {
	*sqlx.DB

	dialect    dialect
	tables     map[string]*table
	batchSize  int
	entryCount int
	closed     bool
}

func newSQLWriter(db *sqlx.DB, d dialect) *sqlWriter {
	w := &sqlWriter{
		DB:        db,
		dialect:   d,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { _ = w.Close() })

	return w
}

func (w *sqlWriter) columns(sampleEntry any) ([]string, error) {
	types := reflect.TypeOf(sampleEntry)
	if types.Kind() != reflect.Struct {
		return nil, errors.Errorf("entry %s is not a struct", types)
	}

	names := structs.Names(sampleEntry)
	columns := make([]string, 0, len(names))

	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)
		if !field.IsExported() {
			continue
		}

		colType, ok := w.dialect.columnType(field.Type.Kind())
		if !ok {
			return nil, errors.Errorf("field %s of %s has unsupported type %s",
				field.Name, types, field.Type)
		}

		columns = append(columns, field.Name+" "+colType)
	}

	if len(columns) != len(names) {
		return nil, errors.Errorf("entry %s has unsupported fields", types)
	}

	return columns, nil
}

func (w *sqlWriter) CreateTable(tableName string, sampleEntry any) error {
	columns, err := w.columns(sampleEntry)
	if err != nil {
		return err
	}

	createTableSQL := "CREATE TABLE " + tableName +
		" (\n\t" + strings.Join(columns, ",\n\t") + "\n)" +
		w.dialect.tableSuffix

	if _, err := w.Exec(createTableSQL); err != nil {
		return errors.Wrapf(err, "creating table %s", tableName)
	}

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}

	return nil
}

func (w *sqlWriter) InsertData(tableName string, entry any) error {
	t, exists := w.tables[tableName]
	if !exists {
		return errors.Errorf("table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != t.structType {
		return errors.Errorf("entry %T does not match table %s",
			entry, tableName)
	}

	t.entries = append(t.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		return w.Flush()
	}

	return nil
}

func (w *sqlWriter) ListTables() []string {
	names := maps.Keys(w.tables)
	slices.Sort(names)

	return names
}

func (w *sqlWriter) Flush() error {
	if w.entryCount == 0 {
		return nil
	}

	tx, err := w.Beginx()
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}

	for _, tableName := range w.ListTables() {
		if err := w.flushTable(tx, tableName); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	w.entryCount = 0

	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (w *sqlWriter) flushTable(tx *sqlx.Tx, tableName string) error {
	t := w.tables[tableName]
	if len(t.entries) == 0 {
		return nil
	}

	stmt, err := tx.Preparex(w.insertSQL(tableName, t.entries[0]))
	if err != nil {
		return errors.Wrapf(err, "preparing insert into %s", tableName)
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return errors.Wrapf(err, "inserting into %s", tableName)
		}
	}

	t.entries = nil

	return nil
}

func (w *sqlWriter) insertSQL(tableName string, sampleEntry any) string {
	names := structs.Names(sampleEntry)
	marks := make([]string, len(names))

	for i := range marks {
		marks[i] = "?"
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tableName,
		strings.Join(names, ", "), strings.Join(marks, ", "))

	return w.Rebind(query)
}

func (w *sqlWriter) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	flushErr := w.Flush()
	closeErr := w.DB.Close()

	if flushErr != nil {
		return flushErr
	}

	return errors.Wrap(closeErr, "closing database")
}
