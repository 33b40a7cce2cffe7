package datarecording

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// QueryParams encapsulates all query parameters
type QueryParams struct {
	// Where holds the WHERE clause without the "WHERE" keyword
	// Example: "Layer = ? AND BusyViolations > 0"
	Where string

	// Args holds the arguments for the placeholders in Where
	Args []any

	// Limit is the maximum number of records to return (pagination)
	// Set to 0 for no limit
	Limit int

	// Offset is the number of records to skip (pagination)
	Offset int

	// OrderBy specifies sorting, without the "ORDER BY" keywords
	// Example: "ChipID DESC"
	OrderBy string
}

// DataReader reads recorded results back.
type DataReader interface {
	// ListTables returns the names of all the tables.
	ListTables(ctx context.Context) ([]string, error)

	// Query fills dest, a pointer to a slice of entries, with the rows of a
	// table. It returns the number of rows that match the filter regardless
	// of the limit.
	Query(
		ctx context.Context,
		tableName string,
		params QueryParams,
		dest any,
	) (totalCount int, err error)

	// Close closes the reader
	Close() error
}

// sqliteReader reads data from SQLite database
type sqliteReader struct {
	*sqlx.DB
}

// NewReader opens a SQLite result file for reading.
func NewReader(dbFilename string) (DataReader, error) {
	db, err := sqlx.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", dbFilename)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB creates a new DataReader with a given database
func NewReaderWithDB(db *sqlx.DB) DataReader {
	// Columns are named after the struct fields.
	db.MapperFunc(func(s string) string { return s })

	return &sqliteReader{DB: db}
}

func (r *sqliteReader) ListTables(ctx context.Context) ([]string, error) {
	var tables []string

	err := r.SelectContext(ctx, &tables,
		"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, "listing tables")
	}

	return tables, nil
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
	dest any,
) (int, error) {
	query := fmt.Sprintf("SELECT * FROM %s", tableName)

	if params.Where != "" {
		query += " WHERE " + params.Where
	}

	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", params.Limit)
		if params.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", params.Offset)
		}
	}

	totalCount, err := r.queryTotalCount(ctx, tableName, params)
	if err != nil {
		return 0, err
	}

	err = r.SelectContext(ctx, dest, query, params.Args...)
	if err != nil {
		return 0, errors.Wrapf(err, "querying %s", tableName)
	}

	return totalCount, nil
}

func (r *sqliteReader) queryTotalCount(
	ctx context.Context,
	tableName string,
	params QueryParams,
) (int, error) {
	var totalCount int

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", tableName)

	if params.Where != "" {
		countQuery += " WHERE " + params.Where
	}

	err := r.GetContext(ctx, &totalCount, countQuery, params.Args...)
	if err != nil {
		return 0, errors.Wrapf(err, "counting %s", tableName)
	}

	return totalCount, nil
}

func (r *sqliteReader) Close() error {
	return r.DB.Close()
}
