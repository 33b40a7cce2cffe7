package datarecording

import "reflect"

// A dialect holds what differs between the SQL databases that results can
// be recorded into.
type dialect struct {
	name        string
	columnTypes map[reflect.Kind]string
	tableSuffix string
}

var sqliteDialect = dialect{
	name: "sqlite3",
	columnTypes: map[reflect.Kind]string{
		reflect.Bool:    "INTEGER",
		reflect.Int:     "INTEGER",
		reflect.Int8:    "INTEGER",
		reflect.Int16:   "INTEGER",
		reflect.Int32:   "INTEGER",
		reflect.Int64:   "INTEGER",
		reflect.Uint:    "INTEGER",
		reflect.Uint8:   "INTEGER",
		reflect.Uint16:  "INTEGER",
		reflect.Uint32:  "INTEGER",
		reflect.Uint64:  "INTEGER",
		reflect.Float32: "REAL",
		reflect.Float64: "REAL",
		reflect.String:  "TEXT",
	},
}

var mysqlDialect = dialect{
	name: "mysql",
	columnTypes: map[reflect.Kind]string{
		reflect.Bool:    "BOOLEAN",
		reflect.Int:     "BIGINT",
		reflect.Int8:    "TINYINT",
		reflect.Int16:   "SMALLINT",
		reflect.Int32:   "INT",
		reflect.Int64:   "BIGINT",
		reflect.Uint:    "BIGINT UNSIGNED",
		reflect.Uint8:   "TINYINT UNSIGNED",
		reflect.Uint16:  "SMALLINT UNSIGNED",
		reflect.Uint32:  "INT UNSIGNED",
		reflect.Uint64:  "BIGINT UNSIGNED",
		reflect.Float32: "FLOAT",
		reflect.Float64: "DOUBLE",
		reflect.String:  "VARCHAR(255)",
	},
	tableSuffix: " ENGINE=InnoDB",
}

var clickhouseDialect = dialect{
	name: "clickhouse",
	columnTypes: map[reflect.Kind]string{
		reflect.Bool:    "Bool",
		reflect.Int:     "Int64",
		reflect.Int8:    "Int8",
		reflect.Int16:   "Int16",
		reflect.Int32:   "Int32",
		reflect.Int64:   "Int64",
		reflect.Uint:    "UInt64",
		reflect.Uint8:   "UInt8",
		reflect.Uint16:  "UInt16",
		reflect.Uint32:  "UInt32",
		reflect.Uint64:  "UInt64",
		reflect.Float32: "Float32",
		reflect.Float64: "Float64",
		reflect.String:  "String",
	},
	tableSuffix: " ENGINE = MergeTree() ORDER BY tuple()",
}

func (d dialect) columnType(kind reflect.Kind) (string, bool) {
	t, ok := d.columnTypes[kind]
	return t, ok
}
