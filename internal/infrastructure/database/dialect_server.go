package database

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/nerrad567/graydb/internal/dbal"
)

// Default ports for the server backends.
const (
	defaultMySQLPort     = 3306
	defaultPostgresPort  = 5432
	defaultSQLServerPort = 1433
)

var mysqlDialect = &dialect{
	name:         "mysql",
	sqlDriver:    "mysql",
	client:       "github.com/go-sql-driver/mysql",
	dsn:          mysqlDSN,
	quoteString:  quoteMySQL,
	quoteBytes:   quoteHexLiteral,
	boolLiteral:  numericBool,
	versionQuery: "SELECT VERSION()",
	lastInsertID: func(string) (string, []any) {
		return "SELECT LAST_INSERT_ID()", nil
	},
	nativeError: func(err error) (int, string, bool) {
		var e *mysql.MySQLError
		if errors.As(err, &e) {
			return int(e.Number), "", true
		}
		return 0, "", false
	},
}

var postgresDialect = &dialect{
	name:         "postgres",
	sqlDriver:    "postgres",
	client:       "github.com/lib/pq",
	dsn:          postgresDSN,
	quoteString:  pq.QuoteLiteral,
	quoteBytes:   quoteBytea,
	boolLiteral:  keywordBool,
	versionQuery: "SHOW server_version",
	lastInsertID: func(column string) (string, []any) {
		if column == "" {
			return "SELECT lastval()", nil
		}
		return "SELECT currval($1)", []any{column}
	},
	nativeError: func(err error) (int, string, bool) {
		var e *pq.Error
		if errors.As(err, &e) {
			code, convErr := strconv.Atoi(string(e.Code))
			if convErr != nil {
				code = dbal.CodeUnknown
			}
			return code, string(e.Code), true
		}
		return 0, "", false
	},
}

var sqlserverDialect = &dialect{
	name:         "sqlserver",
	sqlDriver:    "sqlserver",
	client:       "github.com/denisenkom/go-mssqldb",
	dsn:          sqlserverDSN,
	quoteString:  quoteNational,
	quoteBytes:   quoteVarbinary,
	boolLiteral:  numericBool,
	versionQuery: "SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))",
	lastInsertID: func(column string) (string, []any) {
		if column == "" {
			return "SELECT CAST(@@IDENTITY AS BIGINT)", nil
		}
		return "SELECT CAST(IDENT_CURRENT(@p1) AS BIGINT)", []any{column}
	},
	nativeError: func(err error) (int, string, bool) {
		var e mssql.Error
		if errors.As(err, &e) {
			return int(e.Number), "", true
		}
		return 0, "", false
	},
}

// serverAddr validates the host and fills in the default port.
func serverAddr(cfg dbal.Config, defaultPort int) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("%w: %s requires a host", dbal.ErrConfiguration, cfg.Driver)
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(cfg.Host, strconv.Itoa(port)), nil
}

func mysqlDSN(cfg dbal.Config) (string, error) {
	addr, err := serverAddr(cfg, defaultMySQLPort)
	if err != nil {
		return "", err
	}
	c := mysql.NewConfig()
	c.Net = "tcp"
	c.Addr = addr
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.Schema
	if len(cfg.Params) > 0 {
		c.Params = make(map[string]string, len(cfg.Params))
		for k, v := range cfg.Params {
			c.Params[k] = v
		}
	}
	return c.FormatDSN(), nil
}

func postgresDSN(cfg dbal.Config) (string, error) {
	addr, err := serverAddr(cfg, defaultPostgresPort)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   addr,
		Path:   "/" + cfg.Schema,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	q := url.Values{}
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func sqlserverDSN(cfg dbal.Config) (string, error) {
	addr, err := serverAddr(cfg, defaultSQLServerPort)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme: "sqlserver",
		Host:   addr,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	q := url.Values{}
	if cfg.Schema != "" {
		q.Set("database", cfg.Schema)
	}
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// mysqlEscaper escapes the characters MySQL treats specially inside string
// literals when NO_BACKSLASH_ESCAPES is off.
var mysqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `''`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

func quoteMySQL(s string) string {
	return "'" + mysqlEscaper.Replace(s) + "'"
}

func quoteNational(s string) string {
	return "N" + quoteDoubled(s)
}

func quoteBytea(b []byte) string {
	return `'\x` + hex.EncodeToString(b) + `'::bytea`
}

func quoteVarbinary(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
