package relational

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"dbadminapi/models"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	go_ora "github.com/sijms/go-ora/v2"
	_ "modernc.org/sqlite"
)

var postgresDialect = Dialect{
	Name:            "postgres",
	Driver:          "postgres",
	DefaultPort:     5432,
	Returning:       ReturningClause,
	QualifiesTables: true,
	Quote:           quoteWith(`"`, `"`),
	DSN: func(conn models.Connection, host string, port int) (string, error) {
		q := url.Values{}
		if conn.SSL {
			q.Set("sslmode", "require")
		} else {
			q.Set("sslmode", "disable")
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(conn.Username, conn.Password),
			Host:     net.JoinHostPort(host, strconv.Itoa(port)),
			Path:     "/" + conn.Database,
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	},
	DefaultSchema: func(conn models.Connection) string { return "public" },
	Tables: func(schema string) Query {
		return Query{SQL: `
			SELECT table_name AS table_name, table_type AS table_type
			FROM information_schema.tables
			WHERE table_schema = ?
			ORDER BY table_name`, Args: []interface{}{schema}}
	},
	Structure: func(schema, table string) Query {
		return Query{SQL: `
			SELECT column_name AS column_name,
			       data_type AS data_type,
			       column_default AS column_default,
			       is_nullable AS is_nullable,
			       character_maximum_length AS character_maximum_length,
			       CASE WHEN column_default LIKE 'nextval%' OR is_identity = 'YES'
			            THEN 'auto_increment' ELSE '' END AS extra
			FROM information_schema.columns
			WHERE table_schema = ? AND table_name = ?
			ORDER BY ordinal_position`, Args: []interface{}{schema, table}}
	},
	PrimaryColumns: informationSchemaPrimaryColumns,
	ForeignKeys: func(schema, table string) Query {
		return Query{SQL: `
			SELECT kcu.column_name AS column_name,
			       ccu.table_name AS referenced_table_name,
			       ccu.column_name AS referenced_column_name,
			       tc.constraint_name AS constraint_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
			JOIN information_schema.constraint_column_usage ccu
			  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
			WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = ? AND tc.table_name = ?`,
			Args: []interface{}{schema, table}}
	},
}

var mysqlDialect = Dialect{
	Name:        "mysql",
	Driver:      "mysql",
	DefaultPort: 3306,
	Returning:   ReturningLastInsertID,
	Quote:       quoteWith("`", "`"),
	DSN: func(conn models.Connection, host string, port int) (string, error) {
		cfg := mysql.NewConfig()
		cfg.User = conn.Username
		cfg.Passwd = conn.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
		cfg.DBName = conn.Database
		cfg.ParseTime = true
		if conn.SSL {
			cfg.TLSConfig = "true"
		}
		return cfg.FormatDSN(), nil
	},
	DefaultSchema: func(conn models.Connection) string { return conn.Database },
	Tables: func(schema string) Query {
		return Query{SQL: `
			SELECT table_name AS table_name, table_type AS table_type
			FROM information_schema.tables
			WHERE table_schema = ?
			ORDER BY table_name`, Args: []interface{}{schema}}
	},
	Structure: func(schema, table string) Query {
		return Query{SQL: `
			SELECT column_name AS column_name,
			       data_type AS data_type,
			       column_default AS column_default,
			       is_nullable AS is_nullable,
			       character_maximum_length AS character_maximum_length,
			       extra AS extra
			FROM information_schema.columns
			WHERE table_schema = ? AND table_name = ?
			ORDER BY ordinal_position`, Args: []interface{}{schema, table}}
	},
	PrimaryColumns: informationSchemaPrimaryColumns,
	ForeignKeys: func(schema, table string) Query {
		return Query{SQL: `
			SELECT column_name AS column_name,
			       referenced_table_name AS referenced_table_name,
			       referenced_column_name AS referenced_column_name,
			       constraint_name AS constraint_name
			FROM information_schema.key_column_usage
			WHERE table_schema = ? AND table_name = ? AND referenced_table_name IS NOT NULL`,
			Args: []interface{}{schema, table}}
	},
}

var mssqlDialect = Dialect{
	Name:            "mssql",
	Driver:          "sqlserver",
	DefaultPort:     1433,
	Returning:       ReturningOutput,
	QualifiesTables: true,
	Quote:           quoteWith("[", "]"),
	DSN: func(conn models.Connection, host string, port int) (string, error) {
		q := url.Values{}
		q.Set("database", conn.Database)
		if !conn.SSL {
			q.Set("encrypt", "disable")
		}
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(conn.Username, conn.Password),
			Host:     net.JoinHostPort(host, strconv.Itoa(port)),
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	},
	DefaultSchema: func(conn models.Connection) string { return "dbo" },
	Tables: func(schema string) Query {
		return Query{SQL: `
			SELECT table_name AS table_name, table_type AS table_type
			FROM information_schema.tables
			WHERE table_schema = ?
			ORDER BY table_name`, Args: []interface{}{schema}}
	},
	Structure: func(schema, table string) Query {
		return Query{SQL: `
			SELECT column_name AS column_name,
			       data_type AS data_type,
			       column_default AS column_default,
			       is_nullable AS is_nullable,
			       character_maximum_length AS character_maximum_length,
			       CASE WHEN COLUMNPROPERTY(OBJECT_ID(table_schema + '.' + table_name), column_name, 'IsIdentity') = 1
			            THEN 'auto_increment' ELSE '' END AS extra
			FROM information_schema.columns
			WHERE table_schema = ? AND table_name = ?
			ORDER BY ordinal_position`, Args: []interface{}{schema, table}}
	},
	PrimaryColumns: informationSchemaPrimaryColumns,
	ForeignKeys: func(schema, table string) Query {
		return Query{SQL: `
			SELECT cp.name AS column_name,
			       tr.name AS referenced_table_name,
			       cr.name AS referenced_column_name,
			       fk.name AS constraint_name
			FROM sys.foreign_keys fk
			JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
			JOIN sys.tables tp ON tp.object_id = fk.parent_object_id
			JOIN sys.schemas s ON s.schema_id = tp.schema_id
			JOIN sys.columns cp ON cp.object_id = fkc.parent_object_id AND cp.column_id = fkc.parent_column_id
			JOIN sys.tables tr ON tr.object_id = fk.referenced_object_id
			JOIN sys.columns cr ON cr.object_id = fkc.referenced_object_id AND cr.column_id = fkc.referenced_column_id
			WHERE s.name = ? AND tp.name = ?`, Args: []interface{}{schema, table}}
	},
}

// Oracle folds unquoted aliases to upper case, so every alias is quoted.
var oracleDialect = Dialect{
	Name:            "oracle",
	Driver:          "oracle",
	DefaultPort:     1521,
	Returning:       ReturningInto,
	QualifiesTables: true,
	Quote:           quoteWith(`"`, `"`),
	DSN: func(conn models.Connection, host string, port int) (string, error) {
		service := conn.SID
		if service == "" {
			service = conn.Database
		}
		if service == "" {
			return "", fmt.Errorf("oracle connection needs a service name or SID")
		}
		options := map[string]string{}
		if conn.SSL {
			options["SSL"] = "enable"
		}
		return go_ora.BuildUrl(host, port, service, conn.Username, conn.Password, options), nil
	},
	DefaultSchema: func(conn models.Connection) string { return strings.ToUpper(conn.Username) },
	Tables: func(schema string) Query {
		return Query{SQL: `
			SELECT table_name AS "table_name", 'BASE TABLE' AS "table_type" FROM all_tables WHERE owner = ?
			UNION ALL
			SELECT view_name AS "table_name", 'VIEW' AS "table_type" FROM all_views WHERE owner = ?
			ORDER BY 1`, Args: []interface{}{schema, schema}}
	},
	Structure: func(schema, table string) Query {
		return Query{SQL: `
			SELECT column_name AS "column_name",
			       data_type AS "data_type",
			       data_default AS "column_default",
			       CASE WHEN nullable = 'Y' THEN 'YES' ELSE 'NO' END AS "is_nullable",
			       data_length AS "character_maximum_length",
			       CASE WHEN identity_column = 'YES' THEN 'auto_increment' END AS "extra"
			FROM all_tab_columns
			WHERE owner = ? AND table_name = ?
			ORDER BY column_id`, Args: []interface{}{schema, table}}
	},
	PrimaryColumns: func(schema, table string) Query {
		return Query{SQL: `
			SELECT acc.column_name AS "column_name", atc.data_type AS "data_type"
			FROM all_constraints ac
			JOIN all_cons_columns acc
			  ON acc.owner = ac.owner AND acc.constraint_name = ac.constraint_name
			JOIN all_tab_columns atc
			  ON atc.owner = acc.owner AND atc.table_name = acc.table_name AND atc.column_name = acc.column_name
			WHERE ac.constraint_type = 'P' AND ac.owner = ? AND ac.table_name = ?
			ORDER BY acc.position`, Args: []interface{}{schema, table}}
	},
	ForeignKeys: func(schema, table string) Query {
		return Query{SQL: `
			SELECT acc.column_name AS "column_name",
			       rcc.table_name AS "referenced_table_name",
			       rcc.column_name AS "referenced_column_name",
			       a.constraint_name AS "constraint_name"
			FROM all_constraints a
			JOIN all_cons_columns acc
			  ON a.owner = acc.owner AND a.constraint_name = acc.constraint_name
			JOIN all_cons_columns rcc
			  ON a.r_owner = rcc.owner AND a.r_constraint_name = rcc.constraint_name
			 AND nvl(acc.position, 0) = nvl(rcc.position, 0)
			WHERE a.constraint_type = 'R' AND a.owner = ? AND a.table_name = ?`,
			Args: []interface{}{schema, table}}
	},
}

// SQLite treats Database as the file path. Introspection uses the pragma table functions.
var sqliteDialect = Dialect{
	Name:      "sqlite",
	Driver:    "sqlite",
	Returning: ReturningClause,
	Quote:     quoteWith(`"`, `"`),
	DSN: func(conn models.Connection, host string, port int) (string, error) {
		if conn.Database == "" {
			return "", fmt.Errorf("sqlite connection needs a database file")
		}
		return conn.Database, nil
	},
	DefaultSchema: func(conn models.Connection) string { return "main" },
	Tables: func(schema string) Query {
		return Query{SQL: `
			SELECT name AS table_name, upper(type) AS table_type
			FROM sqlite_master
			WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
			ORDER BY name`}
	},
	Structure: func(schema, table string) Query {
		return Query{SQL: `
			SELECT name AS column_name,
			       type AS data_type,
			       dflt_value AS column_default,
			       CASE WHEN "notnull" = 0 AND pk = 0 THEN 'YES' ELSE 'NO' END AS is_nullable,
			       NULL AS character_maximum_length,
			       CASE WHEN pk = 1 AND upper(type) = 'INTEGER'
			                 AND (SELECT count(*) FROM pragma_table_info(?) WHERE pk > 0) = 1
			            THEN 'auto_increment' ELSE '' END AS extra
			FROM pragma_table_info(?)
			ORDER BY cid`, Args: []interface{}{table, table}}
	},
	PrimaryColumns: func(schema, table string) Query {
		return Query{SQL: `
			SELECT name AS column_name, type AS data_type
			FROM pragma_table_info(?)
			WHERE pk > 0
			ORDER BY pk`, Args: []interface{}{table}}
	},
	ForeignKeys: func(schema, table string) Query {
		return Query{SQL: `
			SELECT "from" AS column_name,
			       "table" AS referenced_table_name,
			       "to" AS referenced_column_name,
			       'fk_' || id AS constraint_name
			FROM pragma_foreign_key_list(?)
			ORDER BY id, seq`, Args: []interface{}{table}}
	},
}

func informationSchemaPrimaryColumns(schema, table string) Query {
	return Query{SQL: `
		SELECT kcu.column_name AS column_name, c.data_type AS data_type
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		 AND tc.table_name = kcu.table_name
		JOIN information_schema.columns c
		  ON c.table_schema = kcu.table_schema
		 AND c.table_name = kcu.table_name
		 AND c.column_name = kcu.column_name
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = ? AND tc.table_name = ?
		ORDER BY kcu.ordinal_position`, Args: []interface{}{schema, table}}
}
