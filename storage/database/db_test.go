package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/manabi/core"
)

func Test_postgresURL(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine:        EnginePostgres,
		Host:          "db.local",
		Port:          5433,
		User:          "manabi",
		Password:      "p@ss",
		AdminUser:     "postgres",
		AdminPassword: "root",
		Name:          "manabi",
		DisableTLS:    true,
	}}

	tests := []struct {
		name     string
		admin    bool
		dbName   string
		wantUser string
		wantPwd  string
	}{
		{name: "app user", dbName: "manabi", wantUser: "manabi", wantPwd: "p@ss"},
		{name: "admin user", admin: true, dbName: "postgres", wantUser: "postgres", wantPwd: "root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(postgresURL(tt.dbName, tt.admin, conf))
			require.NoError(t, err)
			assert.Equal(t, "postgres", u.Scheme)
			assert.Equal(t, "db.local:5433", u.Host)
			assert.Equal(t, tt.dbName, u.Path)
			assert.Equal(t, tt.wantUser, u.User.Username())
			pwd, _ := u.User.Password()
			assert.Equal(t, tt.wantPwd, pwd)
			assert.Equal(t, "disable", u.Query().Get("sslmode"))
			assert.Equal(t, "utc", u.Query().Get("timezone"))
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN("/tmp/manabi.db")
	require.Contains(t, dsn, "file:/tmp/manabi.db?")

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, sqlitePragmas, u.Query()["_pragma"])
	assert.Equal(t, "sqlite", u.Query().Get("_time_format"))
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", Dialect(EngineSQLite))
	assert.Equal(t, "postgres", Dialect(EnginePostgres))
}

func TestOpen_unsupportedEngine(t *testing.T) {
	_, err := Open(&core.Config{Database: core.DatabaseConfig{Engine: "mysql"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported database engine "mysql"`)
}
