package db

import (
	"net/url"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"postgres", "postgres://u:p@db:5432/contexta?sslmode=disable", "pgx5://u:p@db:5432/contexta", false},
		{"postgresql", "postgresql://u@db/contexta", "pgx5://u@db/contexta", false},
		{"mysql", "mysql://u@db/contexta", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := migrateURL(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			u, err := url.Parse(got)
			require.NoError(t, err)
			assert.Equal(t, tc.want, u.Scheme+"://"+u.User.String()+"@"+u.Host+u.Path)
			assert.Equal(t, migrationsTable, u.Query().Get("x-migrations-table"))
		})
	}

	got, err := migrateURL("postgres://u@db/contexta?sslmode=disable")
	require.NoError(t, err)
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	source, err := iofs.New(migrationsFS, "migrations")
	require.NoError(t, err)
	defer source.Close()

	first, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	next, err := source.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)

	for _, v := range []uint{first, next} {
		up, ident, err := source.ReadUp(v)
		require.NoError(t, err, "version %d", v)
		require.NoError(t, up.Close())
		assert.NotEmpty(t, ident)

		down, _, err := source.ReadDown(v)
		require.NoError(t, err, "version %d", v)
		require.NoError(t, down.Close())
	}
}
