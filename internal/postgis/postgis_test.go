package postgis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	sql    string
	args   []any
	err    error
	closed bool
}

func (f *fakeConn) Exec(_ context.Context, sql string, args ...any) error {
	f.sql, f.args = sql, args
	return f.err
}

func (f *fakeConn) Close(context.Context) error {
	f.closed = true
	return nil
}

func TestDropGeometryTable(t *testing.T) {
	conn := &fakeConn{}
	d := &Dropper{connString: "postgres://x", connect: func(context.Context, string) (execer, error) { return conn, nil }}

	require.NoError(t, d.DropGeometryTable(context.Background(), "roads"))
	assert.Equal(t, "SELECT DropGeometryTable($1)", conn.sql)
	assert.Equal(t, []any{"roads"}, conn.args)
	assert.True(t, conn.closed)
}

func TestDropGeometryTableErrors(t *testing.T) {
	conn := &fakeConn{err: errors.New("no such table")}
	d := &Dropper{connect: func(context.Context, string) (execer, error) { return conn, nil }}
	assert.ErrorContains(t, d.DropGeometryTable(context.Background(), "roads"), "no such table")

	d = &Dropper{connect: func(context.Context, string) (execer, error) { return nil, errors.New("refused") }}
	assert.ErrorContains(t, d.DropGeometryTable(context.Background(), "roads"), "connect to datastore")
}
