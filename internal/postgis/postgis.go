// Package postgis drops the physical tables behind database-backed stores.
package postgis

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Dropper removes geometry tables from the datastore database.
type Dropper struct {
	connString string
	connect    func(ctx context.Context, connString string) (execer, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Close(ctx context.Context) error
}

type pgxConn struct {
	conn *pgx.Conn
}

func (c pgxConn) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := c.conn.Exec(ctx, sql, args...)
	return err
}

func (c pgxConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// NewDropper returns a dropper for the database at connString.
func NewDropper(connString string) *Dropper {
	return &Dropper{
		connString: connString,
		connect: func(ctx context.Context, connString string) (execer, error) {
			conn, err := pgx.Connect(ctx, connString)
			if err != nil {
				return nil, err
			}
			return pgxConn{conn: conn}, nil
		},
	}
}

// DropGeometryTable drops table and its geometry_columns registration.
func (d *Dropper) DropGeometryTable(ctx context.Context, table string) error {
	conn, err := d.connect(ctx, d.connString)
	if err != nil {
		return fmt.Errorf("connect to datastore: %w", err)
	}
	defer conn.Close(ctx)

	if err := conn.Exec(ctx, "SELECT DropGeometryTable($1)", table); err != nil {
		return fmt.Errorf("drop geometry table %s: %w", table, err)
	}
	return nil
}
