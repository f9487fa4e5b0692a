// Package testutil provides a stub database/sql driver for postgres store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"time"
)

const stateTable = "state"

// StubConn records statements and keeps state rows in memory. It understands
// only the statements the postgres store issues: the state table DDL, the
// bucket upsert, the select by bucket and the delete by bucket.
type StubConn struct {
	Execs      []string
	Tables     map[string][]map[string]any
	FailExec   bool
	FailBegin  bool
	RowsErr    error
	FailTables map[string]bool
	FailCommit bool
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailExec {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	switch statement(query) {
	case "CREATE TABLE":
		return driver.RowsAffected(0), nil
	case "INSERT INTO":
		if err := c.checkState(args, 2); err != nil {
			return nil, err
		}
		c.deleteBucket(args[0].Value)
		c.Tables[stateTable] = append(c.Tables[stateTable], map[string]any{
			"bucket":  args[0].Value,
			"payload": args[1].Value,
		})
		return driver.RowsAffected(1), nil
	case "DELETE FROM":
		if err := c.checkState(args, 1); err != nil {
			return nil, err
		}
		return driver.RowsAffected(c.deleteBucket(args[0].Value)), nil
	}
	return nil, fmt.Errorf("unsupported statement: %s", query)
}

// QueryContext implements driver.QueryerContext for the select by bucket.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if statement(query) != "SELECT" {
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
	if err := c.checkState(args, 1); err != nil {
		return nil, err
	}
	var values [][]driver.Value
	for _, row := range c.Tables[stateTable] {
		if row["bucket"] == args[0].Value {
			values = append(values, []driver.Value{row["payload"]})
		}
	}
	return &stubRows{cols: []string{"payload"}, rows: values, err: c.RowsErr}, nil
}

func (c *StubConn) checkState(args []driver.NamedValue, want int) error {
	if c.FailTables[stateTable] {
		return fmt.Errorf("%s table fail", stateTable)
	}
	if len(args) != want {
		return fmt.Errorf("expected %d args, got %d", want, len(args))
	}
	return nil
}

func (c *StubConn) deleteBucket(bucket any) int64 {
	var removed int64
	kept := c.Tables[stateTable][:0]
	for _, row := range c.Tables[stateTable] {
		if row["bucket"] == bucket {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	c.Tables[stateTable] = kept
	return removed
}

func statement(query string) string {
	up := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"CREATE TABLE", "INSERT INTO", "DELETE FROM", "SELECT"} {
		if strings.HasPrefix(up, prefix) {
			return prefix
		}
	}
	return ""
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	return nil
}
func (t *stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
