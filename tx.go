package verto

import (
	"context"
	"fmt"

	"github.com/syssam/verto/dialect"
)

// Tx is a transactional client. Operations run on one database
// transaction and become visible together on Commit. It must be
// finished with exactly one of Commit or Rollback.
type Tx struct {
	conn   dialect.Tx
	client *Client
}

// Tx starts a transaction and returns a client bound to it.
//
// Example:
//
//	tx, err := client.Tx(ctx)
//	if err != nil {
//	    return err
//	}
//	if _, err := tx.Run(ctx, verto.Insert{Table: "users", Values: row}); err != nil {
//	    tx.Rollback()
//	    return err
//	}
//	return tx.Commit()
func (c *Client) Tx(ctx context.Context) (*Tx, error) {
	conn, err := c.driver.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("verto: begin transaction: %w", err)
	}
	return &Tx{conn: conn, client: c}, nil
}

// Run executes op within the transaction. The result cache is bypassed
// in both directions: reads see the transaction's own writes and
// nothing is stored. Bulk operations lose their per-row commit
// granularity and join the transaction like any other statement.
func (tx *Tx) Run(ctx context.Context, op Operation) (*Result, error) {
	return tx.client.run(ctx, tx.conn, op, false)
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	return tx.conn.Commit()
}

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error {
	return tx.conn.Rollback()
}
