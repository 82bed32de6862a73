package verto

import (
	"context"

	"github.com/syssam/verto/dialect"
	"github.com/syssam/verto/dialect/sql"
)

// runBulkInsert executes one INSERT per row, grouped into batches of
// op.BatchSize for progress reporting. Rows commit individually and in
// order; the loop stops on the first failure and reports how far it
// got.
func (c *Client) runBulkInsert(ctx context.Context, conn dialect.ExecQuerier, op BulkInsert) (*Result, error) {
	size := c.bulkBatchSize(op.BatchSize)
	res := &Result{Batches: batchCount(len(op.Rows), size)}
	for n, row := range op.Rows {
		stmt, err := buildInsert(c.Dialect(), Insert{Table: op.Table, Values: row}, false)
		if err != nil {
			return nil, c.bulkStop(ctx, op.Table, res.Committed, n, size, err)
		}
		if err := c.screenBulk(ctx, stmt); err != nil {
			return nil, c.bulkStop(ctx, op.Table, res.Committed, n, size, err)
		}
		rowRes, err := c.execResult(ctx, conn, ActionBulkInsert, stmt)
		if err != nil {
			return nil, c.bulkStop(ctx, op.Table, res.Committed, n, size, err)
		}
		res.Affected += rowRes.Affected
		res.Committed++
	}
	c.invalidate(ctx, op.Table)
	return res, nil
}

// runBulkUpdate executes one UPDATE per row change with the same batch
// grouping and failure policy as runBulkInsert.
func (c *Client) runBulkUpdate(ctx context.Context, conn dialect.ExecQuerier, op BulkUpdate) (*Result, error) {
	size := c.bulkBatchSize(op.BatchSize)
	res := &Result{Batches: batchCount(len(op.Updates), size)}
	for n, u := range op.Updates {
		stmt, err := buildUpdate(c.Dialect(), Update{Table: op.Table, Set: u.Set, Where: u.Where})
		if err != nil {
			return nil, c.bulkStop(ctx, op.Table, res.Committed, n, size, err)
		}
		if err := c.screenBulk(ctx, stmt); err != nil {
			return nil, c.bulkStop(ctx, op.Table, res.Committed, n, size, err)
		}
		rowRes, err := c.execResult(ctx, conn, ActionBulkUpdate, stmt)
		if err != nil {
			return nil, c.bulkStop(ctx, op.Table, res.Committed, n, size, err)
		}
		res.Affected += rowRes.Affected
		res.Committed++
	}
	c.invalidate(ctx, op.Table)
	return res, nil
}

// screenBulk applies a configured guard policy to one bulk row
// statement. BulkUpdate rows can differ in shape, so each statement is
// screened on its own.
func (c *Client) screenBulk(ctx context.Context, stmt *sql.Statement) error {
	if !c.hasGuard {
		return nil
	}
	if err := c.guard.EvalStatement(ctx, stmt); err != nil {
		return safetyViolation(err, stmt)
	}
	return nil
}

// bulkStop wraps a row failure with its 1-based row and batch position,
// dropping the table's cache entries when rows were already committed.
func (c *Client) bulkStop(ctx context.Context, table string, committed, n, size int, err error) error {
	if committed > 0 {
		c.invalidate(ctx, table)
	}
	return &PartialBulkError{Committed: committed, Batch: n/size + 1, Row: n + 1, Err: err}
}

// bulkBatchSize resolves the batch size of one bulk operation, falling
// back to the client default and then to DefaultBatchSize.
func (c *Client) bulkBatchSize(n int) int {
	if n <= 0 {
		n = c.batchSize
	}
	return batchSize(n)
}
