/*
Package verto turns dialect-neutral operation descriptions into safe,
parameterized SQL for PostgreSQL, MySQL, SQL Server and SQLite,
executes them and returns rows in one normalized shape.

# Operations

An operation is a plain struct, one type per action. The client
validates it, builds the statement for its dialect and executes it:

	client, err := verto.NewClient(
		verto.WithConnection(dialect.Postgres, dsn),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	res, err := client.Run(ctx, verto.Select{
		Table:   "users",
		Where:   verto.Conditions{"status": []string{"active", "pending"}},
		OrderBy: []string{"created_at DESC"},
		Limit:   10,
	})

Values are always bound as parameters and never rendered into the SQL
text. Identifiers are validated and quoted with the dialect's quoting
characters.

# Conditions

A Conditions map describes a filter. A scalar value means equality, nil
means IS NULL, a list becomes an IN clause, and a nested map compares
with operators:

	verto.Conditions{
		"age":     map[string]any{">": 25, "<": 65},
		"name":    map[string]any{"like": "A%"},
		"deleted": nil,
	}

An empty list in an IN condition matches no rows and yields a warning
instead of invalid SQL.

# Results

Every execution returns a Result carrying the generated SQL, the bound
parameter names, the normalized rows, affected counts and validation
warnings. Failures are typed: ValidationError before any statement is
built, SafetyViolationError when the guard rejects a statement before
any driver I/O, ExecutionError around driver failures and
PartialBulkError for bulk operations that stopped mid-way.

# Safety

Raw statements are scanned for destructive keywords unless Raw.Unsafe
is set. The guard package extends this with policies that screen every
statement:

	client, err := verto.NewClient(
		verto.WithConnection(dialect.Postgres, dsn),
		verto.WithGuard(guard.Policy{
			guard.DenyIfNoViewer(),
			guard.StripLiterals(guard.DenyKeywords(guard.DefaultDenylist...)),
		}),
	)
*/
package verto
