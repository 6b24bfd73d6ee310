package sqlite

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type AccountRow struct {
	Number         string
	Name           string
	CredentialHash string
	Balance        string
}

type TransactionRow struct {
	ID            int64
	AccountNumber string
	Type          string
	Amount        string
	BalanceAfter  string
	OccurredAt    string
	Category      string
}

const createAccount = `
INSERT INTO accounts (number, name, credential_hash, balance)
VALUES (?, ?, ?, ?)
`

func (q *Queries) CreateAccount(ctx context.Context, a AccountRow) error {
	_, err := q.db.ExecContext(ctx, createAccount, a.Number, a.Name, a.CredentialHash, a.Balance)
	return err
}

const getAccount = `
SELECT number, name, credential_hash, balance FROM accounts WHERE number = ?
`

func (q *Queries) GetAccount(ctx context.Context, number string) (AccountRow, error) {
	var a AccountRow
	err := q.db.QueryRowContext(ctx, getAccount, number).
		Scan(&a.Number, &a.Name, &a.CredentialHash, &a.Balance)
	return a, err
}

const countAccount = `SELECT COUNT(*) FROM accounts WHERE number = ?`

func (q *Queries) CountAccount(ctx context.Context, number string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAccount, number).Scan(&n)
	return n, err
}

const listAccounts = `
SELECT number, name, credential_hash, balance FROM accounts ORDER BY number
`

func (q *Queries) ListAccounts(ctx context.Context) ([]AccountRow, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AccountRow
	for rows.Next() {
		var a AccountRow
		if err := rows.Scan(&a.Number, &a.Name, &a.CredentialHash, &a.Balance); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const updateBalance = `
UPDATE accounts SET balance = ?, updated_at = CURRENT_TIMESTAMP WHERE number = ?
`

func (q *Queries) UpdateBalance(ctx context.Context, number, balance string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBalance, balance, number)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateProfile = `
UPDATE accounts SET
    name = CASE WHEN ? = '' THEN name ELSE ? END,
    credential_hash = CASE WHEN ? = '' THEN credential_hash ELSE ? END,
    updated_at = CURRENT_TIMESTAMP
WHERE number = ?
`

func (q *Queries) UpdateProfile(ctx context.Context, number, name, credentialHash string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateProfile, name, name, credentialHash, credentialHash, number)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const insertTransaction = `
INSERT INTO transactions (account_number, type, amount, balance_after, occurred_at, category)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertTransaction(ctx context.Context, t TransactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		t.AccountNumber, t.Type, t.Amount, t.BalanceAfter, t.OccurredAt, t.Category)
	return err
}

const transactionsForAccount = `
SELECT id, account_number, type, amount, balance_after, occurred_at, category
FROM transactions WHERE account_number = ? ORDER BY id
`

func (q *Queries) TransactionsForAccount(ctx context.Context, number string) ([]TransactionRow, error) {
	return q.transactions(ctx, transactionsForAccount, number)
}

const transactionsInRange = `
SELECT id, account_number, type, amount, balance_after, occurred_at, category
FROM transactions
WHERE account_number = ? AND occurred_at >= ? AND occurred_at < ?
ORDER BY id
`

// TransactionsInRange returns rows with from <= occurred_at < to. Timestamps
// are stored in a lexically sortable layout.
func (q *Queries) TransactionsInRange(ctx context.Context, number, from, to string) ([]TransactionRow, error) {
	return q.transactions(ctx, transactionsInRange, number, from, to)
}

func (q *Queries) transactions(ctx context.Context, query string, args ...any) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var t TransactionRow
		if err := rows.Scan(&t.ID, &t.AccountNumber, &t.Type, &t.Amount,
			&t.BalanceAfter, &t.OccurredAt, &t.Category); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
