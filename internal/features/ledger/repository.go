// Package ledger — repository.go выполняет атомарные операции
// с балансами и журналом транзакций.
//
// Инварианты держит база, а не Go-код: баланс не уходит в минус
// (guarded UPDATE + CHECK), pending-заявка финализируется не более
// одного раза (guarded UPDATE по статусу), номер платежа уникален
// в рамках метода оплаты (частичный уникальный индекс).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/db/postgres"
)

// Имя частичного уникального индекса на (payment_method, external_reference).
const uqMethodReference = "uq_transactions_method_reference"

const transactionColumns = `id, user_id, kind, amount, status,
	COALESCE(payment_method, ''), COALESCE(external_reference, ''),
	COALESCE(details, ''), admin_id, created_at, processed_at`

// querier покрывает и пул, и открытую транзакцию pgx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository работает с таблицами transactions и accounts (только баланс).
type Repository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewRepository создаёт репозиторий леджера.
func NewRepository(db *pgxpool.Pool, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.UserID, &t.Kind, &t.Amount, &t.Status,
		&t.PaymentMethod, &t.ExternalReference,
		&t.Details, &t.AdminID, &t.CreatedAt, &t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, postgres.WrapErr(err)
	}
	return &t, nil
}

// credit начисляет amount и возвращает новый баланс.
// Вид deposit дополнительно увеличивает total_deposited.
func (r *Repository) credit(ctx context.Context, q querier, userID, amount int64, kind string) (int64, error) {
	extra := ""
	if kind == KindDeposit {
		extra = ", total_deposited = total_deposited + $2"
	}

	var balance int64
	err := q.QueryRow(ctx, `
		UPDATE accounts SET balance = balance + $2`+extra+`
		WHERE user_id = $1
		RETURNING balance
	`, userID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, postgres.WrapErr(err)
	}
	return balance, nil
}

// debit списывает amount одним guarded UPDATE: условие balance >= amount
// сидит в WHERE, поэтому гонка двух списаний невозможна в принципе.
// Вид withdraw дополнительно увеличивает total_withdrawn.
func (r *Repository) debit(ctx context.Context, q querier, userID, amount int64, kind string) (int64, error) {
	extra := ""
	if kind == KindWithdraw {
		extra = ", total_withdrawn = total_withdrawn + $2"
	}

	var balance int64
	err := q.QueryRow(ctx, `
		UPDATE accounts SET balance = balance - $2`+extra+`
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance
	`, userID, amount).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, postgres.WrapErr(err)
	}

	// Ноль строк: либо аккаунта нет, либо не хватило средств
	var exists bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE user_id = $1)`, userID,
	).Scan(&exists); err != nil {
		return 0, postgres.WrapErr(err)
	}
	if !exists {
		return 0, common.ErrNotFound
	}
	return 0, common.ErrInsufficientBalance
}

// Credit начисляет средства и возвращает новый баланс.
func (r *Repository) Credit(ctx context.Context, userID, amount int64, kind string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.credit(ctx, r.db, userID, amount, kind)
}

// Debit списывает средства и возвращает новый баланс.
func (r *Repository) Debit(ctx context.Context, userID, amount int64, kind string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.debit(ctx, r.db, userID, amount, kind)
}

// CreditInTx — начисление внутри чужой транзакции БД.
// Нужен модулям, которым начисление должно быть атомарно с их
// собственными записями (активация кода, выплата комиссии).
func (r *Repository) CreditInTx(ctx context.Context, tx pgx.Tx, userID, amount int64, kind string) (int64, error) {
	return r.credit(ctx, tx, userID, amount, kind)
}

// RecordInTx — строка журнала внутри чужой транзакции БД.
func (r *Repository) RecordInTx(ctx context.Context, tx pgx.Tx, t *Transaction) (int64, error) {
	t.Status = StatusApproved
	return r.insertTransaction(ctx, tx, t)
}

// insertTransaction добавляет строку журнала и возвращает её id.
func (r *Repository) insertTransaction(ctx context.Context, q querier, t *Transaction) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO transactions
			(user_id, kind, amount, status, payment_method, external_reference, details)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
		RETURNING id
	`, t.UserID, t.Kind, t.Amount, t.Status,
		t.PaymentMethod, t.ExternalReference, t.Details,
	).Scan(&id)
	if err != nil {
		if postgres.IsUniqueViolation(err, uqMethodReference) {
			return 0, common.ErrDuplicateReference
		}
		return 0, postgres.WrapErr(err)
	}
	return id, nil
}

// Record записывает уже исполненную операцию (подарок, бонус, комиссия).
// Баланс при этом НЕ трогается: мутацию делает Credit/Debit отдельно.
func (r *Repository) Record(ctx context.Context, t *Transaction) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	t.Status = StatusApproved
	return r.insertTransaction(ctx, r.db, t)
}

// CreatePending создаёт заявку на одобрение.
// Заявка на вывод сразу списывает сумму (заморозка) в той же транзакции:
// либо есть и запись, и списание, либо ничего.
func (r *Repository) CreatePending(ctx context.Context, t *Transaction) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", postgres.WrapErr(err))
	}
	defer tx.Rollback(ctx)

	t.Status = StatusPending
	id, err := r.insertTransaction(ctx, tx, t)
	if err != nil {
		return 0, err
	}

	if t.Kind == KindWithdraw {
		// Заморозка: баланс уменьшается, total_withdrawn — только при одобрении
		if _, err := r.debit(ctx, tx, t.UserID, t.Amount, ""); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, postgres.WrapErr(err)
	}
	return id, nil
}

// Finalize переводит pending-заявку в терминальный статус и применяет
// её эффект на баланс в одной транзакции БД.
//
//   - deposit + approve: начисление суммы
//   - withdraw + approve: учёт в total_withdrawn (баланс списан при создании)
//   - withdraw + reject: возврат замороженной суммы
//   - deposit + reject: только смена статуса
//
// Повторный вызов по той же заявке возвращает ErrAlreadyFinalized.
func (r *Repository) Finalize(ctx context.Context, txID int64, approve bool, adminID int64) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	status := StatusRejected
	if approve {
		status = StatusApproved
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", postgres.WrapErr(err))
	}
	defer tx.Rollback(ctx)

	// Guarded UPDATE: сработает не больше одного раза за всю жизнь заявки
	row := tx.QueryRow(ctx, `
		UPDATE transactions
		SET status = $2, admin_id = $3, processed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+transactionColumns,
		txID, status, adminID)

	t, err := scanTransaction(row)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		// Заявки нет вообще или она уже обработана?
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`, txID,
		).Scan(&exists); err != nil {
			return nil, postgres.WrapErr(err)
		}
		if exists {
			return nil, common.ErrAlreadyFinalized
		}
		return nil, common.ErrNotFound
	}

	switch {
	case t.Kind == KindDeposit && approve:
		if _, err := r.credit(ctx, tx, t.UserID, t.Amount, KindDeposit); err != nil {
			return nil, err
		}
	case t.Kind == KindWithdraw && approve:
		_, err := tx.Exec(ctx, `
			UPDATE accounts SET total_withdrawn = total_withdrawn + $2
			WHERE user_id = $1
		`, t.UserID, t.Amount)
		if err != nil {
			return nil, postgres.WrapErr(err)
		}
	case t.Kind == KindWithdraw && !approve:
		// Возврат заморозки
		if _, err := r.credit(ctx, tx, t.UserID, t.Amount, ""); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, postgres.WrapErr(err)
	}
	return t, nil
}

// GetByID возвращает транзакцию по идентификатору.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

// ListByUser возвращает последние транзакции пользователя.
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	return r.list(ctx, `WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
}

// ListPending возвращает заявки, ожидающие решения, от старых к новым.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]*Transaction, error) {
	return r.list(ctx, `WHERE status = 'pending' ORDER BY created_at LIMIT $1`, limit)
}

func (r *Repository) list(ctx context.Context, clause string, args ...any) ([]*Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions `+clause, args...)
	if err != nil {
		return nil, postgres.WrapErr(err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountPending возвращает количество необработанных заявок.
func (r *Repository) CountPending(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE status = 'pending'`).Scan(&n)
	return n, postgres.WrapErr(err)
}
