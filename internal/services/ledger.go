package services

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/storage"
)

// ChangePublisher announces committed mutations to interested consumers.
type ChangePublisher interface {
	PublishChange(ctx context.Context, event *amqp.ChangeEvent) error
}

// LedgerService orchestrates ledger mutations: validate, write to SQLite,
// then publish a change event. Publishing is best-effort; a failed publish
// never fails the request because the write already committed.
type LedgerService struct {
	storage   *storage.Repository
	publisher ChangePublisher
}

func NewLedgerService(storage *storage.Repository, publisher ChangePublisher) *LedgerService {
	return &LedgerService{
		storage:   storage,
		publisher: publisher,
	}
}

func (s *LedgerService) publish(ctx context.Context, entity string, id int64, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, amqp.NewChangeEvent(entity, id, op)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"entity", entity, "id", id, "op", op, "error", err)
	}
}

// CreateCategory inserts a category, reusing an existing row with the same
// name.
func (s *LedgerService) CreateCategory(ctx context.Context, c core.ExpenseCategory) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.InsertCategory(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	s.publish(ctx, amqp.EntityCategory, id, amqp.OpCreate)
	return id, nil
}

func (s *LedgerService) UpdateCategory(ctx context.Context, c core.ExpenseCategory) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdateCategory(ctx, c); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	s.publish(ctx, amqp.EntityCategory, c.ID, amqp.OpUpdate)
	return nil
}

func (s *LedgerService) DeactivateCategory(ctx context.Context, id int64) error {
	if err := s.storage.DeactivateCategory(ctx, id); err != nil {
		return fmt.Errorf("deactivate category: %w", err)
	}
	s.publish(ctx, amqp.EntityCategory, id, amqp.OpDelete)
	return nil
}

// CreateExpense validates and saves an expense transaction.
func (s *LedgerService) CreateExpense(ctx context.Context, t core.ExpenseTransaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.InsertExpenseTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	s.publish(ctx, amqp.EntityExpense, id, amqp.OpCreate)
	return id, nil
}

func (s *LedgerService) UpdateExpense(ctx context.Context, t core.ExpenseTransaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdateExpenseTransaction(ctx, t); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	s.publish(ctx, amqp.EntityExpense, t.ID, amqp.OpUpdate)
	return nil
}

// DeleteExpense soft deletes so the row stays restorable.
func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.storage.SoftDeleteExpenseTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publish(ctx, amqp.EntityExpense, id, amqp.OpDelete)
	return nil
}

func (s *LedgerService) RestoreExpense(ctx context.Context, id int64) error {
	if err := s.storage.RestoreExpenseTransaction(ctx, id); err != nil {
		return fmt.Errorf("restore expense: %w", err)
	}
	s.publish(ctx, amqp.EntityExpense, id, amqp.OpRestore)
	return nil
}

func (s *LedgerService) CreatePerson(ctx context.Context, p core.Person) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.InsertPerson(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("create person: %w", err)
	}
	s.publish(ctx, amqp.EntityPerson, id, amqp.OpCreate)
	return id, nil
}

func (s *LedgerService) UpdatePerson(ctx context.Context, p core.Person) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdatePerson(ctx, p); err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	s.publish(ctx, amqp.EntityPerson, p.ID, amqp.OpUpdate)
	return nil
}

// DeletePerson hard deletes a person and, via foreign keys, all of their
// transactions and settlements.
func (s *LedgerService) DeletePerson(ctx context.Context, id int64) error {
	if err := s.storage.DeletePerson(ctx, id); err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	s.publish(ctx, amqp.EntityPerson, id, amqp.OpDelete)
	return nil
}

func (s *LedgerService) CreateBorrowLend(ctx context.Context, t core.BorrowLendTransaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.InsertBorrowLendTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("create borrow/lend transaction: %w", err)
	}
	s.publish(ctx, amqp.EntityBorrowLend, id, amqp.OpCreate)
	return id, nil
}

func (s *LedgerService) UpdateBorrowLend(ctx context.Context, t core.BorrowLendTransaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdateBorrowLendTransaction(ctx, t); err != nil {
		return fmt.Errorf("update borrow/lend transaction: %w", err)
	}
	s.publish(ctx, amqp.EntityBorrowLend, t.ID, amqp.OpUpdate)
	return nil
}

func (s *LedgerService) DeleteBorrowLend(ctx context.Context, id int64) error {
	if err := s.storage.SoftDeleteBorrowLendTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete borrow/lend transaction: %w", err)
	}
	s.publish(ctx, amqp.EntityBorrowLend, id, amqp.OpDelete)
	return nil
}

func (s *LedgerService) CreateSettlement(ctx context.Context, sett core.Settlement) (int64, error) {
	if err := sett.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.InsertSettlement(ctx, sett)
	if err != nil {
		return 0, fmt.Errorf("create settlement: %w", err)
	}
	s.publish(ctx, amqp.EntitySettlement, id, amqp.OpCreate)
	return id, nil
}

func (s *LedgerService) DeleteSettlement(ctx context.Context, id int64) error {
	if err := s.storage.DeleteSettlement(ctx, id); err != nil {
		return fmt.Errorf("delete settlement: %w", err)
	}
	s.publish(ctx, amqp.EntitySettlement, id, amqp.OpDelete)
	return nil
}

// AnnounceImport publishes a coarse event after a confirmed import or
// restore; consumers reload from the database rather than replaying rows.
func (s *LedgerService) AnnounceImport(ctx context.Context, entity, op string) {
	s.publish(ctx, entity, 0, op)
}
