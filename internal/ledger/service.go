package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/sequence"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service implements chart of accounts and journal entry use cases. Entry
// totals are always recomputed from lines; the balance check runs before any
// row is written.
type Service struct {
	repo Repository
	now  func() time.Time
	ref  func() string
}

// NewService constructs the ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now, ref: uuid.NewString}
}

// WithNow overrides the service clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithSourceRef overrides the source reference generator.
func (s *Service) WithSourceRef(ref func() string) *Service {
	s.ref = ref
	return s
}

func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error) {
	if input.ParentID != nil {
		if _, err := s.repo.GetAccount(ctx, *input.ParentID); err != nil {
			return Account{}, err
		}
	}
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqAccount)
		if err != nil {
			return err
		}
		created = Account{
			ID:        id,
			Code:      input.Code,
			Name:      input.Name,
			Type:      input.Type,
			ParentID:  input.ParentID,
			IsActive:  true,
			CreatedAt: s.now().UTC(),
		}
		created.UpdatedAt = created.CreatedAt
		return tx.InsertAccount(ctx, created)
	})
	if err != nil {
		return Account{}, err
	}
	return created, nil
}

func (s *Service) GetAccount(ctx context.Context, id int64) (Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) ListAccounts(ctx context.Context, accountType AccountType) ([]Account, error) {
	return s.repo.ListAccounts(ctx, accountType)
}

func (s *Service) UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) (Account, error) {
	if err := s.repo.UpdateAccount(ctx, id, input); err != nil {
		return Account{}, err
	}
	return s.repo.GetAccount(ctx, id)
}

// DeleteAccount removes an account unless journal lines reference it.
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	count, err := s.repo.CountLinesByAccount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrAccountInUse
	}
	return s.repo.DeleteAccount(ctx, id)
}

// totals sums and validates requested lines. Every line must carry a
// non-negative debit or credit and at least one positive side; the entry
// must balance within the shared tolerance.
func totals(lines []CreateLineInput) (debit, credit decimal.Decimal, err error) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range lines {
		if line.DebitAmount.IsNegative() || line.CreditAmount.IsNegative() {
			return decimal.Zero, decimal.Zero, shared.ErrValidation
		}
		if line.DebitAmount.IsZero() && line.CreditAmount.IsZero() {
			return decimal.Zero, decimal.Zero, shared.ErrValidation
		}
		debit = debit.Add(line.DebitAmount)
		credit = credit.Add(line.CreditAmount)
	}
	if !shared.WithinTolerance(debit, credit) {
		return decimal.Zero, decimal.Zero, ErrUnbalanced
	}
	return debit, credit, nil
}

// CreateEntry writes a draft entry and its lines in one transaction. An
// unbalanced request fails before any write happens.
func (s *Service) CreateEntry(ctx context.Context, input CreateEntryInput) (EntryWithLines, error) {
	debit, credit, err := totals(input.Lines)
	if err != nil {
		return EntryWithLines{}, err
	}
	var out EntryWithLines
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.NextID(ctx, sequence.SeqJournalEntry)
		if err != nil {
			return err
		}
		ts := s.now().UTC()
		entry := Entry{
			ID:          id,
			EntryID:     sequence.FormatDocumentNumber("JE", id, 8),
			SourceRef:   s.ref(),
			Date:        input.Date,
			Status:      EntryStatusDraft,
			TotalDebit:  debit,
			TotalCredit: credit,
			Description: input.Description,
			CreatedBy:   input.CreatedBy,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}
		out = EntryWithLines{Entry: entry}
		lines, err := s.insertLines(ctx, tx, id, input.Lines, ts)
		if err != nil {
			return err
		}
		out.Lines = lines
		return nil
	})
	if err != nil {
		return EntryWithLines{}, err
	}
	return out, nil
}

func (s *Service) insertLines(ctx context.Context, tx TxRepository, entryID int64, inputs []CreateLineInput, ts time.Time) ([]Line, error) {
	out := make([]Line, 0, len(inputs))
	for i, in := range inputs {
		lineID, err := tx.NextID(ctx, sequence.SeqJournalLine)
		if err != nil {
			return nil, err
		}
		line := Line{
			ID:           lineID,
			EntryID:      entryID,
			LineNumber:   i + 1,
			AccountID:    in.AccountID,
			DebitAmount:  in.DebitAmount,
			CreditAmount: in.CreditAmount,
			Memo:         in.Memo,
			CreatedAt:    ts,
		}
		if err := tx.InsertLine(ctx, line); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func (s *Service) GetEntry(ctx context.Context, id int64) (EntryWithLines, error) {
	return s.repo.GetEntryWithLines(ctx, id)
}

func (s *Service) ListEntries(ctx context.Context, req ListEntriesRequest) ([]Entry, shared.Pagination, error) {
	entries, total, err := s.repo.ListEntries(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(req.Page, req.PerPage, total), nil
}

// UpdateEntry rewrites a draft entry. Posted entries are immutable; void
// entries are closed history and equally untouchable.
func (s *Service) UpdateEntry(ctx context.Context, id int64, input UpdateEntryInput) (EntryWithLines, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if entry.Status != EntryStatusDraft {
			return ErrPostedImmutable
		}
		if input.Date != nil {
			entry.Date = *input.Date
		}
		if input.Description != nil {
			entry.Description = *input.Description
		}
		if len(input.Lines) > 0 {
			debit, credit, err := totals(input.Lines)
			if err != nil {
				return err
			}
			entry.TotalDebit = debit
			entry.TotalCredit = credit
			if err := tx.DeleteLines(ctx, id); err != nil {
				return err
			}
			if _, err := s.insertLines(ctx, tx, id, input.Lines, s.now().UTC()); err != nil {
				return err
			}
		}
		return tx.UpdateEntryHeader(ctx, entry)
	})
	if err != nil {
		return EntryWithLines{}, err
	}
	return s.repo.GetEntryWithLines(ctx, id)
}

// PostEntry transitions draft to posted. The balance invariant is rechecked
// against stored totals before the flip.
func (s *Service) PostEntry(ctx context.Context, id, postedBy int64) (Entry, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		switch entry.Status {
		case EntryStatusPosted:
			return ErrAlreadyPosted
		case EntryStatusVoid:
			return ErrEntryVoid
		}
		if !shared.WithinTolerance(entry.TotalDebit, entry.TotalCredit) {
			return ErrUnbalanced
		}
		return tx.MarkPosted(ctx, id, postedBy)
	})
	if err != nil {
		return Entry{}, err
	}
	return s.repo.GetEntry(ctx, id)
}

// VoidEntry transitions a draft or posted entry to void, keeping the entry
// on record.
func (s *Service) VoidEntry(ctx context.Context, id int64, input VoidEntryInput) (Entry, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if entry.Status == EntryStatusVoid {
			return ErrEntryVoid
		}
		return tx.MarkVoid(ctx, id, input.Reason)
	})
	if err != nil {
		return Entry{}, err
	}
	return s.repo.GetEntry(ctx, id)
}

// DeleteEntry hard-deletes a draft or void entry, lines first, in one
// transaction. Posted entries cannot be deleted.
func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if entry.Status == EntryStatusPosted {
			return ErrPostedImmutable
		}
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		return tx.DeleteEntry(ctx, id)
	})
}
