package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/intentionbank/backend/internal/config"
	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/store"
	"github.com/shopspring/decimal"
)

// StatementWindow is the half-open interval [Start, End) a statement covers.
// Open marks the current month, whose End is the moment of generation.
type StatementWindow struct {
	Start time.Time
	End   time.Time
	Open  bool
}

type StatementSummary struct {
	StartingBalance string `json:"startingBalance,omitempty"`
	EndingBalance   string `json:"endingBalance,omitempty"`
	Deposits        string `json:"deposits,omitempty"`
	Withdrawals     string `json:"withdrawals,omitempty"`
	Transfers       string `json:"transfers,omitempty"`
}

type StatementLine struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
}

// StatementTotals are the unformatted figures behind a summary.
type StatementTotals struct {
	StartingBalance decimal.Decimal
	EndingBalance   decimal.Decimal
	Deposits        decimal.Decimal
	Withdrawals     decimal.Decimal
	Transfers       decimal.Decimal
}

type Statement struct {
	Summary StatementSummary `json:"summary"`
	Entries []StatementLine  `json:"entries"`
	AsOf    *time.Time       `json:"as_of,omitempty"`
	Totals  StatementTotals  `json:"-"`
}

type StatementService struct {
	store    store.Store
	cfg      config.StatementConfig
	currency string
	now      func() time.Time
}

func NewStatementService(s store.Store, cfg config.StatementConfig, ledgerCfg config.LedgerConfig) *StatementService {
	if cfg.EntryLimit <= 0 {
		cfg.EntryLimit = 200
	}
	currency := ledgerCfg.DefaultCurrency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &StatementService{store: s, cfg: cfg, currency: currency, now: time.Now}
}

// ParseMonth accepts YYYY-MM.
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, invalidf("month must be in YYYY-MM format")
	}
	return t.Year(), t.Month(), nil
}

// ResolveWindow returns the UTC window for a calendar month. The current month
// is cut off at now.
func ResolveWindow(year int, month time.Month, now time.Time) StatementWindow {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	now = now.UTC()
	if now.Year() == year && now.Month() == month {
		return StatementWindow{Start: start, End: now, Open: true}
	}
	return StatementWindow{Start: start, End: start.AddDate(0, 1, 0)}
}

// Generate aggregates the posted entries of accountIDs over a calendar month.
// Transfers are reported on their own and excluded from deposits and
// withdrawals.
func (s *StatementService) Generate(ctx context.Context, accountIDs []int64, year int, month time.Month, currency string) (*Statement, error) {
	if len(accountIDs) == 0 {
		return &Statement{Entries: []StatementLine{}}, nil
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.currency
	}
	w := ResolveWindow(year, month, s.now())
	ledger := s.store.Ledger()

	base := store.EntryFilter{
		AccountIDs: accountIDs,
		Currency:   currency,
		Status:     models.EntryStatusPosted,
	}
	balanceAt := func(t time.Time) (decimal.Decimal, error) {
		f := base
		f.Before = &t
		totals, err := ledger.Sum(ctx, f)
		return totals.Net(), err
	}

	var (
		totals StatementTotals
		err    error
	)
	if totals.StartingBalance, err = balanceAt(w.Start); err != nil {
		return nil, err
	}
	if totals.EndingBalance, err = balanceAt(w.End); err != nil {
		return nil, err
	}

	window := base
	window.From = &w.Start
	window.Before = &w.End
	all, err := ledger.Sum(ctx, window)
	if err != nil {
		return nil, err
	}
	transferFilter := window
	transferFilter.EntryType = models.EntryTypeTransfer
	transfers, err := ledger.Sum(ctx, transferFilter)
	if err != nil {
		return nil, err
	}
	totals.Deposits = all.Credits.Sub(transfers.Credits)
	totals.Withdrawals = all.Debits.Sub(transfers.Debits)
	totals.Transfers = transfers.Credits.Add(transfers.Debits)

	entries, err := ledger.ListWindow(ctx, window, s.cfg.EntryLimit)
	if err != nil {
		return nil, err
	}
	lines, err := s.lines(ctx, entries)
	if err != nil {
		return nil, err
	}

	st := &Statement{
		Summary: StatementSummary{
			StartingBalance: FormatMoney(totals.StartingBalance, currency),
			EndingBalance:   FormatMoney(totals.EndingBalance, currency),
			Deposits:        FormatMoney(totals.Deposits, currency),
			Withdrawals:     FormatMoney(totals.Withdrawals, currency),
			Transfers:       FormatMoney(totals.Transfers, currency),
		},
		Entries: lines,
		Totals:  totals,
	}
	if w.Open {
		asOf := w.End
		st.AsOf = &asOf
	}
	return st, nil
}

func (s *StatementService) lines(ctx context.Context, entries []*models.LedgerEntry) ([]StatementLine, error) {
	names := map[int64]string{}
	lines := make([]StatementLine, 0, len(entries))
	for _, e := range entries {
		description := ""
		switch {
		case e.Memo != nil && *e.Memo != "":
			description = *e.Memo
		case e.Reference != nil && *e.Reference != "":
			description = *e.Reference
		default:
			name, ok := names[e.AccountID]
			if !ok {
				account, err := s.store.Accounts().Get(ctx, e.AccountID)
				if err != nil {
					return nil, notFound(err, "account", e.AccountID)
				}
				name = account.Name
				names[e.AccountID] = name
			}
			description = name + " activity"
		}

		sign := "+"
		if e.Direction == models.DirectionDebit {
			sign = "-"
		}
		category := e.EntryType
		if category == "" {
			category = models.EntryTypeManual
		}
		lines = append(lines, StatementLine{
			ID:          strconv.FormatInt(e.ID, 10),
			Date:        e.CreatedAt.UTC().Format("2006-01-02"),
			Description: description,
			Amount:      sign + FormatMoney(e.Amount, e.Currency),
			Category:    category,
		})
	}
	return lines, nil
}

// FormatMoney renders amount with two decimals and thousands separators:
// "$1,234.56" for USD, "EUR 1,234.56" otherwise. Negative amounts lead with "-".
func FormatMoney(amount decimal.Decimal, currency string) string {
	prefix := "$"
	if currency != "" && currency != models.DefaultCurrency {
		prefix = currency + " "
	}

	amount = amount.Round(2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + prefix + b.String() + "." + frac
}
