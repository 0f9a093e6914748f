package handlers

import "github.com/go-chi/chi/v5"

// API groups the handlers mounted behind authentication.
type API struct {
	Accounts     *AccountHandler
	Ledger       *LedgerHandler
	Scheduled    *ScheduledEntryHandler
	Statements   *StatementHandler
	Transactions *TransactionHandler
}

// Mount registers every route on r. Callers install authentication first.
func (a *API) Mount(r chi.Router) {
	r.Get("/summary", a.Accounts.Summary)

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", a.Accounts.List)
		r.Post("/", a.Accounts.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.Accounts.Get)
			r.Patch("/", a.Accounts.Update)
			r.Delete("/", a.Accounts.Delete)

			r.Get("/ledger", a.Ledger.ListEntries)
			r.Get("/balance", a.Ledger.Balance)
			r.Get("/scheduled-entries", a.Scheduled.List)
			r.Get("/transactions", a.Transactions.List)
			r.Post("/transactions", a.Transactions.Record)
		})
	})

	r.Post("/ledger/entries", a.Ledger.PostEntry)
	r.Post("/transfers", a.Ledger.CreateTransfer)
	r.Post("/welcome-bonus", a.Ledger.ClaimWelcomeBonus)
	r.Post("/scheduled-entries", a.Scheduled.Create)
	r.Get("/statements", a.Statements.Get)
}
