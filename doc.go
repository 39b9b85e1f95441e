// Package debtbook provides a debt and payment ledger for small businesses.
//
// debtbook is designed as a library. It tracks what customers owe the
// account and what the account owes its suppliers, records partial payments
// against those debts, and keeps an audit trail of every mutation. It
// provides:
//
//   - One engine for both directions of obligation (customer and supplier)
//   - Exact decimal amounts that are rejected, never rounded
//   - Payment recording that stays correct under concurrent callers
//   - Pluggable audit and metrics hooks
//   - Memory, SQLite, PostgreSQL, MySQL and MongoDB stores
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/debtbook"
//	    "github.com/xraph/debtbook/store/sqlite"
//	)
//
//	s, err := sqlite.Open(ctx, "debtbook.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l := debtbook.New(s)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// Every operation names the account it acts for. Records belonging to
// another account behave as if they did not exist.
//
// Counterparties are customers or suppliers:
//
//	c := &counterparty.Counterparty{Kind: counterparty.KindCustomer, Name: "Asha"}
//	err := l.CreateCounterparty(ctx, account, c)
//
// Debts start active with the remaining amount equal to the initial amount:
//
//	d, err := l.CreateDebt(ctx, account, c.ID, decimal.NewFromInt(500), "rice", dueDate)
//
// Payments reduce the remaining amount. A payment larger than what is left
// fails with ErrOverpaymentRejected; a payment against a settled debt fails
// with ErrAlreadySettled. The payment that brings the balance to zero marks
// the debt paid:
//
//	p, err := l.RecordPayment(ctx, account, d.ID, decimal.NewFromInt(200), payment.MethodCash)
//
// Active debts come back oldest due first:
//
//	ds, err := l.ListActive(ctx, account, counterparty.KindCustomer)
//
// The overdue status exists in the data model but nothing sets it
// automatically; a debt past its due date stays active until paid.
//
// # Concurrency
//
// RecordPayment re-reads the debt and re-checks the balance immediately
// before committing, and the store commits only if the debt's version has
// not moved. Two racing payments are therefore serialised: the second is
// evaluated against the balance left by the first.
//
// # Audit trail
//
// Register the audit hook with a history recorder to persist every create
// and payment to the store's history:
//
//	l := debtbook.New(s, debtbook.WithPlugin(
//	    audithook.New(audithook.NewHistoryRecorder(s)),
//	))
//
// Audit failures are logged and never undo the operation that caused them.
//
// # TypeID
//
// All entities use TypeID identifiers:
//
//	cust_01h2xcejqtf2nbrexx3vqjhp41  // Customer
//	supp_01h2xcejqtf2nbrexx3vqjhp41  // Supplier
//	debt_01h455vb4pex5vsknk084sn02q  // Debt
//	pay_01h455vb4pex5vsknk084sn02q   // Payment
package debtbook
