// Package billing contains the payment coverage reconciliation core: the
// per-member billing cycle math, the Payment aggregate, the CoverageRecord
// ledger entry, and the Escalation aggregate for overdue follow-up.
//
// The coverage ledger is sparse: a CoverageRecord only exists once a payment
// has touched that (member, category, month) key. Absence of a record for
// the current due month means overdue. All ledger mutation goes through the
// application-layer reconciler; nothing else writes CoverageRecords.
package billing
