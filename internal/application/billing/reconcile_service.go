package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/academy/backend/internal/domain/billing"
	"github.com/academy/backend/internal/domain/member"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentReconcileService owns every mutation of the coverage ledger. A
// payment write and its derived ledger rows always commit or roll back as
// one transaction.
type PaymentReconcileService struct {
	paymentRepo  billing.PaymentRepository
	coverageRepo billing.CoverageRecordRepository
	memberRepo   member.MemberRepository
	scheduleRepo member.FeeScheduleRepository
	tx           shared.TransactionManager
	cache        billing.DueStatusCache
	logger       *zap.Logger
}

// NewPaymentReconcileService creates a new PaymentReconcileService
func NewPaymentReconcileService(
	paymentRepo billing.PaymentRepository,
	coverageRepo billing.CoverageRecordRepository,
	memberRepo member.MemberRepository,
	scheduleRepo member.FeeScheduleRepository,
	tx shared.TransactionManager,
	cache billing.DueStatusCache,
	logger *zap.Logger,
) *PaymentReconcileService {
	return &PaymentReconcileService{
		paymentRepo:  paymentRepo,
		coverageRepo: coverageRepo,
		memberRepo:   memberRepo,
		scheduleRepo: scheduleRepo,
		tx:           tx,
		cache:        cache,
		logger:       logger,
	}
}

// RecordPayment validates and stores a payment, then reconciles its coverage
// period into the ledger. One-off categories are stored standalone.
func (s *PaymentReconcileService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrMemberID, req.MemberID,
		telemetry.SpanAttrCategory, req.Category,
		telemetry.SpanAttrAmount, req.Amount,
	)

	m, err := s.memberRepo.FindByID(ctx, req.MemberID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if m == nil {
		err := shared.NewDomainError("MEMBER_NOT_FOUND", "Member not found")
		telemetry.RecordError(span, err)
		return nil, err
	}

	period, err := periodFromBounds(req.CoverageStart, req.CoverageEnd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	payment, err := billing.NewPayment(
		req.MemberID,
		req.Amount,
		billing.FeeCategory(strings.ToUpper(req.Category)),
		billing.PaymentMethod(strings.ToUpper(req.Method)),
		req.PaymentDate,
		period,
		req.PayerName,
		req.Remark,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.paymentRepo.Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if payment.CarriesCoverage() {
			if _, err := s.applyCoverage(ctx, payment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.invalidateMember(ctx, payment.MemberID)
	s.logger.Info("Payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("member_id", payment.MemberID.String()),
		zap.String("category", string(payment.Category)),
		zap.String("amount", payment.Amount.String()),
		zap.Int("months_spanned", len(payment.CoverageMonths())),
	)

	return toPaymentResponse(payment), nil
}

// UpdatePayment re-derives coverage for an edited payment. Only the ledger
// rows still tagged with this payment are torn down before the replay; a row
// another payment wrote to last keeps the mixed total. That drift is inherent
// to last-writer tagging and is corrected by RebuildAll.
func (s *PaymentReconcileService) UpdatePayment(ctx context.Context, paymentID uuid.UUID, req UpdatePaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "update")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, paymentID)

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		err := shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
		telemetry.RecordError(span, err)
		return nil, err
	}

	period, err := periodFromBounds(req.CoverageStart, req.CoverageEnd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.coverageRepo.DeleteTagged(ctx, payment.ID); err != nil {
			return fmt.Errorf("failed to tear down coverage: %w", err)
		}
		if err := payment.UpdateDetails(
			req.Amount,
			billing.FeeCategory(strings.ToUpper(req.Category)),
			billing.PaymentMethod(strings.ToUpper(req.Method)),
			req.PaymentDate,
			period,
			req.PayerName,
			req.Remark,
		); err != nil {
			return err
		}
		if err := s.paymentRepo.Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if payment.CarriesCoverage() {
			if _, err := s.applyCoverage(ctx, payment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.invalidateMember(ctx, payment.MemberID)
	s.logger.Info("Payment updated and coverage re-derived",
		zap.String("payment_id", payment.ID.String()),
		zap.String("member_id", payment.MemberID.String()),
	)

	return toPaymentResponse(payment), nil
}

// DeletePayment removes a payment and the ledger rows still tagged with it.
// Rows the payment contributed to but was not the last writer of keep their
// totals; RebuildAll corrects that drift.
func (s *PaymentReconcileService) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, paymentID)

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		err := shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
		telemetry.RecordError(span, err)
		return err
	}

	err = s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.coverageRepo.DeleteTagged(ctx, payment.ID); err != nil {
			return fmt.Errorf("failed to tear down coverage: %w", err)
		}
		if err := s.paymentRepo.Delete(ctx, payment.ID); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.invalidateMember(ctx, payment.MemberID)
	s.logger.Info("Payment deleted",
		zap.String("payment_id", payment.ID.String()),
		zap.String("member_id", payment.MemberID.String()),
	)

	return nil
}

// GetPayment returns a single payment
func (s *PaymentReconcileService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
	}
	return toPaymentResponse(payment), nil
}

// ListPayments returns payments matching the query, paginated
func (s *PaymentReconcileService) ListPayments(ctx context.Context, query ListPaymentsQuery) (*shared.Paginated[PaymentResponse], error) {
	filter := billing.PaymentFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.OrderBy,
			OrderDir: query.OrderDir,
			Search:   query.Search,
		},
		MemberID: query.MemberID,
	}
	if query.Category != "" {
		category := billing.FeeCategory(strings.ToUpper(query.Category))
		filter.Category = &category
	}

	payments, err := s.paymentRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	total, err := s.paymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	items := make([]PaymentResponse, len(payments))
	for i := range payments {
		items[i] = *toPaymentResponse(&payments[i])
	}
	result := shared.NewPaginated(items, total, query.Page, query.PageSize)
	return &result, nil
}

// RebuildAll wipes the coverage ledger and replays every coverage-bearing
// payment in chronological order. This is the authoritative recovery path;
// it is the only operation that removes update/delete drift.
func (s *PaymentReconcileService) RebuildAll(ctx context.Context) (*RebuildResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "coverage", "rebuild_all")
	defer span.End()

	result := &RebuildResult{}
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.coverageRepo.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to clear ledger: %w", err)
		}
		return s.replay(ctx, nil, result)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("Failed to invalidate due-status cache after rebuild", zap.Error(err))
	}

	event := billing.NewCoverageRebuiltEvent(nil, result.PaymentsReplayed, result.RecordsWritten)
	s.logger.Info("Coverage ledger rebuilt",
		zap.String("event_type", event.EventType()),
		zap.Int("payments_replayed", result.PaymentsReplayed),
		zap.Int("records_written", result.RecordsWritten),
	)
	telemetry.SetAttributes(span, telemetry.SpanAttrMonthsCount, result.RecordsWritten)

	return result, nil
}

// RebuildMember replays one member's coverage-bearing payments after their
// ledger slice is wiped. Used after a registration-date correction.
func (s *PaymentReconcileService) RebuildMember(ctx context.Context, memberID uuid.UUID) (*RebuildResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "coverage", "rebuild_member")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrMemberID, memberID)

	result := &RebuildResult{MemberID: &memberID}
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.coverageRepo.DeleteByMember(ctx, memberID); err != nil {
			return fmt.Errorf("failed to clear member ledger: %w", err)
		}
		return s.replay(ctx, &memberID, result)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.invalidateMember(ctx, memberID)

	event := billing.NewCoverageRebuiltEvent(&memberID, result.PaymentsReplayed, result.RecordsWritten)
	s.logger.Info("Member coverage rebuilt",
		zap.String("event_type", event.EventType()),
		zap.String("member_id", memberID.String()),
		zap.Int("payments_replayed", result.PaymentsReplayed),
		zap.Int("records_written", result.RecordsWritten),
	)

	return result, nil
}

// replay pushes every coverage-bearing payment in scope back through the
// same merge-or-create path as RecordPayment.
func (s *PaymentReconcileService) replay(ctx context.Context, memberID *uuid.UUID, result *RebuildResult) error {
	payments, err := s.paymentRepo.FindCoverageBearing(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to load coverage-bearing payments: %w", err)
	}
	for i := range payments {
		written, err := s.applyCoverage(ctx, &payments[i])
		if err != nil {
			return err
		}
		result.PaymentsReplayed++
		result.RecordsWritten += written
	}
	return nil
}

// applyCoverage splits the payment amount equally across the calendar months
// its period touches and merges each share into the ledger. Returns the
// number of rows written.
func (s *PaymentReconcileService) applyCoverage(ctx context.Context, payment *billing.Payment) (int, error) {
	months := payment.CoverageMonths()
	if len(months) == 0 {
		return 0, nil
	}
	shares := billing.SplitAcrossMonths(payment.Amount, len(months))

	// Missing FeeSchedule degrades to amountDue=0. The record then reads as
	// settled; the projector reports no_config by checking schedule existence
	// separately.
	schedule, err := s.scheduleRepo.FindByMemberID(ctx, payment.MemberID)
	if err != nil {
		return 0, fmt.Errorf("failed to load fee schedule: %w", err)
	}
	amountDue := amountDueFor(schedule, payment.Category)

	written := 0
	for i, ym := range months {
		record, err := s.coverageRepo.FindByKey(ctx, payment.MemberID, payment.Category, ym)
		if err != nil {
			return written, fmt.Errorf("failed to read ledger for %s: %w", ym, err)
		}
		if record != nil {
			if err := record.ApplyContribution(shares[i], payment.ID); err != nil {
				return written, err
			}
		} else {
			record, err = billing.NewCoverageRecord(payment.MemberID, payment.Category, ym, amountDue, shares[i], payment.ID)
			if err != nil {
				return written, err
			}
		}
		if err := s.coverageRepo.Save(ctx, record); err != nil {
			return written, fmt.Errorf("failed to save ledger row for %s: %w", ym, err)
		}
		written++
	}
	return written, nil
}

func (s *PaymentReconcileService) invalidateMember(ctx context.Context, memberID uuid.UUID) {
	if err := s.cache.Delete(ctx, memberID); err != nil {
		s.logger.Warn("Failed to invalidate due-status cache",
			zap.String("member_id", memberID.String()),
			zap.Error(err),
		)
	}
}

// amountDueFor resolves the expected fee for a category from the schedule.
// A nil schedule or unknown category yields zero.
func amountDueFor(schedule *member.FeeSchedule, category billing.FeeCategory) decimal.Decimal {
	if schedule == nil {
		return decimal.Zero
	}
	switch category {
	case billing.FeeCategoryMonthly:
		return schedule.MonthlyFee
	case billing.FeeCategoryTransport:
		return schedule.TransportFee
	}
	return decimal.Zero
}

// periodFromBounds builds a CoveragePeriod from optional request bounds.
// Providing only one bound is a validation error.
func periodFromBounds(start, end *time.Time) (*billing.CoveragePeriod, error) {
	if start == nil && end == nil {
		return nil, nil
	}
	if start == nil || end == nil {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Coverage period requires both start and end dates")
	}
	period, err := billing.NewCoveragePeriod(*start, *end)
	if err != nil {
		return nil, err
	}
	return &period, nil
}
