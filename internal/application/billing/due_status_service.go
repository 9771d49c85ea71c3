package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/academy/backend/internal/domain/billing"
	"github.com/academy/backend/internal/domain/member"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DueStatusService derives the billing classification of members from the
// coverage ledger. It never writes the ledger; overdue detection is an
// absence check against the sparse ledger.
type DueStatusService struct {
	memberRepo   member.MemberRepository
	scheduleRepo member.FeeScheduleRepository
	coverageRepo billing.CoverageRecordRepository
	cache        billing.DueStatusCache
	cacheTTL     time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewDueStatusService creates a new DueStatusService
func NewDueStatusService(
	memberRepo member.MemberRepository,
	scheduleRepo member.FeeScheduleRepository,
	coverageRepo billing.CoverageRecordRepository,
	cache billing.DueStatusCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DueStatusService {
	return &DueStatusService{
		memberRepo:   memberRepo,
		scheduleRepo: scheduleRepo,
		coverageRepo: coverageRepo,
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       logger,
		now:          time.Now,
	}
}

// GetMemberDueStatus classifies a member for the current due period,
// serving from the cache when possible.
func (s *DueStatusService) GetMemberDueStatus(ctx context.Context, memberID uuid.UUID) (*billing.MemberDueStatus, error) {
	if cached, err := s.cache.Get(ctx, memberID); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		s.logger.Warn("Due-status cache read failed",
			zap.String("member_id", memberID.String()),
			zap.Error(err),
		)
	}

	status, err := s.Classify(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, status, s.cacheTTL); err != nil {
		s.logger.Warn("Due-status cache write failed",
			zap.String("member_id", memberID.String()),
			zap.Error(err),
		)
	}
	return status, nil
}

// Classify derives the due status of a member from the ledger, bypassing the
// cache. The escalation sweep uses this directly so tier decisions never act
// on stale data.
func (s *DueStatusService) Classify(ctx context.Context, memberID uuid.UUID) (*billing.MemberDueStatus, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "due_status", "classify")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrMemberID, memberID)

	m, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if m == nil {
		err := shared.NewDomainError("MEMBER_NOT_FOUND", "Member not found")
		telemetry.RecordError(span, err)
		return nil, err
	}

	status := &billing.MemberDueStatus{
		MemberID:    memberID,
		EvaluatedAt: s.now(),
	}

	if !m.IsBillable() {
		status.Classification = billing.DueStatusNotBillable
		return status, nil
	}

	info, err := billing.ComputeBillingInfo(m.RegistrationDate, s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	status.BillingDay = info.BillingDay
	if !info.Billable {
		// Registration date still in the future
		status.Classification = billing.DueStatusNotBillable
		return status, nil
	}
	status.CurrentDue = info.CurrentDueYearMonth
	status.DaysSinceDue = info.DaysSinceDue

	schedule, err := s.scheduleRepo.FindByMemberID(ctx, memberID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load fee schedule: %w", err)
	}
	if schedule == nil {
		// Fail-open ledger rows may read paid with amountDue=0; schedule
		// absence overrides anything the ledger says.
		status.Classification = billing.DueStatusNoConfig
		return status, nil
	}

	records, err := s.coverageRepo.FindByMember(ctx, memberID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load coverage: %w", err)
	}
	byKey := make(map[string]*billing.CoverageRecord, len(records))
	for i := range records {
		r := &records[i]
		byKey[coverageKey(r.Category, r.YearMonth)] = r
	}

	overall := billing.DueStatusPaid
	for _, category := range activeCategories(schedule) {
		entry := s.categoryStatus(category, info.CurrentDueYearMonth, byKey, schedule)
		status.Categories = append(status.Categories, entry)
		overall = overall.Worse(entry.Classification)

		status.Arrears = append(status.Arrears,
			s.arrearsFor(category, m.RegistrationDate, info.CurrentDueYearMonth, byKey, schedule)...)
	}
	status.Classification = overall

	return status, nil
}

// categoryStatus classifies one (category, current due month) key. A missing
// ledger row for an applicable month is overdue by definition.
func (s *DueStatusService) categoryStatus(
	category billing.FeeCategory,
	currentDue billing.YearMonth,
	byKey map[string]*billing.CoverageRecord,
	schedule *member.FeeSchedule,
) billing.CategoryDueStatus {
	record := byKey[coverageKey(category, currentDue)]
	entry := billing.CategoryDueStatus{
		Category:       category,
		YearMonth:      currentDue,
		Classification: billing.ClassifyCoverage(record),
	}
	if record != nil {
		entry.AmountDue = record.AmountDue
		entry.AmountPaid = record.AmountPaid
		entry.Outstanding = record.Outstanding()
	} else {
		entry.AmountDue = amountDueFor(schedule, category)
		entry.AmountPaid = decimal.Zero
		entry.Outstanding = entry.AmountDue
	}
	return entry
}

// arrearsFor collects unsettled applicable months before the current due
// month. Pre-registration and future months never appear here.
func (s *DueStatusService) arrearsFor(
	category billing.FeeCategory,
	registrationDate time.Time,
	currentDue billing.YearMonth,
	byKey map[string]*billing.CoverageRecord,
	schedule *member.FeeSchedule,
) []billing.CategoryDueStatus {
	var arrears []billing.CategoryDueStatus
	today := s.now()
	for ym := billing.YearMonthOf(registrationDate); ym < currentDue; ym = ym.Next() {
		if billing.ClassifyMonth(registrationDate, ym, today) != billing.MonthApplicable {
			continue
		}
		record := byKey[coverageKey(category, ym)]
		if record != nil && record.IsSettled() {
			continue
		}
		entry := billing.CategoryDueStatus{
			Category:       category,
			YearMonth:      ym,
			Classification: billing.ClassifyCoverage(record),
		}
		if record != nil {
			entry.AmountDue = record.AmountDue
			entry.AmountPaid = record.AmountPaid
			entry.Outstanding = record.Outstanding()
		} else {
			entry.AmountDue = amountDueFor(schedule, category)
			entry.AmountPaid = decimal.Zero
			entry.Outstanding = entry.AmountDue
		}
		arrears = append(arrears, entry)
	}
	return arrears
}

// GetBillingInfo derives the billing-cycle state for a member
func (s *DueStatusService) GetBillingInfo(ctx context.Context, memberID uuid.UUID) (*billing.BillingCycleInfo, error) {
	m, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if m == nil {
		return nil, shared.NewDomainError("MEMBER_NOT_FOUND", "Member not found")
	}
	return billing.ComputeBillingInfo(m.RegistrationDate, s.now())
}

// GetCoverage returns a member's full coverage ledger slice
func (s *DueStatusService) GetCoverage(ctx context.Context, memberID uuid.UUID) ([]CoverageRecordResponse, error) {
	m, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if m == nil {
		return nil, shared.NewDomainError("MEMBER_NOT_FOUND", "Member not found")
	}

	records, err := s.coverageRepo.FindByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load coverage: %w", err)
	}
	responses := make([]CoverageRecordResponse, len(records))
	for i := range records {
		responses[i] = toCoverageRecordResponse(&records[i])
	}
	return responses, nil
}

// Dashboard aggregates the classification of every billable member
func (s *DueStatusService) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "due_status", "dashboard")
	defer span.End()

	members, err := s.memberRepo.FindBillable(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load billable members: %w", err)
	}

	resp := &DashboardResponse{
		TotalMembers:     len(members),
		TotalOutstanding: decimal.Zero,
		EvaluatedAt:      s.now(),
	}
	for i := range members {
		status, err := s.GetMemberDueStatus(ctx, members[i].ID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		switch status.Classification {
		case billing.DueStatusPaid:
			resp.Paid++
		case billing.DueStatusPartial:
			resp.Partial++
		case billing.DueStatusOverdue:
			resp.Overdue++
		case billing.DueStatusNoConfig:
			resp.NoConfig++
		}
		resp.TotalOutstanding = resp.TotalOutstanding.Add(status.TotalOutstanding())
	}

	return resp, nil
}

// activeCategories returns the coverage categories the schedule actually
// bills: transport only when a transport fee is configured.
func activeCategories(schedule *member.FeeSchedule) []billing.FeeCategory {
	categories := []billing.FeeCategory{billing.FeeCategoryMonthly}
	if schedule.HasTransport() {
		categories = append(categories, billing.FeeCategoryTransport)
	}
	return categories
}

func coverageKey(category billing.FeeCategory, ym billing.YearMonth) string {
	return string(category) + "|" + string(ym)
}
