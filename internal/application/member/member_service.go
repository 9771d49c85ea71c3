package member

import (
	"context"
	"fmt"
	"strings"

	billingapp "github.com/academy/backend/internal/application/billing"
	"github.com/academy/backend/internal/domain/billing"
	"github.com/academy/backend/internal/domain/member"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CoverageRebuilder replays a member's payments into a fresh ledger slice.
// The reconcile service provides it; the roster needs it when an operator
// corrects a registration date and existing coverage turns stale.
type CoverageRebuilder interface {
	RebuildMember(ctx context.Context, memberID uuid.UUID) (*billingapp.RebuildResult, error)
}

// MemberService handles roster and fee-schedule operations
type MemberService struct {
	memberRepo   member.MemberRepository
	scheduleRepo member.FeeScheduleRepository
	coverageRepo billing.CoverageRecordRepository
	rebuilder    CoverageRebuilder
	tx           shared.TransactionManager
	cache        billing.DueStatusCache
	logger       *zap.Logger
}

// NewMemberService creates a new MemberService
func NewMemberService(
	memberRepo member.MemberRepository,
	scheduleRepo member.FeeScheduleRepository,
	coverageRepo billing.CoverageRecordRepository,
	rebuilder CoverageRebuilder,
	tx shared.TransactionManager,
	cache billing.DueStatusCache,
	logger *zap.Logger,
) *MemberService {
	return &MemberService{
		memberRepo:   memberRepo,
		scheduleRepo: scheduleRepo,
		coverageRepo: coverageRepo,
		rebuilder:    rebuilder,
		tx:           tx,
		cache:        cache,
		logger:       logger,
	}
}

// Create registers a new member
func (s *MemberService) Create(ctx context.Context, req CreateMemberRequest) (*MemberResponse, error) {
	m, err := member.NewMember(req.FullName, req.Phone, req.RegistrationDate, member.Status(strings.ToUpper(req.Status)))
	if err != nil {
		return nil, err
	}
	if req.GuardianPhone != "" {
		m.GuardianPhone = req.GuardianPhone
	}
	if req.Remark != "" {
		m.Remark = req.Remark
	}

	if err := s.memberRepo.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save member: %w", err)
	}

	s.logger.Info("Member registered",
		zap.String("member_id", m.ID.String()),
		zap.String("full_name", m.FullName),
		zap.Int("billing_day", m.BillingAnchorDay()),
	)
	return toMemberResponse(m), nil
}

// Get returns a single member
func (s *MemberService) Get(ctx context.Context, id uuid.UUID) (*MemberResponse, error) {
	m, err := s.findMember(ctx, id)
	if err != nil {
		return nil, err
	}
	return toMemberResponse(m), nil
}

// List returns members matching the query, paginated
func (s *MemberService) List(ctx context.Context, query ListMembersQuery) (*shared.Paginated[MemberResponse], error) {
	filter := member.MemberFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.OrderBy,
			OrderDir: query.OrderDir,
			Search:   query.Search,
		},
	}
	if query.Status != "" {
		status := member.Status(strings.ToUpper(query.Status))
		filter.Status = &status
	}

	members, err := s.memberRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	total, err := s.memberRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	items := make([]MemberResponse, len(members))
	for i := range members {
		items[i] = *toMemberResponse(&members[i])
	}
	result := shared.NewPaginated(items, total, query.Page, query.PageSize)
	return &result, nil
}

// Update changes contact details and remark
func (s *MemberService) Update(ctx context.Context, id uuid.UUID, req UpdateMemberRequest) (*MemberResponse, error) {
	m, err := s.findMember(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		m.FullName = *req.FullName
	}
	phone := m.Phone
	guardian := m.GuardianPhone
	if req.Phone != nil {
		phone = *req.Phone
	}
	if req.GuardianPhone != nil {
		guardian = *req.GuardianPhone
	}
	m.SetContact(phone, guardian)
	if req.Remark != nil {
		m.SetRemark(*req.Remark)
	}

	if err := s.memberRepo.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save member: %w", err)
	}
	return toMemberResponse(m), nil
}

// UpdateStatus applies a lifecycle transition. Freezing and deactivating
// drop the member out of due-status evaluation, so the cache entry goes too.
func (s *MemberService) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateMemberStatusRequest) (*MemberResponse, error) {
	m, err := s.findMember(ctx, id)
	if err != nil {
		return nil, err
	}

	switch member.Status(strings.ToUpper(req.Status)) {
	case member.StatusActive:
		err = m.Activate()
	case member.StatusFrozen:
		err = m.Freeze(req.Reason)
	case member.StatusInactive:
		err = m.Deactivate(req.Reason)
	default:
		err = shared.NewDomainError("INVALID_STATUS", "Unknown target status")
	}
	if err != nil {
		return nil, err
	}

	if err := s.memberRepo.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save member: %w", err)
	}
	s.invalidate(ctx, id)

	s.logger.Info("Member status changed",
		zap.String("member_id", id.String()),
		zap.String("status", string(m.Status)),
	)
	return toMemberResponse(m), nil
}

// CorrectRegistrationDate applies an operator correction of the registration
// date and rebuilds the member's coverage, since every billing window moved.
func (s *MemberService) CorrectRegistrationDate(ctx context.Context, id uuid.UUID, req CorrectRegistrationDateRequest) (*MemberResponse, error) {
	m, err := s.findMember(ctx, id)
	if err != nil {
		return nil, err
	}

	oldDay := m.BillingAnchorDay()
	if err := m.CorrectRegistrationDate(req.RegistrationDate); err != nil {
		return nil, err
	}
	if err := s.memberRepo.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save member: %w", err)
	}

	result, err := s.rebuilder.RebuildMember(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild coverage after date correction: %w", err)
	}

	s.logger.Warn("Registration date corrected, coverage rebuilt",
		zap.String("member_id", id.String()),
		zap.Int("old_billing_day", oldDay),
		zap.Int("new_billing_day", m.BillingAnchorDay()),
		zap.Int("payments_replayed", result.PaymentsReplayed),
	)
	return toMemberResponse(m), nil
}

// Delete removes a member together with their fee schedule and ledger slice.
// Payments stay as financial history.
func (s *MemberService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.findMember(ctx, id); err != nil {
		return err
	}

	err := s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.coverageRepo.DeleteByMember(ctx, id); err != nil {
			return fmt.Errorf("failed to delete coverage: %w", err)
		}
		if err := s.scheduleRepo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete fee schedule: %w", err)
		}
		if err := s.memberRepo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete member: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.logger.Info("Member deleted", zap.String("member_id", id.String()))
	return nil
}

// SetFeeSchedule creates or replaces a member's fee configuration. Existing
// ledger rows keep their snapshotted amounts; only future reconciliation
// picks up the new fees.
func (s *MemberService) SetFeeSchedule(ctx context.Context, id uuid.UUID, req SetFeeScheduleRequest) (*FeeScheduleResponse, error) {
	if _, err := s.findMember(ctx, id); err != nil {
		return nil, err
	}

	schedule, err := s.scheduleRepo.FindByMemberID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee schedule: %w", err)
	}
	if schedule == nil {
		schedule, err = member.NewFeeSchedule(id, req.MonthlyFee, req.TransportFee)
		if err != nil {
			return nil, err
		}
	} else if err := schedule.UpdateFees(req.MonthlyFee, req.TransportFee); err != nil {
		return nil, err
	}
	if req.Remark != "" {
		schedule.Remark = req.Remark
	}

	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to save fee schedule: %w", err)
	}
	s.invalidate(ctx, id)

	s.logger.Info("Fee schedule set",
		zap.String("member_id", id.String()),
		zap.String("monthly_fee", req.MonthlyFee.String()),
		zap.String("transport_fee", req.TransportFee.String()),
	)
	return toFeeScheduleResponse(schedule), nil
}

// GetFeeSchedule returns a member's fee configuration; nil body means the
// member is unconfigured.
func (s *MemberService) GetFeeSchedule(ctx context.Context, id uuid.UUID) (*FeeScheduleResponse, error) {
	if _, err := s.findMember(ctx, id); err != nil {
		return nil, err
	}
	schedule, err := s.scheduleRepo.FindByMemberID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee schedule: %w", err)
	}
	if schedule == nil {
		return nil, shared.NewDomainError("NO_FEE_SCHEDULE", "Member has no fee schedule configured")
	}
	return toFeeScheduleResponse(schedule), nil
}

func (s *MemberService) findMember(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	m, err := s.memberRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if m == nil {
		return nil, shared.NewDomainError("MEMBER_NOT_FOUND", "Member not found")
	}
	return m, nil
}

func (s *MemberService) invalidate(ctx context.Context, memberID uuid.UUID) {
	if err := s.cache.Delete(ctx, memberID); err != nil {
		s.logger.Warn("Failed to invalidate due-status cache",
			zap.String("member_id", memberID.String()),
			zap.Error(err),
		)
	}
}
