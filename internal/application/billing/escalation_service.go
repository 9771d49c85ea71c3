package billing

import (
	"context"
	"fmt"

	"github.com/academy/backend/internal/domain/billing"
	"github.com/academy/backend/internal/domain/member"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EscalationService advances overdue debts through the reminder, warning and
// blocked tiers. It is driven by the periodic sweep and is safe to re-run:
// tiers never regress and a key never gets a second open instance.
type EscalationService struct {
	memberRepo     member.MemberRepository
	escalationRepo billing.EscalationRepository
	coverageRepo   billing.CoverageRecordRepository
	dueStatus      *DueStatusService
	thresholds     billing.TierThresholds
	freezeOnBlock  bool
	tx             shared.TransactionManager
	cache          billing.DueStatusCache
	logger         *zap.Logger
}

// NewEscalationService creates a new EscalationService
func NewEscalationService(
	memberRepo member.MemberRepository,
	escalationRepo billing.EscalationRepository,
	coverageRepo billing.CoverageRecordRepository,
	dueStatus *DueStatusService,
	thresholds billing.TierThresholds,
	freezeOnBlock bool,
	tx shared.TransactionManager,
	cache billing.DueStatusCache,
	logger *zap.Logger,
) (*EscalationService, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &EscalationService{
		memberRepo:     memberRepo,
		escalationRepo: escalationRepo,
		coverageRepo:   coverageRepo,
		dueStatus:      dueStatus,
		thresholds:     thresholds,
		freezeOnBlock:  freezeOnBlock,
		tx:             tx,
		cache:          cache,
		logger:         logger,
	}, nil
}

// Sweep evaluates every billable member once. Each member commits in its own
// transaction so one bad record does not abort the whole sweep.
func (s *EscalationService) Sweep(ctx context.Context) (*SweepResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "escalation", "sweep")
	defer span.End()

	members, err := s.memberRepo.FindBillable(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load billable members: %w", err)
	}

	result := &SweepResult{}
	for i := range members {
		if err := ctx.Err(); err != nil {
			telemetry.RecordError(span, err)
			return result, err
		}
		if err := s.sweepMember(ctx, &members[i], result); err != nil {
			s.logger.Error("Escalation sweep failed for member",
				zap.String("member_id", members[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.MembersEvaluated++
	}

	s.logger.Info("Escalation sweep completed",
		zap.Int("members_evaluated", result.MembersEvaluated),
		zap.Int("opened", result.Opened),
		zap.Int("advanced", result.Advanced),
		zap.Int("resolved", result.Resolved),
		zap.Int("frozen", result.Frozen),
	)
	return result, nil
}

// sweepMember applies the tier ladder to one member's current due period and
// resolves open escalations whose debt has since been settled.
func (s *EscalationService) sweepMember(ctx context.Context, m *member.Member, result *SweepResult) error {
	status, err := s.dueStatus.Classify(ctx, m.ID)
	if err != nil {
		return err
	}
	if status.Classification == billing.DueStatusNotBillable || status.Classification == billing.DueStatusNoConfig {
		return nil
	}

	tier := s.thresholds.TierFor(status.DaysSinceDue)

	return s.tx.Do(ctx, func(ctx context.Context) error {
		for _, entry := range status.Categories {
			switch entry.Classification {
			case billing.DueStatusOverdue:
				if tier == billing.EscalationTierNone {
					continue
				}
				if err := s.escalate(ctx, m, entry, tier, status.DaysSinceDue, result); err != nil {
					return err
				}
			case billing.DueStatusPaid, billing.DueStatusPartial:
				if err := s.resolveKey(ctx, m.ID, entry.Category, entry.YearMonth, result); err != nil {
					return err
				}
			}
		}
		return s.resolveSettled(ctx, m.ID, status.CurrentDue, result)
	})
}

// escalate opens or advances the escalation for one overdue key
func (s *EscalationService) escalate(
	ctx context.Context,
	m *member.Member,
	entry billing.CategoryDueStatus,
	tier billing.EscalationTier,
	daysOverdue int,
	result *SweepResult,
) error {
	open, err := s.escalationRepo.FindOpenByKey(ctx, m.ID, entry.Category, entry.YearMonth)
	if err != nil {
		return fmt.Errorf("failed to load escalation: %w", err)
	}

	if open == nil {
		open, err = billing.NewEscalation(m.ID, entry.Category, entry.YearMonth, tier, daysOverdue)
		if err != nil {
			return err
		}
		if err := s.escalationRepo.Save(ctx, open); err != nil {
			return fmt.Errorf("failed to save escalation: %w", err)
		}
		result.Opened++
		s.logger.Info("Escalation opened",
			zap.String("member_id", m.ID.String()),
			zap.String("category", string(entry.Category)),
			zap.String("year_month", string(entry.YearMonth)),
			zap.String("tier", string(tier)),
			zap.Int("days_overdue", daysOverdue),
		)
	} else if open.AdvanceTo(tier, daysOverdue) {
		if err := s.escalationRepo.Save(ctx, open); err != nil {
			return fmt.Errorf("failed to save escalation: %w", err)
		}
		result.Advanced++
		s.logger.Info("Escalation advanced",
			zap.String("member_id", m.ID.String()),
			zap.String("category", string(entry.Category)),
			zap.String("year_month", string(entry.YearMonth)),
			zap.String("tier", string(tier)),
		)
	}

	if tier == billing.EscalationTierBlocked && s.freezeOnBlock && !m.IsFrozen() {
		if err := m.Freeze(fmt.Sprintf("Blocked: %s fee overdue %d days", entry.Category, daysOverdue)); err != nil {
			return err
		}
		if err := s.memberRepo.Save(ctx, m); err != nil {
			return fmt.Errorf("failed to freeze member: %w", err)
		}
		result.Frozen++
		if err := s.cache.Delete(ctx, m.ID); err != nil {
			s.logger.Warn("Failed to invalidate due-status cache after freeze",
				zap.String("member_id", m.ID.String()),
				zap.Error(err),
			)
		}
		s.logger.Warn("Member frozen at blocked tier",
			zap.String("member_id", m.ID.String()),
			zap.Int("days_overdue", daysOverdue),
		)
	}

	return nil
}

// resolveKey closes the open escalation for a key, if any
func (s *EscalationService) resolveKey(ctx context.Context, memberID uuid.UUID, category billing.FeeCategory, ym billing.YearMonth, result *SweepResult) error {
	open, err := s.escalationRepo.FindOpenByKey(ctx, memberID, category, ym)
	if err != nil {
		return fmt.Errorf("failed to load escalation: %w", err)
	}
	if open == nil {
		return nil
	}
	open.Resolve()
	if err := s.escalationRepo.Save(ctx, open); err != nil {
		return fmt.Errorf("failed to save escalation: %w", err)
	}
	result.Resolved++
	return nil
}

// resolveSettled closes open escalations for earlier months whose ledger
// entry has since been fully paid. Escalations for months still unpaid stay
// open at their reached tier.
func (s *EscalationService) resolveSettled(ctx context.Context, memberID uuid.UUID, currentDue billing.YearMonth, result *SweepResult) error {
	open, err := s.escalationRepo.FindOpenByMember(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to load open escalations: %w", err)
	}
	for i := range open {
		e := &open[i]
		if e.YearMonth == currentDue {
			continue // handled against the current classification above
		}
		record, err := s.coverageRepo.FindByKey(ctx, memberID, e.Category, e.YearMonth)
		if err != nil {
			return fmt.Errorf("failed to read ledger for %s: %w", e.YearMonth, err)
		}
		if record == nil || !record.IsSettled() {
			continue
		}
		e.Resolve()
		if err := s.escalationRepo.Save(ctx, e); err != nil {
			return fmt.Errorf("failed to save escalation: %w", err)
		}
		result.Resolved++
	}
	return nil
}

// RunSweep adapts Sweep to the scheduler's SweepFunc signature
func (s *EscalationService) RunSweep(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}

// GetMemberEscalations returns the full escalation history for a member,
// newest first
func (s *EscalationService) GetMemberEscalations(ctx context.Context, memberID uuid.UUID) ([]EscalationResponse, error) {
	escalations, err := s.escalationRepo.FindByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load escalations: %w", err)
	}
	responses := make([]EscalationResponse, len(escalations))
	for i := range escalations {
		responses[i] = toEscalationResponse(&escalations[i])
	}
	return responses, nil
}
