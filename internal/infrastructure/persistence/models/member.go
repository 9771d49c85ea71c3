package models

import (
	"time"

	"github.com/academy/backend/internal/domain/member"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemberModel is the persistence model for the Member domain entity.
type MemberModel struct {
	AggregateModel
	FullName         string        `gorm:"type:varchar(200);not null"`
	Phone            string        `gorm:"type:varchar(50);index"`
	GuardianPhone    string        `gorm:"type:varchar(50)"`
	RegistrationDate time.Time     `gorm:"type:date;not null"`
	Status           member.Status `gorm:"type:varchar(20);not null;default:'TRIAL';index"`
	Remark           string        `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (MemberModel) TableName() string {
	return "members"
}

// ToDomain converts the persistence model to a domain Member entity.
func (m *MemberModel) ToDomain() *member.Member {
	return &member.Member{
		BaseAggregateRoot: m.aggregateRoot(),
		FullName:          m.FullName,
		Phone:             m.Phone,
		GuardianPhone:     m.GuardianPhone,
		RegistrationDate:  m.RegistrationDate,
		Status:            m.Status,
		Remark:            m.Remark,
	}
}

// FromDomain populates the persistence model from a domain Member entity.
func (m *MemberModel) FromDomain(d *member.Member) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.FullName = d.FullName
	m.Phone = d.Phone
	m.GuardianPhone = d.GuardianPhone
	m.RegistrationDate = d.RegistrationDate
	m.Status = d.Status
	m.Remark = d.Remark
}

// MemberModelFromDomain creates a new persistence model from a domain Member entity.
func MemberModelFromDomain(d *member.Member) *MemberModel {
	m := &MemberModel{}
	m.FromDomain(d)
	return m
}

// FeeScheduleModel is the persistence model for the FeeSchedule domain entity.
type FeeScheduleModel struct {
	AggregateModel
	MemberID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	MonthlyFee   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TransportFee decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Remark       string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (FeeScheduleModel) TableName() string {
	return "fee_schedules"
}

// ToDomain converts the persistence model to a domain FeeSchedule entity.
func (m *FeeScheduleModel) ToDomain() *member.FeeSchedule {
	return &member.FeeSchedule{
		BaseAggregateRoot: m.aggregateRoot(),
		MemberID:          m.MemberID,
		MonthlyFee:        m.MonthlyFee,
		TransportFee:      m.TransportFee,
		Remark:            m.Remark,
	}
}

// FromDomain populates the persistence model from a domain FeeSchedule entity.
func (m *FeeScheduleModel) FromDomain(d *member.FeeSchedule) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.MemberID = d.MemberID
	m.MonthlyFee = d.MonthlyFee
	m.TransportFee = d.TransportFee
	m.Remark = d.Remark
}

// FeeScheduleModelFromDomain creates a new persistence model from a domain FeeSchedule entity.
func FeeScheduleModelFromDomain(d *member.FeeSchedule) *FeeScheduleModel {
	m := &FeeScheduleModel{}
	m.FromDomain(d)
	return m
}
