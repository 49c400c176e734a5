package repository

import (
	"time"

	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardRepository 运营看板聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetSettlementTrends(startAt, endAt time.Time) ([]DashboardSettlementTrendRow, error)
}

// DashboardOverviewRow 看板总览原始统计结果
type DashboardOverviewRow struct {
	PaymentsTotal       int64
	DepositPaidCount    int64
	FullyPaidCount      int64
	EscrowReleasedCount int64
	EscrowHeldAmount    decimal.Decimal
	GuaranteeHeldCount  int64
	FrozenCount         int64
	OpenDamageReports   int64
	PendingReleases     int64
	PendingRefunds      int64
	MissionsInProgress  int64
	MissionsCompleted   int64
}

// DashboardSettlementTrendRow 结算趋势统计（按天）
type DashboardSettlementTrendRow struct {
	Day            string
	PaymentsTotal  int64
	EscrowReleased int64
	RefundsCreated int64
}

// GormDashboardRepository GORM 看板聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建看板仓储
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetOverview 获取总览统计
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	paymentBase := func() *gorm.DB {
		return r.db.Model(&models.Payment{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}

	if err := paymentBase().Count(&result.PaymentsTotal).Error; err != nil {
		return result, err
	}
	if err := paymentBase().
		Where("payment_status = ?", constants.PaymentStatusDepositPaid).
		Count(&result.DepositPaidCount).Error; err != nil {
		return result, err
	}
	if err := paymentBase().
		Where("payment_status = ?", constants.PaymentStatusFullyPaid).
		Count(&result.FullyPaidCount).Error; err != nil {
		return result, err
	}
	if err := paymentBase().
		Where("escrow_released = ?", true).
		Count(&result.EscrowReleasedCount).Error; err != nil {
		return result, err
	}

	var escrowRow struct {
		Total decimal.Decimal
	}
	if err := paymentBase().
		Select("COALESCE(SUM(escrow_amount), 0) AS total").
		Where("escrow_released = ? AND payment_status = ?", false, constants.PaymentStatusFullyPaid).
		Take(&escrowRow).Error; err != nil {
		return result, err
	}
	result.EscrowHeldAmount = escrowRow.Total

	if err := paymentBase().
		Where("guarantee_status = ?", constants.GuaranteeStatusHeld).
		Count(&result.GuaranteeHeldCount).Error; err != nil {
		return result, err
	}
	if err := paymentBase().
		Where("frozen = ?", true).
		Count(&result.FrozenCount).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.DamageReport{}).
		Where("status NOT IN ?", []string{
			constants.DamageStatusResolved,
			constants.DamageStatusRejected,
		}).
		Count(&result.OpenDamageReports).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.PaymentReleaseRequest{}).
		Where("status = ?", constants.ReleaseStatusPending).
		Count(&result.PendingReleases).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.RefundRequest{}).
		Where("status = ?", constants.RefundStatusPending).
		Count(&result.PendingRefunds).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.MissionStatus{}).
		Where("status <> ?", constants.MissionStatusCompleted).
		Count(&result.MissionsInProgress).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.MissionStatus{}).
		Where("status = ?", constants.MissionStatusCompleted).
		Count(&result.MissionsCompleted).Error; err != nil {
		return result, err
	}

	return result, nil
}

// GetSettlementTrends 获取按天结算趋势
func (r *GormDashboardRepository) GetSettlementTrends(startAt, endAt time.Time) ([]DashboardSettlementTrendRow, error) {
	type dayCount struct {
		Day   string
		Total int64
	}

	collect := func(query *gorm.DB, column string) (map[string]int64, error) {
		var rows []dayCount
		if err := query.
			Select(sqlDateExpr(r.db, column) + " AS day, COUNT(*) AS total").
			Group("day").
			Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make(map[string]int64, len(rows))
		for _, row := range rows {
			out[row.Day] = row.Total
		}
		return out, nil
	}

	created, err := collect(r.db.Model(&models.Payment{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt), "created_at")
	if err != nil {
		return nil, err
	}
	released, err := collect(r.db.Model(&models.Payment{}).
		Where("escrow_released_at >= ? AND escrow_released_at < ?", startAt, endAt), "escrow_released_at")
	if err != nil {
		return nil, err
	}
	refunds, err := collect(r.db.Model(&models.RefundRequest{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt), "created_at")
	if err != nil {
		return nil, err
	}

	trends := make([]DashboardSettlementTrendRow, 0)
	for day := startAt; day.Before(endAt); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		trends = append(trends, DashboardSettlementTrendRow{
			Day:            key,
			PaymentsTotal:  created[key],
			EscrowReleased: released[key],
			RefundsCreated: refunds[key],
		})
	}
	return trends, nil
}
