package service

import (
	"context"
	"fmt"
	"time"

	"github.com/movelink-next/internal/cache"
	"github.com/movelink-next/internal/repository"
)

const (
	dashboardCacheTTL     = 45 * time.Second
	dashboardDefaultDays  = 7
	dashboardNumberOfDays = 90
)

// DashboardService 运营看板服务
// 说明：聚合后台首页核心结算数据。
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService 创建看板服务
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// DashboardQueryInput 看板查询输入
type DashboardQueryInput struct {
	Days         int
	ForceRefresh bool
}

// DashboardOverviewResponse 看板总览响应
type DashboardOverviewResponse struct {
	From   string               `json:"from"`
	To     string               `json:"to"`
	KPI    DashboardKPI         `json:"kpi"`
	Alerts []DashboardAlertItem `json:"alerts"`
}

// DashboardKPI 看板核心指标
type DashboardKPI struct {
	PaymentsTotal       int64  `json:"payments_total"`
	DepositPaidCount    int64  `json:"deposit_paid_count"`
	FullyPaidCount      int64  `json:"fully_paid_count"`
	EscrowReleasedCount int64  `json:"escrow_released_count"`
	EscrowHeldAmount    string `json:"escrow_held_amount"`
	GuaranteeHeldCount  int64  `json:"guarantee_held_count"`
	MissionsInProgress  int64  `json:"missions_in_progress"`
	MissionsCompleted   int64  `json:"missions_completed"`
}

// DashboardAlertItem 看板告警项
type DashboardAlertItem struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Value int64  `json:"value"`
}

// DashboardTrendResponse 结算趋势响应
type DashboardTrendResponse struct {
	From   string                `json:"from"`
	To     string                `json:"to"`
	Points []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint 趋势点
type DashboardTrendPoint struct {
	Date           string `json:"date"`
	PaymentsTotal  int64  `json:"payments_total"`
	EscrowReleased int64  `json:"escrow_released"`
	RefundsCreated int64  `json:"refunds_created"`
}

func resolveDashboardWindow(days int, now time.Time) (time.Time, time.Time) {
	if days <= 0 {
		days = dashboardDefaultDays
	}
	if days > dashboardNumberOfDays {
		days = dashboardNumberOfDays
	}
	end := now.Truncate(24 * time.Hour).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -days)
	return start, end
}

// GetOverview 获取看板总览，命中缓存时直接返回。
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}
	startAt, endAt := resolveDashboardWindow(input.Days, time.Now())

	cacheKey := fmt.Sprintf("dashboard:overview:%d:%d", startAt.Unix(), endAt.Unix())
	if !input.ForceRefresh {
		var cached DashboardOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(startAt, endAt)
	if err != nil {
		return nil, err
	}

	response := &DashboardOverviewResponse{
		From: startAt.Format(time.RFC3339),
		To:   endAt.Add(-time.Second).Format(time.RFC3339),
		KPI: DashboardKPI{
			PaymentsTotal:       overview.PaymentsTotal,
			DepositPaidCount:    overview.DepositPaidCount,
			FullyPaidCount:      overview.FullyPaidCount,
			EscrowReleasedCount: overview.EscrowReleasedCount,
			EscrowHeldAmount:    overview.EscrowHeldAmount.Round(2).StringFixed(2),
			GuaranteeHeldCount:  overview.GuaranteeHeldCount,
			MissionsInProgress:  overview.MissionsInProgress,
			MissionsCompleted:   overview.MissionsCompleted,
		},
		Alerts: buildDashboardAlerts(overview),
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTrends 获取结算趋势，命中缓存时直接返回。
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}
	startAt, endAt := resolveDashboardWindow(input.Days, time.Now())

	cacheKey := fmt.Sprintf("dashboard:trends:%d:%d", startAt.Unix(), endAt.Unix())
	if !input.ForceRefresh {
		var cached DashboardTrendResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	trends, err := s.repo.GetSettlementTrends(startAt, endAt)
	if err != nil {
		return nil, err
	}

	points := make([]DashboardTrendPoint, 0, len(trends))
	for _, row := range trends {
		points = append(points, DashboardTrendPoint{
			Date:           row.Day,
			PaymentsTotal:  row.PaymentsTotal,
			EscrowReleased: row.EscrowReleased,
			RefundsCreated: row.RefundsCreated,
		})
	}

	response := &DashboardTrendResponse{
		From:   startAt.Format(time.RFC3339),
		To:     endAt.Add(-time.Second).Format(time.RFC3339),
		Points: points,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// buildDashboardAlerts 根据待处理事项生成告警
func buildDashboardAlerts(overview repository.DashboardOverviewRow) []DashboardAlertItem {
	alerts := make([]DashboardAlertItem, 0, 4)
	if overview.FrozenCount > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "frozen_payments", Level: "critical", Value: overview.FrozenCount})
	}
	if overview.OpenDamageReports > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "open_damage_reports", Level: "warning", Value: overview.OpenDamageReports})
	}
	if overview.PendingReleases > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "pending_release_requests", Level: "info", Value: overview.PendingReleases})
	}
	if overview.PendingRefunds > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "pending_refund_requests", Level: "info", Value: overview.PendingRefunds})
	}
	return alerts
}
