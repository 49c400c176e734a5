package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/movelink-next/internal/advisory"
	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/queue"
	"github.com/movelink-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// stubAdvisoryClient 测试用风控分析桩
type stubAdvisoryClient struct {
	result *advisory.Result
	err    error
	calls  int
}

func (s *stubAdvisoryClient) Analyze(_ context.Context, _ advisory.AnalyzeInput) (*advisory.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func setupReleaseServiceTest(t *testing.T, cli advisory.Client) (*ReleaseService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:release_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Payment{},
		&models.PaymentAuditLog{},
		&models.PaymentReleaseRequest{},
		&models.MissionStatus{},
		&models.MissionEvidence{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	paymentRepo := repository.NewPaymentRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	paymentSvc := NewPaymentService(testSettlementConfig(), paymentRepo, auditRepo)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	notifySvc := NewNotificationService(repository.NewNotificationRepository(db), queueClient)
	svc := NewReleaseService(
		paymentRepo,
		repository.NewReleaseRequestRepository(db),
		repository.NewMissionRepository(db),
		paymentSvc,
		notifySvc,
		cli,
		queueClient,
	)
	return svc, db
}

func seedReleasePayment(t *testing.T, db *gorm.DB, quoteID uint, status string) *models.Payment {
	t.Helper()
	now := time.Now()
	payment := &models.Payment{
		QuoteID:            quoteID,
		ClientID:           1,
		MoverID:            2,
		TotalAmount:        models.NewMoneyFromDecimal(decimal.RequireFromString("1000.00")),
		PlatformCommission: models.NewMoneyFromDecimal(decimal.RequireFromString("100.00")),
		MoverPayout:        models.NewMoneyFromDecimal(decimal.RequireFromString("900.00")),
		DepositAmount:      models.NewMoneyFromDecimal(decimal.RequireFromString("300.00")),
		EscrowAmount:       models.NewMoneyFromDecimal(decimal.RequireFromString("1000.00")),
		GuaranteeAmount:    models.NewMoneyFromDecimal(decimal.RequireFromString("100.00")),
		GuaranteeStatus:    constants.GuaranteeStatusHeld,
		GuaranteeReleased:  models.NewMoneyFromDecimal(decimal.Zero),
		PaymentStatus:      status,
	}
	if status == constants.PaymentStatusFullyPaid {
		payment.DepositPaidAt = &now
		payment.FullyPaidAt = &now
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("seed payment failed: %v", err)
	}
	// 放款申请以任务完成为前提
	if status == constants.PaymentStatusFullyPaid {
		mission := &models.MissionStatus{
			QuoteID:     quoteID,
			ClientID:    payment.ClientID,
			MoverID:     payment.MoverID,
			Status:      constants.MissionStatusCompleted,
			CompletedAt: &now,
		}
		if err := db.Create(mission).Error; err != nil {
			t.Fatalf("seed mission failed: %v", err)
		}
	}
	return payment
}

func TestReleaseServiceRequestRelease(t *testing.T) {
	stub := &stubAdvisoryClient{result: &advisory.Result{RiskLevel: constants.RiskLevelLow, Summary: "clean evidence trail"}}
	svc, _ := setupReleaseServiceTest(t, stub)
	payment := seedReleasePayment(t, models.DB, 1001, constants.PaymentStatusFullyPaid)

	request, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: payment.ID,
		MoverID:   2,
	})
	if err != nil {
		t.Fatalf("request release failed: %v", err)
	}
	if request.Status != constants.ReleaseStatusPending {
		t.Fatalf("expected pending, got: %s", request.Status)
	}
	if stub.calls != 1 {
		t.Fatalf("expected 1 advisory call, got: %d", stub.calls)
	}
	if request.RiskAdvisory == nil || request.RiskAdvisory["riskLevel"] != constants.RiskLevelLow {
		t.Fatalf("risk advisory should carry analysis result: %+v", request.RiskAdvisory)
	}

	// 同一支付只允许一条 pending 申请
	if _, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: payment.ID,
		MoverID:   2,
	}); !errors.Is(err, ErrReleaseRequestExists) {
		t.Fatalf("expected ErrReleaseRequestExists, got: %v", err)
	}
}

func TestReleaseServicePendingRequestUniqueConstraint(t *testing.T) {
	svc, db := setupReleaseServiceTest(t, nil)
	payment := seedReleasePayment(t, db, 1101, constants.PaymentStatusFullyPaid)

	if _, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: payment.ID,
		MoverID:   2,
	}); err != nil {
		t.Fatalf("request release failed: %v", err)
	}

	// 绕过服务层直接写第二条 pending 也会被数据库唯一索引挡下
	duplicate := &models.PaymentReleaseRequest{
		PaymentID:   payment.ID,
		MoverID:     2,
		Status:      constants.ReleaseStatusPending,
		RequestedAt: time.Now(),
	}
	if err := db.Create(duplicate).Error; err == nil {
		t.Fatalf("duplicate pending request should violate unique index")
	}

	// 唯一索引只约束 pending，终态记录不受影响
	processed := &models.PaymentReleaseRequest{
		PaymentID:   payment.ID,
		MoverID:     2,
		Status:      constants.ReleaseStatusRejected,
		AdminNotes:  "rejected earlier",
		RequestedAt: time.Now(),
	}
	if err := db.Create(processed).Error; err != nil {
		t.Fatalf("terminal request should not hit unique index: %v", err)
	}
}

func TestReleaseServiceRequestGuards(t *testing.T) {
	svc, db := setupReleaseServiceTest(t, nil)
	payment := seedReleasePayment(t, db, 2001, constants.PaymentStatusFullyPaid)

	if _, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: payment.ID,
		MoverID:   77,
	}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got: %v", err)
	}

	depositOnly := seedReleasePayment(t, db, 2002, constants.PaymentStatusDepositPaid)
	if _, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: depositOnly.ID,
		MoverID:   2,
	}); !errors.Is(err, ErrPaymentNotFullyPaid) {
		t.Fatalf("expected ErrPaymentNotFullyPaid, got: %v", err)
	}

	released := seedReleasePayment(t, db, 2003, constants.PaymentStatusFullyPaid)
	if err := db.Model(&models.Payment{}).Where("id = ?", released.ID).
		Update("escrow_released", true).Error; err != nil {
		t.Fatalf("mark released failed: %v", err)
	}
	if _, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: released.ID,
		MoverID:   2,
	}); !errors.Is(err, ErrAlreadyReleased) {
		t.Fatalf("expected ErrAlreadyReleased, got: %v", err)
	}

	inTransit := seedReleasePayment(t, db, 2005, constants.PaymentStatusFullyPaid)
	if err := db.Model(&models.MissionStatus{}).Where("quote_id = ?", 2005).
		Update("status", constants.MissionStatusInTransit).Error; err != nil {
		t.Fatalf("downgrade mission failed: %v", err)
	}
	if _, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: inTransit.ID,
		MoverID:   2,
	}); !errors.Is(err, ErrMissionNotCompleted) {
		t.Fatalf("expected ErrMissionNotCompleted, got: %v", err)
	}

	frozen := seedReleasePayment(t, db, 2004, constants.PaymentStatusFullyPaid)
	if err := db.Model(&models.Payment{}).Where("id = ?", frozen.ID).
		Update("frozen", true).Error; err != nil {
		t.Fatalf("freeze payment failed: %v", err)
	}
	if _, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: frozen.ID,
		MoverID:   2,
	}); !errors.Is(err, ErrPaymentFrozen) {
		t.Fatalf("expected ErrPaymentFrozen, got: %v", err)
	}
}

func TestReleaseServiceAdvisoryDegrades(t *testing.T) {
	stub := &stubAdvisoryClient{err: errors.New("advisory unreachable")}
	svc, _ := setupReleaseServiceTest(t, stub)
	payment := seedReleasePayment(t, models.DB, 3001, constants.PaymentStatusFullyPaid)

	request, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: payment.ID,
		MoverID:   2,
	})
	if err != nil {
		t.Fatalf("request should not fail when advisory is down: %v", err)
	}
	if request.RiskAdvisory == nil || request.RiskAdvisory["degraded"] != true {
		t.Fatalf("expected degraded advisory attachment: %+v", request.RiskAdvisory)
	}
	if request.RiskAdvisory["riskLevel"] != constants.RiskLevelUnknown {
		t.Fatalf("degraded risk level should be unknown: %+v", request.RiskAdvisory)
	}
}

func TestReleaseServiceApprove(t *testing.T) {
	svc, db := setupReleaseServiceTest(t, nil)
	payment := seedReleasePayment(t, db, 4001, constants.PaymentStatusFullyPaid)

	request, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: payment.ID,
		MoverID:   2,
	})
	if err != nil {
		t.Fatalf("request release failed: %v", err)
	}

	approved, err := svc.Approve(ApproveInput{
		RequestID: request.ID,
		AdminID:   9,
		Notes:     "evidence complete",
	})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != constants.ReleaseStatusApproved || approved.ProcessedBy == nil {
		t.Fatalf("unexpected approved request: %+v", approved)
	}

	var reloaded models.Payment
	if err := db.First(&reloaded, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if !reloaded.EscrowReleased || reloaded.EscrowReleasedAt == nil {
		t.Fatalf("escrow should be released: %+v", reloaded)
	}

	// 重复批准与二次放款都拒绝
	if _, err := svc.Approve(ApproveInput{RequestID: request.ID, AdminID: 9}); !errors.Is(err, ErrAlreadyReleased) {
		t.Fatalf("expected ErrAlreadyReleased on re-approve, got: %v", err)
	}
	if _, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: payment.ID,
		MoverID:   2,
	}); !errors.Is(err, ErrAlreadyReleased) {
		t.Fatalf("expected ErrAlreadyReleased on new request, got: %v", err)
	}

	var audits int64
	if err := db.Model(&models.PaymentAuditLog{}).
		Where("payment_id = ? AND action = ?", payment.ID, constants.AuditActionEscrowRelease).
		Count(&audits).Error; err != nil {
		t.Fatalf("count audit logs failed: %v", err)
	}
	if audits != 1 {
		t.Fatalf("expected 1 release audit, got: %d", audits)
	}

	var notifications int64
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", payment.MoverID, constants.NotificationTypeReleaseApproved).
		Count(&notifications).Error; err != nil {
		t.Fatalf("count notifications failed: %v", err)
	}
	if notifications != 1 {
		t.Fatalf("expected 1 approval notification, got: %d", notifications)
	}
}

func TestReleaseServiceRejectRequiresNotes(t *testing.T) {
	svc, db := setupReleaseServiceTest(t, nil)
	payment := seedReleasePayment(t, db, 5001, constants.PaymentStatusFullyPaid)

	request, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: payment.ID,
		MoverID:   2,
	})
	if err != nil {
		t.Fatalf("request release failed: %v", err)
	}

	if _, err := svc.Reject(RejectInput{RequestID: request.ID, AdminID: 9, Notes: "   "}); !errors.Is(err, ErrReleaseNotesRequired) {
		t.Fatalf("expected ErrReleaseNotesRequired, got: %v", err)
	}

	rejected, err := svc.Reject(RejectInput{
		RequestID: request.ID,
		AdminID:   9,
		Notes:     "unloading photos missing",
	})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != constants.ReleaseStatusRejected || rejected.AdminNotes == "" {
		t.Fatalf("unexpected rejected request: %+v", rejected)
	}

	// 已处理申请不能再处理，但托管未动，可以再次申请
	if _, err := svc.Reject(RejectInput{RequestID: request.ID, AdminID: 9, Notes: "again"}); !errors.Is(err, ErrReleaseRequestProcessed) {
		t.Fatalf("expected ErrReleaseRequestProcessed, got: %v", err)
	}
	if _, err := svc.RequestRelease(context.Background(), RequestReleaseInput{
		PaymentID: payment.ID,
		MoverID:   2,
	}); err != nil {
		t.Fatalf("new request after rejection failed: %v", err)
	}
}
