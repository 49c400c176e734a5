package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/queue"
	"github.com/movelink-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRefundServiceTest(t *testing.T) (*RefundService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:refund_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Payment{},
		&models.PaymentAuditLog{},
		&models.RefundRequest{},
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
	svc := NewRefundService(
		paymentRepo,
		repository.NewRefundRepository(db),
		paymentSvc,
		notifySvc,
		queueClient,
	)
	return svc, db
}

func seedRefundPayment(t *testing.T, db *gorm.DB, quoteID uint, status string) *models.Payment {
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
	switch status {
	case constants.PaymentStatusDepositPaid:
		payment.DepositPaidAt = &now
	case constants.PaymentStatusFullyPaid:
		payment.DepositPaidAt = &now
		payment.FullyPaidAt = &now
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("seed payment failed: %v", err)
	}
	return payment
}

func TestRefundServiceQuotaFromPaidAmount(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	payment := seedRefundPayment(t, db, 1001, constants.PaymentStatusDepositPaid)

	// 定金阶段只能退到定金上限
	if _, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: payment.ID,
		ClientID:  1,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("400.00")),
		Reason:    "schedule conflict",
	}); !errors.Is(err, ErrRefundExceedsRefundable) {
		t.Fatalf("expected ErrRefundExceedsRefundable, got: %v", err)
	}

	first, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: payment.ID,
		ClientID:  1,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("200.00")),
		Reason:    "schedule conflict",
	})
	if err != nil {
		t.Fatalf("create refund failed: %v", err)
	}
	if first.Status != constants.RefundStatusPending {
		t.Fatalf("expected pending, got: %s", first.Status)
	}

	// 未被拒绝的申请占用额度
	if _, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: payment.ID,
		ClientID:  1,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("150.00")),
		Reason:    "second thoughts",
	}); !errors.Is(err, ErrRefundExceedsRefundable) {
		t.Fatalf("expected ErrRefundExceedsRefundable for second request, got: %v", err)
	}

	remaining, err := svc.RemainingRefundable(payment.ID)
	if err != nil {
		t.Fatalf("remaining refundable failed: %v", err)
	}
	if !remaining.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected remaining 100.00, got: %s", remaining)
	}
}

func TestRefundServiceRejectFreesQuota(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	payment := seedRefundPayment(t, db, 2001, constants.PaymentStatusDepositPaid)

	first, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: payment.ID,
		ClientID:  1,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("300.00")),
		Reason:    "moving cancelled",
	})
	if err != nil {
		t.Fatalf("create refund failed: %v", err)
	}

	if _, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: payment.ID,
		ClientID:  1,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("1.00")),
		Reason:    "one more dollar",
	}); !errors.Is(err, ErrRefundExceedsRefundable) {
		t.Fatalf("expected quota exhausted, got: %v", err)
	}

	rejected, err := svc.RejectRefund(RejectRefundInput{
		RefundID: first.ID,
		AdminID:  9,
		Notes:    "deposit is non refundable after crew dispatch",
	})
	if err != nil {
		t.Fatalf("reject refund failed: %v", err)
	}
	if rejected.Status != constants.RefundStatusRejected {
		t.Fatalf("expected rejected, got: %s", rejected.Status)
	}

	// 拒绝后额度释放
	if _, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: payment.ID,
		ClientID:  1,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("300.00")),
		Reason:    "retry after rejection",
	}); err != nil {
		t.Fatalf("create refund after rejection failed: %v", err)
	}
}

func TestRefundServiceCreateGuards(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	payment := seedRefundPayment(t, db, 3001, constants.PaymentStatusFullyPaid)

	if _, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: payment.ID,
		ClientID:  1,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("100.00")),
		Reason:    "   ",
	}); !errors.Is(err, ErrRefundAmountInvalid) {
		t.Fatalf("expected ErrRefundAmountInvalid for blank reason, got: %v", err)
	}

	if _, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: payment.ID,
		ClientID:  77,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("100.00")),
		Reason:    "not my payment",
	}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got: %v", err)
	}

	unpaid := seedRefundPayment(t, db, 3002, constants.PaymentStatusNoPayment)
	if _, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: unpaid.ID,
		ClientID:  1,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("100.00")),
		Reason:    "nothing was paid",
	}); !errors.Is(err, ErrRefundAmountInvalid) {
		t.Fatalf("expected ErrRefundAmountInvalid for unpaid payment, got: %v", err)
	}
}

func TestRefundServiceCompleteRefundFullCoverage(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	payment := seedRefundPayment(t, db, 4001, constants.PaymentStatusFullyPaid)

	request, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: payment.ID,
		ClientID:  1,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("1000.00")),
		Reason:    "service not delivered",
	})
	if err != nil {
		t.Fatalf("create refund failed: %v", err)
	}

	// 未批准的申请不能完成
	if _, err := svc.CompleteRefund(CompleteRefundInput{
		RefundID:  request.ID,
		PayoutRef: "tx-early",
	}); !errors.Is(err, ErrRefundStatusInvalid) {
		t.Fatalf("expected ErrRefundStatusInvalid before approval, got: %v", err)
	}

	if _, err := svc.ApproveRefund(ApproveRefundInput{RefundID: request.ID, AdminID: 9}); err != nil {
		t.Fatalf("approve refund failed: %v", err)
	}
	if _, err := svc.ApproveRefund(ApproveRefundInput{RefundID: request.ID, AdminID: 9}); !errors.Is(err, ErrRefundStatusInvalid) {
		t.Fatalf("expected ErrRefundStatusInvalid on re-approve, got: %v", err)
	}

	completed, err := svc.CompleteRefund(CompleteRefundInput{
		RefundID:  request.ID,
		PayoutRef: "payrail-tx-123",
	})
	if err != nil {
		t.Fatalf("complete refund failed: %v", err)
	}
	if completed.Status != constants.RefundStatusCompleted || completed.PayoutRef != "payrail-tx-123" {
		t.Fatalf("unexpected completed refund: %+v", completed)
	}

	// 全额退清后支付记录进入终态
	var reloaded models.Payment
	if err := db.First(&reloaded, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if reloaded.PaymentStatus != constants.PaymentStatusRefunded {
		t.Fatalf("expected refunded, got: %s", reloaded.PaymentStatus)
	}

	// 重复完成是幂等的
	again, err := svc.CompleteRefund(CompleteRefundInput{
		RefundID:  request.ID,
		PayoutRef: "payrail-tx-456",
	})
	if err != nil {
		t.Fatalf("repeated complete failed: %v", err)
	}
	if again.PayoutRef != "payrail-tx-123" {
		t.Fatalf("payout ref should not change on repeat, got: %s", again.PayoutRef)
	}
}

func TestRefundServicePartialCompleteKeepsStatus(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	payment := seedRefundPayment(t, db, 5001, constants.PaymentStatusFullyPaid)

	request, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: payment.ID,
		ClientID:  1,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("250.00")),
		Reason:    "broken lamp compensation",
	})
	if err != nil {
		t.Fatalf("create refund failed: %v", err)
	}
	if _, err := svc.ApproveRefund(ApproveRefundInput{RefundID: request.ID, AdminID: 9}); err != nil {
		t.Fatalf("approve refund failed: %v", err)
	}
	if _, err := svc.CompleteRefund(CompleteRefundInput{RefundID: request.ID, PayoutRef: "tx-1"}); err != nil {
		t.Fatalf("complete refund failed: %v", err)
	}

	var reloaded models.Payment
	if err := db.First(&reloaded, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if reloaded.PaymentStatus != constants.PaymentStatusFullyPaid {
		t.Fatalf("partial refund must not change payment status, got: %s", reloaded.PaymentStatus)
	}

	remaining, err := svc.RemainingRefundable(payment.ID)
	if err != nil {
		t.Fatalf("remaining refundable failed: %v", err)
	}
	if !remaining.Equal(decimal.RequireFromString("750.00")) {
		t.Fatalf("expected remaining 750.00, got: %s", remaining)
	}
}

func TestRefundServiceFrozenPaymentRejectsNewRequests(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	payment := seedRefundPayment(t, db, 6001, constants.PaymentStatusFullyPaid)
	if err := db.Model(&models.Payment{}).Where("id = ?", payment.ID).
		Update("frozen", true).Error; err != nil {
		t.Fatalf("freeze payment failed: %v", err)
	}

	if _, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: payment.ID,
		ClientID:  1,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("100.00")),
		Reason:    "frozen payment",
	}); !errors.Is(err, ErrPaymentFrozen) {
		t.Fatalf("expected ErrPaymentFrozen, got: %v", err)
	}
}

func TestRefundServiceCompleteRefundRespectsFrozenPayment(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	payment := seedRefundPayment(t, db, 7001, constants.PaymentStatusFullyPaid)

	request, err := svc.CreateRefund(CreateRefundInput{
		PaymentID: payment.ID,
		ClientID:  1,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("200.00")),
		Reason:    "crew arrived late",
	})
	if err != nil {
		t.Fatalf("create refund failed: %v", err)
	}
	if _, err := svc.ApproveRefund(ApproveRefundInput{RefundID: request.ID, AdminID: 9}); err != nil {
		t.Fatalf("approve refund failed: %v", err)
	}

	// 批准后被冻结的支付不再接受完成回调
	if err := db.Model(&models.Payment{}).Where("id = ?", payment.ID).
		Update("frozen", true).Error; err != nil {
		t.Fatalf("freeze payment failed: %v", err)
	}
	if _, err := svc.CompleteRefund(CompleteRefundInput{
		RefundID:  request.ID,
		PayoutRef: "tx-frozen",
	}); !errors.Is(err, ErrPaymentFrozen) {
		t.Fatalf("expected ErrPaymentFrozen on complete, got: %v", err)
	}

	var reloaded models.RefundRequest
	if err := db.First(&reloaded, request.ID).Error; err != nil {
		t.Fatalf("reload refund failed: %v", err)
	}
	if reloaded.Status != constants.RefundStatusApproved {
		t.Fatalf("refund should stay approved, got: %s", reloaded.Status)
	}
}
