package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/movelink-next/internal/config"
	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func testSettlementConfig() *config.Config {
	return &config.Config{
		Settlement: config.SettlementConfig{
			CommissionRatePercent: 10,
			GuaranteeRatePercent:  10,
			DepositRatePercent:    30,
		},
	}
}

func setupPaymentServiceTest(t *testing.T) (*PaymentService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Payment{},
		&models.PaymentAuditLog{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	svc := NewPaymentService(
		testSettlementConfig(),
		repository.NewPaymentRepository(db),
		repository.NewAuditLogRepository(db),
	)
	return svc, db
}

func TestPaymentServiceCreatePaymentSplit(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)

	payment, err := svc.CreatePayment(CreatePaymentInput{
		QuoteID:     1001,
		ClientID:    1,
		MoverID:     2,
		TotalAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("2000.00")),
		ActorID:     99,
		ActorRole:   constants.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	cases := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"total", payment.TotalAmount.Decimal, "2000.00"},
		{"commission", payment.PlatformCommission.Decimal, "200.00"},
		{"mover payout", payment.MoverPayout.Decimal, "1800.00"},
		{"deposit", payment.DepositAmount.Decimal, "600.00"},
		{"escrow", payment.EscrowAmount.Decimal, "2000.00"},
		{"guarantee", payment.GuaranteeAmount.Decimal, "200.00"},
	}
	for _, c := range cases {
		if !c.got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("expected %s=%s, got: %s", c.name, c.want, c.got)
		}
	}
	if payment.PaymentStatus != constants.PaymentStatusNoPayment {
		t.Fatalf("expected status no_payment, got: %s", payment.PaymentStatus)
	}
	if payment.GuaranteeStatus != constants.GuaranteeStatusHeld {
		t.Fatalf("expected guarantee held, got: %s", payment.GuaranteeStatus)
	}

	var logs int64
	if err := db.Model(&models.PaymentAuditLog{}).
		Where("payment_id = ? AND action = ?", payment.ID, constants.AuditActionCreatePayment).
		Count(&logs).Error; err != nil {
		t.Fatalf("count audit logs failed: %v", err)
	}
	if logs != 1 {
		t.Fatalf("expected 1 create audit log, got: %d", logs)
	}
}

func TestPaymentServiceCreatePaymentDuplicateQuote(t *testing.T) {
	svc, _ := setupPaymentServiceTest(t)

	input := CreatePaymentInput{
		QuoteID:     2001,
		ClientID:    1,
		MoverID:     2,
		TotalAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("500.00")),
		ActorID:     99,
		ActorRole:   constants.UserRoleAdmin,
	}
	if _, err := svc.CreatePayment(input); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := svc.CreatePayment(input); !errors.Is(err, ErrPaymentExists) {
		t.Fatalf("expected ErrPaymentExists, got: %v", err)
	}
}

func TestPaymentServiceCreatePaymentInvalidAmount(t *testing.T) {
	svc, _ := setupPaymentServiceTest(t)

	for _, amount := range []string{"0", "-10.00"} {
		_, err := svc.CreatePayment(CreatePaymentInput{
			QuoteID:     3001,
			ClientID:    1,
			MoverID:     2,
			TotalAmount: models.NewMoneyFromDecimal(decimal.RequireFromString(amount)),
			ActorID:     99,
			ActorRole:   constants.UserRoleAdmin,
		})
		if !errors.Is(err, ErrPaymentAmountInvalid) {
			t.Fatalf("expected ErrPaymentAmountInvalid for amount %s, got: %v", amount, err)
		}
	}
}

func TestPaymentServiceMarkPaidFlow(t *testing.T) {
	svc, _ := setupPaymentServiceTest(t)

	payment, err := svc.CreatePayment(CreatePaymentInput{
		QuoteID:     4001,
		ClientID:    1,
		MoverID:     2,
		TotalAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("1000.00")),
		ActorID:     99,
		ActorRole:   constants.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	updated, err := svc.MarkDepositPaid(MarkDepositPaidInput{
		PaymentID: payment.ID,
		ActorID:   99,
		ActorRole: constants.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mark deposit paid failed: %v", err)
	}
	if updated.PaymentStatus != constants.PaymentStatusDepositPaid || updated.DepositPaidAt == nil {
		t.Fatalf("unexpected payment after deposit: %+v", updated)
	}

	// 定金到账不可重复标记
	if _, err := svc.MarkDepositPaid(MarkDepositPaidInput{
		PaymentID: payment.ID,
		ActorID:   99,
		ActorRole: constants.UserRoleAdmin,
	}); !errors.Is(err, ErrPaymentStatusInvalid) {
		t.Fatalf("expected ErrPaymentStatusInvalid, got: %v", err)
	}

	updated, err = svc.MarkFullyPaid(MarkFullyPaidInput{
		PaymentID: payment.ID,
		ActorID:   99,
		ActorRole: constants.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mark fully paid failed: %v", err)
	}
	if updated.PaymentStatus != constants.PaymentStatusFullyPaid || updated.FullyPaidAt == nil {
		t.Fatalf("unexpected payment after full payment: %+v", updated)
	}

	if _, err := svc.MarkFullyPaid(MarkFullyPaidInput{
		PaymentID: payment.ID,
		ActorID:   99,
		ActorRole: constants.UserRoleAdmin,
	}); !errors.Is(err, ErrPaymentStatusInvalid) {
		t.Fatalf("expected ErrPaymentStatusInvalid, got: %v", err)
	}
}

func TestPaymentServiceMarkFullyPaidSkipsDeposit(t *testing.T) {
	svc, _ := setupPaymentServiceTest(t)

	payment, err := svc.CreatePayment(CreatePaymentInput{
		QuoteID:     5001,
		ClientID:    1,
		MoverID:     2,
		TotalAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("1000.00")),
		ActorID:     99,
		ActorRole:   constants.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	updated, err := svc.MarkFullyPaid(MarkFullyPaidInput{
		PaymentID: payment.ID,
		ActorID:   99,
		ActorRole: constants.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mark fully paid failed: %v", err)
	}
	if updated.DepositPaidAt == nil {
		t.Fatal("deposit paid time should be backfilled on direct full payment")
	}
}

func TestPaymentServiceFreezesCorruptedRecord(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)

	payment, err := svc.CreatePayment(CreatePaymentInput{
		QuoteID:     6001,
		ClientID:    1,
		MoverID:     2,
		TotalAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("1000.00")),
		ActorID:     99,
		ActorRole:   constants.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	// 绕过服务直接破坏拆分一致性
	if err := db.Model(&models.Payment{}).Where("id = ?", payment.ID).
		Update("platform_commission", "999.00").Error; err != nil {
		t.Fatalf("corrupt payment failed: %v", err)
	}

	got, err := svc.GetPayment(payment.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if !got.Frozen {
		t.Fatal("corrupted payment should be frozen on read")
	}

	if _, err := svc.MarkFullyPaid(MarkFullyPaidInput{
		PaymentID: payment.ID,
		ActorID:   99,
		ActorRole: constants.UserRoleAdmin,
	}); !errors.Is(err, ErrPaymentFrozen) {
		t.Fatalf("expected ErrPaymentFrozen, got: %v", err)
	}
}
