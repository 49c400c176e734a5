package main

import (
	"time"

	"github.com/movelink-next/internal/config"
	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/logger"
	"github.com/movelink-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin("admin", "admin123"); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	// 示例用户（客户与搬家公司）
	users := []models.User{
		{
			Email: "client@example.com",
			Role:  constants.UserRoleClient,
			Name:  "Demo Client",
			Phone: "13800000001",
		},
		{
			Email: "mover@example.com",
			Role:  constants.UserRoleMover,
			Name:  "Demo Moving Co.",
			Phone: "13800000002",
		},
	}
	userIDs := map[string]uint{}
	for _, user := range users {
		var existing models.User
		if err := models.DB.Where("email = ?", user.Email).First(&existing).Error; err == nil {
			stdLog.Printf("User already exists: %s", user.Email)
			userIDs[user.Role] = existing.ID
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			stdLog.Fatalf("Failed to hash password: %v", err)
		}
		user.PasswordHash = string(hash)
		user.Status = constants.UserStatusActive
		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Printf("Failed to create user %s: %v", user.Email, err)
			continue
		}
		stdLog.Printf("Created user: %s (password123)", user.Email)
		userIDs[user.Role] = user.ID
	}

	clientID := userIDs[constants.UserRoleClient]
	moverID := userIDs[constants.UserRoleMover]
	if clientID == 0 || moverID == 0 {
		stdLog.Printf("Missing demo users, skip payment seeding")
		return
	}

	// 示例支付记录：总额 2000，按 10%/20%/30% 拆分佣金、定金、保证金
	var existingPayment models.Payment
	if err := models.DB.Where("quote_id = ?", 1001).First(&existingPayment).Error; err == nil {
		stdLog.Printf("Payment already exists for quote 1001")
		return
	}

	total := decimal.NewFromInt(2000)
	commission := total.Mul(decimal.NewFromInt(int64(cfg.Settlement.CommissionRatePercent))).Div(decimal.NewFromInt(100)).Round(2)
	deposit := total.Mul(decimal.NewFromInt(int64(cfg.Settlement.DepositRatePercent))).Div(decimal.NewFromInt(100)).Round(2)
	guarantee := total.Mul(decimal.NewFromInt(int64(cfg.Settlement.GuaranteeRatePercent))).Div(decimal.NewFromInt(100)).Round(2)
	now := time.Now()

	payment := models.Payment{
		QuoteID:            1001,
		ClientID:           clientID,
		MoverID:            moverID,
		TotalAmount:        models.NewMoneyFromDecimal(total),
		PlatformCommission: models.NewMoneyFromDecimal(commission),
		MoverPayout:        models.NewMoneyFromDecimal(total.Sub(commission)),
		DepositAmount:      models.NewMoneyFromDecimal(deposit),
		EscrowAmount:       models.NewMoneyFromDecimal(total),
		GuaranteeAmount:    models.NewMoneyFromDecimal(guarantee),
		GuaranteeStatus:    constants.GuaranteeStatusHeld,
		PaymentStatus:      constants.PaymentStatusDepositPaid,
		DepositPaidAt:      &now,
	}
	if err := models.DB.Create(&payment).Error; err != nil {
		stdLog.Fatalf("Failed to create demo payment: %v", err)
	}
	stdLog.Printf("Created demo payment for quote 1001 (id=%d)", payment.ID)

	mission := models.MissionStatus{
		QuoteID:  1001,
		ClientID: clientID,
		MoverID:  moverID,
		Status:   constants.MissionStatusConfirmed,
	}
	if err := models.DB.Create(&mission).Error; err != nil {
		stdLog.Fatalf("Failed to create demo mission: %v", err)
	}
	stdLog.Printf("Created demo mission for quote 1001 (id=%d)", mission.ID)
}
