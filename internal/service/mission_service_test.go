package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupMissionServiceTest(t *testing.T) (*MissionService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:mission_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Payment{},
		&models.PaymentAuditLog{},
		&models.MissionStatus{},
		&models.MissionEvidence{},
		&models.DamageReport{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	svc := NewMissionService(
		repository.NewMissionRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewDamageReportRepository(db),
		repository.NewAuditLogRepository(db),
	)
	return svc, db
}

func seedMissionPayment(t *testing.T, db *gorm.DB, quoteID uint, status string) *models.Payment {
	t.Helper()
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
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("seed payment failed: %v", err)
	}
	return payment
}

func seedMission(t *testing.T, db *gorm.DB, quoteID uint, status string) *models.MissionStatus {
	t.Helper()
	mission := &models.MissionStatus{
		QuoteID:  quoteID,
		ClientID: 1,
		MoverID:  2,
		Status:   status,
	}
	if err := db.Create(mission).Error; err != nil {
		t.Fatalf("seed mission failed: %v", err)
	}
	return mission
}

func attachPhase(t *testing.T, svc *MissionService, missionID uint, phase string) {
	t.Helper()
	// 按阶段归属方选择上传人：装载阶段搬家公司，其余客户
	actorID, actorRole := uint(1), constants.UserRoleClient
	if phase == constants.EvidencePhaseLoading {
		actorID, actorRole = 2, constants.UserRoleMover
	}
	_, err := svc.AttachEvidence(AttachEvidenceInput{
		MissionID:   missionID,
		Phase:       phase,
		StoragePath: fmt.Sprintf("missions/%d/%s/photo.jpg", missionID, phase),
		ActorID:     actorID,
		ActorRole:   actorRole,
	})
	if err != nil {
		t.Fatalf("attach %s evidence failed: %v", phase, err)
	}
}

func TestMissionServiceEnsureMissionEligibility(t *testing.T) {
	svc, db := setupMissionServiceTest(t)

	// 无支付记录不能建任务
	if _, err := svc.EnsureMission(1001); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got: %v", err)
	}

	seedMissionPayment(t, db, 1001, constants.PaymentStatusNoPayment)
	if _, err := svc.EnsureMission(1001); !errors.Is(err, ErrMissionNotEligible) {
		t.Fatalf("expected ErrMissionNotEligible, got: %v", err)
	}

	if err := db.Model(&models.Payment{}).Where("quote_id = ?", 1001).
		Update("payment_status", constants.PaymentStatusDepositPaid).Error; err != nil {
		t.Fatalf("update payment status failed: %v", err)
	}
	mission, err := svc.EnsureMission(1001)
	if err != nil {
		t.Fatalf("ensure mission failed: %v", err)
	}
	if mission.Status != constants.MissionStatusConfirmed {
		t.Fatalf("expected confirmed, got: %s", mission.Status)
	}
	if mission.ClientID != 1 || mission.MoverID != 2 {
		t.Fatalf("participants should come from payment: %+v", mission)
	}

	again, err := svc.EnsureMission(1001)
	if err != nil {
		t.Fatalf("repeated ensure failed: %v", err)
	}
	if again.ID != mission.ID {
		t.Fatalf("ensure should be idempotent, got ids %d and %d", mission.ID, again.ID)
	}
}

func TestMissionServiceTransitionForwardOnly(t *testing.T) {
	svc, db := setupMissionServiceTest(t)
	mission := seedMission(t, db, 2001, constants.MissionStatusConfirmed)

	// 跳步、回退、未知状态全部拒绝
	for _, target := range []string{
		constants.MissionStatusInTransit,
		constants.MissionStatusCompleted,
		"teleported",
	} {
		_, err := svc.Transition(TransitionInput{
			MissionID: mission.ID,
			Target:    target,
			ActorID:   2,
			ActorRole: constants.UserRoleMover,
		})
		if !errors.Is(err, ErrTransitionInvalid) {
			t.Fatalf("expected ErrTransitionInvalid for target %s, got: %v", target, err)
		}
	}

	inTransit := seedMission(t, db, 2002, constants.MissionStatusInTransit)
	if _, err := svc.Transition(TransitionInput{
		MissionID: inTransit.ID,
		Target:    constants.MissionStatusConfirmed,
		ActorID:   2,
		ActorRole: constants.UserRoleMover,
	}); !errors.Is(err, ErrTransitionInvalid) {
		t.Fatalf("expected ErrTransitionInvalid for backward move, got: %v", err)
	}
}

func TestMissionServiceTransitionRequiresEvidence(t *testing.T) {
	svc, db := setupMissionServiceTest(t)
	mission := seedMission(t, db, 3001, constants.MissionStatusConfirmed)

	input := TransitionInput{
		MissionID: mission.ID,
		Target:    constants.MissionStatusBeforePhotosUploaded,
		ActorID:   1,
		ActorRole: constants.UserRoleClient,
	}
	if _, err := svc.Transition(input); !errors.Is(err, ErrEvidenceRequired) {
		t.Fatalf("expected ErrEvidenceRequired, got: %v", err)
	}

	attachPhase(t, svc, mission.ID, constants.EvidencePhaseBefore)
	updated, err := svc.Transition(input)
	if err != nil {
		t.Fatalf("transition failed after evidence: %v", err)
	}
	if updated.Status != constants.MissionStatusBeforePhotosUploaded {
		t.Fatalf("expected before_photos_uploaded, got: %s", updated.Status)
	}
}

func TestMissionServiceFullLifecycle(t *testing.T) {
	svc, db := setupMissionServiceTest(t)
	seedMissionPayment(t, db, 4001, constants.PaymentStatusFullyPaid)
	mission, err := svc.EnsureMission(4001)
	if err != nil {
		t.Fatalf("ensure mission failed: %v", err)
	}

	steps := []struct {
		target   string
		role     string
		actorID  uint
		evidence string
	}{
		{constants.MissionStatusBeforePhotosUploaded, constants.UserRoleClient, 1, constants.EvidencePhaseBefore},
		{constants.MissionStatusInTransit, constants.UserRoleMover, 2, ""},
		{constants.MissionStatusLoadingPhotosUploaded, constants.UserRoleMover, 2, constants.EvidencePhaseLoading},
		{constants.MissionStatusArrived, constants.UserRoleMover, 2, ""},
		{constants.MissionStatusUnloadingPhotosUploaded, constants.UserRoleClient, 1, constants.EvidencePhaseUnloading},
		{constants.MissionStatusCompleted, constants.UserRoleClient, 1, ""},
	}
	for _, step := range steps {
		if step.evidence != "" {
			attachPhase(t, svc, mission.ID, step.evidence)
		}
		updated, err := svc.Transition(TransitionInput{
			MissionID: mission.ID,
			Target:    step.target,
			ActorID:   step.actorID,
			ActorRole: step.role,
		})
		if err != nil {
			t.Fatalf("transition to %s failed: %v", step.target, err)
		}
		if updated.Status != step.target {
			t.Fatalf("expected %s, got: %s", step.target, updated.Status)
		}
	}

	final, err := svc.GetMission(mission.ID)
	if err != nil {
		t.Fatalf("get mission failed: %v", err)
	}
	if final.StartedAt == nil || final.LoadedAt == nil || final.ArrivedAt == nil || final.CompletedAt == nil {
		t.Fatalf("milestone timestamps missing: %+v", final)
	}

	// 每次迁移都写入支付聚合审计
	var audits int64
	if err := db.Model(&models.PaymentAuditLog{}).
		Where("action = ?", constants.AuditActionMissionTransition).
		Count(&audits).Error; err != nil {
		t.Fatalf("count audit logs failed: %v", err)
	}
	if audits != int64(len(steps)) {
		t.Fatalf("expected %d transition audits, got: %d", len(steps), audits)
	}
}

func TestMissionServiceTransitionRoleChecks(t *testing.T) {
	svc, db := setupMissionServiceTest(t)
	mission := seedMission(t, db, 5001, constants.MissionStatusUnloadingPhotosUploaded)

	// 完成确认只属于客户
	if _, err := svc.Transition(TransitionInput{
		MissionID: mission.ID,
		Target:    constants.MissionStatusCompleted,
		ActorID:   2,
		ActorRole: constants.UserRoleMover,
	}); !errors.Is(err, ErrTransitionRoleInvalid) {
		t.Fatalf("expected ErrTransitionRoleInvalid for mover, got: %v", err)
	}

	// 非本单客户也不行
	if _, err := svc.Transition(TransitionInput{
		MissionID: mission.ID,
		Target:    constants.MissionStatusCompleted,
		ActorID:   77,
		ActorRole: constants.UserRoleClient,
	}); !errors.Is(err, ErrTransitionRoleInvalid) {
		t.Fatalf("expected ErrTransitionRoleInvalid for foreign client, got: %v", err)
	}

	// 管理员可代操作
	updated, err := svc.Transition(TransitionInput{
		MissionID: mission.ID,
		Target:    constants.MissionStatusCompleted,
		ActorID:   9,
		ActorRole: constants.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("admin transition failed: %v", err)
	}
	if updated.Status != constants.MissionStatusCompleted {
		t.Fatalf("expected completed, got: %s", updated.Status)
	}
}

func TestMissionServiceCompletionBlockedByOpenDamageReport(t *testing.T) {
	svc, db := setupMissionServiceTest(t)
	mission := seedMission(t, db, 5101, constants.MissionStatusUnloadingPhotosUploaded)

	report := &models.DamageReport{
		MissionID:      mission.ID,
		ReportedBy:     1,
		Description:    "scratched dining table",
		Responsibility: constants.DamageResponsibilityUnderReview,
		Status:         constants.DamageStatusPending,
	}
	if err := db.Create(report).Error; err != nil {
		t.Fatalf("seed damage report failed: %v", err)
	}

	input := TransitionInput{
		MissionID: mission.ID,
		Target:    constants.MissionStatusCompleted,
		ActorID:   1,
		ActorRole: constants.UserRoleClient,
	}
	if _, err := svc.Transition(input); !errors.Is(err, ErrDamageReportOpenExists) {
		t.Fatalf("expected ErrDamageReportOpenExists, got: %v", err)
	}

	// 报告结案后才能完成
	if err := db.Model(&models.DamageReport{}).Where("id = ?", report.ID).
		Update("status", constants.DamageStatusResolved).Error; err != nil {
		t.Fatalf("close damage report failed: %v", err)
	}
	updated, err := svc.Transition(input)
	if err != nil {
		t.Fatalf("transition failed after report closed: %v", err)
	}
	if updated.Status != constants.MissionStatusCompleted {
		t.Fatalf("expected completed, got: %s", updated.Status)
	}
}

func TestMissionServiceClientOwnedEvidenceSteps(t *testing.T) {
	svc, db := setupMissionServiceTest(t)
	mission := seedMission(t, db, 6101, constants.MissionStatusConfirmed)

	// 搬运前取证与确认由客户完成
	if _, err := svc.AttachEvidence(AttachEvidenceInput{
		MissionID:   mission.ID,
		Phase:       constants.EvidencePhaseBefore,
		StoragePath: "missions/6101/before/photo.jpg",
		ActorID:     1,
		ActorRole:   constants.UserRoleClient,
	}); err != nil {
		t.Fatalf("client before upload failed: %v", err)
	}
	updated, err := svc.Transition(TransitionInput{
		MissionID: mission.ID,
		Target:    constants.MissionStatusBeforePhotosUploaded,
		ActorID:   1,
		ActorRole: constants.UserRoleClient,
	})
	if err != nil {
		t.Fatalf("client before confirmation failed: %v", err)
	}
	if updated.Status != constants.MissionStatusBeforePhotosUploaded {
		t.Fatalf("expected before_photos_uploaded, got: %s", updated.Status)
	}

	// 到达后的卸货取证与确认同样由客户完成
	arrived := seedMission(t, db, 6102, constants.MissionStatusArrived)
	if _, err := svc.AttachEvidence(AttachEvidenceInput{
		MissionID:   arrived.ID,
		Phase:       constants.EvidencePhaseUnloading,
		StoragePath: "missions/6102/unloading/photo.jpg",
		ActorID:     1,
		ActorRole:   constants.UserRoleClient,
	}); err != nil {
		t.Fatalf("client unloading upload failed: %v", err)
	}
	if _, err := svc.Transition(TransitionInput{
		MissionID: arrived.ID,
		Target:    constants.MissionStatusUnloadingPhotosUploaded,
		ActorID:   2,
		ActorRole: constants.UserRoleMover,
	}); !errors.Is(err, ErrTransitionRoleInvalid) {
		t.Fatalf("expected ErrTransitionRoleInvalid for mover confirmation, got: %v", err)
	}
	updated, err = svc.Transition(TransitionInput{
		MissionID: arrived.ID,
		Target:    constants.MissionStatusUnloadingPhotosUploaded,
		ActorID:   1,
		ActorRole: constants.UserRoleClient,
	})
	if err != nil {
		t.Fatalf("client unloading confirmation failed: %v", err)
	}
	if updated.Status != constants.MissionStatusUnloadingPhotosUploaded {
		t.Fatalf("expected unloading_photos_uploaded, got: %s", updated.Status)
	}
}

func TestMissionServiceAttachEvidenceGuards(t *testing.T) {
	svc, db := setupMissionServiceTest(t)
	mission := seedMission(t, db, 6001, constants.MissionStatusConfirmed)

	// 确认阶段只收 before 照片
	if _, err := svc.AttachEvidence(AttachEvidenceInput{
		MissionID:   mission.ID,
		Phase:       constants.EvidencePhaseUnloading,
		StoragePath: "missions/6001/unloading/photo.jpg",
		ActorID:     1,
		ActorRole:   constants.UserRoleClient,
	}); !errors.Is(err, ErrEvidencePhaseInvalid) {
		t.Fatalf("expected ErrEvidencePhaseInvalid, got: %v", err)
	}

	// 搬运前照片归客户上传，搬家公司不能代传
	if _, err := svc.AttachEvidence(AttachEvidenceInput{
		MissionID:   mission.ID,
		Phase:       constants.EvidencePhaseBefore,
		StoragePath: "missions/6001/before/photo.jpg",
		ActorID:     2,
		ActorRole:   constants.UserRoleMover,
	}); !errors.Is(err, ErrTransitionRoleInvalid) {
		t.Fatalf("expected ErrTransitionRoleInvalid for mover upload, got: %v", err)
	}

	// 非本单客户也不行
	if _, err := svc.AttachEvidence(AttachEvidenceInput{
		MissionID:   mission.ID,
		Phase:       constants.EvidencePhaseBefore,
		StoragePath: "missions/6001/before/photo.jpg",
		ActorID:     77,
		ActorRole:   constants.UserRoleClient,
	}); !errors.Is(err, ErrTransitionRoleInvalid) {
		t.Fatalf("expected ErrTransitionRoleInvalid for foreign client, got: %v", err)
	}

	// 空路径拒绝
	if _, err := svc.AttachEvidence(AttachEvidenceInput{
		MissionID:   mission.ID,
		Phase:       constants.EvidencePhaseBefore,
		StoragePath: "   ",
		ActorID:     1,
		ActorRole:   constants.UserRoleClient,
	}); !errors.Is(err, ErrEvidencePhaseInvalid) {
		t.Fatalf("expected ErrEvidencePhaseInvalid for empty path, got: %v", err)
	}

	attachPhase(t, svc, mission.ID, constants.EvidencePhaseBefore)
	evidences, err := svc.ListEvidence(mission.ID)
	if err != nil {
		t.Fatalf("list evidence failed: %v", err)
	}
	if len(evidences) != 1 {
		t.Fatalf("expected 1 evidence, got: %d", len(evidences))
	}
}
