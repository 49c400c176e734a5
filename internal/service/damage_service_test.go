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
	"gorm.io/gorm"
)

func setupDamageServiceTest(t *testing.T, cli advisory.Client) (*DamageService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:damage_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.MissionStatus{},
		&models.MissionEvidence{},
		&models.DamageReport{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	notifySvc := NewNotificationService(repository.NewNotificationRepository(db), queueClient)
	svc := NewDamageService(
		repository.NewDamageReportRepository(db),
		repository.NewMissionRepository(db),
		notifySvc,
		cli,
	)
	return svc, db
}

func seedDamageMission(t *testing.T, db *gorm.DB, quoteID uint, status string) *models.MissionStatus {
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

func fileTestReport(t *testing.T, svc *DamageService, missionID uint) *models.DamageReport {
	t.Helper()
	report, err := svc.FileReport(context.Background(), FileReportInput{
		MissionID:      missionID,
		ReportedBy:     1,
		ReporterRole:   constants.UserRoleClient,
		BeforePhotoRef: "missions/1/before/sofa.jpg",
		AfterPhotoRef:  "missions/1/unloading/sofa.jpg",
		Description:    "sofa armrest torn during unloading",
	})
	if err != nil {
		t.Fatalf("file report failed: %v", err)
	}
	return report
}

func TestDamageServiceFileReportGuards(t *testing.T) {
	svc, db := setupDamageServiceTest(t, nil)
	mission := seedDamageMission(t, db, 1001, constants.MissionStatusArrived)

	if _, err := svc.FileReport(context.Background(), FileReportInput{
		MissionID:    mission.ID,
		ReportedBy:   1,
		ReporterRole: constants.UserRoleClient,
		Description:  "   ",
	}); !errors.Is(err, ErrDamageDescriptionRequired) {
		t.Fatalf("expected ErrDamageDescriptionRequired, got: %v", err)
	}

	if _, err := svc.FileReport(context.Background(), FileReportInput{
		MissionID:    99999,
		ReportedBy:   1,
		ReporterRole: constants.UserRoleClient,
		Description:  "missing mission",
	}); !errors.Is(err, ErrMissionNotFound) {
		t.Fatalf("expected ErrMissionNotFound, got: %v", err)
	}

	// 非本单参与方不能报损
	if _, err := svc.FileReport(context.Background(), FileReportInput{
		MissionID:    mission.ID,
		ReportedBy:   77,
		ReporterRole: constants.UserRoleClient,
		Description:  "outsider cannot file",
	}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got: %v", err)
	}

	early := seedDamageMission(t, db, 1002, constants.MissionStatusInTransit)
	if _, err := svc.FileReport(context.Background(), FileReportInput{
		MissionID:    early.ID,
		ReportedBy:   1,
		ReporterRole: constants.UserRoleClient,
		Description:  "too early to tell",
	}); !errors.Is(err, ErrTransitionInvalid) {
		t.Fatalf("expected ErrTransitionInvalid before arrival, got: %v", err)
	}

	report := fileTestReport(t, svc, mission.ID)
	if report.Status != constants.DamageStatusPending {
		t.Fatalf("expected pending, got: %s", report.Status)
	}
	if report.Responsibility != constants.DamageResponsibilityUnderReview {
		t.Fatalf("expected under_review, got: %s", report.Responsibility)
	}

	// 同一任务同一时刻只允许一条未结案报告
	if _, err := svc.FileReport(context.Background(), FileReportInput{
		MissionID:    mission.ID,
		ReportedBy:   1,
		ReporterRole: constants.UserRoleClient,
		Description:  "second open report",
	}); !errors.Is(err, ErrDamageReportOpenExists) {
		t.Fatalf("expected ErrDamageReportOpenExists, got: %v", err)
	}
}

func TestDamageServiceMoverCanFileReport(t *testing.T) {
	svc, db := setupDamageServiceTest(t, nil)
	mission := seedDamageMission(t, db, 1101, constants.MissionStatusArrived)

	// 搬家公司也可以提交报损
	report, err := svc.FileReport(context.Background(), FileReportInput{
		MissionID:    mission.ID,
		ReportedBy:   2,
		ReporterRole: constants.UserRoleMover,
		Description:  "client dropped a box during handover",
	})
	if err != nil {
		t.Fatalf("mover file report failed: %v", err)
	}
	if report.ReportedBy != 2 {
		t.Fatalf("expected mover as reporter, got: %d", report.ReportedBy)
	}
	if report.Status != constants.DamageStatusPending {
		t.Fatalf("expected pending, got: %s", report.Status)
	}
}

func TestDamageServiceAdvisoryAttachment(t *testing.T) {
	stub := &stubAdvisoryClient{result: &advisory.Result{
		RiskLevel: constants.RiskLevelMedium,
		Severity:  constants.SeverityModerate,
		Summary:   "visible tear on armrest",
	}}
	svc, _ := setupDamageServiceTest(t, stub)
	mission := seedDamageMission(t, models.DB, 2001, constants.MissionStatusArrived)

	report := fileTestReport(t, svc, mission.ID)
	if stub.calls != 1 {
		t.Fatalf("expected 1 advisory call, got: %d", stub.calls)
	}
	if report.AIAdvisory == nil || report.AIAdvisory["severity"] != constants.SeverityModerate {
		t.Fatalf("advisory attachment missing: %+v", report.AIAdvisory)
	}
}

func TestDamageServiceAdvisoryDegrades(t *testing.T) {
	stub := &stubAdvisoryClient{err: errors.New("advisory timeout")}
	svc, _ := setupDamageServiceTest(t, stub)
	mission := seedDamageMission(t, models.DB, 3001, constants.MissionStatusCompleted)

	report := fileTestReport(t, svc, mission.ID)
	if report.AIAdvisory == nil || report.AIAdvisory["degraded"] != true {
		t.Fatalf("expected degraded attachment: %+v", report.AIAdvisory)
	}
	if report.AIAdvisory["severity"] != constants.SeverityUnknown {
		t.Fatalf("degraded severity should be unknown: %+v", report.AIAdvisory)
	}
}

func TestDamageServiceResolveFlow(t *testing.T) {
	svc, db := setupDamageServiceTest(t, nil)
	mission := seedDamageMission(t, db, 4001, constants.MissionStatusArrived)
	report := fileTestReport(t, svc, mission.ID)

	reviewed, err := svc.Review(ReviewInput{ReportID: report.ID, AdminID: 9})
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if reviewed.Status != constants.DamageStatusUnderReview {
		t.Fatalf("expected under_review, got: %s", reviewed.Status)
	}

	if _, err := svc.Resolve(ResolveInput{
		ReportID:       report.ID,
		AdminID:        9,
		Responsibility: "nobody",
	}); !errors.Is(err, ErrDamageResponsibilityInvalid) {
		t.Fatalf("expected ErrDamageResponsibilityInvalid, got: %v", err)
	}

	resolved, err := svc.Resolve(ResolveInput{
		ReportID:       report.ID,
		AdminID:        9,
		Responsibility: constants.DamageResponsibilityMover,
		Notes:          "mover confirmed the damage on site",
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Status != constants.DamageStatusResolved || resolved.ResolvedAt == nil {
		t.Fatalf("unexpected resolved report: %+v", resolved)
	}
	if resolved.Responsibility != constants.DamageResponsibilityMover {
		t.Fatalf("expected mover responsibility, got: %s", resolved.Responsibility)
	}

	// 终态不可再处理
	if _, err := svc.Resolve(ResolveInput{
		ReportID:       report.ID,
		AdminID:        9,
		Responsibility: constants.DamageResponsibilityClient,
		Notes:          "second opinion",
	}); !errors.Is(err, ErrDamageReportTerminal) {
		t.Fatalf("expected ErrDamageReportTerminal, got: %v", err)
	}
	if _, err := svc.Review(ReviewInput{ReportID: report.ID, AdminID: 9}); !errors.Is(err, ErrDamageReportTerminal) {
		t.Fatalf("expected ErrDamageReportTerminal on review, got: %v", err)
	}

	// 双方各收到一条结案通知
	var notifications int64
	if err := db.Model(&models.Notification{}).
		Where("type = ?", constants.NotificationTypeDamageResolved).
		Count(&notifications).Error; err != nil {
		t.Fatalf("count notifications failed: %v", err)
	}
	if notifications != 2 {
		t.Fatalf("expected 2 notifications, got: %d", notifications)
	}

	// 结案后可以再提新报告
	if _, err := svc.FileReport(context.Background(), FileReportInput{
		MissionID:    mission.ID,
		ReportedBy:   1,
		ReporterRole: constants.UserRoleClient,
		Description:  "another box crushed",
	}); err != nil {
		t.Fatalf("new report after resolution failed: %v", err)
	}
}

func TestDamageServiceRejectReport(t *testing.T) {
	svc, _ := setupDamageServiceTest(t, nil)
	mission := seedDamageMission(t, models.DB, 5001, constants.MissionStatusArrived)
	report := fileTestReport(t, svc, mission.ID)

	rejected, err := svc.RejectReport(RejectReportInput{
		ReportID: report.ID,
		AdminID:  9,
		Notes:    "damage visible on before photos as well",
	})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != constants.DamageStatusRejected || rejected.ResolvedAt == nil {
		t.Fatalf("unexpected rejected report: %+v", rejected)
	}

	if _, err := svc.RejectReport(RejectReportInput{
		ReportID: report.ID,
		AdminID:  9,
		Notes:    "already rejected",
	}); !errors.Is(err, ErrDamageReportTerminal) {
		t.Fatalf("expected ErrDamageReportTerminal, got: %v", err)
	}
}

func TestDamageServiceResolutionNotesRequired(t *testing.T) {
	svc, db := setupDamageServiceTest(t, nil)
	mission := seedDamageMission(t, db, 6001, constants.MissionStatusArrived)
	report := fileTestReport(t, svc, mission.ID)

	// 结案与驳回都必须附说明，空白说明在改状态前就被拒绝
	if _, err := svc.Resolve(ResolveInput{
		ReportID:       report.ID,
		AdminID:        9,
		Responsibility: constants.DamageResponsibilityMover,
		Notes:          "   ",
	}); !errors.Is(err, ErrDamageNotesRequired) {
		t.Fatalf("expected ErrDamageNotesRequired on resolve, got: %v", err)
	}
	if _, err := svc.RejectReport(RejectReportInput{
		ReportID: report.ID,
		AdminID:  9,
		Notes:    "",
	}); !errors.Is(err, ErrDamageNotesRequired) {
		t.Fatalf("expected ErrDamageNotesRequired on reject, got: %v", err)
	}

	current, err := svc.GetReport(report.ID)
	if err != nil {
		t.Fatalf("get report failed: %v", err)
	}
	if current.Status != constants.DamageStatusPending {
		t.Fatalf("report should stay pending, got: %s", current.Status)
	}
	if current.Responsibility != constants.DamageResponsibilityUnderReview {
		t.Fatalf("responsibility should stay under_review, got: %s", current.Responsibility)
	}
}
