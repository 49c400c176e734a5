package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/movelink-next/internal/advisory"
	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/logger"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/repository"

	"gorm.io/gorm"
)

// DamageService 损坏报告处理服务
// AI 分析只作为附件供管理员参考，责任归属永远由人裁决。
type DamageService struct {
	damageRepo  repository.DamageReportRepository
	missionRepo repository.MissionRepository
	notifySvc   *NotificationService
	advisoryCli advisory.Client
}

// NewDamageService 创建损坏报告服务
func NewDamageService(
	damageRepo repository.DamageReportRepository,
	missionRepo repository.MissionRepository,
	notifySvc *NotificationService,
	advisoryCli advisory.Client,
) *DamageService {
	return &DamageService{
		damageRepo:  damageRepo,
		missionRepo: missionRepo,
		notifySvc:   notifySvc,
		advisoryCli: advisoryCli,
	}
}

// FileReportInput 提交损坏报告输入
type FileReportInput struct {
	MissionID      uint
	ReportedBy     uint
	ReporterRole   string
	BeforePhotoRef string
	AfterPhotoRef  string
	Description    string
}

// FileReport 任务双方提交损坏报告。
// 到达之后才能提交；同一任务同一时刻最多一条未结案报告。
// AI 分析在事务外执行，失败时降级为 unknown 附件。
func (s *DamageService) FileReport(ctx context.Context, input FileReportInput) (*models.DamageReport, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, ErrDamageDescriptionRequired
	}

	mission, err := s.missionRepo.GetByID(input.MissionID)
	if err != nil {
		return nil, err
	}
	if mission == nil {
		return nil, ErrMissionNotFound
	}
	if input.ReporterRole != constants.UserRoleAdmin &&
		input.ReportedBy != mission.ClientID && input.ReportedBy != mission.MoverID {
		return nil, ErrPermissionDenied
	}
	if missionStatusOrder[mission.Status] < missionStatusOrder[constants.MissionStatusArrived] {
		return nil, ErrTransitionInvalid
	}

	analysis := s.analyzeDamage(ctx, input)

	var result *models.DamageReport
	err = settlementTx(func(tx *gorm.DB) error {
		repo := s.damageRepo.WithTx(tx)
		open, err := repo.GetOpenByMissionID(mission.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrDamageReportOpenExists
		}

		report := &models.DamageReport{
			MissionID:      mission.ID,
			ReportedBy:     input.ReportedBy,
			BeforePhotoRef: strings.TrimSpace(input.BeforePhotoRef),
			AfterPhotoRef:  strings.TrimSpace(input.AfterPhotoRef),
			Description:    description,
			Responsibility: constants.DamageResponsibilityUnderReview,
			Status:         constants.DamageStatusPending,
			AIAdvisory:     advisoryJSON(analysis),
		}
		if err := repo.Create(report); err != nil {
			return err
		}
		result = report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReviewInput 受理损坏报告输入
type ReviewInput struct {
	ReportID uint
	AdminID  uint
}

// Review 管理员受理报告，进入 under_review。
func (s *DamageService) Review(input ReviewInput) (*models.DamageReport, error) {
	var result *models.DamageReport
	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.damageRepo.WithTx(tx)
		report, err := repo.GetByIDForUpdate(input.ReportID)
		if err != nil {
			return err
		}
		if report == nil {
			return ErrDamageReportNotFound
		}
		if report.IsTerminal() {
			return ErrDamageReportTerminal
		}
		if report.Status != constants.DamageStatusPending {
			result = report
			return nil
		}

		report.Status = constants.DamageStatusUnderReview
		if err := repo.Update(report); err != nil {
			return err
		}
		result = report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveInput 结案输入
type ResolveInput struct {
	ReportID       uint
	AdminID        uint
	Responsibility string
	Notes          string
}

// Resolve 结案并落定责任归属（终态），必须附结案说明。
func (s *DamageService) Resolve(input ResolveInput) (*models.DamageReport, error) {
	switch input.Responsibility {
	case constants.DamageResponsibilityMover,
		constants.DamageResponsibilityClient,
		constants.DamageResponsibilityDisputed:
	default:
		return nil, ErrDamageResponsibilityInvalid
	}
	notes := strings.TrimSpace(input.Notes)
	if notes == "" {
		return nil, ErrDamageNotesRequired
	}

	var result *models.DamageReport
	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.damageRepo.WithTx(tx)
		report, err := repo.GetByIDForUpdate(input.ReportID)
		if err != nil {
			return err
		}
		if report == nil {
			return ErrDamageReportNotFound
		}
		if report.IsTerminal() {
			return ErrDamageReportTerminal
		}

		now := time.Now()
		report.Status = constants.DamageStatusResolved
		report.Responsibility = input.Responsibility
		report.ResolutionNotes = notes
		report.ResolvedBy = &input.AdminID
		report.ResolvedAt = &now
		if err := repo.Update(report); err != nil {
			return err
		}
		result = report
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyResolution(result)
	return result, nil
}

// RejectReportInput 驳回输入
type RejectReportInput struct {
	ReportID uint
	AdminID  uint
	Notes    string
}

// RejectReport 驳回损坏报告（终态），必须附驳回理由。
func (s *DamageService) RejectReport(input RejectReportInput) (*models.DamageReport, error) {
	notes := strings.TrimSpace(input.Notes)
	if notes == "" {
		return nil, ErrDamageNotesRequired
	}

	var result *models.DamageReport
	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.damageRepo.WithTx(tx)
		report, err := repo.GetByIDForUpdate(input.ReportID)
		if err != nil {
			return err
		}
		if report == nil {
			return ErrDamageReportNotFound
		}
		if report.IsTerminal() {
			return ErrDamageReportTerminal
		}

		now := time.Now()
		report.Status = constants.DamageStatusRejected
		report.ResolutionNotes = notes
		report.ResolvedBy = &input.AdminID
		report.ResolvedAt = &now
		if err := repo.Update(report); err != nil {
			return err
		}
		result = report
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyResolution(result)
	return result, nil
}

// GetReport 获取损坏报告
func (s *DamageService) GetReport(id uint) (*models.DamageReport, error) {
	report, err := s.damageRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrDamageReportNotFound
	}
	return report, nil
}

// ListReports 分页查询损坏报告
func (s *DamageService) ListReports(filter repository.DamageReportListFilter) ([]models.DamageReport, int64, error) {
	return s.damageRepo.List(filter)
}

func (s *DamageService) analyzeDamage(ctx context.Context, input FileReportInput) *advisory.Result {
	if s.advisoryCli == nil {
		return advisory.DegradedResult("advisory not configured")
	}
	photoRefs := make([]string, 0, 2)
	if ref := strings.TrimSpace(input.BeforePhotoRef); ref != "" {
		photoRefs = append(photoRefs, ref)
	}
	if ref := strings.TrimSpace(input.AfterPhotoRef); ref != "" {
		photoRefs = append(photoRefs, ref)
	}

	result, err := s.advisoryCli.Analyze(ctx, advisory.AnalyzeInput{
		PhotoRefs:   photoRefs,
		Description: input.Description,
		Context:     "damage",
	})
	if err != nil {
		logger.Warnw("damage_advisory_degraded",
			"mission_id", input.MissionID,
			"error", err,
		)
		return advisory.DegradedResult(err.Error())
	}
	return result
}

func (s *DamageService) notifyResolution(report *models.DamageReport) {
	mission, err := s.missionRepo.GetByID(report.MissionID)
	if err != nil || mission == nil {
		return
	}
	message := fmt.Sprintf("损坏报告 #%d 已结案，责任归属：%s", report.ID, report.Responsibility)
	if report.Status == constants.DamageStatusRejected {
		message = fmt.Sprintf("损坏报告 #%d 已被驳回", report.ID)
	}
	for _, userID := range []uint{mission.ClientID, mission.MoverID} {
		s.notifySvc.Notify(NotifyInput{
			UserID:    userID,
			Title:     "损坏报告处理结果",
			Message:   message,
			Type:      constants.NotificationTypeDamageResolved,
			RelatedID: report.ID,
		})
	}
}
