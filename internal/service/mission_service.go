package service

import (
	"strings"
	"time"

	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/repository"

	"gorm.io/gorm"
)

// missionTransition 任务状态迁移规则
type missionTransition struct {
	from          string
	to            string
	role          string // 允许发起该迁移的角色
	evidencePhase string // 非空时要求该阶段至少已有一张取证照片
}

// missionTransitions 任务状态迁移表（严格前向，顺序即全序）。
// 搬运前/卸货取证由客户确认，运输过程由搬家公司推进。
var missionTransitions = []missionTransition{
	{from: constants.MissionStatusConfirmed, to: constants.MissionStatusBeforePhotosUploaded, role: constants.UserRoleClient, evidencePhase: constants.EvidencePhaseBefore},
	{from: constants.MissionStatusBeforePhotosUploaded, to: constants.MissionStatusInTransit, role: constants.UserRoleMover},
	{from: constants.MissionStatusInTransit, to: constants.MissionStatusLoadingPhotosUploaded, role: constants.UserRoleMover, evidencePhase: constants.EvidencePhaseLoading},
	{from: constants.MissionStatusLoadingPhotosUploaded, to: constants.MissionStatusArrived, role: constants.UserRoleMover},
	{from: constants.MissionStatusArrived, to: constants.MissionStatusUnloadingPhotosUploaded, role: constants.UserRoleClient, evidencePhase: constants.EvidencePhaseUnloading},
	{from: constants.MissionStatusUnloadingPhotosUploaded, to: constants.MissionStatusCompleted, role: constants.UserRoleClient},
}

// missionStatusOrder 状态序号，用于禁止回退与跳跃
var missionStatusOrder = map[string]int{
	constants.MissionStatusConfirmed:               0,
	constants.MissionStatusBeforePhotosUploaded:    1,
	constants.MissionStatusInTransit:               2,
	constants.MissionStatusLoadingPhotosUploaded:   3,
	constants.MissionStatusArrived:                 4,
	constants.MissionStatusUnloadingPhotosUploaded: 5,
	constants.MissionStatusCompleted:               6,
}

// evidencePhaseOwner 各取证阶段的上传方
var evidencePhaseOwner = map[string]string{
	constants.EvidencePhaseBefore:    constants.UserRoleClient,
	constants.EvidencePhaseLoading:   constants.UserRoleMover,
	constants.EvidencePhaseUnloading: constants.UserRoleClient,
}

// evidencePhaseForStatus 各状态下允许上传的取证阶段
var evidencePhaseForStatus = map[string][]string{
	constants.MissionStatusConfirmed:               {constants.EvidencePhaseBefore},
	constants.MissionStatusBeforePhotosUploaded:    {constants.EvidencePhaseBefore},
	constants.MissionStatusInTransit:               {constants.EvidencePhaseLoading},
	constants.MissionStatusLoadingPhotosUploaded:   {constants.EvidencePhaseLoading},
	constants.MissionStatusArrived:                 {constants.EvidencePhaseUnloading},
	constants.MissionStatusUnloadingPhotosUploaded: {constants.EvidencePhaseUnloading},
}

// MissionService 搬家任务进度服务
type MissionService struct {
	missionRepo repository.MissionRepository
	paymentRepo repository.PaymentRepository
	damageRepo  repository.DamageReportRepository
	auditRepo   repository.AuditLogRepository
}

// NewMissionService 创建任务进度服务
func NewMissionService(
	missionRepo repository.MissionRepository,
	paymentRepo repository.PaymentRepository,
	damageRepo repository.DamageReportRepository,
	auditRepo repository.AuditLogRepository,
) *MissionService {
	return &MissionService{
		missionRepo: missionRepo,
		paymentRepo: paymentRepo,
		damageRepo:  damageRepo,
		auditRepo:   auditRepo,
	}
}

// EnsureMission 按报价单惰性创建任务进度。
// 仅定金或全款到账后可创建；已存在时幂等返回现有记录。
func (s *MissionService) EnsureMission(quoteID uint) (*models.MissionStatus, error) {
	if quoteID == 0 {
		return nil, ErrMissionNotFound
	}
	existing, err := s.missionRepo.GetByQuoteID(quoteID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var result *models.MissionStatus
	err = settlementTx(func(tx *gorm.DB) error {
		repo := s.missionRepo.WithTx(tx)
		mission, err := repo.GetByQuoteID(quoteID)
		if err != nil {
			return err
		}
		if mission != nil {
			result = mission
			return nil
		}

		payment, err := s.paymentRepo.WithTx(tx).GetByQuoteID(quoteID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		switch payment.PaymentStatus {
		case constants.PaymentStatusDepositPaid, constants.PaymentStatusFullyPaid:
		default:
			return ErrMissionNotEligible
		}

		mission = &models.MissionStatus{
			QuoteID:  quoteID,
			ClientID: payment.ClientID,
			MoverID:  payment.MoverID,
			Status:   constants.MissionStatusConfirmed,
		}
		if err := repo.Create(mission); err != nil {
			return err
		}
		result = mission
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetMission 获取任务进度
func (s *MissionService) GetMission(id uint) (*models.MissionStatus, error) {
	mission, err := s.missionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if mission == nil {
		return nil, ErrMissionNotFound
	}
	return mission, nil
}

// GetMissionByQuoteID 按报价单获取任务进度
func (s *MissionService) GetMissionByQuoteID(quoteID uint) (*models.MissionStatus, error) {
	mission, err := s.missionRepo.GetByQuoteID(quoteID)
	if err != nil {
		return nil, err
	}
	if mission == nil {
		return nil, ErrMissionNotFound
	}
	return mission, nil
}

// ListMissions 分页查询任务进度
func (s *MissionService) ListMissions(filter repository.MissionListFilter) ([]models.MissionStatus, int64, error) {
	return s.missionRepo.List(filter)
}

// TransitionInput 状态迁移输入
type TransitionInput struct {
	MissionID uint
	Target    string
	ActorID   uint
	ActorRole string
}

// Transition 推进任务状态。
// 只允许迁移表中声明的下一步，取证前置不满足时拒绝。
func (s *MissionService) Transition(input TransitionInput) (*models.MissionStatus, error) {
	target := strings.TrimSpace(input.Target)
	if _, ok := missionStatusOrder[target]; !ok {
		return nil, ErrTransitionInvalid
	}

	var result *models.MissionStatus
	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.missionRepo.WithTx(tx)
		mission, err := repo.GetByIDForUpdate(input.MissionID)
		if err != nil {
			return err
		}
		if mission == nil {
			return ErrMissionNotFound
		}

		rule, ok := findTransition(mission.Status, target)
		if !ok {
			return ErrTransitionInvalid
		}
		if err := s.checkActor(mission, rule, input); err != nil {
			return err
		}
		if rule.evidencePhase != "" {
			count, err := repo.CountEvidence(mission.ID, rule.evidencePhase)
			if err != nil {
				return err
			}
			if count == 0 {
				return ErrEvidenceRequired
			}
		}
		// 存在未结案的损坏报告时不允许完成，先走争议流程
		if target == constants.MissionStatusCompleted {
			open, err := s.damageRepo.WithTx(tx).GetOpenByMissionID(mission.ID)
			if err != nil {
				return err
			}
			if open != nil {
				return ErrDamageReportOpenExists
			}
		}

		beforeStatus := mission.Status
		now := time.Now()
		mission.Status = target
		switch target {
		case constants.MissionStatusInTransit:
			mission.StartedAt = &now
		case constants.MissionStatusLoadingPhotosUploaded:
			mission.LoadedAt = &now
		case constants.MissionStatusArrived:
			mission.ArrivedAt = &now
		case constants.MissionStatusCompleted:
			mission.CompletedAt = &now
		}
		if err := repo.Update(mission); err != nil {
			return err
		}
		if err := s.appendTransitionAudit(tx, mission, input, beforeStatus); err != nil {
			return err
		}
		result = mission
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AttachEvidenceInput 取证照片上传输入
type AttachEvidenceInput struct {
	MissionID   uint
	Phase       string
	StoragePath string
	ActorID     uint
	ActorRole   string
}

// AttachEvidence 追加取证照片引用。
// 搬运前/卸货阶段由客户上传，装载阶段由搬家公司上传。
func (s *MissionService) AttachEvidence(input AttachEvidenceInput) (*models.MissionEvidence, error) {
	phase := strings.TrimSpace(input.Phase)
	path := strings.TrimSpace(input.StoragePath)
	if path == "" {
		return nil, ErrEvidencePhaseInvalid
	}

	var result *models.MissionEvidence
	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.missionRepo.WithTx(tx)
		mission, err := repo.GetByIDForUpdate(input.MissionID)
		if err != nil {
			return err
		}
		if mission == nil {
			return ErrMissionNotFound
		}
		if err := checkEvidenceActor(mission, phase, input); err != nil {
			return err
		}
		if !phaseAllowed(mission.Status, phase) {
			return ErrEvidencePhaseInvalid
		}

		evidence := &models.MissionEvidence{
			MissionID:   mission.ID,
			Phase:       phase,
			StoragePath: path,
			UploadedBy:  input.ActorID,
		}
		if err := repo.CreateEvidence(evidence); err != nil {
			return err
		}
		result = evidence
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListEvidence 获取任务取证照片引用列表
func (s *MissionService) ListEvidence(missionID uint) ([]models.MissionEvidence, error) {
	return s.missionRepo.ListEvidence(missionID)
}

func findTransition(from, to string) (missionTransition, bool) {
	for _, rule := range missionTransitions {
		if rule.from == from && rule.to == to {
			return rule, true
		}
	}
	return missionTransition{}, false
}

// checkEvidenceActor 校验取证照片上传人：管理员可代传，其余按阶段归属方匹配。
func checkEvidenceActor(mission *models.MissionStatus, phase string, input AttachEvidenceInput) error {
	if input.ActorRole == constants.UserRoleAdmin {
		return nil
	}
	owner, ok := evidencePhaseOwner[phase]
	if !ok {
		return ErrEvidencePhaseInvalid
	}
	if input.ActorRole != owner {
		return ErrTransitionRoleInvalid
	}
	switch owner {
	case constants.UserRoleClient:
		if input.ActorID != mission.ClientID {
			return ErrTransitionRoleInvalid
		}
	case constants.UserRoleMover:
		if input.ActorID != mission.MoverID {
			return ErrTransitionRoleInvalid
		}
	}
	return nil
}

func phaseAllowed(status, phase string) bool {
	for _, allowed := range evidencePhaseForStatus[status] {
		if allowed == phase {
			return true
		}
	}
	return false
}

// checkActor 校验迁移发起人：管理员可代操作，其余按规则角色匹配参与方。
func (s *MissionService) checkActor(mission *models.MissionStatus, rule missionTransition, input TransitionInput) error {
	if input.ActorRole == constants.UserRoleAdmin {
		return nil
	}
	if input.ActorRole != rule.role {
		return ErrTransitionRoleInvalid
	}
	switch rule.role {
	case constants.UserRoleMover:
		if input.ActorID != mission.MoverID {
			return ErrTransitionRoleInvalid
		}
	case constants.UserRoleClient:
		if input.ActorID != mission.ClientID {
			return ErrTransitionRoleInvalid
		}
	}
	return nil
}

// appendTransitionAudit 任务迁移写入对应支付聚合的审计日志，找不到支付记录时跳过。
func (s *MissionService) appendTransitionAudit(
	tx *gorm.DB,
	mission *models.MissionStatus,
	input TransitionInput,
	beforeStatus string,
) error {
	payment, err := s.paymentRepo.WithTx(tx).GetByQuoteID(mission.QuoteID)
	if err != nil {
		return err
	}
	if payment == nil {
		return nil
	}
	log := &models.PaymentAuditLog{
		PaymentID: payment.ID,
		ActorID:   input.ActorID,
		ActorRole: input.ActorRole,
		Action:    constants.AuditActionMissionTransition,
		Before:    models.JSON{"mission_status": beforeStatus},
		After:     models.JSON{"mission_status": mission.Status},
	}
	return s.auditRepo.WithTx(tx).Create(log)
}
