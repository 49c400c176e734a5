package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/movelink-next/internal/advisory"
	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/logger"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/queue"
	"github.com/movelink-next/internal/repository"

	"gorm.io/gorm"
)

// ReleaseService 托管放款审批服务
type ReleaseService struct {
	paymentRepo repository.PaymentRepository
	releaseRepo repository.ReleaseRequestRepository
	missionRepo repository.MissionRepository
	paymentSvc  *PaymentService
	notifySvc   *NotificationService
	advisoryCli advisory.Client
	queueClient *queue.Client
}

// NewReleaseService 创建放款审批服务
func NewReleaseService(
	paymentRepo repository.PaymentRepository,
	releaseRepo repository.ReleaseRequestRepository,
	missionRepo repository.MissionRepository,
	paymentSvc *PaymentService,
	notifySvc *NotificationService,
	advisoryCli advisory.Client,
	queueClient *queue.Client,
) *ReleaseService {
	return &ReleaseService{
		paymentRepo: paymentRepo,
		releaseRepo: releaseRepo,
		missionRepo: missionRepo,
		paymentSvc:  paymentSvc,
		notifySvc:   notifySvc,
		advisoryCli: advisoryCli,
		queueClient: queueClient,
	}
}

// RequestReleaseInput 放款申请输入
type RequestReleaseInput struct {
	PaymentID uint
	MoverID   uint
}

// RequestRelease 搬家公司发起托管放款申请。
// 风控分析在事务外完成，服务不可用时降级为 unknown 并继续。
func (s *ReleaseService) RequestRelease(ctx context.Context, input RequestReleaseInput) (*models.PaymentReleaseRequest, error) {
	payment, err := s.paymentSvc.GetPayment(input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.MoverID != input.MoverID {
		return nil, ErrPermissionDenied
	}
	if payment.Frozen {
		return nil, ErrPaymentFrozen
	}
	if payment.PaymentStatus != constants.PaymentStatusFullyPaid {
		return nil, ErrPaymentNotFullyPaid
	}
	if payment.EscrowReleased {
		return nil, ErrAlreadyReleased
	}
	mission, err := s.missionRepo.GetByQuoteID(payment.QuoteID)
	if err != nil {
		return nil, err
	}
	if mission == nil || mission.Status != constants.MissionStatusCompleted {
		return nil, ErrMissionNotCompleted
	}

	riskResult := s.analyzeRelease(ctx, payment)

	var result *models.PaymentReleaseRequest
	err = settlementTx(func(tx *gorm.DB) error {
		// 锁定支付行后复核，防止并发申请或同时放款/冻结穿过前置校验
		locked, err := s.paymentRepo.WithTx(tx).GetByIDForUpdate(payment.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrPaymentNotFound
		}
		if locked.Frozen {
			return ErrPaymentFrozen
		}
		if locked.EscrowReleased {
			return ErrAlreadyReleased
		}

		repo := s.releaseRepo.WithTx(tx)
		pending, err := repo.GetPendingByPaymentID(payment.ID)
		if err != nil {
			return err
		}
		if pending != nil {
			return ErrReleaseRequestExists
		}

		request := &models.PaymentReleaseRequest{
			PaymentID:    payment.ID,
			MoverID:      input.MoverID,
			Status:       constants.ReleaseStatusPending,
			RiskAdvisory: advisoryJSON(riskResult),
			RequestedAt:  time.Now(),
		}
		if err := repo.Create(request); err != nil {
			return err
		}
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApproveInput 批准放款输入
type ApproveInput struct {
	RequestID uint
	AdminID   uint
	Notes     string
}

// Approve 批准放款申请并标记托管已放款。
// 同一笔支付重复放款返回 ErrAlreadyReleased，已处理的申请拒绝再处理。
func (s *ReleaseService) Approve(input ApproveInput) (*models.PaymentReleaseRequest, error) {
	var (
		result  *models.PaymentReleaseRequest
		payment *models.Payment
	)

	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.releaseRepo.WithTx(tx)
		request, err := repo.GetByIDForUpdate(input.RequestID)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrReleaseRequestNotFound
		}
		if request.Status != constants.ReleaseStatusPending {
			if request.Status == constants.ReleaseStatusApproved {
				return ErrAlreadyReleased
			}
			return ErrReleaseRequestProcessed
		}

		paymentRepo := s.paymentRepo.WithTx(tx)
		locked, err := paymentRepo.GetByIDForUpdate(request.PaymentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrPaymentNotFound
		}
		if err := s.paymentSvc.guardMutable(tx, locked); err != nil {
			return err
		}
		if locked.PaymentStatus != constants.PaymentStatusFullyPaid {
			return ErrPaymentNotFullyPaid
		}
		if locked.EscrowReleased {
			return ErrAlreadyReleased
		}

		before := *locked
		now := time.Now()
		locked.EscrowReleased = true
		locked.EscrowReleasedAt = &now
		if err := paymentRepo.Update(locked); err != nil {
			return err
		}

		request.Status = constants.ReleaseStatusApproved
		request.AdminNotes = strings.TrimSpace(input.Notes)
		request.ProcessedBy = &input.AdminID
		request.ProcessedAt = &now
		if err := repo.Update(request); err != nil {
			return err
		}

		if err := s.paymentSvc.appendAudit(tx, locked.ID, input.AdminID, constants.UserRoleAdmin,
			constants.AuditActionEscrowRelease, &before, locked); err != nil {
			return err
		}
		result = request
		payment = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 转账与通知在事务提交后进行，转账由 worker 异步执行
	if err := s.queueClient.EnqueueEscrowPayout(queue.EscrowPayoutPayload{
		PaymentID: payment.ID,
		RequestID: result.ID,
	}); err != nil {
		logger.Errorw("escrow_payout_enqueue_failed",
			"payment_id", payment.ID,
			"request_id", result.ID,
			"error", err,
		)
	}
	s.notifySvc.Notify(NotifyInput{
		UserID:    payment.MoverID,
		Title:     "托管款项已放款",
		Message:   fmt.Sprintf("报价单 #%d 的托管款项 %s 已批准放款", payment.QuoteID, payment.MoverPayout.String()),
		Type:      constants.NotificationTypeReleaseApproved,
		RelatedID: payment.ID,
	})

	return result, nil
}

// RejectInput 拒绝放款输入
type RejectInput struct {
	RequestID uint
	AdminID   uint
	Notes     string
}

// Reject 拒绝放款申请，必须填写拒绝说明。
func (s *ReleaseService) Reject(input RejectInput) (*models.PaymentReleaseRequest, error) {
	notes := strings.TrimSpace(input.Notes)
	if notes == "" {
		return nil, ErrReleaseNotesRequired
	}

	var result *models.PaymentReleaseRequest
	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.releaseRepo.WithTx(tx)
		request, err := repo.GetByIDForUpdate(input.RequestID)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrReleaseRequestNotFound
		}
		if request.Status != constants.ReleaseStatusPending {
			return ErrReleaseRequestProcessed
		}

		now := time.Now()
		request.Status = constants.ReleaseStatusRejected
		request.AdminNotes = notes
		request.ProcessedBy = &input.AdminID
		request.ProcessedAt = &now
		if err := repo.Update(request); err != nil {
			return err
		}
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifySvc.Notify(NotifyInput{
		UserID:    result.MoverID,
		Title:     "放款申请被拒绝",
		Message:   notes,
		Type:      constants.NotificationTypeReleaseRejected,
		RelatedID: result.PaymentID,
	})
	return result, nil
}

// GetRequest 获取放款申请
func (s *ReleaseService) GetRequest(id uint) (*models.PaymentReleaseRequest, error) {
	request, err := s.releaseRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrReleaseRequestNotFound
	}
	return request, nil
}

// ListRequests 分页查询放款申请
func (s *ReleaseService) ListRequests(filter repository.ReleaseRequestListFilter) ([]models.PaymentReleaseRequest, int64, error) {
	return s.releaseRepo.List(filter)
}

// analyzeRelease 汇总任务取证做放款前风控分析，失败时降级。
func (s *ReleaseService) analyzeRelease(ctx context.Context, payment *models.Payment) *advisory.Result {
	if s.advisoryCli == nil {
		return advisory.DegradedResult("advisory not configured")
	}

	photoRefs := make([]string, 0)
	if mission, err := s.missionRepo.GetByQuoteID(payment.QuoteID); err == nil && mission != nil {
		if evidences, err := s.missionRepo.ListEvidence(mission.ID); err == nil {
			for _, e := range evidences {
				photoRefs = append(photoRefs, e.StoragePath)
			}
		}
	}

	result, err := s.advisoryCli.Analyze(ctx, advisory.AnalyzeInput{
		PhotoRefs:   photoRefs,
		Description: fmt.Sprintf("escrow release request for quote %d", payment.QuoteID),
		Context:     "release",
	})
	if err != nil {
		logger.Warnw("release_advisory_degraded",
			"payment_id", payment.ID,
			"error", err,
		)
		return advisory.DegradedResult(err.Error())
	}
	return result
}

// advisoryJSON 把分析结果转成 JSON 字段，转换失败时返回空对象。
func advisoryJSON(result *advisory.Result) models.JSON {
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return models.JSON{}
	}
	var out models.JSON
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.JSON{}
	}
	return out
}
