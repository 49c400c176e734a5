package service

import "errors"

// 业务错误定义，handler 层据此映射响应码。
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrUserDisabled       = errors.New("user disabled")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentExists        = errors.New("payment already exists for quote")
	ErrPaymentFrozen        = errors.New("payment frozen pending audit")
	ErrPaymentAmountInvalid = errors.New("payment amount invalid")
	ErrPaymentStatusInvalid = errors.New("payment status invalid")
	ErrPaymentNotFullyPaid  = errors.New("payment not fully paid")

	ErrMissionNotFound       = errors.New("mission not found")
	ErrMissionNotEligible    = errors.New("mission requires deposit or full payment")
	ErrMissionNotCompleted   = errors.New("mission not completed")
	ErrTransitionInvalid     = errors.New("mission transition invalid")
	ErrTransitionRoleInvalid = errors.New("mission transition not allowed for role")
	ErrEvidenceRequired      = errors.New("evidence photos required before transition")
	ErrEvidencePhaseInvalid  = errors.New("evidence phase invalid for mission state")

	ErrDamageReportNotFound        = errors.New("damage report not found")
	ErrDamageReportOpenExists      = errors.New("open damage report already exists")
	ErrDamageReportTerminal        = errors.New("damage report already closed")
	ErrDamageDescriptionRequired   = errors.New("damage description required")
	ErrDamageNotesRequired         = errors.New("resolution notes required")
	ErrDamageResponsibilityInvalid = errors.New("damage responsibility invalid")

	ErrGuaranteeAmountInvalid = errors.New("guarantee amount invalid")
	ErrGuaranteeNotHeld       = errors.New("guarantee amount not held")

	ErrReleaseRequestNotFound  = errors.New("release request not found")
	ErrReleaseRequestExists    = errors.New("pending release request already exists")
	ErrReleaseRequestProcessed = errors.New("release request already processed")
	ErrAlreadyReleased         = errors.New("escrow already released")
	ErrReleaseNotesRequired    = errors.New("admin notes required for rejection")

	ErrRefundNotFound          = errors.New("refund request not found")
	ErrRefundAmountInvalid     = errors.New("refund amount invalid")
	ErrRefundExceedsRefundable = errors.New("refund amount exceeds refundable balance")
	ErrRefundStatusInvalid     = errors.New("refund status invalid")

	ErrNotificationNotFound = errors.New("notification not found")

	ErrConcurrencyConflict = errors.New("concurrent modification conflict")
)
