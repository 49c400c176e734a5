package constants

// 支付状态常量
const (
	PaymentStatusNoPayment   = "no_payment"
	PaymentStatusDepositPaid = "deposit_paid"
	PaymentStatusFullyPaid   = "fully_paid"
	PaymentStatusRefunded    = "refunded"
)

// 保证金状态常量
const (
	GuaranteeStatusHeld            = "held"
	GuaranteeStatusReleasedToMover = "released_to_mover"
	GuaranteeStatusKeptForClient   = "kept_for_client"
	GuaranteeStatusPartialRelease  = "partial_release"
)

// 保证金裁决类型常量
const (
	GuaranteeDecisionFullReturn    = "full_return"
	GuaranteeDecisionNoReturn      = "no_return"
	GuaranteeDecisionPartialReturn = "partial_return"
)

// 搬家任务状态常量（严格前向顺序）
const (
	MissionStatusConfirmed               = "confirmed"
	MissionStatusBeforePhotosUploaded    = "before_photos_uploaded"
	MissionStatusInTransit               = "in_transit"
	MissionStatusLoadingPhotosUploaded   = "loading_photos_uploaded"
	MissionStatusArrived                 = "arrived"
	MissionStatusUnloadingPhotosUploaded = "unloading_photos_uploaded"
	MissionStatusCompleted               = "completed"
)

// 任务取证阶段常量
const (
	EvidencePhaseBefore    = "before"
	EvidencePhaseLoading   = "loading"
	EvidencePhaseUnloading = "unloading"
)

// 损坏报告状态常量
const (
	DamageStatusPending     = "pending"
	DamageStatusUnderReview = "under_review"
	DamageStatusResolved    = "resolved"
	DamageStatusRejected    = "rejected"
)

// 损坏责任归属常量
const (
	DamageResponsibilityMover       = "mover"
	DamageResponsibilityClient      = "client"
	DamageResponsibilityDisputed    = "disputed"
	DamageResponsibilityUnderReview = "under_review"
)

// 放款申请状态常量
const (
	ReleaseStatusPending  = "pending"
	ReleaseStatusApproved = "approved"
	ReleaseStatusRejected = "rejected"
)

// 退款状态常量
const (
	RefundStatusPending   = "pending"
	RefundStatusApproved  = "approved"
	RefundStatusRejected  = "rejected"
	RefundStatusCompleted = "completed"
)

// 用户角色常量
const (
	UserRoleClient = "client"
	UserRoleMover  = "mover"
	UserRoleAdmin  = "admin"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 风险等级常量
const (
	RiskLevelLow     = "low"
	RiskLevelMedium  = "medium"
	RiskLevelHigh    = "high"
	RiskLevelUnknown = "unknown"
)

// 损坏严重程度常量（从轻到重）
const (
	SeverityNone     = "none"
	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
	SeverityUnknown  = "unknown"
)

// 审计动作常量
const (
	AuditActionCreatePayment     = "create_payment"
	AuditActionMarkDepositPaid   = "mark_deposit_paid"
	AuditActionMarkFullyPaid     = "mark_fully_paid"
	AuditActionGuaranteeDecide   = "guarantee_decide"
	AuditActionEscrowRelease     = "escrow_release"
	AuditActionRefundCreate      = "refund_create"
	AuditActionRefundApprove     = "refund_approve"
	AuditActionRefundReject      = "refund_reject"
	AuditActionRefundComplete    = "refund_complete"
	AuditActionMissionTransition = "mission_transition"
)

// 通知类型常量
const (
	NotificationTypeGuaranteeDecision = "guarantee_decision"
	NotificationTypeReleaseApproved   = "release_approved"
	NotificationTypeReleaseRejected   = "release_rejected"
	NotificationTypeDamageResolved    = "damage_resolved"
	NotificationTypeRefundProcessed   = "refund_processed"
)

// 异步任务类型常量
const (
	TaskNotificationDispatch = "notification:dispatch"
	TaskEscrowPayout         = "payout:escrow"
	TaskRefundPayout         = "payout:refund"
)

// 队列名称常量
const (
	QueueDefault = "default"
)
