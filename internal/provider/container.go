package provider

import (
	"github.com/movelink-next/internal/advisory"
	"github.com/movelink-next/internal/cache"
	"github.com/movelink-next/internal/config"
	"github.com/movelink-next/internal/logger"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/payrail"
	"github.com/movelink-next/internal/queue"
	"github.com/movelink-next/internal/repository"
	"github.com/movelink-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// 外部客户端
	AdvisoryClient advisory.Client
	PayrailClient  payrail.Client

	// Repositories
	AdminRepo             repository.AdminRepository
	UserRepo              repository.UserRepository
	PaymentRepo           repository.PaymentRepository
	AuditLogRepo          repository.AuditLogRepository
	GuaranteeDecisionRepo repository.GuaranteeDecisionRepository
	MissionRepo           repository.MissionRepository
	DamageReportRepo      repository.DamageReportRepository
	ReleaseRequestRepo    repository.ReleaseRequestRepository
	RefundRepo            repository.RefundRepository
	NotificationRepo      repository.NotificationRepository
	DashboardRepo         repository.DashboardRepository

	// Services
	AuthService         *service.AuthService
	UserAuthService     *service.UserAuthService
	PaymentService      *service.PaymentService
	MissionService      *service.MissionService
	GuaranteeService    *service.GuaranteeService
	ReleaseService      *service.ReleaseService
	RefundService       *service.RefundService
	DamageService       *service.DamageService
	NotificationService *service.NotificationService
	DashboardService    *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initClients()
	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initClients() {
	if c.Config.Advisory.Enabled {
		client, err := advisory.NewHTTPClient(advisory.Config{
			BaseURL:   c.Config.Advisory.BaseURL,
			APIKey:    c.Config.Advisory.APIKey,
			TimeoutMS: c.Config.Advisory.TimeoutMS,
		})
		if err != nil {
			logger.Warnw("provider_init_advisory_failed", "error", err)
		} else {
			c.AdvisoryClient = client
		}
	}
	if c.Config.Payrail.Enabled {
		client, err := payrail.NewHTTPClient(payrail.Config{
			BaseURL:   c.Config.Payrail.BaseURL,
			APIKey:    c.Config.Payrail.APIKey,
			TimeoutMS: c.Config.Payrail.TimeoutMS,
		})
		if err != nil {
			logger.Warnw("provider_init_payrail_failed", "error", err)
		} else {
			c.PayrailClient = client
		}
	}
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.AuditLogRepo = repository.NewAuditLogRepository(db)
	c.GuaranteeDecisionRepo = repository.NewGuaranteeDecisionRepository(db)
	c.MissionRepo = repository.NewMissionRepository(db)
	c.DamageReportRepo = repository.NewDamageReportRepository(db)
	c.ReleaseRequestRepo = repository.NewReleaseRequestRepository(db)
	c.RefundRepo = repository.NewRefundRepository(db)
	c.NotificationRepo = repository.NewNotificationRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.NotificationService = service.NewNotificationService(c.NotificationRepo, c.QueueClient)
	c.PaymentService = service.NewPaymentService(c.Config, c.PaymentRepo, c.AuditLogRepo)
	c.MissionService = service.NewMissionService(c.MissionRepo, c.PaymentRepo, c.DamageReportRepo, c.AuditLogRepo)
	c.GuaranteeService = service.NewGuaranteeService(
		c.PaymentRepo,
		c.GuaranteeDecisionRepo,
		c.AuditLogRepo,
		c.PaymentService,
		c.NotificationService,
	)
	c.ReleaseService = service.NewReleaseService(
		c.PaymentRepo,
		c.ReleaseRequestRepo,
		c.MissionRepo,
		c.PaymentService,
		c.NotificationService,
		c.AdvisoryClient,
		c.QueueClient,
	)
	c.RefundService = service.NewRefundService(
		c.PaymentRepo,
		c.RefundRepo,
		c.PaymentService,
		c.NotificationService,
		c.QueueClient,
	)
	c.DamageService = service.NewDamageService(
		c.DamageReportRepo,
		c.MissionRepo,
		c.NotificationService,
		c.AdvisoryClient,
	)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}
