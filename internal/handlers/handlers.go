package handlers

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"oftaclinic/api/internal/cache"
	"oftaclinic/api/internal/cleanup"
	"oftaclinic/api/internal/config"
	"oftaclinic/api/internal/jobs"
	"oftaclinic/api/internal/middleware"
	"oftaclinic/api/internal/models"
	"oftaclinic/api/internal/repository"
	"oftaclinic/api/internal/service"
)

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	imageService *service.ImageService
	cleaner      *cleanup.Service
	scheduler    *jobs.Scheduler
	imageCache   *cache.ImageCache
	db           *pgxpool.Pool
	redis        *redis.Client
	users        *repository.UserRepository
	products     *repository.ProductRepository
	appointments *repository.AppointmentRepository
}

type Deps struct {
	Log          zerolog.Logger
	Cfg          *config.AppConfig
	ImageService *service.ImageService
	Cleaner      *cleanup.Service
	Scheduler    *jobs.Scheduler
	ImageCache   *cache.ImageCache
	DB           *pgxpool.Pool
	Redis        *redis.Client
	Users        *repository.UserRepository
	Products     *repository.ProductRepository
	Appointments *repository.AppointmentRepository
}

var timeHHMM = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func NewHandlerSet(deps Deps) HandlerSet {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("timehhmm", func(fl validator.FieldLevel) bool {
			return timeHHMM.MatchString(fl.Field().String())
		})
	}

	return HandlerSet{
		log:          deps.Log,
		cfg:          deps.Cfg,
		imageService: deps.ImageService,
		cleaner:      deps.Cleaner,
		scheduler:    deps.Scheduler,
		imageCache:   deps.ImageCache,
		db:           deps.DB,
		redis:        deps.Redis,
		users:        deps.Users,
		products:     deps.Products,
		appointments: deps.Appointments,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := middleware.Auth(h.cfg, h.users)
	adminOnly := middleware.RequireRoles(models.UserRoleAdmin)

	users := router.Group("/users")
	{
		users.POST("/register", h.RegisterUser)
		users.POST("/login", h.Login)
		users.GET("/me", auth, h.Me)
	}

	images := router.Group("/images")
	images.Use(auth)
	{
		images.POST("/upload", h.UploadImage)
		images.GET("", h.GetAllImages)
		images.GET("/transform-configs", h.GetTransformConfigs)
		images.DELETE("/:id", h.DeleteImage)
		images.POST("/:id/transform", h.TransformImage)
		images.POST("/:id/effects", h.ApplyImageEffects)
		images.POST("/:id/variants", h.CreateImageVariants)
		images.POST("/:id/watermark", h.AddWatermark)
		images.GET("/:id/urls", h.GetImageURLs)
	}

	cleanupGroup := router.Group("/cleanup")
	cleanupGroup.Use(auth, adminOnly)
	{
		cleanupGroup.GET("/stats", h.GetCleanupStats)
		cleanupGroup.GET("/unused", h.FindUnusedImages)
		cleanupGroup.POST("/delete-unused", h.DeleteUnusedImages)
		cleanupGroup.POST("/full", h.RunFullCleanup)
	}

	scheduler := router.Group("/scheduler")
	scheduler.Use(auth, adminOnly)
	{
		scheduler.GET("/status", h.GetSchedulerStatus)
		scheduler.PUT("/tasks/:name", h.UpdateTaskStatus)
		scheduler.POST("/tasks/:name/run", h.RunTask)
	}

	products := router.Group("/products")
	{
		products.GET("", h.GetProducts)
		products.GET("/:id", h.GetProductByID)
		products.POST("", auth, adminOnly, h.CreateProduct)
		products.PUT("/:id", auth, adminOnly, h.UpdateProduct)
		products.DELETE("/:id", auth, adminOnly, h.DeleteProduct)
	}

	appointments := router.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", auth, h.GetAppointments)
		appointments.GET("/:id", auth, h.GetAppointmentByID)
		appointments.PUT("/:id/status", auth, h.UpdateAppointmentStatus)
	}
}

// serverError hides error detail outside development mode.
func (h HandlerSet) serverError(c *gin.Context, err error) {
	h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	if h.cfg.Environment == "development" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
}

func currentUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get("current_user")
	if !exists {
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	return user, ok
}
