package server

import (
	"context"
	"net/http"

	"gymcore/internal/auth"
	"gymcore/internal/class"
	"gymcore/internal/config"
	"gymcore/internal/membership"
	"gymcore/internal/notify"
	"gymcore/internal/plan"
	"gymcore/internal/reservation"
	"gymcore/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router  *gin.Engine
	db      *sqlx.DB
	config  *config.Config
	httpSrv *http.Server

	MembershipService membership.Service
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notify.Service) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	userRepo := user.NewRepository(db)
	planRepo := plan.NewRepository(db)
	membershipRepo := membership.NewRepository(db)
	classRepo := class.NewRepository(db)
	reservationRepo := reservation.NewRepository(db)

	userService := user.NewService(userRepo, cfg.JWTSecret)
	planService := plan.NewService(planRepo)
	membershipService := membership.NewService(membershipRepo, planRepo, notifier)
	classService := class.NewService(classRepo, notifier)
	reservationService := reservation.NewService(
		reservationRepo, classRepo, membershipRepo, planRepo, userRepo, notifier)

	userHandler := user.NewHandler(userService)
	planHandler := plan.NewHandler(planService)
	membershipHandler := membership.NewHandler(membershipService)
	classHandler := class.NewHandler(classService)
	reservationHandler := reservation.NewHandler(reservationService)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
		protected.GET("/plans", planHandler.ListPlans)
		protected.GET("/plans/:planID", planHandler.GetPlan)
		protected.GET("/class-types", classHandler.ListClassTypes)
		protected.GET("/classes", classHandler.ListClasses)
		protected.GET("/classes/:classID", classHandler.GetClass)
		protected.POST("/classes/:classID/reserve", reservationHandler.Reserve)
		protected.GET("/reservations", reservationHandler.ListMine)
		protected.POST("/reservations/:reservationID/cancel", reservationHandler.Cancel)
		protected.GET("/memberships/me", membershipHandler.GetMyMembership)
		protected.GET("/memberships", membershipHandler.ListMyMemberships)
		protected.GET("/memberships/:membershipID", membershipHandler.GetMembership)
		protected.POST("/memberships/:membershipID/freeze", membershipHandler.Freeze)
		protected.POST("/memberships/:membershipID/unfreeze", membershipHandler.Unfreeze)
		protected.POST("/memberships/:membershipID/renew", membershipHandler.Renew)
	}

	staffMiddleware := auth.RequireRole(auth.RoleStaff, auth.RoleAdmin)
	staff := router.Group("/admin")
	staff.Use(authMiddleware, staffMiddleware)
	{
		staff.POST("/classes", classHandler.ScheduleClass)
		staff.POST("/classes/:classID/cancel", classHandler.CancelClass)
		staff.GET("/classes/:classID/reservations", reservationHandler.ListByClass)
		staff.POST("/members/:memberID/reservations", reservationHandler.StaffReserve)
		staff.POST("/reservations/:reservationID/attended", reservationHandler.MarkAttended)
		staff.POST("/reservations/:reservationID/no-show", reservationHandler.MarkNoShow)
		staff.POST("/members/:memberID/memberships", membershipHandler.AssignMembership)
		staff.GET("/members/:memberID/memberships", membershipHandler.ListMemberMemberships)
		staff.POST("/memberships/:membershipID/cancel", membershipHandler.CancelMembership)
		staff.GET("/memberships/:membershipID/freezes", membershipHandler.ListFreezes)
	}

	adminMiddleware := auth.RequireRole(auth.RoleAdmin)
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/plans", planHandler.CreatePlan)
		admin.PUT("/plans/:planID", planHandler.UpdatePlan)
		admin.POST("/plans/:planID/retire", planHandler.RetirePlan)
		admin.POST("/class-types", classHandler.CreateClassType)
		admin.POST("/class-types/:typeID/retire", classHandler.RetireClassType)
		admin.GET("/analytics/reservations", reservationHandler.GetAnalytics)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,

		MembershipService: membershipService,
	}
}

func (s *Server) Start(port string) error {
	s.httpSrv = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
