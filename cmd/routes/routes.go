package routes

import (
	"net/http"

	"account-service/cmd/controllers"
	"account-service/cmd/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func AuthRoute(router *gin.Engine, session gin.HandlerFunc) {
	auth := router.Group("/api/auth")
	auth.POST("/register", controllers.Register())
	auth.POST("/verify-email", controllers.VerifyEmail())
	auth.POST("/login", controllers.Login())
	auth.POST("/forgot-password", controllers.ForgotPassword())
	auth.POST("/reset-password", controllers.ResetPassword())

	auth.GET("/me", session, controllers.GetCurrentUser())
	auth.PUT("/onboarding", session, controllers.UpdateProfile())
	auth.DELETE("/delete", session, controllers.DeleteAccount())
	auth.PATCH("/logo", session, controllers.UploadLogo())
}

func InvitationRoute(router *gin.Engine, session gin.HandlerFunc) {
	invitations := router.Group("/api/invitations", session)
	invitations.POST("", controllers.SendInvitation())
	invitations.GET("/received", controllers.ReceivedInvitations())
	invitations.GET("/sent", controllers.SentInvitations())
	invitations.POST("/reconcile", controllers.ReconcileInvitations())
	invitations.POST("/:invitationId/accept", controllers.AcceptInvitation())
	invitations.POST("/:invitationId/reject", controllers.RejectInvitation())
	invitations.DELETE("/:invitationId", controllers.CancelInvitation())
}

// SystemRoute serves liveness and the metrics scrape endpoint of gatherer.
func SystemRoute(router *gin.Engine, gatherer prometheus.Gatherer) {
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Account service is running")
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// NewRouter builds the engine with every route registered.
func NewRouter(auth middleware.Authenticator, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	session := middleware.Session(auth, controllers.RequestTimeout)
	AuthRoute(router, session)
	InvitationRoute(router, session)
	SystemRoute(router, gatherer)
	return router
}
