package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"freelanceos/internal/handler"
	"freelanceos/internal/model"
	"freelanceos/pkg/otel"
	"freelanceos/pkg/rbac"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Entity      *handler.EntityHandler
	Wizard      *handler.WizardHandler
	Task        *handler.TaskHandler
	Inbox       *handler.InboxHandler
	Report      *handler.ReportHandler
	Assistant   *handler.AssistantHandler
	Integration *handler.IntegrationHandler
	Admin       *handler.AdminHandler
}

// ReadinessCheck is pinged by /readyz, e.g. db.Ping or redis Ping.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	JWTSecret string
	UploadDir string
	Ready     map[string]ReadinessCheck
	Logger    *zap.Logger
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, opts Options) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), RequestLogger(opts.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", readyz(opts.Ready))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.UploadDir != "" {
		r.Static("/files", opts.UploadDir)
	}

	// Public
	r.POST("/api/auth/register", h.Auth.Register)
	r.POST("/api/auth/login", h.Auth.Login)

	// Protected
	api := r.Group("/api")
	api.Use(AuthMiddleware(opts.JWTSecret))
	{
		api.GET("/auth/me", h.Auth.Me)
		api.POST("/auth/invite", RequirePermission(rbac.PermissionWriteClient), h.Auth.InviteClient)

		entities := api.Group("/entities/:type", RequireEntityPermission())
		entities.GET("", h.Entity.List)
		entities.POST("", h.Entity.Create)
		entities.GET("/:id", h.Entity.Get)
		entities.PATCH("/:id", h.Entity.Update)
		entities.DELETE("/:id", h.Entity.Delete)

		wiz := api.Group("/wizard", RequirePermission(rbac.PermissionRunWizard))
		wiz.POST("", h.Wizard.Start)
		wiz.GET("/:id", h.Wizard.Get)
		wiz.PATCH("/:id/steps/:step", h.Wizard.UpdateStep)
		wiz.POST("/:id/next", h.Wizard.Next)
		wiz.POST("/:id/previous", h.Wizard.Previous)
		wiz.POST("/:id/analyze-risk", h.Wizard.AnalyzeRisk)
		wiz.POST("/:id/suggest-tasks", h.Wizard.SuggestTasks)
		wiz.POST("/:id/complete", h.Wizard.Complete)

		api.GET("/projects/:id/suggested-tasks", RequirePermission(rbac.PermissionRunWizard), h.Wizard.SuggestedTasks)
		api.POST("/projects/:id/suggested-tasks/accept", RequirePermission(rbac.PermissionBulkCreateTask), h.Wizard.AcceptSuggestedTasks)

		api.GET("/tasks", RequirePermission(rbac.PermissionReadTask), h.Task.List)
		api.POST("/tasks/ai-prioritize", RequirePermission(rbac.PermissionWriteTask), h.Task.AIPrioritize)
		api.POST("/tasks/:id/move", RequirePermission(rbac.PermissionWriteTask), h.Task.Move)
		api.POST("/tasks/:id/toggle", RequirePermission(rbac.PermissionWriteTask), h.Task.Toggle)

		inbox := api.Group("/inbox", RequirePermission(rbac.PermissionReadMessage))
		inbox.GET("", h.Inbox.List)
		// Triage acts on any client's thread, so only the owner may do it.
		triage := inbox.Group("/:id", RequireRole(rbac.RoleAdmin))
		triage.POST("/flag", h.Inbox.Flag)
		triage.POST("/archive", h.Inbox.Archive)
		triage.POST("/read", h.Inbox.MarkRead)
		triage.POST("/reply", h.Inbox.Reply)
		triage.POST("/suggest-replies", RequirePermission(rbac.PermissionInvokeAI), h.Inbox.SuggestReplies)
		triage.POST("/analyze", RequirePermission(rbac.PermissionInvokeAI), h.Inbox.Analyze)

		reports := api.Group("/reports", RequirePermission(rbac.PermissionReadReport))
		reports.GET("/dashboard", h.Report.Dashboard)
		reports.POST("/preview", h.Report.Preview)
		reports.POST("", RequirePermission(rbac.PermissionWriteReport), h.Report.Save)

		conv := api.Group("/conversations", RequirePermission(rbac.PermissionUseAssistant))
		conv.POST("", h.Assistant.Create)
		conv.GET("", h.Assistant.List)
		conv.GET("/:id", h.Assistant.Get)
		conv.POST("/:id/messages", h.Assistant.AddMessage)
		conv.GET("/:id/stream", h.Assistant.Stream)
		api.GET("/assistant/whatsapp", RequirePermission(rbac.PermissionUseAssistant), h.Assistant.WhatsApp)

		api.POST("/llm/invoke", RequirePermission(rbac.PermissionInvokeAI), h.Integration.InvokeLLM)
		api.POST("/files", RequirePermission(rbac.PermissionUploadFile), h.Integration.UploadFile)

		admin := api.Group("/admin", RequirePermission(rbac.PermissionReplayOutbox))
		admin.POST("/outbox/replay", h.Admin.ReplayOutboxEvent)
		admin.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
		admin.GET("/outbox/failed", h.Admin.FailedEvents)
	}

	// Client portal: the entity resources scope reads to the token's client_id.
	portal := r.Group("/portal")
	portal.Use(AuthMiddleware(opts.JWTSecret), RequireRole(rbac.RoleClient))
	{
		portal.GET("/me", h.Auth.Me)
		for path, entityType := range map[string]string{
			"/projects": model.TypeProject,
			"/tasks":    model.TypeTask,
			"/invoices": model.TypeInvoice,
			"/messages": model.TypeMessage,
		} {
			portal.GET(path, withType(entityType), RequireEntityPermission(), h.Entity.List)
			portal.GET(path+"/:id", withType(entityType), RequireEntityPermission(), h.Entity.Get)
		}
		portal.POST("/messages", withType(model.TypeMessage), RequireEntityPermission(), h.Entity.Create)
		portal.POST("/files", RequirePermission(rbac.PermissionUploadFile), h.Integration.UploadFile)
	}

	return &Router{Engine: r}
}

// withType pins the :type param for routes that expose a single entity type.
func withType(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Params = append(c.Params, gin.Param{Key: "type", Value: entityType})
		c.Next()
	}
}

func readyz(checks map[string]ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
