// Package routes mounts the HTTP API.
package routes

import (
	"time"

	"github.com/teastall/teastall/app/controllers"
	"github.com/teastall/teastall/app/repositories"
	"github.com/teastall/teastall/app/services"
	"github.com/teastall/teastall/pkg/auth"
	"github.com/teastall/teastall/pkg/ctx"
	"github.com/teastall/teastall/pkg/middleware"
	"github.com/teastall/teastall/pkg/rbac"
	"github.com/teastall/teastall/pkg/router"
	"github.com/teastall/teastall/pkg/sse"
	"github.com/teastall/teastall/pkg/storage"
)

// Deps is everything the API needs from the process.
type Deps struct {
	Stores *repositories.Stores
	Hub    *sse.Hub
	Disk   storage.Disk
	Orders services.OrderOptions
	// Heartbeat is the SSE keepalive interval; zero disables it.
	Heartbeat time.Duration
	// AdminSecretHash overrides the configured make-admin hash.
	AdminSecretHash func() string
}

func RegisterAPI(r *router.Router, d Deps) {
	users := services.NewUserService(d.Stores.Users)
	if d.AdminSecretHash != nil {
		users.WithSecretHash(d.AdminSecretHash)
	}

	orderController := controllers.NewOrderController(services.NewOrderService(d.Stores.Orders, d.Hub, d.Orders))
	eventsController := controllers.NewEventsController(d.Hub, d.Heartbeat)
	productController := controllers.NewProductController(services.NewProductService(d.Stores.Products))
	categoryController := controllers.NewCategoryController(services.NewCategoryService(d.Stores.Categories))
	reviewController := controllers.NewReviewController(services.NewReviewService(d.Stores.Reviews))
	postController := controllers.NewPostController(services.NewPostService(d.Stores.Posts))
	userController := controllers.NewUserController(users)
	dashboardController := controllers.NewDashboardController(services.NewDashboardService(d.Stores))
	uploadController := controllers.NewUploadController(d.Disk)

	api := r.Group("/api")
	api.Get("/products", "products.index", ctx.Wrap(productController.Index))
	api.Get("/products/featured", "products.featured", ctx.Wrap(productController.Featured))
	api.Get("/products/{id}", "products.show", ctx.Wrap(productController.Show))
	api.Get("/categories", "categories.index", ctx.Wrap(categoryController.Index))
	api.Get("/reviews", "reviews.index", ctx.Wrap(reviewController.Index))
	api.Get("/posts", "posts.index", ctx.Wrap(postController.Index))
	api.Get("/stats", "stats", ctx.Wrap(dashboardController.Stats))
	api.Post("/make-admin", "users.make_admin", ctx.Wrap(userController.MakeAdmin))

	authed := api.Group("", middleware.Auth(users))
	authed.Post("/orders", "orders.store", ctx.Wrap(orderController.Store))
	authed.Get("/orders/user", "orders.mine", ctx.Wrap(orderController.Mine))
	authed.Get("/orders/{id}", "orders.show", ctx.Wrap(orderController.Show))
	authed.Patch("/orders/{id}/payment", "orders.payment", ctx.Wrap(orderController.UpdatePayment))
	authed.Get("/events", "events.stream", ctx.Wrap(eventsController.Stream))
	authed.Get("/ws", "events.socket", ctx.Wrap(eventsController.Socket))
	authed.Post("/reviews", "reviews.store", ctx.Wrap(reviewController.Store))
	authed.Post("/posts", "posts.store", ctx.Wrap(postController.Store))
	authed.Post("/posts/like", "posts.like", ctx.Wrap(postController.Like))
	authed.Post("/posts/react", "posts.react", ctx.Wrap(postController.React))
	authed.Post("/posts/comment", "posts.comment", ctx.Wrap(postController.Comment))
	authed.Delete("/posts/delete", "posts.destroy", ctx.Wrap(postController.Destroy))
	authed.Get("/user", "users.sync", ctx.Wrap(userController.Sync))
	authed.Get("/user/role", "users.role", ctx.Wrap(userController.Role))
	authed.Post("/uploads", "uploads.store", ctx.Wrap(uploadController.Store))

	admin := authed.Group("", rbac.HasRole(auth.RoleAdmin))
	admin.Get("/orders", "orders.index", ctx.Wrap(orderController.Index))
	admin.Patch("/orders/{id}", "orders.update", ctx.Wrap(orderController.Update))
	admin.Post("/products", "products.store", ctx.Wrap(productController.Store))
	admin.Put("/products/{id}", "products.update", ctx.Wrap(productController.Update))
	admin.Delete("/products/{id}", "products.destroy", ctx.Wrap(productController.Destroy))
	admin.Post("/categories", "categories.store", ctx.Wrap(categoryController.Store))
	admin.Delete("/categories/{id}", "categories.destroy", ctx.Wrap(categoryController.Destroy))
	admin.Get("/dashboard", "dashboard", ctx.Wrap(dashboardController.Show))
}
