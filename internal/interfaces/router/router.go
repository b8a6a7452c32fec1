package router

import (
	"context"

	capsvc "plates-backend/internal/application/capacity"
	donsvc "plates-backend/internal/application/donations"
	emailsvc "plates-backend/internal/application/emails"
	locsvc "plates-backend/internal/application/locations"
	notifsvc "plates-backend/internal/application/notifications"
	ratingsvc "plates-backend/internal/application/ratings"
	"plates-backend/internal/config"
	caphandler "plates-backend/internal/interfaces/handlers/capacity"
	donhandler "plates-backend/internal/interfaces/handlers/donations"
	healthhandler "plates-backend/internal/interfaces/handlers/health"
	lochandler "plates-backend/internal/interfaces/handlers/locations"
	notifhandler "plates-backend/internal/interfaces/handlers/notifications"
	ratinghandler "plates-backend/internal/interfaces/handlers/ratings"
	"plates-backend/internal/middleware"
	"plates-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) PingContext(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Deps are the connections the app is assembled from. Emails may be nil.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Rdb    *redis.Client
	Emails emailsvc.Sender
}

// CreateApp wires services, middleware and routes.
func CreateApp(d Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
		AllowLocal:    cfg.AllowCrossSiteDev && !cfg.IsProduction(),
	}))
	app.Use(middleware.HealthMarker(d.Rdb))
	app.Use(middleware.Session(d.Rdb))

	hh := &healthhandler.Handlers{
		Rdb:            d.Rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if d.DB != nil {
		hh.DB = &gormDBPinger{db: d.DB}
	}
	app.Get("/health/json", hh.JSON)
	app.Get("/health/reset", hh.Reset)

	capacityService := &capsvc.Service{DB: d.DB, MaxRangeDays: cfg.MaxRangeDays}
	locationService := &locsvc.Service{DB: d.DB}
	notificationService := &notifsvc.Service{DB: d.DB, Emails: d.Emails}
	donationService := &donsvc.Service{DB: d.DB, Notifier: notificationService}
	ratingService := &ratingsvc.Service{DB: d.DB, Notifier: notificationService}

	lh := &lochandler.Handlers{Service: locationService}
	ch := &caphandler.Handlers{Service: capacityService, Locations: locationService}
	dh := &donhandler.Handlers{Service: donationService, Rdb: d.Rdb}
	nh := &notifhandler.Handlers{Service: notificationService}
	rh := &ratinghandler.Handlers{Service: ratingService, Donations: donationService}

	ngoOnly := middleware.RequireRole(constants.NGO)
	donorOnly := middleware.RequireRole(constants.Donor)

	api := app.Group("/api/v1", middleware.RequireAuth())

	api.Post("/locations", ngoOnly, lh.Create)
	api.Get("/locations", lh.List)
	api.Get("/locations/:id", lh.Get)
	api.Put("/locations/:id", ngoOnly, lh.Update)
	api.Delete("/locations/:id", ngoOnly, lh.Delete)
	api.Put("/locations/:id/defaults", ngoOnly, lh.SetDefaults)
	api.Patch("/locations/:id/active", ngoOnly, lh.SetActive)

	api.Get("/locations/:id/capacity", ch.Get)
	api.Post("/locations/:id/capacity", ngoOnly, ch.SetOverride)
	api.Delete("/locations/:id/capacity", ngoOnly, ch.DeleteOverride)
	api.Post("/locations/:id/capacity/bulk", ngoOnly, ch.BulkSetOverride)
	api.Get("/locations/:id/capacity/manual", ngoOnly, ch.ListOverrides)
	api.Get("/locations/:id/availability", ch.Calendar)
	api.Get("/ngos/:ngo_id/available-locations", ch.AvailableLocations)

	api.Post("/donations", donorOnly, dh.Create)
	api.Get("/donations/mine", donorOnly, dh.ListMine)
	api.Get("/donations/ngo", ngoOnly, dh.ListForNGO)
	api.Get("/donations/:id", dh.Get)
	api.Post("/donations/:id/confirm", ngoOnly, dh.Confirm)
	api.Post("/donations/:id/reject", ngoOnly, dh.Reject)
	api.Post("/donations/:id/complete", ngoOnly, dh.Complete)
	api.Post("/donations/:id/cancel", donorOnly, dh.Cancel)

	api.Get("/notifications", nh.List)
	api.Put("/notifications/read-all", nh.MarkAllRead)
	api.Put("/notifications/:id/read", nh.MarkRead)
	api.Delete("/notifications/clear-all", nh.ClearAll)
	api.Delete("/notifications/:id", nh.Delete)

	api.Post("/ratings", donorOnly, rh.Create)
	api.Get("/ratings/mine", donorOnly, rh.ListMine)
	api.Get("/ratings/ngo/:ngo_id", rh.NGOSummary)
	api.Get("/ratings/ngo/:ngo_id/average", rh.NGOAverage)
	api.Get("/ratings/donation/:id", rh.ForDonation)
	api.Delete("/ratings/:id", rh.Delete)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Route not found: "+c.Method()+" "+c.Path())
	})

	return app
}
