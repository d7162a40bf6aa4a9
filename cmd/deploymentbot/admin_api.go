package main

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/DeploymentBot3000/DeploymentBot/pkg/log"
)

const UsernameKey = "username"

type AdminAPI struct {
	f    *fiber.App
	addr string
}

func NewAdminAPI(app *App, addr string) *AdminAPI {
	api := &AdminAPI{addr: addr}

	api.f = fiber.New(fiber.Config{EnablePrintRoutes: false, DisableStartupMessage: true})

	api.f.Use(log.NewFiberLogger(&log.LoggerConfig{Name: "admin_api", UserGetter: Username, DoMetrics: true}))
	api.f.Use(getAuth(app))

	api.f.Get("/deployments", getDeploymentsHandler(app))
	api.f.Get("/queue", getQueueHandler(app))
	api.f.Post("/queue/clear", getQueueClearHandler(app))
	api.f.Post("/queue/strike", getQueueStrikeHandler(app))
	api.f.Post("/queue/interval", getQueueIntervalHandler(app))

	api.f.Get("/metrics", getMetricsHandler())

	return api
}

func (api *AdminAPI) Address() string {
	return api.addr
}

func (api *AdminAPI) Listen() error {
	return api.f.Listen(api.addr)
}

// getAuth accepts the operator account from the config plus any account
// from the acl file.
func getAuth(app *App) fiber.Handler {
	user := viper.GetString("admin_user")
	hash := viper.GetString("admin_password_hash")

	return basicauth.New(basicauth.Config{
		Authorizer: func(login, password string) bool {
			if user != "" && login == user {
				return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
			}

			return app.acl.CheckAuth(login, password)
		},
		ContextUsername: UsernameKey,
	})
}

func Username(c *fiber.Ctx) string {
	u := c.Locals(UsernameKey)

	if u == nil {
		return ""
	}

	if s, ok := u.(string); ok {
		return s
	}

	return ""
}

func getDeploymentsHandler(app *App) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		deployments := app.dbm.DeploymentQuery().Live().Get()

		res := make([]map[string]any, 0, len(deployments))

		for _, d := range deployments {
			res = append(res, map[string]any{
				"id":          d.ID,
				"title":       d.Title,
				"difficulty":  d.Difficulty,
				"host":        d.Host,
				"start_time":  d.StartTime,
				"end_time":    d.EndTime,
				"started":     d.Started,
				"notice_sent": d.NoticeSent,
				"members":     app.dbm.RosterQuery().Deployment(d.ID).Count(),
			})
		}

		return ctx.JSON(res)
	}
}

func getQueueHandler(app *App) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		hosts := app.dbm.QueueQuery().Hosts().Get()
		players := app.dbm.QueueQuery().Players().Get()

		hostIds := make([]string, 0, len(hosts))
		for _, e := range hosts {
			hostIds = append(hostIds, e.UserID)
		}

		playerIds := make([]string, 0, len(players))
		for _, e := range players {
			playerIds = append(playerIds, e.UserID)
		}

		return ctx.JSON(fiber.Map{
			"hosts":       hostIds,
			"players":     playerIds,
			"strike_mode": app.queue.StrikeMode(),
			"next_drop":   app.queue.NextDrop(),
			"interval":    app.queue.Interval().String(),
		})
	}
}

func getQueueClearHandler(app *App) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		removed, err := app.queue.Clear(ctx.Context())
		if err != nil {
			return err
		}

		app.logger.Info("queue cleared by operator", slog.String("user", Username(ctx)))

		return ctx.JSON(fiber.Map{"removed": removed})
	}
}

func getQueueStrikeHandler(app *App) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		enabled := app.queue.ToggleStrikeMode(ctx.Context())

		return ctx.JSON(fiber.Map{"strike_mode": enabled})
	}
}

func getQueueIntervalHandler(app *App) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var req struct {
			Minutes int `json:"minutes"`
		}

		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		next, err := app.queue.SetDeploymentTime(ctx.Context(), time.Duration(req.Minutes)*time.Minute)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return ctx.JSON(fiber.Map{"next_drop": next})
	}
}

func getMetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
