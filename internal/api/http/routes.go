package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/chamodk/air-quality-fusion/internal/alert"
	"github.com/chamodk/air-quality-fusion/internal/scheduler"
	"github.com/chamodk/air-quality-fusion/internal/store"
)

// Deps bundles what the HTTP layer needs from the core.
type Deps struct {
	Cache     *store.Cache
	Scheduler *scheduler.Scheduler
	Alerts    *alert.Store
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/air/current", func(c *fiber.Ctx) error {
		snapshot, err := deps.Cache.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no fresh air quality data available")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read cached data")
		}
		return c.JSON(snapshot)
	})

	v1.Get("/air/history", func(c *fiber.Ctx) error {
		var since time.Time
		if s := c.Query("since"); s != "" {
			parsed, err := parseTime(s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			since = parsed
		}

		entries, err := deps.Cache.History(since)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read history")
		}

		return c.JSON(fiber.Map{
			"since":   since,
			"entries": entries,
		})
	})

	v1.Post("/air/refresh", func(c *fiber.Ctx) error {
		result := deps.Scheduler.ManualFetch(c.Context())
		if result.Outcome == scheduler.OutcomeTotalFailure {
			return fiber.NewError(fiber.StatusServiceUnavailable, "fetch failed: location unavailable")
		}
		return c.JSON(result)
	})

	v1.Get("/settings/fetch-interval", func(c *fiber.Ctx) error {
		interval, err := deps.Scheduler.Interval()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read fetch interval")
		}
		return c.JSON(fiber.Map{"minutes": int(interval.Minutes())})
	})

	v1.Put("/settings/fetch-interval", func(c *fiber.Ctx) error {
		var body struct {
			Minutes int `json:"minutes"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if body.Minutes < 15 || body.Minutes > 1440 {
			return fiber.NewError(fiber.StatusBadRequest, "minutes must be between 15 and 1440")
		}
		if err := deps.Scheduler.SetInterval(time.Duration(body.Minutes) * time.Minute); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to update fetch interval")
		}
		return c.JSON(fiber.Map{"minutes": body.Minutes})
	})

	v1.Get("/alerts/thresholds", func(c *fiber.Ctx) error {
		thresholds, err := deps.Alerts.Thresholds()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read thresholds")
		}
		return c.JSON(thresholds)
	})

	v1.Put("/alerts/thresholds", func(c *fiber.Ctx) error {
		var cfg alert.ThresholdConfig
		if err := c.BodyParser(&cfg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := deps.Alerts.SetThresholds(cfg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(cfg)
	})

	v1.Get("/alerts/history", func(c *fiber.Ctx) error {
		events, err := deps.Alerts.History()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read alert history")
		}
		return c.JSON(fiber.Map{"alerts": events})
	})
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
