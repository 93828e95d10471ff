package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/air-quality-etl/internal/airquality"
	"github.com/i474232898/air-quality-etl/internal/store"
)

var validate = validator.New()

const defaultLimit = 50

// TickReporter exposes the outcome of the most recent pipeline tick.
type TickReporter interface {
	LastTick() (airquality.TickResult, bool)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, readings airquality.ReadingStore, ticks TickReporter) {
	v1 := app.Group("/api/v1")

	v1.Get("/readings", func(c *fiber.Ctx) error {
		q, err := parseListQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rows, err := readings.RecentReadings(c.UserContext(), q.Limit)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no readings stored yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch readings")
		}

		return c.JSON(fiber.Map{
			"count":    len(rows),
			"readings": rows,
		})
	})

	v1.Get("/alerts", func(c *fiber.Ctx) error {
		q, err := parseListQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rows, err := readings.RecentAlerts(c.UserContext(), q.Limit)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no alerts stored yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch alerts")
		}

		return c.JSON(fiber.Map{
			"count":  len(rows),
			"alerts": rows,
		})
	})

	v1.Get("/ticks/last", func(c *fiber.Ctx) error {
		res, ok := ticks.LastTick()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no tick has run yet")
		}
		return c.JSON(res)
	})
}

// listQuery holds query parameters for the list endpoints.
type listQuery struct {
	Limit int `validate:"min=1,max=500"`
}

func parseListQuery(c *fiber.Ctx) (listQuery, error) {
	q := listQuery{Limit: defaultLimit}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.New("limit must be an integer")
		}
		q.Limit = n
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}
