// Package httpapi exposes the pipeline's HTTP surfaces: the producer's
// fetch trigger and the consumer's read-side query API.
package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-forecast-pipeline/internal/adapter/postgres"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/domain"
)

// ForecastFetcher produces a 7-record batch for a city/country request,
// live or fallback.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, city, country string) domain.ForecastBatch
}

// Publisher emits records onto the stream topic keyed by the requested
// city/country, returning the count sent.
type Publisher interface {
	Publish(ctx context.Context, city, country string, records []domain.WeatherRecord) (int, error)
}

// QueryStore serves the read-side endpoints.
type QueryStore interface {
	List(ctx context.Context, city, country string) ([]postgres.StoredRecord, error)
	Locations(ctx context.Context) ([]postgres.CityCountry, error)
}

func newApp(name string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      name,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}

// NewProducerApp builds the ingest-side API: a fetch trigger that resolves,
// normalizes, and publishes a location's 7-day forecast.
func NewProducerApp(forecasts ForecastFetcher, publisher Publisher, logger *slog.Logger) *fiber.App {
	app := newApp("weather-producer")

	app.Post("/fetch-weather", func(c *fiber.Ctx) error {
		var req struct {
			City    string `json:"city"`
			Country string `json:"country"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if req.City == "" || req.Country == "" {
			return fiber.NewError(fiber.StatusBadRequest, "city and country are required")
		}

		logger.Info("fetching weather data", "city", req.City, "country", req.Country)
		batch := forecasts.FetchForecast(c.UserContext(), req.City, req.Country)

		count, err := publisher.Publish(c.UserContext(), req.City, req.Country, batch.Records)
		if err != nil {
			logger.Error("publish failed",
				"city", req.City, "country", req.Country, "published", count, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to stream weather data")
		}

		logger.Info("weather records streamed",
			"city", req.City, "country", req.Country, "count", count, "source", batch.Source)

		return c.JSON(fiber.Map{
			"message": "Successfully fetched and streamed weather records",
			"count":   count,
			"source":  batch.Source,
			"data":    batch.Records,
		})
	})

	return app
}

// NewQueryApp builds the read-side API over stored records.
func NewQueryApp(store QueryStore, logger *slog.Logger) *fiber.App {
	app := newApp("weather-query")

	app.Get("/api/weather-data", func(c *fiber.Ctx) error {
		records, err := store.List(c.UserContext(), c.Query("city"), c.Query("country"))
		if err != nil {
			logger.Error("query weather data failed", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}
		if records == nil {
			records = []postgres.StoredRecord{}
		}
		return c.JSON(records)
	})

	app.Get("/api/cities", func(c *fiber.Ctx) error {
		locations, err := store.Locations(c.UserContext())
		if err != nil {
			logger.Error("query cities failed", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch cities")
		}
		if locations == nil {
			locations = []postgres.CityCountry{}
		}
		return c.JSON(locations)
	})

	return app
}
