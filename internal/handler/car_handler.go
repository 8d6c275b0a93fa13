package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/roamcars/booking-service/internal/dto"
	"github.com/roamcars/booking-service/internal/models"
	"github.com/roamcars/booking-service/internal/service"
)

type CarHandler struct {
	svc service.CarService
}

func NewCarHandler(svc service.CarService) *CarHandler {
	return &CarHandler{svc: svc}
}

func (h *CarHandler) RegisterRoutes(e *echo.Echo) {
	cars := e.Group("/api/v1/cars")
	cars.POST("", h.SubmitCar)
	cars.GET("", h.ListCars)
	cars.GET("/:id", h.GetCar)
	cars.POST("/:id/approve", h.ApproveCar)
	cars.POST("/:id/reject", h.RejectCar)
}

func (h *CarHandler) SubmitCar(c echo.Context) error {
	var req dto.SubmitCarRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	car := &models.Car{
		OwnerID:     req.OwnerID,
		Make:        req.Make,
		Model:       req.Model,
		PlateNumber: req.PlateNumber,
		DailyRate:   req.DailyRate,
	}
	if err := h.svc.SubmitCar(c.Request().Context(), car); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, dto.ToCarResponse(car))
}

func (h *CarHandler) GetCar(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid car id")
	}

	car, err := h.svc.GetCar(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCarNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.ToCarResponse(car))
}

func (h *CarHandler) ListCars(c echo.Context) error {
	var status *models.CarStatus
	if s := c.QueryParam("status"); s != "" {
		cs := models.CarStatus(s)
		status = &cs
	}

	cars, err := h.svc.ListCars(c.Request().Context(), status)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.CarResponse, len(cars))
	for i := range cars {
		resp[i] = dto.ToCarResponse(&cars[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *CarHandler) ApproveCar(c echo.Context) error {
	return h.review(c, h.svc.ApproveCar)
}

func (h *CarHandler) RejectCar(c echo.Context) error {
	return h.review(c, h.svc.RejectCar)
}

func (h *CarHandler) review(c echo.Context, apply func(ctx context.Context, id uint) (*models.Car, error)) error {
	id, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid car id")
	}

	car, err := apply(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCarNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrCarAlreadyReviewed):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, dto.ToCarResponse(car))
}
