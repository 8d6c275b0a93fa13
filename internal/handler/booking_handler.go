package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/roamcars/booking-service/internal/dto"
	"github.com/roamcars/booking-service/internal/models"
	"github.com/roamcars/booking-service/internal/service"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo) {
	cars := e.Group("/api/v1/cars")
	cars.POST("/:id/bookings", h.CreateBooking)
	cars.GET("/:id/bookings", h.ListCarBookings)
	cars.GET("/:id/availability", h.CheckAvailability)

	e.GET("/api/v1/customers/:id/bookings", h.ListCustomerBookings)

	bookings := e.Group("/api/v1/bookings")
	bookings.GET("/:ref", h.GetBooking)
	bookings.DELETE("/:ref", h.CancelBooking)
	bookings.POST("/:ref/pay", h.MarkPaid)
	bookings.POST("/:ref/approve", h.ApproveBooking)
	bookings.POST("/:ref/complete", h.CompleteBooking)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	carID, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid car id")
	}

	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	booking, err := h.svc.CreateBooking(c.Request().Context(), carID, req.CustomerID, req.PickupAt, req.ReturnAt, req.TotalCost)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRange), errors.Is(err, service.ErrInvalidCost):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrCarNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrCarNotApproved):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrCarUnavailable):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	carID, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid car id")
	}

	pickupAt, err := time.Parse(time.RFC3339, c.QueryParam("pickup_at"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pickup_at must be RFC3339")
	}
	returnAt, err := time.Parse(time.RFC3339, c.QueryParam("return_at"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "return_at must be RFC3339")
	}

	available, err := h.svc.IsAvailable(c.Request().Context(), carID, pickupAt, returnAt)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRange) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.AvailabilityResponse{
		CarID:     carID,
		PickupAt:  pickupAt,
		ReturnAt:  returnAt,
		Available: available,
	})
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	booking, err := h.svc.GetBookingByRef(c.Request().Context(), c.Param("ref"))
	if err != nil {
		if errors.Is(err, service.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	return h.transition(c, h.svc.CancelBooking)
}

func (h *BookingHandler) MarkPaid(c echo.Context) error {
	return h.transition(c, h.svc.MarkPaid)
}

func (h *BookingHandler) ApproveBooking(c echo.Context) error {
	return h.transition(c, h.svc.ApproveBooking)
}

func (h *BookingHandler) CompleteBooking(c echo.Context) error {
	return h.transition(c, h.svc.CompleteBooking)
}

func (h *BookingHandler) ListCustomerBookings(c echo.Context) error {
	customerID, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid customer id")
	}

	bookings, err := h.svc.ListCustomerBookings(c.Request().Context(), customerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) ListCarBookings(c echo.Context) error {
	carID, err := parseID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid car id")
	}

	var status *models.BookingStatus
	if s := c.QueryParam("status"); s != "" {
		bs := models.BookingStatus(s)
		status = &bs
	}

	bookings, err := h.svc.ListCarBookings(c.Request().Context(), carID, status)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponses(bookings))
}

// transition resolves the booking ref and applies one of the service's
// status wrappers, mapping service errors onto HTTP codes.
func (h *BookingHandler) transition(c echo.Context, apply func(ctx context.Context, id uint) (*models.Booking, error)) error {
	ctx := c.Request().Context()

	booking, err := h.svc.GetBookingByRef(ctx, c.Param("ref"))
	if err != nil {
		if errors.Is(err, service.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	updated, err := apply(ctx, booking.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookingNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAlreadyFinalized):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(updated))
}

func toBookingResponses(bookings []models.Booking) []dto.BookingResponse {
	resp := make([]dto.BookingResponse, len(bookings))
	for i := range bookings {
		resp[i] = dto.ToBookingResponse(&bookings[i])
	}
	return resp
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
