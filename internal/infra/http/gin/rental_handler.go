package ginserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	rentalsvc "rentals/internal/app/services/rentals"
)

type RentalHandler struct {
	Service *rentalsvc.Service
}

type createRentalRequest struct {
	ItemID            string    `json:"item_id" binding:"required"`
	StartDate         time.Time `json:"start_date" binding:"required"`
	EndDate           time.Time `json:"end_date" binding:"required"`
	DeliveryRequested bool      `json:"delivery_requested"`
	DeliveryAddress   string    `json:"delivery_address"`
	PaymentMethod     string    `json:"payment_method"`
}

type updateRentalRequest struct {
	StartDate         time.Time `json:"start_date" binding:"required"`
	EndDate           time.Time `json:"end_date" binding:"required"`
	Status            string    `json:"status"`
	PaymentStatus     string    `json:"payment_status"`
	DeliveryRequested *bool     `json:"delivery_requested"`
	DeliveryAddress   *string   `json:"delivery_address"`
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type cancelRentalRequest struct {
	Reason string `json:"reason"`
}

func (h RentalHandler) Create(c *gin.Context) {
	user, ok := requireActor(c)
	if !ok {
		return
	}
	var req createRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res := h.Service.CreateRental(c.Request.Context(), rentalsvc.CreateParams{
		ItemID:            req.ItemID,
		RenterID:          user.ID,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		DeliveryRequested: req.DeliveryRequested,
		DeliveryAddress:   req.DeliveryAddress,
		PaymentMethod:     req.PaymentMethod,
		IdempotencyKey:    c.GetHeader(idempotencyHeader),
	})
	respond(c, http.StatusCreated, res)
}

func (h RentalHandler) Get(c *gin.Context) {
	respond(c, http.StatusOK, h.Service.GetRental(c.Request.Context(), c.Param("id")))
}

func (h RentalHandler) Update(c *gin.Context) {
	var req updateRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res := h.Service.UpdateRental(c.Request.Context(), rentalsvc.UpdateParams{
		RentalID:          c.Param("id"),
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Status:            req.Status,
		PaymentStatus:     req.PaymentStatus,
		DeliveryRequested: req.DeliveryRequested,
		DeliveryAddress:   req.DeliveryAddress,
	})
	respond(c, http.StatusOK, res)
}

func (h RentalHandler) Delete(c *gin.Context) {
	respond(c, http.StatusOK, h.Service.DeleteRental(c.Request.Context(), c.Param("id")))
}

func (h RentalHandler) ChangeStatus(c *gin.Context) {
	user, ok := requireActor(c)
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	respond(c, http.StatusOK, h.Service.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status, user.ID))
}

func (h RentalHandler) Cancel(c *gin.Context) {
	user, ok := requireActor(c)
	if !ok {
		return
	}
	var req cancelRentalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	respond(c, http.StatusOK, h.Service.CancelRental(c.Request.Context(), c.Param("id"), user.ID, req.Reason))
}

type ItemHandler struct {
	Service *rentalsvc.Service
}

func (h ItemHandler) Availability(c *gin.Context) {
	start, end, err := parsePeriod(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	respond(c, http.StatusOK, h.Service.CheckAvailability(c.Request.Context(), c.Param("id"), start, end, c.Query("exclude_rental_id")))
}

func (h ItemHandler) Quote(c *gin.Context) {
	start, end, err := parsePeriod(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	delivery := false
	if raw := c.Query("delivery"); raw != "" {
		delivery, err = strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, fmt.Errorf("delivery: %w", err))
			return
		}
	}
	respond(c, http.StatusOK, h.Service.QuotePrice(c.Request.Context(), c.Param("id"), start, end, delivery, c.Query("address")))
}

func (h ItemHandler) Calendar(c *gin.Context) {
	respond(c, http.StatusOK, h.Service.ItemCalendar(c.Request.Context(), c.Param("id")))
}

// parsePeriod reads start and end query parameters, either as dates or as
// RFC 3339 timestamps.
func parsePeriod(c *gin.Context) (time.Time, time.Time, error) {
	start, err := parseInstant("start", c.Query("start"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseInstant("end", c.Query("end"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseInstant(name, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD or RFC 3339", name)
	}
	return t.UTC(), nil
}

var (
	_ RentalHTTP = RentalHandler{}
	_ ItemHTTP   = ItemHandler{}
)
