package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RouaaAssaf/BankingSolution/internal/apperr"
	"github.com/RouaaAssaf/BankingSolution/internal/cqrs"
	"github.com/RouaaAssaf/BankingSolution/internal/middleware"
	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

// CustomerCommander defines the write-side operations used by CustomerHandler.
type CustomerCommander interface {
	CreateCustomer(ctx context.Context, cmd cqrs.CreateCustomerCommand) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, cmd cqrs.DeleteCustomerCommand) error
}

// CustomerQuerier defines the read-side operations used by CustomerHandler.
type CustomerQuerier interface {
	GetCustomer(ctx context.Context, q cqrs.GetCustomerQuery) (*models.Customer, error)
	ListCustomers(ctx context.Context, q cqrs.ListCustomersQuery) ([]models.Customer, error)
	GetCustomerSummary(ctx context.Context, q cqrs.GetCustomerSummaryQuery) (*models.CustomerSummary, error)
}

type CustomerHandler struct {
	commands CustomerCommander
	queries  CustomerQuerier
}

type CreateCustomerRequest struct {
	FirstName string         `json:"firstName" validate:"required"`
	LastName  string         `json:"lastName" validate:"required"`
	Email     string         `json:"email" validate:"required,email"`
	Address   models.Address `json:"address"`
}

func NewCustomerHandler(commands CustomerCommander, queries CustomerQuerier) *CustomerHandler {
	return &CustomerHandler{commands: commands, queries: queries}
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	customer, err := h.commands.CreateCustomer(c.Request.Context(), cqrs.CreateCustomerCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Address:   req.Address,
	})
	if err != nil {
		// Committed but unpropagated: hand back the id for reconciliation.
		if customer != nil && apperr.IsTransient(err) {
			c.JSON(http.StatusBadGateway, gin.H{
				"message":    err.Error(),
				"customerId": customer.ID,
			})
			return
		}
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, customer)
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.queries.GetCustomer(c.Request.Context(), cqrs.GetCustomerQuery{
		CustomerID: c.Param("customerId"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	customers, err := h.queries.ListCustomers(c.Request.Context(), cqrs.ListCustomersQuery{})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (h *CustomerHandler) GetCustomerSummary(c *gin.Context) {
	summary, err := h.queries.GetCustomerSummary(c.Request.Context(), cqrs.GetCustomerSummaryQuery{
		CustomerID: c.Param("customerId"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	err := h.commands.DeleteCustomer(c.Request.Context(), cqrs.DeleteCustomerCommand{
		CustomerID: c.Param("customerId"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
