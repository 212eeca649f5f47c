package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/RouaaAssaf/BankingSolution/internal/apperr"
	"github.com/RouaaAssaf/BankingSolution/internal/cqrs"
	"github.com/RouaaAssaf/BankingSolution/internal/middleware"
	"github.com/RouaaAssaf/BankingSolution/internal/models"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	OpenAccount(ctx context.Context, cmd cqrs.OpenAccountCommand) (*models.Account, error)
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.Account, error)
	ListAccountsByCustomer(ctx context.Context, customerID string) ([]models.Account, error)
}

type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type OpenAccountRequest struct {
	CustomerID     string          `json:"customerId" validate:"required"`
	InitialDeposit decimal.Decimal `json:"initialDeposit"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

func (h *AccountHandler) OpenAccount(c *gin.Context) {
	var req OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.OpenAccount(c.Request.Context(), cqrs.OpenAccountCommand{
		CustomerID:     req.CustomerID,
		InitialDeposit: req.InitialDeposit,
	})
	if err != nil {
		// The account may have committed even though propagation failed;
		// report the id so the caller can reconcile.
		if account != nil && apperr.IsTransient(err) {
			c.JSON(http.StatusBadGateway, gin.H{
				"message":   err.Error(),
				"accountId": account.ID,
			})
			return
		}
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{
		AccountID: c.Param("accountId"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) ListAccountsByCustomer(c *gin.Context) {
	accounts, err := h.queries.ListAccountsByCustomer(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}
