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

// TransactionCommander defines the write-side operations used by TransactionHandler.
type TransactionCommander interface {
	AddTransaction(ctx context.Context, cmd cqrs.AddTransactionCommand) (*models.Transaction, decimal.Decimal, error)
}

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error)
}

type TransactionHandler struct {
	commands TransactionCommander
	queries  TransactionQuerier
}

type AddTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Type        string          `json:"type" validate:"required,oneof=credit debit"`
	Description string          `json:"description" validate:"required"`
}

type AddTransactionResponse struct {
	Transaction *models.Transaction `json:"transaction"`
	NewBalance  decimal.Decimal     `json:"newBalance"`
}

func NewTransactionHandler(commands TransactionCommander, queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{commands: commands, queries: queries}
}

func (h *TransactionHandler) AddTransaction(c *gin.Context) {
	var req AddTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	tx, newBalance, err := h.commands.AddTransaction(c.Request.Context(), cqrs.AddTransactionCommand{
		AccountID:   c.Param("accountId"),
		Amount:      req.Amount,
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		// The ledger write may have committed with only propagation failing;
		// report the id so the caller can reconcile.
		if tx != nil && apperr.IsTransient(err) {
			c.JSON(http.StatusBadGateway, gin.H{
				"message":       err.Error(),
				"transactionId": tx.ID,
			})
			return
		}
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AddTransactionResponse{Transaction: tx, NewBalance: newBalance})
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	transactions, err := h.queries.ListTransactions(c.Request.Context(), cqrs.ListTransactionsQuery{
		AccountID: c.Param("accountId"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
