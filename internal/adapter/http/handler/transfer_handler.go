package handler

import (
	"card-vault/internal/adapter/http/dto"
	"card-vault/internal/adapter/http/middleware"
	"card-vault/internal/core/ports"
	"card-vault/pkg/apperror"
	"card-vault/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferHandler handles the transfer endpoint.
type TransferHandler struct {
	transferSvc ports.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferSvc ports.TransferService) *TransferHandler {
	return &TransferHandler{transferSvc: transferSvc}
}

// Transfer handles POST /api/v1/transfers.
func (h *TransferHandler) Transfer(c *gin.Context) {
	requesterID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation("invalid amount"))
		return
	}

	// The uuid binding tag already vetted these.
	sourceID := uuid.MustParse(req.SourceID)
	destinationID := uuid.MustParse(req.DestinationID)

	err = h.transferSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		RequesterID:   requesterID,
		SourceID:      sourceID,
		DestinationID: destinationID,
		Amount:        amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{
		"source_id":      req.SourceID,
		"destination_id": req.DestinationID,
		"amount":         req.Amount,
	})
}
