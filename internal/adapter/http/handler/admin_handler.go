package handler

import (
	"strconv"

	"card-vault/internal/adapter/http/dto"
	"card-vault/internal/core/domain"
	"card-vault/internal/core/ports"
	"card-vault/pkg/apperror"
	"card-vault/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdminHandler handles administrative card and user endpoints.
type AdminHandler struct {
	cardSvc ports.CardService
	userSvc ports.UserService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cardSvc ports.CardService, userSvc ports.UserService) *AdminHandler {
	return &AdminHandler{cardSvc: cardSvc, userSvc: userSvc}
}

// CreateCard handles POST /api/v1/admin/cards.
func (h *AdminHandler) CreateCard(c *gin.Context) {
	var req dto.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	expiry, err := domain.ParseCardExpiry(req.Expiry)
	if err != nil {
		response.Error(c, apperror.Validation("invalid expiry, expected MM/YY"))
		return
	}

	initialBalance := decimal.Zero
	if req.InitialBalance != "" {
		initialBalance, err = decimal.NewFromString(req.InitialBalance)
		if err != nil {
			response.Error(c, apperror.Validation("invalid initial_balance"))
			return
		}
	}

	view, err := h.cardSvc.Create(c.Request.Context(), ports.CreateCardRequest{
		HolderID:       uuid.MustParse(req.HolderID),
		Number:         req.Number,
		Expiry:         expiry,
		InitialBalance: initialBalance,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromCardView(view))
}

// SetCardStatus handles POST /api/v1/admin/cards/:id/status.
func (h *AdminHandler) SetCardStatus(c *gin.Context) {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid card id"))
		return
	}

	var req dto.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	view, err := h.cardSvc.SetStatusAdmin(c.Request.Context(), cardID, domain.CardStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromCardView(view))
}

// DeleteCard handles DELETE /api/v1/admin/cards/:id.
func (h *AdminHandler) DeleteCard(c *gin.Context) {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid card id"))
		return
	}

	if err := h.cardSvc.Delete(c.Request.Context(), cardID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListCards handles GET /api/v1/admin/cards. Unlike the holder listing,
// an admin may scope by any holder or see all cards.
func (h *AdminHandler) ListCards(c *gin.Context) {
	q, err := parseCardListQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if hid := c.Query("holder_id"); hid != "" {
		holderID, err := uuid.Parse(hid)
		if err != nil {
			response.Error(c, apperror.Validation("invalid holder_id"))
			return
		}
		q.HolderID = &holderID
	}

	views, total, err := h.cardSvc.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, cardListResponse(views, total, q.Page, q.PageSize))
}

// ListUsers handles GET /api/v1/admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, pageSize := 1, 20
	if p := c.Query("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			response.Error(c, apperror.Validation("invalid page"))
			return
		}
		page = n
	}
	if ps := c.Query("page_size"); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil || n < 1 || n > 100 {
			response.Error(c, apperror.Validation("invalid page_size"))
			return
		}
		pageSize = n
	}

	users, total, err := h.userSvc.List(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.FromUser(&users[i]))
	}
	response.OK(c, dto.UserListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: dto.TotalPages(total, pageSize),
	})
}
