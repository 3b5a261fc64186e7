package handler

import (
	"strconv"

	"card-vault/internal/adapter/http/dto"
	"card-vault/internal/adapter/http/middleware"
	"card-vault/internal/core/domain"
	"card-vault/internal/core/ports"
	"card-vault/pkg/apperror"
	"card-vault/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CardHandler handles cardholder-facing card endpoints.
type CardHandler struct {
	cardSvc ports.CardService
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cardSvc ports.CardService) *CardHandler {
	return &CardHandler{cardSvc: cardSvc}
}

// List handles GET /api/v1/cards. The listing is always scoped to the
// authenticated holder; filters narrow it further.
func (h *CardHandler) List(c *gin.Context) {
	holderID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	q, err := parseCardListQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	q.HolderID = &holderID

	views, total, err := h.cardSvc.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, cardListResponse(views, total, q.Page, q.PageSize))
}

// Block handles POST /api/v1/cards/:id/block.
func (h *CardHandler) Block(c *gin.Context) {
	holderID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid card id"))
		return
	}

	view, err := h.cardSvc.Block(c.Request.Context(), cardID, holderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromCardView(view))
}

// parseCardListQuery reads the shared list filters from the query string.
func parseCardListQuery(c *gin.Context) (ports.CardListQuery, error) {
	q := ports.CardListQuery{
		LastFour: c.Query("last_four"),
		Page:     1,
		PageSize: 20,
	}

	if s := c.Query("status"); s != "" {
		status := domain.CardStatus(s)
		switch status {
		case domain.CardStatusActive, domain.CardStatusBlocked, domain.CardStatusExpired:
			q.Status = &status
		default:
			return q, apperror.Validation("invalid status filter")
		}
	}
	if p := c.Query("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return q, apperror.Validation("invalid page")
		}
		q.Page = n
	}
	if ps := c.Query("page_size"); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil || n < 1 || n > 100 {
			return q, apperror.Validation("invalid page_size")
		}
		q.PageSize = n
	}
	return q, nil
}

func cardListResponse(views []ports.CardView, total int64, page, pageSize int) dto.CardListResponse {
	items := make([]dto.CardResponse, 0, len(views))
	for i := range views {
		items = append(items, dto.FromCardView(&views[i]))
	}
	return dto.CardListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: dto.TotalPages(total, pageSize),
	}
}
