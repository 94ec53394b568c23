package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/praveen2025work/ticketapp-sub000/internal/api/dto"
	"github.com/praveen2025work/ticketapp-sub000/internal/auth"
	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/service"
	apperrors "github.com/praveen2025work/ticketapp-sub000/pkg/util/errorutil"
)

const (
	maxPageSize = 200
	maxPage     = 1_000_000
)

// TicketsHandler manages problem ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Title:                 req.Title,
		Description:           req.Description,
		ImpactCount:           req.ImpactCount,
		Priority:              req.Priority,
		TargetResolutionHours: req.TargetResolutionHours,
		AssignedTo:            req.AssignedTo,
		AssignmentGroup:       req.AssignmentGroup,
		RootCause:             req.RootCause,
		Workaround:            req.Workaround,
		PermanentFix:          req.PermanentFix,
		IncidentLink:          req.IncidentLink,
		ChangeRequestLink:     req.ChangeRequestLink,
		KnowledgeLink:         req.KnowledgeLink,
		RegionIDs:             req.RegionIDs,
		ApplicationIDs:        req.ApplicationIDs,
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), input, principal.Username)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	patch := service.TicketPatch{
		Title:                 req.Title,
		Description:           req.Description,
		ImpactCount:           req.ImpactCount,
		Priority:              req.Priority,
		TargetResolutionHours: req.TargetResolutionHours,
		AssignedTo:            req.AssignedTo,
		AssignmentGroup:       req.AssignmentGroup,
		RootCause:             req.RootCause,
		Workaround:            req.Workaround,
		PermanentFix:          req.PermanentFix,
		IncidentLink:          req.IncidentLink,
		ChangeRequestLink:     req.ChangeRequestLink,
		KnowledgeLink:         req.KnowledgeLink,
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), c.Params("id"), patch, principal.Username)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	target, err := domain.ParseTicketStatus(req.Status)
	if err != nil {
		return err
	}
	ticket, err := h.service.ChangeStatus(c.UserContext(), c.Params("id"), target, principal.Username)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.SoftDelete(c.UserContext(), c.Params("id"), principal.Username); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AuditTrail GET /tickets/:id/audit.
func (h *TicketsHandler) AuditTrail(c *fiber.Ctx) error {
	entries, err := h.service.AuditTrail(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.AuditEntryResponse{
			ID:        e.ID,
			Action:    e.Action,
			Actor:     e.Actor,
			FieldName: e.FieldName,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetArticle GET /tickets/:id/article.
func (h *TicketsHandler) GetArticle(c *fiber.Ctx) error {
	article, err := h.service.GetArticle(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ArticleResponse{
		ID:        article.ID,
		TicketID:  article.TicketID,
		Title:     article.Title,
		Content:   article.Content,
		Status:    article.Status,
		CreatedBy: article.CreatedBy,
		CreatedAt: article.CreatedAt,
	}})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.UserContext(), c.Params("id"), principal.Username, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	comments, err := h.service.ListComments(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		resp = append(resp, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

func currentPrincipal(c *fiber.Ctx) (*domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status, err := domain.ParseTicketStatus(part)
			if err != nil {
				return filter, err
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if classStr := c.Query("classification"); classStr != "" {
		for _, part := range strings.Split(classStr, ",") {
			class, err := domain.ParseClassification(part)
			if err != nil {
				return filter, err
			}
			filter.Classifications = append(filter.Classifications, class)
		}
	}
	filter.RegionID = optionalQuery(c, "region_id")
	filter.AssignedTo = optionalQuery(c, "assigned_to")
	filter.CreatedBy = optionalQuery(c, "created_by")
	filter.SearchTerm = optionalQuery(c, "q")

	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page > maxPage {
		return filter, apperrors.NewValidationError("page out of range", map[string]any{"page": page, "max": maxPage})
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                    ticket.ID,
		Title:                 ticket.Title,
		Description:           ticket.Description,
		CreatedBy:             ticket.CreatedBy,
		Status:                ticket.Status,
		Classification:        ticket.Classification,
		RagStatus:             ticket.RagStatus,
		ImpactCount:           ticket.ImpactCount,
		Priority:              ticket.Priority,
		PriorityScore:         ticket.PriorityScore,
		TargetResolutionHours: ticket.TargetResolutionHours,
		AssignedTo:            ticket.AssignedTo,
		AssignmentGroup:       ticket.AssignmentGroup,
		RootCause:             ticket.RootCause,
		Workaround:            ticket.Workaround,
		PermanentFix:          ticket.PermanentFix,
		IncidentLink:          ticket.IncidentLink,
		ChangeRequestLink:     ticket.ChangeRequestLink,
		KnowledgeLink:         ticket.KnowledgeLink,
		RegionIDs:             ticket.RegionIDs,
		ApplicationIDs:        ticket.ApplicationIDs,
		TicketAgeDays:         ticket.TicketAgeDays,
		ResolvedAt:            ticket.ResolvedAt,
		CreatedAt:             ticket.CreatedAt,
		UpdatedAt:             ticket.UpdatedAt,
	}
}

func commentResponse(comment *domain.TicketComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		Author:    comment.Author,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}
