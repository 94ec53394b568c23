package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/praveen2025work/ticketapp-sub000/internal/api/dto"
	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/service"
	apperrors "github.com/praveen2025work/ticketapp-sub000/pkg/util/errorutil"
)

// ApprovalsHandler exposes the approval workflow.
type ApprovalsHandler struct {
	service *service.ApprovalService
}

// NewApprovalsHandler constructs handler.
func NewApprovalsHandler(approvalService *service.ApprovalService) *ApprovalsHandler {
	return &ApprovalsHandler{service: approvalService}
}

// Submit POST /tickets/:id/approvals.
func (h *ApprovalsHandler) Submit(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	records, err := h.service.SubmitForApproval(c.UserContext(), c.Params("id"), principal.Username)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": approvalResponses(records)})
}

// History GET /tickets/:id/approvals.
func (h *ApprovalsHandler) History(c *fiber.Ctx) error {
	records, err := h.service.ApprovalHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": approvalResponses(records)})
}

// Pending GET /approvals/pending.
func (h *ApprovalsHandler) Pending(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	records, err := h.service.PendingApprovals(c.UserContext(), principal.Username)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": approvalResponses(records)})
}

// Approve POST /approvals/:id/approve.
func (h *ApprovalsHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, h.service.Approve)
}

// Reject POST /approvals/:id/reject.
func (h *ApprovalsHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, h.service.Reject)
}

func (h *ApprovalsHandler) decide(c *fiber.Ctx, fn func(ctx context.Context, approvalID int64, comments *string, actor domain.Principal) (*domain.ApprovalRecord, error)) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid approval id", map[string]any{"id": c.Params("id")})
	}
	var req dto.DecisionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	record, err := fn(c.UserContext(), id, req.Comments, *principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": approvalResponse(record)})
}

func approvalResponses(records []domain.ApprovalRecord) []dto.ApprovalResponse {
	resp := make([]dto.ApprovalResponse, 0, len(records))
	for i := range records {
		resp = append(resp, approvalResponse(&records[i]))
	}
	return resp
}

func approvalResponse(rec *domain.ApprovalRecord) dto.ApprovalResponse {
	return dto.ApprovalResponse{
		ID:        rec.ID,
		TicketID:  rec.TicketID,
		Reviewer:  rec.Reviewer,
		Role:      rec.Role,
		Decision:  rec.Decision,
		Comments:  rec.Comments,
		DecidedAt: rec.DecidedAt,
		CreatedAt: rec.CreatedAt,
	}
}
