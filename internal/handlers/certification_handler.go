package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ah-malik/SkyGloss-backend/internal/auth"
	"github.com/ah-malik/SkyGloss-backend/internal/domain"
	"github.com/ah-malik/SkyGloss-backend/internal/gateway"
	"github.com/ah-malik/SkyGloss-backend/internal/httpx"
	"github.com/ah-malik/SkyGloss-backend/internal/repository"
	"github.com/ah-malik/SkyGloss-backend/internal/service"
)

type CertificationHandler struct {
	certifications *service.CertificationService
}

func NewCertificationHandler(certifications *service.CertificationService) *CertificationHandler {
	return &CertificationHandler{certifications: certifications}
}

func (h *CertificationHandler) CreateCheckoutSession(c *fiber.Ctx) error {
	ownerID, err := requesterID(c)
	if err != nil {
		return httpx.UnauthorizedResponse(c, "Invalid requester identity")
	}

	var request domain.CreateCertificationRequest
	if err := c.BodyParser(&request); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}
	if request.ShopName == "" || request.ShopEmail == "" {
		return httpx.BadRequestResponse(c, "Shop name and email are required", nil)
	}

	result, err := h.certifications.CreateCheckoutSession(c.Context(), ownerID, request)
	if err != nil {
		if errors.Is(err, service.ErrGatewayCall) {
			return httpx.InternalServerErrorResponse(c, "Payment provider unavailable", nil)
		}
		log.Printf("Certification checkout error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Checkout session creation failed", nil)
	}

	return httpx.CreatedResponse(c, "Checkout session created", CheckoutSessionResponse{
		RedirectURL: result.RedirectURL,
		OrderID:     result.Certification.ID.String(),
	})
}

func (h *CertificationHandler) GetMyRequests(c *fiber.Ctx) error {
	ownerID, err := requesterID(c)
	if err != nil {
		return httpx.UnauthorizedResponse(c, "Invalid requester identity")
	}

	certs, err := h.certifications.GetMyRequests(c.Context(), ownerID)
	if err != nil {
		log.Printf("Certification listing error: OwnerID=%s err=%v", ownerID, err)
		return httpx.InternalServerErrorResponse(c, "Certification listing failed", nil)
	}
	return httpx.SuccessResponse(c, "Certification requests retrieved successfully", mapCertifications(certs))
}

func (h *CertificationHandler) GetAllRequests(c *fiber.Ctx) error {
	review := domain.CertReviewStatus(c.Query("review_status"))

	certs, err := h.certifications.GetAllRequests(c.Context(), review)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			return httpx.BadRequestResponse(c, "Unknown review status", map[string]interface{}{
				"review_status": string(review),
			})
		}
		log.Printf("Certification listing error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Certification listing failed", nil)
	}
	return httpx.SuccessResponse(c, "Certification requests retrieved successfully", mapCertifications(certs))
}

func (h *CertificationHandler) VerifyPayment(c *fiber.Ctx) error {
	certID, err := uuid.Parse(c.Params("certificationId"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid certification ID", map[string]interface{}{
			"certification_id": c.Params("certificationId"),
		})
	}

	cert, err := h.certifications.VerifyPayment(c.Context(), certID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCertificationNotFound):
			return httpx.NotFoundResponse(c, "Certification request not found")
		case errors.Is(err, service.ErrGatewayCall):
			return httpx.InternalServerErrorResponse(c, "Payment provider unavailable", nil)
		default:
			log.Printf("Certification verification error: CertificationID=%s err=%v", certID, err)
			return httpx.InternalServerErrorResponse(c, "Payment verification failed", nil)
		}
	}
	if cert.OwnerID.String() != auth.UserID(c) && auth.Role(c) != auth.RoleAdmin {
		return httpx.NotFoundResponse(c, "Certification request not found")
	}
	return httpx.SuccessResponse(c, "Payment verified", mapCertification(cert))
}

// Review records the admin decision on the review axis. Payment state is
// untouched regardless of the decision.
func (h *CertificationHandler) Review(c *fiber.Ctx) error {
	certID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid certification ID", map[string]interface{}{
			"certification_id": c.Params("id"),
		})
	}

	var request ReviewRequest
	if err := c.BodyParser(&request); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	cert, err := h.certifications.Review(c.Context(), certID, domain.CertReviewStatus(request.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			return httpx.BadRequestResponse(c, "Unknown review status", map[string]interface{}{
				"status": request.Status,
			})
		case errors.Is(err, repository.ErrCertificationNotFound):
			return httpx.NotFoundResponse(c, "Certification request not found")
		default:
			log.Printf("Review error: CertificationID=%s err=%v", certID, err)
			return httpx.InternalServerErrorResponse(c, "Review failed", nil)
		}
	}
	return httpx.SuccessResponse(c, "Certification request reviewed", mapCertification(cert))
}

func (h *CertificationHandler) HandleWebhook(c *fiber.Ctx) error {
	err := h.certifications.HandleWebhook(c.Context(), c.Body(), c.Get("Stripe-Signature"))
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"received": true})
	case errors.Is(err, gateway.ErrMissingSignature),
		errors.Is(err, gateway.ErrInvalidSignature),
		errors.Is(err, gateway.ErrNotConfigured):
		return httpx.BadRequestResponse(c, "Webhook signature verification failed", nil)
	case errors.Is(err, domain.ErrTransitionRejected):
		log.Printf("Webhook transition rejected: %v", err)
		return c.JSON(fiber.Map{"received": true})
	default:
		log.Printf("Webhook processing error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Webhook processing failed", nil)
	}
}
