package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/ah-malik/SkyGloss-backend/internal/domain"
)

// Responses quote money in decimal dollars; internal amounts are minor
// units.

type CheckoutSessionResponse struct {
	RedirectURL string `json:"redirect_url"`
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number,omitempty"`
}

type OrderResponse struct {
	ID               uuid.UUID               `json:"id"`
	OrderNumber      string                  `json:"order_number"`
	OwnerID          uuid.UUID               `json:"owner_id"`
	Items            []OrderItemResponse     `json:"items"`
	TotalAmount      float64                 `json:"total_amount"`
	Status           string                  `json:"status"`
	ShippingAddress  ShippingAddressResponse `json:"shipping_address"`
	GatewaySessionID string                  `json:"gateway_session_id,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

type OrderItemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Image     string  `json:"image,omitempty"`
}

type ShippingAddressResponse struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
}

type CertificationResponse struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Country       string    `json:"country"`
	RequesterName string    `json:"requester_name"`
	ShopName      string    `json:"shop_name"`
	ShopEmail     string    `json:"shop_email"`
	ShopPhone     string    `json:"shop_phone"`
	ShopCity      string    `json:"shop_city"`
	Amount        float64   `json:"amount"`
	PaymentStatus string    `json:"payment_status"`
	ReviewStatus  string    `json:"review_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type ReviewRequest struct {
	Status string `json:"status"`
}

func mapOrder(order *domain.Order) OrderResponse {
	return OrderResponse{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		OwnerID:          order.OwnerID,
		Items:            mapOrderItems(order.Items),
		TotalAmount:      order.TotalAmount.Dollars(),
		Status:           string(order.Status),
		ShippingAddress:  mapShippingAddress(order.ShippingAddress),
		GatewaySessionID: order.GatewaySessionID,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

func mapOrders(orders []*domain.Order) []OrderResponse {
	responses := make([]OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = mapOrder(order)
	}
	return responses
}

func mapOrderItems(items []domain.OrderItem) []OrderItemResponse {
	responses := make([]OrderItemResponse, len(items))
	for i, item := range items {
		responses[i] = OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.Dollars(),
			Image:     item.Image,
		}
	}
	return responses
}

func mapShippingAddress(address domain.ShippingAddress) ShippingAddressResponse {
	return ShippingAddressResponse{
		Email:     address.Email,
		FirstName: address.FirstName,
		LastName:  address.LastName,
		Address:   address.Address,
		City:      address.City,
		State:     address.State,
		ZipCode:   address.ZipCode,
		Country:   address.Country,
	}
}

func mapCertification(cert *domain.CertificationRequest) CertificationResponse {
	return CertificationResponse{
		ID:            cert.ID,
		OwnerID:       cert.OwnerID,
		Country:       cert.Country,
		RequesterName: cert.RequesterName,
		ShopName:      cert.ShopName,
		ShopEmail:     cert.ShopEmail,
		ShopPhone:     cert.ShopPhone,
		ShopCity:      cert.ShopCity,
		Amount:        cert.Amount.Dollars(),
		PaymentStatus: string(cert.PaymentStatus),
		ReviewStatus:  string(cert.ReviewStatus),
		CreatedAt:     cert.CreatedAt,
		UpdatedAt:     cert.UpdatedAt,
	}
}

func mapCertifications(certs []*domain.CertificationRequest) []CertificationResponse {
	responses := make([]CertificationResponse, len(certs))
	for i, cert := range certs {
		responses[i] = mapCertification(cert)
	}
	return responses
}
