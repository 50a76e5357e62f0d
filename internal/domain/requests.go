package domain

// Request DTOs mirror the storefront's wire format (camelCase, decimal
// dollars). Conversion to minor units happens here, at the edge.

type OrderItemRequest struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
}

type ShippingAddressRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items"`
	ShippingAddress ShippingAddressRequest `json:"shippingAddress"`
}

func (r CreateOrderRequest) ToOrderItems() []OrderItem {
	items := make([]OrderItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: CentsFromDollars(item.Price),
			Image:     item.Image,
		}
	}
	return items
}

func (r CreateOrderRequest) ToShippingAddress() ShippingAddress {
	return ShippingAddress{
		Email:     r.ShippingAddress.Email,
		FirstName: r.ShippingAddress.FirstName,
		LastName:  r.ShippingAddress.LastName,
		Address:   r.ShippingAddress.Address,
		City:      r.ShippingAddress.City,
		State:     r.ShippingAddress.State,
		ZipCode:   r.ShippingAddress.ZipCode,
		Country:   r.ShippingAddress.Country,
	}
}

type CreateCertificationRequest struct {
	Country       string `json:"country"`
	RequesterName string `json:"requesterName"`
	ShopName      string `json:"shopName"`
	ShopEmail     string `json:"shopEmail"`
	ShopPhone     string `json:"shopPhone"`
	ShopCity      string `json:"shopCity"`
}
