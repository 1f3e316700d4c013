package domain

import "time"

// Order status constants, in forward order.
const (
	OrderStatusPending   = "Pending"
	OrderStatusAccepted  = "Accepted"
	OrderStatusPacked    = "Packed"
	OrderStatusDelivered = "Delivered"
)

// ProductRemovedTitle is shown for line items whose product was deleted.
const ProductRemovedTitle = "Product removed"

// Order is a customer's purchase. TotalAmount is fixed at creation.
type Order struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Customer    *UserSummary `json:"customer,omitempty"`
	Items       []OrderItem  `json:"items"`
	TotalAmount Money        `json:"totalAmount"`
	Status      string       `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// OrderItem is one line of an order. Product holds the current catalog
// snapshot of the referenced product and is nil once the product is deleted.
type OrderItem struct {
	ProductID string       `json:"productId"`
	Quantity  int          `json:"quantity"`
	Title     string       `json:"title"`
	Product   *ItemProduct `json:"product"`
}

// ItemProduct is the catalog view of a product referenced by a line item.
type ItemProduct struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Price    Money  `json:"price"`
	ImageURL string `json:"imageUrl"`
	FarmerID string `json:"farmerId"`
}

// LinkProduct attaches p to the item, or marks the item removed when p is nil.
func (i *OrderItem) LinkProduct(p *ItemProduct) {
	i.Product = p
	if p == nil {
		i.Title = ProductRemovedTitle
		return
	}
	i.Title = p.Title
}

// ValidStatuses returns all order statuses in forward order.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusAccepted,
		OrderStatusPacked,
		OrderStatusDelivered,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	return statusRank(status) >= 0
}

func statusRank(status string) int {
	for i, s := range ValidStatuses() {
		if s == status {
			return i
		}
	}
	return -1
}

// CanTransitionTo checks whether the order may move to target. Without strict,
// any valid label is accepted from any state. With strict, the target must be
// later in the sequence, which makes Delivered terminal.
func (o *Order) CanTransitionTo(target string, strict bool) bool {
	if !IsValidStatus(target) {
		return false
	}
	if !strict {
		return true
	}
	return statusRank(target) > statusRank(o.Status)
}

// OwnedEntirelyBy reports whether every line item references a product owned
// by farmerID. Items whose product was deleted are owned by nobody.
func (o *Order) OwnedEntirelyBy(farmerID string) bool {
	if farmerID == "" || len(o.Items) == 0 {
		return false
	}
	for _, item := range o.Items {
		if item.Product == nil || item.Product.FarmerID != farmerID {
			return false
		}
	}
	return true
}

// InvolvesFarmer reports whether at least one line item references a product
// owned by farmerID.
func (o *Order) InvolvesFarmer(farmerID string) bool {
	for _, item := range o.Items {
		if item.Product != nil && item.Product.FarmerID == farmerID {
			return true
		}
	}
	return false
}

// ContainsProduct reports whether any line item references productID.
func (o *Order) ContainsProduct(productID string) bool {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// LineItem is a requested order line before pricing.
type LineItem struct {
	ProductID string
	Quantity  int
}

// PriceQuote is the availability and price snapshot of one product, read at
// the instant of order creation.
type PriceQuote struct {
	ProductID   string
	Title       string
	Price       Money
	ImageURL    string
	FarmerID    string
	IsAvailable bool
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID *string
	Status *string
}
