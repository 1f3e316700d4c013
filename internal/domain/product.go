package domain

import "time"

// Product is a catalog listing owned by a farmer. Price is in minor units.
type Product struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Price       Money          `json:"price"`
	Category    string         `json:"category"`
	ImageURL    string         `json:"imageUrl"`
	IsAvailable bool           `json:"isAvailable"`
	FarmerID    string         `json:"farmerId"`
	Farmer      *FarmerSummary `json:"farmer,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// FarmerSummary is the owning farmer as shown alongside a product.
type FarmerSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsApproved bool   `json:"isApproved"`
	IsBlocked  bool   `json:"isBlocked"`
}

// IsOwnedBy reports whether farmerID owns the product.
func (p *Product) IsOwnedBy(farmerID string) bool {
	return farmerID != "" && p.FarmerID == farmerID
}

// IsListable reports whether the product belongs to an approved, unblocked
// farmer and may appear in the public catalog.
func (p *Product) IsListable() bool {
	return p.Farmer != nil && p.Farmer.IsApproved && !p.Farmer.IsBlocked
}

// ProductPatch is a partial product update. Nil fields are left untouched;
// the owning farmer can never be changed.
type ProductPatch struct {
	Title       *string
	Description *string
	Price       *Money
	Category    *string
	ImageURL    *string
	IsAvailable *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p ProductPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Price == nil &&
		p.Category == nil && p.ImageURL == nil && p.IsAvailable == nil
}

// Apply copies the set fields onto product.
func (p ProductPatch) Apply(product *Product) {
	if p.Title != nil {
		product.Title = *p.Title
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.ImageURL != nil {
		product.ImageURL = *p.ImageURL
	}
	if p.IsAvailable != nil {
		product.IsAvailable = *p.IsAvailable
	}
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	FarmerID     *string
	Category     *string
	Search       *string
	ListableOnly bool
}
