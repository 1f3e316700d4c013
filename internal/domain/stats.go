package domain

// AdminStats is the marketplace-wide dashboard.
type AdminStats struct {
	Users    UserCounts    `json:"users"`
	Products ProductCounts `json:"products"`
	Orders   OrderCounts   `json:"orders"`
	Revenue  Money         `json:"revenue"`
}

// UserCounts breaks down accounts by role and moderation state.
type UserCounts struct {
	Total          int `json:"total"`
	Farmers        int `json:"farmers"`
	Customers      int `json:"customers"`
	PendingFarmers int `json:"pendingFarmers"`
	BlockedUsers   int `json:"blockedUsers"`
}

// ProductCounts counts catalog entries.
type ProductCounts struct {
	Total int `json:"total"`
}

// OrderCounts counts orders, grouped by status.
type OrderCounts struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

// ReviewCounts counts reviews.
type ReviewCounts struct {
	Total int `json:"total"`
}

// FarmerStats is a farmer's own dashboard.
type FarmerStats struct {
	Products ProductCounts `json:"products"`
	Orders   OrderCounts   `json:"orders"`
	Revenue  Money         `json:"revenue"`
}

// CustomerStats is a customer's own dashboard.
type CustomerStats struct {
	Orders     OrderCounts  `json:"orders"`
	Reviews    ReviewCounts `json:"reviews"`
	TotalSpent Money        `json:"totalSpent"`
}

// TallyOrders groups orders by status and sums TotalAmount over Delivered
// orders only.
func TallyOrders(orders []Order) (OrderCounts, Money) {
	counts := OrderCounts{Total: len(orders), ByStatus: map[string]int{}}
	var delivered Money
	for _, o := range orders {
		counts.ByStatus[o.Status]++
		if o.Status == OrderStatusDelivered {
			delivered += o.TotalAmount
		}
	}
	return counts, delivered
}
