// Package policy decides who may perform which marketplace action. Every
// mutating service operation consults Authorize before touching a store.
package policy

import (
	"github.com/utafrali/FarmMarket/internal/domain"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

// Action names an operation subject to authorization.
type Action string

// Actions, grouped by resource.
const (
	CreateProduct   Action = "product.create"
	UpdateProduct   Action = "product.update"
	DeleteProduct   Action = "product.delete"
	ListOwnProducts Action = "product.list_own"

	CreateOrder       Action = "order.create"
	ListOwnOrders     Action = "order.list_own"
	ListFarmerOrders  Action = "order.list_farmer"
	ViewOrder         Action = "order.view"
	UpdateOrderStatus Action = "order.update_status"

	CreateReview   Action = "review.create"
	ListOwnReviews Action = "review.list_own"

	ViewFarmerStats   Action = "stats.farmer"
	ViewCustomerStats Action = "stats.customer"

	ViewProfile   Action = "profile.view"
	UpdateProfile Action = "profile.update"

	ListUsers       Action = "admin.list_users"
	ApproveUser     Action = "admin.approve_user"
	BlockUser       Action = "admin.block_user"
	DeleteUser      Action = "admin.delete_user"
	ListAllProducts Action = "admin.list_products"
	ListAllOrders   Action = "admin.list_orders"
	ViewAdminStats  Action = "admin.stats"
)

// Reason identifies why an action was denied. Values double as error codes.
type Reason string

// Denial reasons.
const (
	ReasonUnauthenticated  Reason = "UNAUTHENTICATED"
	ReasonBlocked          Reason = "BLOCKED"
	ReasonForbiddenRole    Reason = "FORBIDDEN_ROLE"
	ReasonNotApproved      Reason = "NOT_APPROVED"
	ReasonNotOwner         Reason = "NOT_OWNER"
	ReasonPartialOwnership Reason = "PARTIAL_OWNERSHIP"
	ReasonProtectedAccount Reason = "PROTECTED_ACCOUNT"
)

type ownership int

const (
	ownerNone ownership = iota
	// Target.OwnerID must be the actor.
	ownerDirect
	// Every line item of Target.Order must be the actor's product.
	ownerWholeOrder
	// Placing customer, or a farmer owning every line item.
	ownerOrderViewer
)

type rule struct {
	roles []string
	// Mutating actions are denied to blocked accounts.
	mutating bool
	// Farmers must be approved.
	approval  bool
	ownership ownership
	// Admin target accounts are untouchable.
	protectAdmins bool
}

var (
	anyRole       = []string{domain.RoleAdmin, domain.RoleFarmer, domain.RoleCustomer}
	farmerOrAdmin = []string{domain.RoleFarmer, domain.RoleAdmin}
	onlyFarmer    = []string{domain.RoleFarmer}
	onlyCustomer  = []string{domain.RoleCustomer}
	onlyAdmin     = []string{domain.RoleAdmin}
)

var rules = map[Action]rule{
	CreateProduct:   {roles: farmerOrAdmin, mutating: true, approval: true},
	UpdateProduct:   {roles: farmerOrAdmin, mutating: true, ownership: ownerDirect},
	DeleteProduct:   {roles: farmerOrAdmin, mutating: true, ownership: ownerDirect},
	ListOwnProducts: {roles: onlyFarmer},

	CreateOrder:       {roles: onlyCustomer, mutating: true},
	ListOwnOrders:     {roles: onlyCustomer},
	ListFarmerOrders:  {roles: farmerOrAdmin},
	ViewOrder:         {roles: anyRole, ownership: ownerOrderViewer},
	UpdateOrderStatus: {roles: farmerOrAdmin, mutating: true, ownership: ownerWholeOrder},

	CreateReview:   {roles: onlyCustomer, mutating: true},
	ListOwnReviews: {roles: onlyCustomer},

	ViewFarmerStats:   {roles: onlyFarmer},
	ViewCustomerStats: {roles: onlyCustomer},

	ViewProfile:   {roles: anyRole},
	UpdateProfile: {roles: anyRole, mutating: true},

	ListUsers:       {roles: onlyAdmin},
	ApproveUser:     {roles: onlyAdmin, mutating: true, protectAdmins: true},
	BlockUser:       {roles: onlyAdmin, mutating: true, protectAdmins: true},
	DeleteUser:      {roles: onlyAdmin, mutating: true, protectAdmins: true},
	ListAllProducts: {roles: onlyAdmin},
	ListAllOrders:   {roles: onlyAdmin},
	ViewAdminStats:  {roles: onlyAdmin},
}

// Actor is the identity performing an operation. A nil Actor is anonymous.
type Actor struct {
	ID         string
	Role       string
	IsApproved bool
	IsBlocked  bool
}

// ActorFromUser builds an actor from the stored account, so moderation flags
// reflect current state rather than what a token claimed at issue time.
func ActorFromUser(u *domain.User) *Actor {
	if u == nil {
		return nil
	}
	return &Actor{ID: u.ID, Role: u.Role, IsApproved: u.IsApproved, IsBlocked: u.IsBlocked}
}

// IsAdmin reports whether the actor holds the admin role.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == domain.RoleAdmin
}

// Target is the entity an action applies to. Only the fields relevant to the
// action need to be set.
type Target struct {
	OwnerID string
	Order   *domain.Order
	Account *domain.User
}

// None is the target of actions that apply to no particular entity.
var None = Target{}

// ProductTarget targets a product owned by its farmer.
func ProductTarget(p *domain.Product) Target {
	return Target{OwnerID: p.FarmerID}
}

// OrderTarget targets an order owned by its customer.
func OrderTarget(o *domain.Order) Target {
	return Target{OwnerID: o.UserID, Order: o}
}

// AccountTarget targets a user account.
func AccountTarget(u *domain.User) Target {
	return Target{OwnerID: u.ID, Account: u}
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

var allow = Decision{Allowed: true}

func deny(reason Reason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

// Err converts a denial into an application error; it is nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonUnauthenticated {
		return apperrors.Unauthenticated(d.Message)
	}
	return apperrors.Denied(string(d.Reason), d.Message)
}

// Authorize decides whether actor may perform action on target. Rules apply in
// order and the first match wins: unauthenticated, blocked, role, approval,
// ownership, protected account.
func Authorize(actor *Actor, action Action, target Target) Decision {
	r, ok := rules[action]
	if !ok {
		return deny(ReasonForbiddenRole, "unknown action")
	}

	if d := checkActor(r, actor); !d.Allowed {
		return d
	}

	if d := checkOwnership(r.ownership, actor, target); !d.Allowed {
		return d
	}

	if r.protectAdmins && target.Account != nil && target.Account.IsAdmin() {
		return deny(ReasonProtectedAccount, "Admin accounts cannot be modified")
	}

	return allow
}

// Precheck applies the rules that depend on the actor alone. Services call it
// before loading a target so a caller who may never perform action is denied
// without learning whether the target exists.
func Precheck(actor *Actor, action Action) Decision {
	r, ok := rules[action]
	if !ok {
		return deny(ReasonForbiddenRole, "unknown action")
	}
	return checkActor(r, actor)
}

func checkActor(r rule, actor *Actor) Decision {
	if actor == nil || actor.ID == "" {
		return deny(ReasonUnauthenticated, "not authorized, no token")
	}

	if r.mutating && actor.IsBlocked {
		return deny(ReasonBlocked, "Account is blocked")
	}

	if !hasRole(r.roles, actor.Role) {
		return deny(ReasonForbiddenRole, "Access denied for role "+actor.Role)
	}

	if r.approval && actor.Role == domain.RoleFarmer && !actor.IsApproved {
		return deny(ReasonNotApproved, "Farmer account not approved yet")
	}

	return allow
}

func checkOwnership(kind ownership, actor *Actor, target Target) Decision {
	if kind == ownerNone || actor.IsAdmin() {
		return allow
	}

	switch kind {
	case ownerDirect:
		if target.OwnerID != actor.ID {
			return deny(ReasonNotOwner, "Not allowed to modify this resource")
		}
	case ownerWholeOrder:
		if target.Order == nil {
			return deny(ReasonNotOwner, "Not allowed to update this order")
		}
		if target.Order.OwnedEntirelyBy(actor.ID) {
			return allow
		}
		if target.Order.InvolvesFarmer(actor.ID) {
			return deny(ReasonPartialOwnership, "Not allowed to update this order: it contains products of other farmers")
		}
		return deny(ReasonNotOwner, "Not allowed to update this order")
	case ownerOrderViewer:
		if target.Order == nil {
			return deny(ReasonNotOwner, "Not allowed to view this order")
		}
		if target.Order.UserID == actor.ID {
			return allow
		}
		if actor.Role == domain.RoleFarmer && target.Order.OwnedEntirelyBy(actor.ID) {
			return allow
		}
		return deny(ReasonNotOwner, "Not allowed to view this order")
	}
	return allow
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
