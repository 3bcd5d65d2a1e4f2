package entity

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleOperator UserRole = "operator"
	RoleAdmin    UserRole = "admin"
)

type Capability string

const (
	CapBookOwn          Capability = "booking:own"
	CapManageBookings   Capability = "booking:manage"
	CapSettlePayments   Capability = "payment:settle"
	CapDecideRefunds    Capability = "refund:decide"
	CapManageDepartures Capability = "departure:manage"
	CapViewAnalytics    Capability = "analytics:view"
)

var roleCapabilities = map[UserRole][]Capability{
	RoleCustomer: {CapBookOwn},
	RoleOperator: {CapBookOwn, CapManageBookings, CapSettlePayments, CapManageDepartures},
	RoleAdmin: {
		CapBookOwn, CapManageBookings, CapSettlePayments,
		CapDecideRefunds, CapManageDepartures, CapViewAnalytics,
	},
}

func (r UserRole) IsValid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

func (r UserRole) Can(c Capability) bool {
	for _, have := range roleCapabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}

type User struct {
	Base
	Username     string   `db:"username"`
	Email        string   `db:"email"`
	PasswordHash string   `db:"password"`
	Phone        *string  `db:"phone"`
	Role         UserRole `db:"role"`
	IsActive     bool     `db:"is_active"`
}
