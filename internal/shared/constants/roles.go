package constants

// Roles carried in the JWT "role" claim.
const (
	ROLE_ADMIN = "ADMIN"
	ROLE_STAFF = "STAFF"
	ROLE_USER  = "USER"
)
