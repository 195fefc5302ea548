package models

// UserRole represents the roles issued by the identity provider.
type UserRole string

const (
	RoleAdminStaff UserRole = "ADMINSTAFF"
	RoleTutor      UserRole = "TUTOR"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NormalizePage clamps page and size to sane defaults.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
