package dto

// RoleUpdateRequest payload for PUT /admin/users/:id/role.
type RoleUpdateRequest struct {
	Role string `json:"role"`
}

// StatsResponse summarizes accounts for the admin dashboard.
type StatsResponse struct {
	TotalUsers  int64 `json:"total_users"`
	BannedUsers int64 `json:"banned_users"`
}
