package location

type createRequest struct {
	Name      string `json:"name" binding:"required"`
	Slug      string `json:"slug" binding:"required"`
	Address   string `json:"address"`
	ManagerID string `json:"manager_id"`
}

type updateRequest struct {
	Name      *string `json:"name"`
	Address   *string `json:"address"`
	ManagerID *string `json:"manager_id"`
	Enabled   *bool   `json:"enabled"`
}
