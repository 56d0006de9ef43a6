package models

// LocationModel is a physical place with a token display. Tokens are bound to
// a location; attendance events record which location the scan happened at.
type LocationModel struct {
	Base
	Name      string `json:"name"       gorm:"not null"`
	Slug      string `json:"slug"       gorm:"uniqueIndex;not null"`
	Address   string `json:"address"`
	ManagerID string `json:"manager_id" gorm:"index"` // optional; restricts issuance to this admin
	Enabled   bool   `json:"enabled"    gorm:"default:true;index"`
}

func (LocationModel) TableName() string { return "locations" }
