package domain

import "time"

// IPList is a named, owned collection of addresses.
type IPList struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"uniqueIndex;not null;size:255"`
	Description *string `gorm:"type:text"`
	IsActive    bool    `gorm:"not null"`

	CreatedByID uint `gorm:"not null;index"`
	CreatedBy   User `gorm:"foreignKey:CreatedByID"`

	CreatedOn  time.Time `gorm:"autoCreateTime"`
	ModifiedOn time.Time `gorm:"autoUpdateTime"`
}

func (IPList) TableName() string {
	return "ip_lists"
}

// ListItem is an interned address. One row exists per distinct address no
// matter how many lists reference it.
type ListItem struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	IP        string    `gorm:"size:45;uniqueIndex;not null"`
	CreatedOn time.Time `gorm:"autoCreateTime"`
}

func (ListItem) TableName() string {
	return "list_items"
}

// IPListItem links a ListItem to an IPList. The pair is unique.
type IPListItem struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement"`
	IPListID   uint    `gorm:"not null;uniqueIndex:idx_ip_list_items_membership"`
	ListItemID uint64  `gorm:"not null;uniqueIndex:idx_ip_list_items_membership;index"`
	AddedByID  uint    `gorm:"not null"`
	Note       *string `gorm:"size:255"`

	IPList   IPList   `gorm:"foreignKey:IPListID;constraint:OnDelete:CASCADE;" json:"-"`
	ListItem ListItem `gorm:"foreignKey:ListItemID" json:"-"`
	AddedBy  User     `gorm:"foreignKey:AddedByID" json:"-"`

	CreatedOn time.Time `gorm:"autoCreateTime"`
}

func (IPListItem) TableName() string {
	return "ip_list_items"
}
