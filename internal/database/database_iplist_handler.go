package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"analyst/internal/domain"
)

const maxListNameLength = 255

// IPListPatch holds optional list changes; nil fields stay untouched.
type IPListPatch struct {
	Description *string
	IsActive    *bool
}

// MembershipResult describes one bulk add. Created holds the addresses that
// had to be interned, Linked the ones newly attached to the list. Linked can
// be larger than Created because an address interned for another list is
// reused.
type MembershipResult struct {
	Requested []string
	Created   []string
	Linked    []string
}

func (m MembershipResult) Changed() bool {
	return len(m.Created) > 0 || len(m.Linked) > 0
}

// Member is one address on a list together with its edge metadata.
type Member struct {
	IP        string    `gorm:"column:ip"`
	Note      *string   `gorm:"column:note"`
	AddedBy   string    `gorm:"column:added_by"`
	CreatedOn time.Time `gorm:"column:created_on"`
}

type IPListRepository struct {
	db *gorm.DB
}

func NewIPListRepository(db *gorm.DB) *IPListRepository {
	return &IPListRepository{db: db}
}

func normalizeListName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || len(name) > maxListNameLength || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: list name %q", ErrInvalidInput, raw)
	}
	return name, nil
}

func (r *IPListRepository) Create(ctx context.Context, name string, description *string, owner domain.User) (domain.IPList, error) {
	normalized, err := normalizeListName(name)
	if err != nil {
		return domain.IPList{}, err
	}

	list := domain.IPList{
		Name:        normalized,
		Description: description,
		IsActive:    true,
		CreatedByID: owner.ID,
	}

	if err := r.db.WithContext(ctx).Create(&list).Error; err != nil {
		return domain.IPList{}, fmt.Errorf("create list %s: %w", normalized, translateError(err))
	}

	list.CreatedBy = owner
	return list, nil
}

func (r *IPListRepository) Get(ctx context.Context, name string) (domain.IPList, error) {
	return findList(r.db.WithContext(ctx).Preload("CreatedBy"), name)
}

func findList(tx *gorm.DB, name string) (domain.IPList, error) {
	var list domain.IPList
	if err := tx.Where("name = ?", strings.TrimSpace(name)).First(&list).Error; err != nil {
		return domain.IPList{}, translateError(err)
	}
	return list, nil
}

func (r *IPListRepository) List(ctx context.Context) ([]domain.IPList, error) {
	var lists []domain.IPList
	if err := r.db.WithContext(ctx).Preload("CreatedBy").Order("name ASC").Find(&lists).Error; err != nil {
		return nil, err
	}
	return lists, nil
}

// Update applies patch to the named list and returns the stored row.
func (r *IPListRepository) Update(ctx context.Context, name string, patch IPListPatch) (domain.IPList, error) {
	updates := map[string]any{}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	var list domain.IPList
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := findList(tx, name)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&found).Updates(updates).Error; err != nil {
				return translateError(err)
			}
		}
		list, err = findList(tx.Preload("CreatedBy"), name)
		return err
	})
	if err != nil {
		return domain.IPList{}, err
	}
	return list, nil
}

// Delete removes the named list and its membership edges. Interned
// addresses are global and stay.
func (r *IPListRepository) Delete(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list, err := findList(tx, name)
		if err != nil {
			return err
		}
		if err := tx.Where("ip_list_id = ?", list.ID).Delete(&domain.IPListItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&list).Error
	})
}

// AddItems interns any unseen addresses and links every requested address
// that is not yet on the list. Repeating the call is a no-op.
func (r *IPListRepository) AddItems(ctx context.Context, name string, ips []string, note *string, addedBy domain.User) (MembershipResult, error) {
	requested, err := domain.NormalizeIPs(ips)
	if err != nil {
		return MembershipResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if len(requested) == 0 {
		return MembershipResult{}, fmt.Errorf("%w: no addresses given", ErrInvalidInput)
	}

	result := MembershipResult{
		Requested: requested,
		Created:   []string{},
		Linked:    []string{},
	}
	note = domain.TrimNote(note)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list, err := findList(tx, name)
		if err != nil {
			return err
		}

		itemIDs, err := internedItemIDs(tx, requested)
		if err != nil {
			return err
		}

		existing := make([]string, 0, len(itemIDs))
		fresh := make([]domain.ListItem, 0, len(requested)-len(itemIDs))
		for _, ip := range requested {
			if _, ok := itemIDs[ip]; ok {
				existing = append(existing, ip)
				continue
			}
			fresh = append(fresh, domain.ListItem{IP: ip})
		}

		if len(fresh) > 0 {
			if err := tx.CreateInBatches(&fresh, inBatchSize).Error; err != nil {
				return fmt.Errorf("intern addresses: %w", translateError(err))
			}
			for _, item := range fresh {
				itemIDs[item.IP] = item.ID
				result.Created = append(result.Created, item.IP)
			}
		}

		linked, err := linkedAddresses(tx, list.ID, existing)
		if err != nil {
			return err
		}

		edges := make([]domain.IPListItem, 0, len(requested))
		for _, ip := range requested {
			if _, ok := linked[ip]; ok {
				continue
			}
			edges = append(edges, domain.IPListItem{
				IPListID:   list.ID,
				ListItemID: itemIDs[ip],
				AddedByID:  addedBy.ID,
				Note:       note,
			})
			result.Linked = append(result.Linked, ip)
		}

		if len(edges) > 0 {
			if err := tx.CreateInBatches(&edges, inBatchSize).Error; err != nil {
				return fmt.Errorf("link addresses: %w", translateError(err))
			}
		}

		return nil
	})
	if err != nil {
		return MembershipResult{}, err
	}

	return result, nil
}

// internedItemIDs maps every already interned address in ips to its item id.
func internedItemIDs(tx *gorm.DB, ips []string) (map[string]uint64, error) {
	ids := make(map[string]uint64, len(ips))
	for _, batch := range chunkStrings(ips, inBatchSize) {
		var items []domain.ListItem
		if err := tx.Where("ip IN ?", batch).Find(&items).Error; err != nil {
			return nil, err
		}
		for _, item := range items {
			ids[item.IP] = item.ID
		}
	}
	return ids, nil
}

// linkedAddresses returns the subset of ips already linked to the list.
func linkedAddresses(tx *gorm.DB, listID uint, ips []string) (map[string]struct{}, error) {
	linked := make(map[string]struct{}, len(ips))
	for _, batch := range chunkStrings(ips, inBatchSize) {
		var found []string
		err := tx.Model(&domain.IPListItem{}).
			Joins("JOIN list_items ON list_items.id = ip_list_items.list_item_id").
			Where("ip_list_items.ip_list_id = ? AND list_items.ip IN ?", listID, batch).
			Pluck("list_items.ip", &found).Error
		if err != nil {
			return nil, err
		}
		for _, ip := range found {
			linked[ip] = struct{}{}
		}
	}
	return linked, nil
}

// RemoveItems deletes the list's edges for ips and reports how many went away.
// Addresses that are not on the list are ignored.
func (r *IPListRepository) RemoveItems(ctx context.Context, name string, ips []string) (int64, []string, error) {
	requested, err := domain.NormalizeIPs(ips)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var removed int64
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list, err := findList(tx, name)
		if err != nil {
			return err
		}

		for _, batch := range chunkStrings(requested, inBatchSize) {
			itemIDs := tx.Model(&domain.ListItem{}).Select("id").Where("ip IN ?", batch)
			res := tx.Where("ip_list_id = ? AND list_item_id IN (?)", list.ID, itemIDs).
				Delete(&domain.IPListItem{})
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return removed, requested, nil
}

// Items returns the named list and its members ordered by address.
func (r *IPListRepository) Items(ctx context.Context, name string) (domain.IPList, []Member, error) {
	list, err := r.Get(ctx, name)
	if err != nil {
		return domain.IPList{}, nil, err
	}

	members := []Member{}
	err = r.db.WithContext(ctx).
		Table("ip_list_items").
		Select("list_items.ip AS ip, ip_list_items.note AS note, users.username AS added_by, ip_list_items.created_on AS created_on").
		Joins("JOIN list_items ON list_items.id = ip_list_items.list_item_id").
		Joins("JOIN users ON users.id = ip_list_items.added_by_id").
		Where("ip_list_items.ip_list_id = ?", list.ID).
		Order("list_items.ip ASC").
		Scan(&members).Error
	if err != nil {
		return domain.IPList{}, nil, err
	}

	return list, members, nil
}

// CountListItems returns how many interned rows exist for ip.
func (r *IPListRepository) CountListItems(ctx context.Context, ip string) (int64, error) {
	normalized, err := domain.NormalizeIP(ip)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	var count int64
	err = r.db.WithContext(ctx).Model(&domain.ListItem{}).Where("ip = ?", normalized).Count(&count).Error
	return count, err
}

// IsInvalidInput reports whether err stems from rejected caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
