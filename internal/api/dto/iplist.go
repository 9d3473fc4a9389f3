package dto

import (
	"analyst/internal/database"
	"analyst/internal/domain"
)

type IPListCreateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type IPListUpdateRequest struct {
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type IPList struct {
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedBy   string    `json:"created_by"`
	IsActive    bool      `json:"is_active"`
	CreatedOn   Timestamp `json:"created_on"`
}

type IPListResponse struct {
	IPList IPList `json:"iplist"`
}

type IPListsResponse struct {
	IPLists []IPList `json:"iplists"`
}

// ItemsRequest is the body of both membership mutations. Note is ignored on
// removal.
type ItemsRequest struct {
	IPs  []string `json:"ips"`
	Note *string  `json:"note"`
}

type ItemsAddedResponse struct {
	RequestedIPs   []string `json:"requested_ips"`
	CreatedIPs     []string `json:"created_ips"`
	IPsAddedToList []string `json:"ips_added_to_list"`
}

type ItemsRemovedResponse struct {
	CountRemoved int64    `json:"count_removed"`
	RequestedIPs []string `json:"requested_ips"`
}

type ListItem struct {
	IP        string    `json:"ip"`
	Note      *string   `json:"note"`
	AddedBy   string    `json:"added_by"`
	CreatedOn Timestamp `json:"created_on"`
}

type ListItemsResponse struct {
	IPList IPList     `json:"iplist"`
	Items  []ListItem `json:"items"`
}

func FromIPList(l domain.IPList) IPList {
	return IPList{
		Name:        l.Name,
		Description: l.Description,
		CreatedBy:   l.CreatedBy.Username,
		IsActive:    l.IsActive,
		CreatedOn:   Timestamp(l.CreatedOn),
	}
}

func FromIPLists(lists []domain.IPList) []IPList {
	out := make([]IPList, 0, len(lists))
	for _, l := range lists {
		out = append(out, FromIPList(l))
	}
	return out
}

func FromMembership(result database.MembershipResult) ItemsAddedResponse {
	return ItemsAddedResponse{
		RequestedIPs:   result.Requested,
		CreatedIPs:     result.Created,
		IPsAddedToList: result.Linked,
	}
}

func FromMembers(members []database.Member) []ListItem {
	out := make([]ListItem, 0, len(members))
	for _, m := range members {
		out = append(out, ListItem{
			IP:        m.IP,
			Note:      m.Note,
			AddedBy:   m.AddedBy,
			CreatedOn: Timestamp(m.CreatedOn),
		})
	}
	return out
}
