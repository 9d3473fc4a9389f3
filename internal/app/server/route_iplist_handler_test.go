package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"analyst/internal/api/dto"
	"analyst/internal/events"
)

func TestIPListPermissions(t *testing.T) {
	env := newTestEnv(t, defaultLookup()).bootstrap()
	userToken := env.createUser("viewer", false)
	managerToken := env.createUser("moderator", true)

	rec := env.do(http.MethodPost, "/iplists", userToken, dto.IPListCreateRequest{Name: "blocked"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	env.createList("blocked", managerToken)

	rec = env.do(http.MethodPost, "/iplists", env.adminToken, dto.IPListCreateRequest{Name: "blocked"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/iplists", env.adminToken, dto.IPListCreateRequest{Name: "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusForbidden, env.do(http.MethodPut, "/iplists/blocked", userToken, map[string]any{"is_active": false}).Code)
	require.Equal(t, http.StatusForbidden, env.do(http.MethodDelete, "/iplists/blocked", userToken, nil).Code)
	require.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/iplists/blocked/items", userToken, dto.ItemsRequest{IPs: []string{"1.1.1.1"}}).Code)
	require.Equal(t, http.StatusForbidden, env.do(http.MethodDelete, "/iplists/blocked/items", userToken, dto.ItemsRequest{IPs: []string{"1.1.1.1"}}).Code)

	rec = env.do(http.MethodGet, "/iplists/blocked", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got dto.IPListResponse
	decode(t, rec, &got)
	require.Equal(t, "blocked", got.IPList.Name)
	require.Equal(t, "moderator", got.IPList.CreatedBy)
	require.True(t, got.IPList.IsActive)
	require.Nil(t, got.IPList.Description)
}

func TestIPListUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t, defaultLookup()).bootstrap()
	env.createList("test-list", env.adminToken)

	rec := env.do(http.MethodPut, "/iplists/test-list", env.adminToken, map[string]any{"description": "scanners", "is_active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated dto.IPListResponse
	decode(t, rec, &updated)
	require.Equal(t, "scanners", *updated.IPList.Description)
	require.False(t, updated.IPList.IsActive)

	rec = env.do(http.MethodPut, "/iplists/test-list", env.adminToken, map[string]any{"is_active": true})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &updated)
	require.Equal(t, "scanners", *updated.IPList.Description)
	require.True(t, updated.IPList.IsActive)

	require.Equal(t, http.StatusNotFound, env.do(http.MethodPut, "/iplists/missing", env.adminToken, map[string]any{"is_active": true}).Code)

	rec = env.do(http.MethodGet, "/iplists", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lists dto.IPListsResponse
	decode(t, rec, &lists)
	require.Len(t, lists.IPLists, 1)

	require.Equal(t, http.StatusOK, env.do(http.MethodDelete, "/iplists/test-list", env.adminToken, nil).Code)
	require.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/iplists/test-list", env.adminToken, nil).Code)
	require.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/iplists/test-list", env.adminToken, nil).Code)

	types := make([]string, 0, len(env.events.Events))
	for _, event := range env.events.Events {
		types = append(types, event.Type)
	}
	require.Equal(t, []string{events.TypeListCreated, events.TypeListUpdated, events.TypeListUpdated, events.TypeListDeleted}, types)
}

func TestAddItemsIsIdempotent(t *testing.T) {
	env := newTestEnv(t, defaultLookup()).bootstrap()
	env.createList("test-list", env.adminToken)

	body := map[string]any{"ips": []string{"1.1.1.1", "9.9.9.9"}, "note": "n"}

	rec := env.do(http.MethodPost, "/iplists/test-list/items", env.adminToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first dto.ItemsAddedResponse
	decode(t, rec, &first)
	require.Equal(t, []string{"1.1.1.1", "9.9.9.9"}, first.RequestedIPs)
	require.ElementsMatch(t, []string{"1.1.1.1", "9.9.9.9"}, first.CreatedIPs)
	require.ElementsMatch(t, []string{"1.1.1.1", "9.9.9.9"}, first.IPsAddedToList)

	rec = env.do(http.MethodPost, "/iplists/test-list/items", env.adminToken, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second dto.ItemsAddedResponse
	decode(t, rec, &second)
	require.Empty(t, second.CreatedIPs)
	require.Empty(t, second.IPsAddedToList)
	require.Contains(t, rec.Body.String(), `"created_ips":[]`)

	rec = env.do(http.MethodGet, "/iplists/test-list/items", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items dto.ListItemsResponse
	decode(t, rec, &items)
	require.Equal(t, "test-list", items.IPList.Name)
	require.Len(t, items.Items, 2)
	require.Equal(t, "1.1.1.1", items.Items[0].IP)
	require.Equal(t, "n", *items.Items[0].Note)
	require.Equal(t, adminName, items.Items[0].AddedBy)
}

func TestAddItemsReusesInternedAddresses(t *testing.T) {
	env := newTestEnv(t, defaultLookup()).bootstrap()
	env.createList("list-a", env.adminToken)
	env.createList("list-b", env.adminToken)

	rec := env.do(http.MethodPost, "/iplists/list-a/items", env.adminToken, dto.ItemsRequest{IPs: []string{"1.1.1.1"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/iplists/list-b/items", env.adminToken, dto.ItemsRequest{IPs: []string{"1.1.1.1"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.ItemsAddedResponse
	decode(t, rec, &resp)
	require.Empty(t, resp.CreatedIPs)
	require.Equal(t, []string{"1.1.1.1"}, resp.IPsAddedToList)
}

func TestAddItemsRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, defaultLookup()).bootstrap()
	env.createList("test-list", env.adminToken)

	cases := []struct {
		name string
		body any
		want int
	}{
		{name: "invalid address", body: dto.ItemsRequest{IPs: []string{"1.1.1.1", "not-an-ip"}}, want: http.StatusBadRequest},
		{name: "empty list", body: dto.ItemsRequest{IPs: []string{}}, want: http.StatusBadRequest},
		{name: "missing ips", body: map[string]any{"note": "x"}, want: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/iplists/test-list/items", env.adminToken, tc.body)
			require.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(http.MethodPost, "/iplists/missing/items", env.adminToken, dto.ItemsRequest{IPs: []string{"1.1.1.1"}})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/iplists/test-list/items", env.adminToken, nil)
	var items dto.ListItemsResponse
	decode(t, rec, &items)
	require.Empty(t, items.Items)
}

func TestRemoveItems(t *testing.T) {
	env := newTestEnv(t, defaultLookup()).bootstrap()
	env.createList("test-list", env.adminToken)

	rec := env.do(http.MethodPost, "/iplists/test-list/items", env.adminToken, dto.ItemsRequest{IPs: []string{"1.1.1.1", "9.9.9.9"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodDelete, "/iplists/test-list/items", env.adminToken, dto.ItemsRequest{IPs: []string{"8.8.8.8"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var none dto.ItemsRemovedResponse
	decode(t, rec, &none)
	require.Zero(t, none.CountRemoved)
	require.Equal(t, []string{"8.8.8.8"}, none.RequestedIPs)

	rec = env.do(http.MethodDelete, "/iplists/test-list/items", env.adminToken, dto.ItemsRequest{IPs: []string{"1.1.1.1", "8.8.8.8"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var some dto.ItemsRemovedResponse
	decode(t, rec, &some)
	require.EqualValues(t, 1, some.CountRemoved)

	require.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/iplists/missing/items", env.adminToken, dto.ItemsRequest{IPs: []string{"1.1.1.1"}}).Code)

	rec = env.do(http.MethodGet, "/iplists/test-list/items", env.adminToken, nil)
	var items dto.ListItemsResponse
	decode(t, rec, &items)
	require.Len(t, items.Items, 1)
	require.Equal(t, "9.9.9.9", items.Items[0].IP)

	// Removed addresses stay interned and can be linked again without
	// being created twice.
	rec = env.do(http.MethodPost, "/iplists/test-list/items", env.adminToken, dto.ItemsRequest{IPs: []string{"1.1.1.1"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var readded dto.ItemsAddedResponse
	decode(t, rec, &readded)
	require.Empty(t, readded.CreatedIPs)
	require.Equal(t, []string{"1.1.1.1"}, readded.IPsAddedToList)
}

func TestMembershipMetricsAndEvents(t *testing.T) {
	env := newTestEnv(t, defaultLookup()).bootstrap()
	env.createList("test-list", env.adminToken)

	env.do(http.MethodPost, "/iplists/test-list/items", env.adminToken, dto.ItemsRequest{IPs: []string{"1.1.1.1", "9.9.9.9"}})
	env.do(http.MethodPost, "/iplists/test-list/items", env.adminToken, dto.ItemsRequest{IPs: []string{"1.1.1.1"}})

	last := env.events.Events[len(env.events.Events)-1]
	require.Equal(t, events.TypeItemsAdded, last.Type)
	require.Equal(t, "test-list", last.List)
	require.Equal(t, adminName, last.Actor)
	require.Equal(t, []string{"1.1.1.1", "9.9.9.9"}, last.IPs)

	rec := httptest.NewRecorder()
	env.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	require.True(t, strings.Contains(text, "analyst_list_items_interned_total 2"), text)
	require.True(t, strings.Contains(text, "analyst_list_items_linked_total 2"), text)
	require.True(t, strings.Contains(text, `route="POST /api/v1/iplists/{name}/items"`), text)
}
