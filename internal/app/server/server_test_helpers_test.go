package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"

	"analyst/internal/api/dto"
	"analyst/internal/database"
	"analyst/internal/domain"
	"analyst/internal/events"
	"analyst/internal/geolite"
	"analyst/internal/metrics"
)

const (
	adminName     = "superuser"
	adminPassword = "correct horse battery"
)

type fakeLookup struct {
	asn         map[string]geolite.ASNRecord
	city        map[string]geolite.CityRecord
	unavailable bool
}

func (f fakeLookup) normalize(ip string) (string, error) {
	if f.unavailable {
		return "", geolite.ErrUnavailable
	}
	normalized, err := domain.NormalizeIP(ip)
	if err != nil {
		return "", geolite.ErrInvalidAddress
	}
	return normalized, nil
}

func (f fakeLookup) ASN(ip string) (geolite.ASNRecord, error) {
	normalized, err := f.normalize(ip)
	if err != nil {
		return geolite.ASNRecord{}, err
	}
	record, ok := f.asn[normalized]
	if !ok {
		return geolite.ASNRecord{}, geolite.ErrNoRecord
	}
	return record, nil
}

func (f fakeLookup) City(ip string) (geolite.CityRecord, error) {
	normalized, err := f.normalize(ip)
	if err != nil {
		return geolite.CityRecord{}, err
	}
	record, ok := f.city[normalized]
	if !ok {
		return geolite.CityRecord{}, geolite.ErrNoRecord
	}
	return record, nil
}

func (f fakeLookup) ASNBatch(ips []string) ([]geolite.ASNRecord, error) {
	out := make([]geolite.ASNRecord, 0, len(ips))
	for _, ip := range ips {
		record, err := f.ASN(ip)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (f fakeLookup) CityBatch(ips []string) ([]geolite.CityRecord, error) {
	out := make([]geolite.CityRecord, 0, len(ips))
	for _, ip := range ips {
		record, err := f.City(ip)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func defaultLookup() fakeLookup {
	return fakeLookup{
		asn: map[string]geolite.ASNRecord{
			"1.1.1.1": {IP: "1.1.1.1", Number: 13335, Organization: "CLOUDFLARENET"},
			"9.9.9.9": {IP: "9.9.9.9", Number: 19281, Organization: "QUAD9-AS-1"},
		},
		city: map[string]geolite.CityRecord{
			"1.1.1.1": {IP: "1.1.1.1", Continent: "Oceania", Country: "Australia", Latitude: -33.494, Longitude: 143.2104},
			"9.9.9.9": {IP: "9.9.9.9", City: "Berkeley", Continent: "North America", Country: "United States", Latitude: 37.8767, Longitude: -122.2676},
		},
	}
}

type testEnv struct {
	t          *testing.T
	handler    http.Handler
	events     *events.Recorder
	metrics    *metrics.Metrics
	adminToken string
}

func newTestEnv(t *testing.T, geo Lookup) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(
		database.WithDialector(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name))),
		database.WithLogger(logger.Default.LogMode(logger.Silent)),
		database.WithMaxOpenConns(1),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	env := &testEnv{
		t:       t,
		events:  &events.Recorder{},
		metrics: metrics.New(),
	}
	env.handler = New(Deps{
		DB:         db,
		Geo:        geo,
		Events:     env.events,
		Metrics:    env.metrics,
		APIVersion: "v1",
	}).Handler()

	return env
}

// bootstrap runs /init and remembers the admin token.
func (e *testEnv) bootstrap() *testEnv {
	e.t.Helper()

	rec := e.do(http.MethodPost, "/init", "", dto.InitRequest{Username: adminName, Password: adminPassword})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp dto.InitResponse
	decode(e.t, rec, &resp)
	require.NotEmpty(e.t, resp.Token)
	e.adminToken = resp.Token
	return e
}

func (e *testEnv) request(method, path string, body any) *http.Request {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	req := e.request(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	return e.serve(req)
}

func (e *testEnv) doBasic(method, path, username, password string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	req := e.request(method, path, body)
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	req.Header.Set("Authorization", "Basic "+creds)
	return e.serve(req)
}

// createUser creates an account as admin and returns its token.
func (e *testEnv) createUser(username string, manager bool) string {
	e.t.Helper()

	password := "password-" + username
	rec := e.do(http.MethodPost, "/users", e.adminToken, dto.UserCreateRequest{
		Username:  &username,
		Password:  &password,
		IsManager: &manager,
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(http.MethodGet, "/tokens/"+username, e.adminToken, nil)
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())

	var token dto.TokenResponse
	decode(e.t, rec, &token)
	return token.Token
}

func (e *testEnv) createList(name, token string) {
	e.t.Helper()

	rec := e.do(http.MethodPost, "/iplists", token, dto.IPListCreateRequest{Name: name})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}
