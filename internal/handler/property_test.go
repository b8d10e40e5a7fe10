package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/lodging-listings/internal/geocode"
	"github.com/iliyamo/lodging-listings/internal/middleware"
	"github.com/iliyamo/lodging-listings/internal/model"
	"github.com/iliyamo/lodging-listings/internal/queue"
	"github.com/iliyamo/lodging-listings/internal/repository"
	"github.com/iliyamo/lodging-listings/internal/search"
)

type fakeStore struct {
	mu      sync.Mutex // guards props during Update
	props   map[uint64]*model.Property
	nextID  uint64
	failAll error
}

func newFakeStore() *fakeStore { return &fakeStore{props: map[uint64]*model.Property{}, nextID: 1} }

func (s *fakeStore) Create(_ context.Context, p *model.Property) (*model.Property, error) {
	if s.failAll != nil {
		return nil, s.failAll
	}
	if p.Coordinates == nil {
		return nil, &repository.ValidationError{Field: "coordinates", Reason: "is required"}
	}
	p.ID = s.nextID
	s.nextID++
	s.props[p.ID] = p
	return p, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uint64) (*model.Property, error) {
	if p, ok := s.props[id]; ok {
		return p, nil
	}
	return nil, repository.ErrPropertyNotFound
}

func (s *fakeStore) Update(_ context.Context, id uint64, p *model.Property, caller model.Caller) (*model.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.props[id]
	if !ok {
		return nil, repository.ErrPropertyNotFound
	}
	if err := repository.RequireOwnerOrAdmin(caller, cur.HostID); err != nil {
		return nil, err
	}
	p.ID, p.HostID = id, cur.HostID
	s.props[id] = p
	return p, nil
}

func (s *fakeStore) Delete(_ context.Context, id uint64, caller model.Caller) error {
	if err := repository.RequireAdmin(caller); err != nil {
		return err
	}
	if _, ok := s.props[id]; !ok {
		return repository.ErrPropertyNotFound
	}
	delete(s.props, id)
	return nil
}

func (s *fakeStore) List(_ context.Context, caller model.Caller) ([]model.PropertySummary, error) {
	out := []model.PropertySummary{}
	for _, p := range s.props {
		if caller.IsAdmin() || p.HostID == caller.ID {
			out = append(out, model.PropertySummary{ID: p.ID, HostID: p.HostID, Name: p.Name})
		}
	}
	return out, nil
}

func (s *fakeStore) RoomsByProperty(ctx context.Context, id uint64) ([]model.Room, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Rooms, nil
}

func (s *fakeStore) RoomByID(_ context.Context, id uint64) (*model.Room, uint64, error) {
	for _, p := range s.props {
		for i := range p.Rooms {
			if p.Rooms[i].ID == id {
				return &p.Rooms[i], p.ID, nil
			}
		}
	}
	return nil, 0, repository.ErrRoomNotFound
}

type recordingPublisher struct{ events []queue.PropertyEvent }

func (r *recordingPublisher) Publish(_ context.Context, ev queue.PropertyEvent) error {
	r.events = append(r.events, ev)
	return errors.New("broker down")
}

type stubGeocoder struct {
	pt  model.GeoPoint
	err error
}

func (g stubGeocoder) Geocode(context.Context, model.Address) (model.GeoPoint, error) { return g.pt, g.err }

type envelope struct {
	Status  string          `json:"status"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, h echo.HandlerFunc, method, target, body string, caller *model.Caller, params ...string) (int, envelope) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	if caller != nil {
		c.Set("caller", *caller)
	}
	if err := h(c); err != nil {
		t.Fatalf("handler returned %v", err)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return rec.Code, env
}

const createBody = `{
	"name": "Harbour View",
	"address": {"street": "1 Quay St", "city": "Valletta", "country": "Malta"},
	"property_type": "hotel",
	"rooms": [{"id": 3, "name": "Sea room", "beds": [{"type": "king", "count": 1}], "pricing": {"base_price": "100", "tax_rate_percent": "10"}}]
}`

var (
	hostCaller  = model.Caller{ID: 42, Role: model.RoleHost}
	adminCaller = model.Caller{ID: 1, Role: model.RoleAdmin}
)

func TestCallerKeyMatchesMiddleware(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set("caller", hostCaller)
	if got, ok := middleware.CallerFrom(c); !ok || got != hostCaller {
		t.Fatalf("CallerFrom = %+v, %v", got, ok)
	}
}

func TestCreateGeocodesAndPublishes(t *testing.T) {
	store := newFakeStore()
	pub := &recordingPublisher{}
	h := &PropertyHandler{Store: store, Events: pub, Geocoder: stubGeocoder{pt: model.GeoPoint{Latitude: 35.9, Longitude: 14.5}}}

	code, env := do(t, h.Create, http.MethodPost, "/v1/properties", createBody, &hostCaller)
	if code != http.StatusCreated || env.Status != "success" {
		t.Fatalf("status %d env %+v", code, env)
	}
	p := store.props[1]
	if p.HostID != 42 || p.Coordinates == nil || p.Coordinates.Latitude != 35.9 {
		t.Fatalf("stored %+v", p)
	}
	// a failing broker does not fail the request
	if len(pub.events) != 1 || pub.events[0].Type != queue.PropertyCreated {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestCreateErrors(t *testing.T) {
	cases := []struct {
		name string
		h    *PropertyHandler
		body string
		code int
		kind string
	}{
		{"contract violation", &PropertyHandler{Store: newFakeStore()}, `{"name":"x"}`, http.StatusBadRequest, "validation"},
		{"no coordinates without geocoder", &PropertyHandler{Store: newFakeStore()}, createBody, http.StatusBadRequest, "validation"},
		{"geocoder no match", &PropertyHandler{Store: newFakeStore(), Geocoder: stubGeocoder{err: geocode.ErrNoMatch}}, createBody, http.StatusBadGateway, "external_service"},
		{"geocoder down", &PropertyHandler{Store: newFakeStore(), Geocoder: stubGeocoder{err: &geocode.ExternalServiceError{Err: errors.New("dial")}}}, createBody, http.StatusBadGateway, "external_service"},
		{"storage failure", &PropertyHandler{Store: &fakeStore{failAll: &repository.PersistenceError{Op: "create property", Err: errors.New("deadlock")}}, Geocoder: stubGeocoder{}}, createBody, http.StatusInternalServerError, "persistence"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := do(t, tc.h.Create, http.MethodPost, "/v1/properties", tc.body, &hostCaller)
			if code != tc.code || env.Kind != tc.kind || env.Status != "error" {
				t.Fatalf("status %d env %+v", code, env)
			}
		})
	}
}

func TestGetUpdateDelete(t *testing.T) {
	store := newFakeStore()
	store.props[7] = &model.Property{ID: 7, HostID: 42, Name: "Old"}
	h := &PropertyHandler{Store: store}

	if code, env := do(t, h.Get, http.MethodGet, "/v1/properties/8", "", nil, "id", "8"); code != http.StatusNotFound || env.Kind != "not_found" {
		t.Fatalf("missing: %d %+v", code, env)
	}
	if code, _ := do(t, h.Get, http.MethodGet, "/v1/properties/abc", "", nil, "id", "abc"); code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", code)
	}

	body := strings.Replace(createBody, `"property_type"`, `"coordinates": {"latitude": 1, "longitude": 2}, "property_type"`, 1)
	other := model.Caller{ID: 99, Role: model.RoleHost}
	if code, env := do(t, h.Update, http.MethodPut, "/v1/properties/7", body, &other, "id", "7"); code != http.StatusForbidden || env.Kind != "authorization" {
		t.Fatalf("non-owner update: %d %+v", code, env)
	}
	if code, _ := do(t, h.Update, http.MethodPut, "/v1/properties/7", body, &hostCaller, "id", "7"); code != http.StatusOK {
		t.Fatalf("owner update: %d", code)
	}
	if store.props[7].Name != "Harbour View" || store.props[7].HostID != 42 {
		t.Fatalf("after update %+v", store.props[7])
	}

	if code, _ := do(t, h.Delete, http.MethodDelete, "/v1/properties/7", "", &hostCaller, "id", "7"); code != http.StatusForbidden {
		t.Fatalf("host delete: %d", code)
	}
	code, env := do(t, h.Delete, http.MethodDelete, "/v1/properties/7", "", &adminCaller, "id", "7")
	if code != http.StatusOK || string(env.Data) != `{"id":7}` {
		t.Fatalf("admin delete: %d %s", code, env.Data)
	}
	if code, _ := do(t, h.Delete, http.MethodDelete, "/v1/properties/7", "", &adminCaller, "id", "7"); code != http.StatusNotFound {
		t.Fatalf("second delete: %d", code)
	}
}

func TestConcurrentUpdatesLastWriterWins(t *testing.T) {
	store := newFakeStore()
	store.props[7] = &model.Property{ID: 7, HostID: 42, Name: "Old"}
	h := &PropertyHandler{Store: store}

	writer := func(name string) string {
		b := strings.Replace(createBody, `"Harbour View"`, `"`+name+`"`, 1)
		b = strings.Replace(b, `"Sea room"`, `"`+name+` room"`, 1)
		return strings.Replace(b, `"property_type"`, `"coordinates": {"latitude": 1, "longitude": 2}, "property_type"`, 1)
	}
	names := []string{"Writer A", "Writer B"}

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(body string) {
			defer wg.Done()
			e := echo.New()
			req := httptest.NewRequest(http.MethodPut, "/v1/properties/7", strings.NewReader(body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetParamNames("id")
			c.SetParamValues("7")
			c.Set("caller", hostCaller)
			_ = h.Update(c)
		}(writer(name))
	}
	wg.Wait()

	// the stored aggregate is exactly one writer's document, never a mix
	final := store.props[7]
	if final.Name != names[0] && final.Name != names[1] {
		t.Fatalf("final name = %q", final.Name)
	}
	if len(final.Rooms) != 1 || final.Rooms[0].Name != final.Name+" room" {
		t.Fatalf("rooms %+v do not belong to writer %q", final.Rooms, final.Name)
	}
}

func TestRoomEndpoints(t *testing.T) {
	store := newFakeStore()
	store.props[7] = &model.Property{ID: 7, HostID: 42, Rooms: []model.Room{{
		ID: 3, Name: "Sea room",
		Pricing: model.Pricing{BasePrice: decimal.RequireFromString("100"), CleaningFee: decimal.RequireFromString("30"), TaxRatePercent: decimal.RequireFromString("10")},
	}}}
	h := &PropertyHandler{Store: store}

	code, env := do(t, h.Room, http.MethodGet, "/v1/rooms/3", "", nil, "id", "3")
	if code != http.StatusOK {
		t.Fatalf("room: %d", code)
	}
	var view struct {
		PropertyID uint64 `json:"property_id"`
		Price      struct {
			Total decimal.Decimal `json:"total"`
		} `json:"price"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatal(err)
	}
	if view.PropertyID != 7 || !view.Price.Total.Equal(decimal.RequireFromString("143")) {
		t.Fatalf("view = %+v", view)
	}

	if code, _ := do(t, h.Room, http.MethodGet, "/v1/rooms/4", "", nil, "id", "4"); code != http.StatusNotFound {
		t.Fatalf("missing room: %d", code)
	}
	if code, _ := do(t, h.Rooms, http.MethodGet, "/v1/properties/8/rooms", "", nil, "id", "8"); code != http.StatusNotFound {
		t.Fatalf("rooms of missing property: %d", code)
	}
}

type fakeSearcher struct {
	calls []search.Query
	hitAt float64 // radius at which a result appears
}

func (f *fakeSearcher) Search(_ context.Context, q search.Query) (search.Result, error) {
	f.calls = append(f.calls, q)
	if q.RadiusKm <= 0 {
		return search.Result{}, search.ErrInvalidQuery
	}
	res := search.Result{Hits: []search.Hit{}, RadiusKm: q.RadiusKm}
	if f.hitAt > 0 && q.RadiusKm >= f.hitAt {
		res.Matched = 1
		res.Hits = []search.Hit{{Candidate: search.Candidate{ID: 1}}}
	}
	return res, nil
}

func TestSearchQueryParams(t *testing.T) {
	s := &fakeSearcher{hitAt: 1}
	h := &PropertyHandler{Searcher: s, DefaultRadiusKm: 10}

	code, _ := do(t, h.Search, http.MethodGet, "/v1/properties/search?lat=45&lon=25&guests=3&type=Hotel&limit=5", "", nil)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	q := s.calls[0]
	if q.Latitude != 45 || q.RadiusKm != 10 || q.Guests != 3 || q.PropertyType != model.PropertyHotel || q.Limit != 5 {
		t.Fatalf("query = %+v", q)
	}

	if code, env := do(t, h.Search, http.MethodGet, "/v1/properties/search?lon=25", "", nil); code != http.StatusBadRequest || env.Kind != "validation" {
		t.Fatalf("missing lat: %d %+v", code, env)
	}
}

func TestSearchWidensOnRequest(t *testing.T) {
	s := &fakeSearcher{hitAt: 60}
	h := &PropertyHandler{Searcher: s, Widen: search.DefaultWidenPolicy}

	code, env := do(t, h.Search, http.MethodPost, "/v1/properties/search", `{"lat":45,"lon":25,"radius":10,"widen":true}`, nil)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	var res search.Result
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.Matched != 1 || res.RadiusKm != 60 || !res.Widened {
		t.Fatalf("result = %+v", res)
	}

	s = &fakeSearcher{hitAt: 60}
	h.Searcher = s
	_, env = do(t, h.Search, http.MethodPost, "/v1/properties/search", `{"lat":45,"lon":25,"radius":10,"widen":true,"max_radius":40}`, nil)
	_ = json.Unmarshal(env.Data, &res)
	if res.Matched != 0 || res.RadiusKm != 40 {
		t.Fatalf("capped result = %+v", res)
	}
}

func TestSearchMaxRadiusClampedToCeiling(t *testing.T) {
	s := &fakeSearcher{}
	h := &PropertyHandler{Searcher: s, Widen: search.DefaultWidenPolicy}

	code, env := do(t, h.Search, http.MethodGet, "/v1/properties/search?lat=45&lon=25&radius=10&widen=true&max_radius=1000000", "", nil)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	// 10, 35, 60, 85, 100
	if len(s.calls) != 5 {
		t.Fatalf("searches issued = %d, want 5", len(s.calls))
	}
	var res search.Result
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.RadiusKm != 100 {
		t.Fatalf("final radius = %v, want 100", res.RadiusKm)
	}
}

func TestCreateRejectsUnknownAmenityCategory(t *testing.T) {
	store := newFakeStore()
	h := &PropertyHandler{Store: store, Geocoder: stubGeocoder{}}
	body := strings.Replace(createBody, `"property_type"`, `"amenities": {"spa": ["sauna"], "general": ["wifi"]}, "property_type"`, 1)

	code, env := do(t, h.Create, http.MethodPost, "/v1/properties", body, &hostCaller)
	if code != http.StatusBadRequest || env.Kind != "validation" {
		t.Fatalf("status %d env %+v", code, env)
	}
	if len(store.props) != 0 {
		t.Fatalf("stored %d properties", len(store.props))
	}
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	if code, _ := do(t, Health(pinger{}), http.MethodGet, "/healthz", "", nil); code != http.StatusOK {
		t.Fatalf("healthy: %d", code)
	}
	if code, _ := do(t, Health(pinger{err: errors.New("down")}), http.MethodGet, "/healthz", "", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: %d", code)
	}
}
