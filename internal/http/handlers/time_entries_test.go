package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/chronolog/internal/domain/subject"
	"github.com/geocoder89/chronolog/internal/domain/timeentry"
	"github.com/geocoder89/chronolog/internal/http/handlers"
	"github.com/geocoder89/chronolog/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Fake repository implementation of handlers.TimeEntriesStore

type fakeEntriesRepo struct {
	getFn       func(ctx context.Context, userID, id string) (timeentry.TimeEntry, error)
	insertFn    func(ctx context.Context, userID, subjectID, date string, durationMinutes int, notes *string) (timeentry.TimeEntry, error)
	overwriteFn func(ctx context.Context, userID, subjectID, date string, durationMinutes int, notes *string) (timeentry.TimeEntry, error)
	listFn      func(ctx context.Context, userID string, filter timeentry.ListFilter) ([]timeentry.TimeEntry, int, error)
	updateFn    func(ctx context.Context, userID, id string, req timeentry.UpdateTimeEntryRequest) (timeentry.TimeEntry, error)
	deleteFn    func(ctx context.Context, userID, id string) error
}

func (f *fakeEntriesRepo) GetByID(ctx context.Context, userID, id string) (timeentry.TimeEntry, error) {
	if f.getFn != nil {
		return f.getFn(ctx, userID, id)
	}

	return timeentry.TimeEntry{ID: id}, nil
}

func (f *fakeEntriesRepo) Insert(ctx context.Context, userID, subjectID, date string, durationMinutes int, notes *string) (timeentry.TimeEntry, error) {
	if f.insertFn != nil {
		return f.insertFn(ctx, userID, subjectID, date, durationMinutes, notes)
	}

	return timeentry.TimeEntry{ID: uuid.NewString(), SubjectID: subjectID, Date: date, DurationMinutes: durationMinutes, Notes: notes}, nil
}

func (f *fakeEntriesRepo) OverwriteOnDate(ctx context.Context, userID, subjectID, date string, durationMinutes int, notes *string) (timeentry.TimeEntry, error) {
	if f.overwriteFn != nil {
		return f.overwriteFn(ctx, userID, subjectID, date, durationMinutes, notes)
	}

	return timeentry.TimeEntry{}, timeentry.ErrNotFound
}

func (f *fakeEntriesRepo) List(ctx context.Context, userID string, filter timeentry.ListFilter) ([]timeentry.TimeEntry, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID, filter)
	}

	return []timeentry.TimeEntry{}, 0, nil
}

func (f *fakeEntriesRepo) Update(ctx context.Context, userID, id string, req timeentry.UpdateTimeEntryRequest) (timeentry.TimeEntry, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, userID, id, req)
	}

	return timeentry.TimeEntry{ID: id}, nil
}

func (f *fakeEntriesRepo) Delete(ctx context.Context, userID, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, userID, id)
	}

	return nil
}

// Fake implementation of handlers.SubjectResolver

type fakeSubjectResolver struct {
	getFn    func(ctx context.Context, userID, id string) (subject.Subject, error)
	ensureFn func(ctx context.Context, userID, name string) (string, error)
}

func (f *fakeSubjectResolver) GetByID(ctx context.Context, userID, id string) (subject.Subject, error) {
	if f.getFn != nil {
		return f.getFn(ctx, userID, id)
	}

	return subject.Subject{ID: id}, nil
}

func (f *fakeSubjectResolver) EnsureByName(ctx context.Context, userID, name string) (string, error) {
	if f.ensureFn != nil {
		return f.ensureFn(ctx, userID, name)
	}

	return uuid.NewString(), nil
}

func newEntriesRouter(userID string, repo *fakeEntriesRepo, subjects *fakeSubjectResolver) *gin.Engine {
	h := handlers.NewTimeEntriesHandler(repo, subjects, testConfig())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		middlewares.SetIdentity(c, userID, "alice@example.com")
	})

	r.POST("/time-entries", h.Create)
	r.GET("/time-entries", h.List)
	r.GET("/time-entries/:id", h.Get)
	r.PUT("/time-entries/:id", h.Update)
	r.DELETE("/time-entries/:id", h.Delete)

	return r
}

func TestCreateEntry_BySubjectName(t *testing.T) {
	resolvedID := uuid.NewString()

	subjects := &fakeSubjectResolver{
		ensureFn: func(_ context.Context, _, name string) (string, error) {
			if name != "Maths" {
				t.Fatalf("unexpected subject name: %s", name)
			}
			return resolvedID, nil
		},
	}

	repo := &fakeEntriesRepo{
		insertFn: func(_ context.Context, _, subjectID, date string, durationMinutes int, notes *string) (timeentry.TimeEntry, error) {
			if subjectID != resolvedID {
				t.Fatalf("entry created against subject %q, want %q", subjectID, resolvedID)
			}
			if date != "2026-03-01" {
				t.Fatalf("unexpected date: %s", date)
			}
			return timeentry.TimeEntry{ID: uuid.NewString(), SubjectID: subjectID, Date: date, DurationMinutes: durationMinutes}, nil
		},
	}

	r := newEntriesRouter(uuid.NewString(), repo, subjects)

	w := postJSON(t, r, "/time-entries", `{"subject_name":"Maths","date":"2026-03-01","duration_minutes":90}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}
}

func TestCreateEntry_NoSubjectGiven(t *testing.T) {
	r := newEntriesRouter(uuid.NewString(), &fakeEntriesRepo{}, &fakeSubjectResolver{})

	w := postJSON(t, r, "/time-entries", `{"duration_minutes":90}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestCreateEntry_DefaultsToToday(t *testing.T) {
	var gotDate string

	repo := &fakeEntriesRepo{
		insertFn: func(_ context.Context, _, subjectID, date string, durationMinutes int, notes *string) (timeentry.TimeEntry, error) {
			gotDate = date
			return timeentry.TimeEntry{ID: uuid.NewString(), Date: date}, nil
		},
	}

	r := newEntriesRouter(uuid.NewString(), repo, &fakeSubjectResolver{})

	w := postJSON(t, r, "/time-entries", `{"subject_id":"`+uuid.NewString()+`","duration_minutes":30}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if len(gotDate) != len("2006-01-02") {
		t.Fatalf("date not defaulted to a YYYY-MM-DD value: %q", gotDate)
	}
}

func TestCreateEntry_ConflictCarriesLatestAndHint(t *testing.T) {
	existing := timeentry.TimeEntry{
		ID:              uuid.NewString(),
		SubjectID:       uuid.NewString(),
		SubjectName:     "Maths",
		Date:            "2026-03-01",
		DurationMinutes: 60,
	}

	repo := &fakeEntriesRepo{
		insertFn: func(_ context.Context, _, _, _ string, _ int, _ *string) (timeentry.TimeEntry, error) {
			return timeentry.TimeEntry{}, &timeentry.ConflictError{Latest: existing}
		},
	}

	r := newEntriesRouter(uuid.NewString(), repo, &fakeSubjectResolver{})

	w := postJSON(t, r, "/time-entries", `{"subject_id":"`+existing.SubjectID+`","date":"2026-03-01","duration_minutes":90}`)

	if w.Code != http.StatusConflict {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusConflict, w.Body.String())
	}

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				LatestEntry timeentry.TimeEntry `json:"latest_entry"`
				Hint        string              `json:"hint"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if resp.Error.Code != "CONFLICT" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}

	if resp.Error.Details.LatestEntry.ID != existing.ID {
		t.Fatalf("latest_entry not embedded: %+v", resp.Error.Details)
	}

	if resp.Error.Details.Hint == "" {
		t.Fatal("conflict response missing hint")
	}
}

func TestCreateEntry_OverwriteReusesExistingRow(t *testing.T) {
	existingID := uuid.NewString()

	overwriteCalled := false

	repo := &fakeEntriesRepo{
		overwriteFn: func(_ context.Context, _, subjectID, date string, durationMinutes int, _ *string) (timeentry.TimeEntry, error) {
			overwriteCalled = true
			return timeentry.TimeEntry{ID: existingID, SubjectID: subjectID, Date: date, DurationMinutes: durationMinutes}, nil
		},
		insertFn: func(_ context.Context, _, _, _ string, _ int, _ *string) (timeentry.TimeEntry, error) {
			t.Fatal("insert should not run when the overwrite found a row")
			return timeentry.TimeEntry{}, nil
		},
	}

	r := newEntriesRouter(uuid.NewString(), repo, &fakeSubjectResolver{})

	w := postJSON(t, r, "/time-entries", `{"subject_id":"`+uuid.NewString()+`","date":"2026-03-01","duration_minutes":90,"overwrite_latest_overlap":true}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if !overwriteCalled {
		t.Fatal("overwrite path was not taken")
	}

	var resp struct {
		Data timeentry.TimeEntry `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if resp.Data.ID != existingID {
		t.Fatalf("overwrite should preserve the original id, got %q", resp.Data.ID)
	}
}

func TestCreateEntry_OverwriteFallsBackToInsert(t *testing.T) {
	inserted := false

	repo := &fakeEntriesRepo{
		// default overwriteFn returns ErrNotFound
		insertFn: func(_ context.Context, _, subjectID, date string, durationMinutes int, notes *string) (timeentry.TimeEntry, error) {
			inserted = true
			return timeentry.TimeEntry{ID: uuid.NewString(), Date: date}, nil
		},
	}

	r := newEntriesRouter(uuid.NewString(), repo, &fakeSubjectResolver{})

	w := postJSON(t, r, "/time-entries", `{"subject_id":"`+uuid.NewString()+`","date":"2026-03-01","duration_minutes":90,"overwrite_latest_overlap":true}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if !inserted {
		t.Fatal("free date with overwrite flag should fall back to insert")
	}
}

func TestCreateEntry_DurationOutOfRange(t *testing.T) {
	r := newEntriesRouter(uuid.NewString(), &fakeEntriesRepo{}, &fakeSubjectResolver{})

	for _, body := range []string{
		`{"subject_id":"` + uuid.NewString() + `","duration_minutes":0}`,
		`{"subject_id":"` + uuid.NewString() + `","duration_minutes":1441}`,
	} {
		w := postJSON(t, r, "/time-entries", body)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("got status %d for %s, want %d", w.Code, body, http.StatusBadRequest)
		}
	}
}

func TestListEntries_PaginationAndTotalHeader(t *testing.T) {
	var gotFilter timeentry.ListFilter

	repo := &fakeEntriesRepo{
		listFn: func(_ context.Context, _ string, filter timeentry.ListFilter) ([]timeentry.TimeEntry, int, error) {
			gotFilter = filter
			return []timeentry.TimeEntry{{ID: uuid.NewString()}, {ID: uuid.NewString()}}, 4, nil
		},
	}

	r := newEntriesRouter(uuid.NewString(), repo, &fakeSubjectResolver{})

	req := httptest.NewRequest(http.MethodGet, "/time-entries?limit=2&page=2&start=2026-03-01&end=2026-03-31", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if w.Header().Get("X-Total-Count") != "4" {
		t.Fatalf("X-Total-Count = %q, want 4", w.Header().Get("X-Total-Count"))
	}

	if gotFilter.Limit != 2 || gotFilter.Offset != 2 {
		t.Fatalf("filter = %+v, want limit 2 offset 2", gotFilter)
	}

	if gotFilter.Start == nil || *gotFilter.Start != "2026-03-01" {
		t.Fatalf("start bound not passed through: %+v", gotFilter)
	}
}

func TestListEntries_LimitClamped(t *testing.T) {
	var gotFilter timeentry.ListFilter

	repo := &fakeEntriesRepo{
		listFn: func(_ context.Context, _ string, filter timeentry.ListFilter) ([]timeentry.TimeEntry, int, error) {
			gotFilter = filter
			return nil, 0, nil
		},
	}

	r := newEntriesRouter(uuid.NewString(), repo, &fakeSubjectResolver{})

	req := httptest.NewRequest(http.MethodGet, "/time-entries?limit=1000", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}

	if gotFilter.Limit != 200 {
		t.Fatalf("limit = %d, want clamp to 200", gotFilter.Limit)
	}
}

func TestListEntries_BadDateRejected(t *testing.T) {
	r := newEntriesRouter(uuid.NewString(), &fakeEntriesRepo{}, &fakeSubjectResolver{})

	req := httptest.NewRequest(http.MethodGet, "/time-entries?start=March-1st", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUpdateEntry_ForeignSubjectIsNotFound(t *testing.T) {
	subjects := &fakeSubjectResolver{
		getFn: func(_ context.Context, _, _ string) (subject.Subject, error) {
			return subject.Subject{}, subject.ErrNotFound
		},
	}

	r := newEntriesRouter(uuid.NewString(), &fakeEntriesRepo{}, subjects)

	req := httptest.NewRequest(http.MethodPut, "/time-entries/"+uuid.NewString(), jsonBody(`{"subject_id":"`+uuid.NewString()+`"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusNotFound, w.Body.String())
	}
}

func TestDeleteEntry_NoContent(t *testing.T) {
	deleted := false

	repo := &fakeEntriesRepo{
		deleteFn: func(_ context.Context, _, _ string) error {
			deleted = true
			return nil
		},
	}

	r := newEntriesRouter(uuid.NewString(), repo, &fakeSubjectResolver{})

	req := httptest.NewRequest(http.MethodDelete, "/time-entries/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusNoContent)
	}

	if !deleted {
		t.Fatal("delete was not forwarded to the repo")
	}
}

func TestDeleteEntry_Missing(t *testing.T) {
	repo := &fakeEntriesRepo{
		deleteFn: func(_ context.Context, _, _ string) error {
			return timeentry.ErrNotFound
		},
	}

	r := newEntriesRouter(uuid.NewString(), repo, &fakeSubjectResolver{})

	req := httptest.NewRequest(http.MethodDelete, "/time-entries/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusNotFound)
	}
}
