package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/chronolog/internal/domain/subject"
	"github.com/geocoder89/chronolog/internal/http/handlers"
	"github.com/geocoder89/chronolog/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Fake repository implementation of handlers.SubjectsStore

type fakeSubjectsRepo struct {
	listFn   func(ctx context.Context, userID string) ([]subject.Subject, error)
	createFn func(ctx context.Context, userID, name string, color *string) (subject.Subject, error)
	getFn    func(ctx context.Context, userID, id string) (subject.Subject, error)
	renameFn func(ctx context.Context, userID, id, newName string) (subject.Subject, error)
	joinFn   func(ctx context.Context, userID, sourceID, targetID string, deleteSource bool) (subject.JoinResult, error)
}

func (f *fakeSubjectsRepo) ListByUser(ctx context.Context, userID string) ([]subject.Subject, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID)
	}

	return []subject.Subject{}, nil
}

func (f *fakeSubjectsRepo) Create(ctx context.Context, userID, name string, color *string) (subject.Subject, error) {
	if f.createFn != nil {
		return f.createFn(ctx, userID, name, color)
	}

	return subject.Subject{ID: uuid.NewString(), Name: name, Color: color}, nil
}

func (f *fakeSubjectsRepo) GetByID(ctx context.Context, userID, id string) (subject.Subject, error) {
	if f.getFn != nil {
		return f.getFn(ctx, userID, id)
	}

	return subject.Subject{ID: id}, nil
}

func (f *fakeSubjectsRepo) Rename(ctx context.Context, userID, id, newName string) (subject.Subject, error) {
	if f.renameFn != nil {
		return f.renameFn(ctx, userID, id, newName)
	}

	return subject.Subject{ID: id, Name: newName}, nil
}

func (f *fakeSubjectsRepo) Join(ctx context.Context, userID, sourceID, targetID string, deleteSource bool) (subject.JoinResult, error) {
	if f.joinFn != nil {
		return f.joinFn(ctx, userID, sourceID, targetID, deleteSource)
	}

	return subject.JoinResult{TargetSubjectID: targetID}, nil
}

func newSubjectsRouter(userID string, repo *fakeSubjectsRepo) *gin.Engine {
	h := handlers.NewSubjectsHandler(repo)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		middlewares.SetIdentity(c, userID, "alice@example.com")
	})

	r.GET("/subjects", h.List)
	r.POST("/subjects", h.Create)
	r.PUT("/subjects/:id/rename", h.Rename)
	r.POST("/subjects/join", h.Join)

	return r
}

func TestCreateSubject_Conflict(t *testing.T) {
	repo := &fakeSubjectsRepo{
		createFn: func(_ context.Context, _, _ string, _ *string) (subject.Subject, error) {
			return subject.Subject{}, subject.ErrNameTaken
		},
	}

	r := newSubjectsRouter(uuid.NewString(), repo)

	w := postJSON(t, r, "/subjects", `{"name":"Maths"}`)

	if w.Code != http.StatusConflict {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusConflict, w.Body.String())
	}

	resp := decodeError(t, w)

	if resp.Error.Code != "CONFLICT" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}
}

func TestCreateSubject_ReturnsSubject(t *testing.T) {
	userID := uuid.NewString()

	repo := &fakeSubjectsRepo{
		createFn: func(_ context.Context, gotUserID, name string, color *string) (subject.Subject, error) {
			if gotUserID != userID {
				t.Fatalf("got user %q, want %q", gotUserID, userID)
			}
			if color == nil || *color != "#ff0000" {
				t.Fatalf("color not passed through: %v", color)
			}
			return subject.Subject{ID: uuid.NewString(), Name: name, Color: color}, nil
		},
	}

	r := newSubjectsRouter(userID, repo)

	w := postJSON(t, r, "/subjects", `{"name":"Maths","color":"#ff0000"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp struct {
		Data subject.Subject `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if resp.Data.Name != "Maths" {
		t.Fatalf("unexpected subject name: %q", resp.Data.Name)
	}
}

func TestListSubjects_ETagRoundTrip(t *testing.T) {
	repo := &fakeSubjectsRepo{
		listFn: func(_ context.Context, _ string) ([]subject.Subject, error) {
			return []subject.Subject{{ID: "fixed-id", Name: "Maths"}}, nil
		},
	}

	r := newSubjectsRouter(uuid.NewString(), repo)

	req := httptest.NewRequest(http.MethodGet, "/subjects", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag header")
	}

	req = httptest.NewRequest(http.MethodGet, "/subjects", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusNotModified)
	}
}

func TestRenameSubject_NotFound(t *testing.T) {
	repo := &fakeSubjectsRepo{
		renameFn: func(_ context.Context, _, _, _ string) (subject.Subject, error) {
			return subject.Subject{}, subject.ErrNotFound
		},
	}

	r := newSubjectsRouter(uuid.NewString(), repo)

	req := httptest.NewRequest(http.MethodPut, "/subjects/"+uuid.NewString()+"/rename", jsonBody(`{"new_name":"Physics"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRenameSubject_MalformedIDIsNotFound(t *testing.T) {
	r := newSubjectsRouter(uuid.NewString(), &fakeSubjectsRepo{})

	req := httptest.NewRequest(http.MethodPut, "/subjects/not-a-uuid/rename", jsonBody(`{"new_name":"Physics"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestJoinSubjects_SameIDRejected(t *testing.T) {
	r := newSubjectsRouter(uuid.NewString(), &fakeSubjectsRepo{})

	id := uuid.NewString()

	w := postJSON(t, r, "/subjects/join", `{"source_subject_id":"`+id+`","target_subject_id":"`+id+`"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestJoinSubjects_SourceMissing(t *testing.T) {
	source := uuid.NewString()
	target := uuid.NewString()

	repo := &fakeSubjectsRepo{
		getFn: func(_ context.Context, _, id string) (subject.Subject, error) {
			if id == source {
				return subject.Subject{}, subject.ErrNotFound
			}
			return subject.Subject{ID: id}, nil
		},
	}

	r := newSubjectsRouter(uuid.NewString(), repo)

	w := postJSON(t, r, "/subjects/join", `{"source_subject_id":"`+source+`","target_subject_id":"`+target+`"}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusNotFound)
	}

	resp := decodeError(t, w)

	if resp.Error.Message != "Source subject not found" {
		t.Fatalf("unexpected message: %q", resp.Error.Message)
	}
}

func TestJoinSubjects_DeleteSourceDefaultsTrue(t *testing.T) {
	source := uuid.NewString()
	target := uuid.NewString()

	var gotDeleteSource *bool

	repo := &fakeSubjectsRepo{
		joinFn: func(_ context.Context, _, _, targetID string, deleteSource bool) (subject.JoinResult, error) {
			gotDeleteSource = &deleteSource
			return subject.JoinResult{MovedCount: 3, TargetSubjectID: targetID}, nil
		},
	}

	r := newSubjectsRouter(uuid.NewString(), repo)

	w := postJSON(t, r, "/subjects/join", `{"source_subject_id":"`+source+`","target_subject_id":"`+target+`"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	if gotDeleteSource == nil || !*gotDeleteSource {
		t.Fatalf("delete_source should default to true, got %v", gotDeleteSource)
	}

	var resp struct {
		Data subject.JoinResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if resp.Data.MovedCount != 3 || resp.Data.TargetSubjectID != target {
		t.Fatalf("unexpected join result: %+v", resp.Data)
	}
}
