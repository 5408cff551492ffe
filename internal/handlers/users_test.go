package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/models"
)

func requestWithClaims(method, path, body string, claims *models.TokenClaims, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if claims != nil {
		ctx = auth.ContextWithClaims(ctx, claims)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func adminClaims() *models.TokenClaims {
	return &models.TokenClaims{Type: "access", UserID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin}
}

func readerClaims() *models.TokenClaims {
	return &models.TokenClaims{Type: "access", UserID: "user-1", Email: "reader@example.com", Role: models.RoleUser}
}

func TestGetUser_SelfAccess(t *testing.T) {
	svc := &MockUserService{
		GetUserByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Email: "reader@example.com", Status: models.StatusActive}, nil
		},
	}
	h := NewUserHandler(svc, &MockInviteService{})

	req := requestWithClaims("GET", "/api/users/user-1", "", readerClaims(), map[string]string{"id": "user-1"})
	w := httptest.NewRecorder()
	h.GetUser(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestGetUser_OtherUserForbidden(t *testing.T) {
	h := NewUserHandler(&MockUserService{}, &MockInviteService{})

	req := requestWithClaims("GET", "/api/users/user-2", "", readerClaims(), map[string]string{"id": "user-2"})
	w := httptest.NewRecorder()
	h.GetUser(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestGetUser_AdminReadsAnyone(t *testing.T) {
	svc := &MockUserService{
		GetUserByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Email: "reader@example.com", Status: models.StatusActive}, nil
		},
	}
	h := NewUserHandler(svc, &MockInviteService{})

	req := requestWithClaims("GET", "/api/users/user-2", "", adminClaims(), map[string]string{"id": "user-2"})
	w := httptest.NewRecorder()
	h.GetUser(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestInviteUser_Success(t *testing.T) {
	var gotEmail, gotActor string
	invites := &MockInviteService{
		InviteUserFunc: func(ctx context.Context, actorID, email, name, phone, planID string) (*models.User, error) {
			gotActor = actorID
			gotEmail = email
			return &models.User{ID: "user-9", Email: email, Name: name, Status: models.StatusPending}, nil
		},
	}
	h := NewUserHandler(&MockUserService{}, invites)

	body := `{"email":"New.Reader@Example.com","name":"New Reader","plan_id":"plan-1"}`
	req := requestWithClaims("POST", "/api/users/invite", body, adminClaims(), nil)
	w := httptest.NewRecorder()
	h.InviteUser(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if gotEmail != "new.reader@example.com" {
		t.Errorf("email not normalized: %q", gotEmail)
	}
	if gotActor != "admin-1" {
		t.Errorf("actor = %q, want admin-1", gotActor)
	}

	var resp UserResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != models.StatusPending {
		t.Errorf("invited account should be pending, got %q", resp.Status)
	}
}

func TestInviteUser_ValidationErrors(t *testing.T) {
	h := NewUserHandler(&MockUserService{}, &MockInviteService{})

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"name":"Reader"}`},
		{"bad email", `{"email":"not-an-email","name":"Reader"}`},
		{"missing name", `{"email":"reader@example.com"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithClaims("POST", "/api/users/invite", tt.body, adminClaims(), nil)
			w := httptest.NewRecorder()
			h.InviteUser(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestInviteUser_DuplicateEmail(t *testing.T) {
	invites := &MockInviteService{
		InviteUserFunc: func(ctx context.Context, actorID, email, name, phone, planID string) (*models.User, error) {
			return nil, models.ErrConflict
		},
	}
	h := NewUserHandler(&MockUserService{}, invites)

	body := `{"email":"existing@example.com","name":"Reader"}`
	req := requestWithClaims("POST", "/api/users/invite", body, adminClaims(), nil)
	w := httptest.NewRecorder()
	h.InviteUser(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestAcceptInvite_UsedToken(t *testing.T) {
	invites := &MockInviteService{
		AcceptInviteFunc: func(ctx context.Context, plainToken, password string) (*models.User, error) {
			return nil, models.ErrTokenUsed
		},
	}
	h := NewUserHandler(&MockUserService{}, invites)

	body := `{"token":"used-token","password":"SecurePassword123"}`
	req := requestWithClaims("POST", "/api/invites/accept", body, nil, nil)
	w := httptest.NewRecorder()
	h.AcceptInvite(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestAcceptInvite_Success(t *testing.T) {
	invites := &MockInviteService{
		AcceptInviteFunc: func(ctx context.Context, plainToken, password string) (*models.User, error) {
			return &models.User{ID: "user-3", Email: "reader@example.com", Status: models.StatusActive}, nil
		},
	}
	h := NewUserHandler(&MockUserService{}, invites)

	body := `{"token":"good-token","password":"SecurePassword123"}`
	req := requestWithClaims("POST", "/api/invites/accept", body, nil, nil)
	w := httptest.NewRecorder()
	h.AcceptInvite(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp UserResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != models.StatusActive {
		t.Errorf("accepted account should be active, got %q", resp.Status)
	}
}

func TestUpdateUser_InvalidRole(t *testing.T) {
	h := NewUserHandler(&MockUserService{}, &MockInviteService{})

	body := `{"name":"Reader","role":"superadmin","status":"active"}`
	req := requestWithClaims("PUT", "/api/users/user-1", body, adminClaims(), map[string]string{"id": "user-1"})
	w := httptest.NewRecorder()
	h.UpdateUser(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeleteUser_SelfDeleteBlocked(t *testing.T) {
	h := NewUserHandler(&MockUserService{}, &MockInviteService{})

	req := requestWithClaims("DELETE", "/api/users/admin-1", "", adminClaims(), map[string]string{"id": "admin-1"})
	w := httptest.NewRecorder()
	h.DeleteUser(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeleteUser_Success(t *testing.T) {
	h := NewUserHandler(&MockUserService{}, &MockInviteService{})

	req := requestWithClaims("DELETE", "/api/users/user-2", "", adminClaims(), map[string]string{"id": "user-2"})
	w := httptest.NewRecorder()
	h.DeleteUser(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}
