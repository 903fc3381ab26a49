package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crosspost/internal/core/errs"
	postPort "crosspost/internal/ports/post"
	profilePort "crosspost/internal/ports/profile"
	spPort "crosspost/internal/ports/scheduledpost"
	userPort "crosspost/internal/ports/user"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

var testSecret = []byte("test-secret")

type fakeUsers struct{ err error }

func (f fakeUsers) RegisterUser(_ context.Context, name, family, username string) (*userPort.UserDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &userPort.UserDTO{ID: "u1", Name: name, Family: family, Username: username}, nil
}

type fakeScheduled struct {
	err       error
	gotOwner  string
	gotStatus string
}

func (f *fakeScheduled) Create(_ context.Context, ownerID string, in spPort.CreateInput) (*spPort.ScheduledPostDTO, error) {
	f.gotOwner = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return &spPort.ScheduledPostDTO{ID: "p1", UserID: ownerID, Content: in.Content, Status: "PENDING"}, nil
}

func (f *fakeScheduled) Update(_ context.Context, id, ownerID string, in spPort.UpdateInput) (*spPort.ScheduledPostDTO, error) {
	return &spPort.ScheduledPostDTO{ID: id, UserID: ownerID, Content: in.Content}, f.err
}

func (f *fakeScheduled) Cancel(_ context.Context, id, ownerID string) error { return f.err }

func (f *fakeScheduled) TriggerNow(_ context.Context, id, ownerID string) (*spPort.ScheduledPostDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &spPort.ScheduledPostDTO{ID: id, Status: "PENDING"}, nil
}

func (f *fakeScheduled) Get(_ context.Context, id, ownerID string) (*spPort.ScheduledPostDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &spPort.ScheduledPostDTO{ID: id, UserID: ownerID}, nil
}

func (f *fakeScheduled) List(_ context.Context, ownerID, status string) ([]*spPort.ScheduledPostDTO, error) {
	f.gotOwner, f.gotStatus = ownerID, status
	return []*spPort.ScheduledPostDTO{}, f.err
}

type fakeProfiles struct{ err error }

func (f fakeProfiles) Connect(_ context.Context, userID string, in profilePort.ConnectInput) (*profilePort.ProfileDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &profilePort.ProfileDTO{ID: "pr1", Platform: in.Platform}, nil
}

func (f fakeProfiles) List(_ context.Context, userID string) ([]*profilePort.ProfileDTO, error) {
	return nil, f.err
}

func (f fakeProfiles) Disconnect(_ context.Context, userID, platform string) error { return f.err }

type fakePosts struct {
	gotLimit int
	gotInput postPort.PublishInput
	err      error
}

func (f *fakePosts) ListRecent(_ context.Context, userID string, limit int) ([]*postPort.PostDTO, error) {
	f.gotLimit = limit
	return nil, nil
}

func (f *fakePosts) PublishNow(_ context.Context, userID string, in postPort.PublishInput) (*postPort.PostDTO, error) {
	f.gotInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &postPort.PostDTO{ID: "post-1", UserID: userID, Platform: in.Platform, PlatformPostID: "remote-1"}, nil
}

func token(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:   sub,
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + s
}

func do(r http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func setup(sp *fakeScheduled, posts *fakePosts) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return SetupRoutes(fakeUsers{}, sp, fakeProfiles{}, posts, testSecret)
}

func TestRegisterIsPublic(t *testing.T) {
	r := setup(&fakeScheduled{}, &fakePosts{})
	w := do(r, http.MethodPost, "/register", "", `{"name":"a","family":"b","username":"ab"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/register", "", `{"name":"a"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: status = %d", w.Code)
	}
}

func TestScheduledPostsRequireToken(t *testing.T) {
	r := setup(&fakeScheduled{}, &fakePosts{})
	if w := do(r, http.MethodGet, "/scheduled-posts", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCreateUsesTokenSubject(t *testing.T) {
	sp := &fakeScheduled{}
	r := setup(sp, &fakePosts{})
	body := `{"content":"hi","platforms":["x"],"scheduled_time":"2030-01-01T00:00:00Z"}`
	w := do(r, http.MethodPost, "/scheduled-posts", token(t, "user-7"), body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if sp.gotOwner != "user-7" {
		t.Fatalf("owner = %q", sp.gotOwner)
	}
	var dto spPort.ScheduledPostDTO
	if err := json.Unmarshal(w.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.ID != "p1" || dto.Status != "PENDING" {
		t.Fatalf("unexpected dto %+v", dto)
	}
}

func TestListPassesStatusFilter(t *testing.T) {
	sp := &fakeScheduled{}
	r := setup(sp, &fakePosts{})
	w := do(r, http.MethodGet, "/scheduled-posts?status=failed", token(t, "u1"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if sp.gotStatus != "failed" || sp.gotOwner != "u1" {
		t.Fatalf("got owner=%q status=%q", sp.gotOwner, sp.gotStatus)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{errs.Validation("bad"), http.StatusBadRequest},
		{errs.NotFound("post %s", "p1"), http.StatusNotFound},
		{errs.InvalidState("post is PROCESSING"), http.StatusConflict},
		{errs.Scheduling(context.DeadlineExceeded, "arm trigger"), http.StatusServiceUnavailable},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := setup(&fakeScheduled{err: tc.err}, &fakePosts{})
		w := do(r, http.MethodPost, "/scheduled-posts/p1/trigger", token(t, "u1"), "")
		if w.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, w.Code, tc.status)
		}
	}
}

func TestCancelReturnsNoContent(t *testing.T) {
	r := setup(&fakeScheduled{}, &fakePosts{})
	if w := do(r, http.MethodDelete, "/scheduled-posts/p1", token(t, "u1"), ""); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRecentPostsLimit(t *testing.T) {
	posts := &fakePosts{}
	r := setup(&fakeScheduled{}, posts)
	if w := do(r, http.MethodGet, "/posts/recent", token(t, "u1"), ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if posts.gotLimit != 20 {
		t.Fatalf("default limit = %d", posts.gotLimit)
	}
	if w := do(r, http.MethodGet, "/posts/recent?limit=abc", token(t, "u1"), ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", w.Code)
	}
}

func TestPublishNowRoute(t *testing.T) {
	posts := &fakePosts{}
	r := setup(&fakeScheduled{}, posts)
	w := do(r, http.MethodPost, "/posts/immediate", token(t, "u1"), `{"platform":"x","content":"now"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if posts.gotInput.Platform != "x" || posts.gotInput.Content != "now" {
		t.Fatalf("input = %+v", posts.gotInput)
	}
	if w := do(r, http.MethodPost, "/posts/immediate", token(t, "u1"), `{"platform":"x"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing content: status = %d", w.Code)
	}

	posts.err = errs.Publish(context.DeadlineExceeded)
	if w := do(r, http.MethodPost, "/posts/immediate", token(t, "u1"), `{"platform":"x","content":"now"}`); w.Code != http.StatusBadGateway {
		t.Fatalf("platform failure: status = %d", w.Code)
	}
}
