package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

const testSecret = "test-secret"

func authRouter(guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{NewAuthMiddleware(logger.Nop(), testSecret).RequireAuth()}, guards...)
	chain = append(chain, func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.Role)
	})
	r.GET("/x", chain...)
	return r
}

func call(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	r := authRouter()
	good, err := SignToken(testSecret, uuid.New(), "Reviewer", "", time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	wrongKey, _ := SignToken("other", uuid.New(), "reviewer", "", time.Minute)
	expired, _ := SignToken(testSecret, uuid.New(), "reviewer", "", -time.Minute)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"valid", "Bearer " + good, http.StatusOK},
	}
	for _, tc := range cases {
		rec := call(r, tc.header)
		if rec.Code != tc.want {
			t.Fatalf("%s: want=%d got=%d", tc.name, tc.want, rec.Code)
		}
	}
	if rec := call(r, "Bearer "+good); rec.Body.String() != "reviewer" {
		t.Fatalf("role should be normalized, got %q", rec.Body.String())
	}
}

func TestRoleGuards(t *testing.T) {
	learner, _ := SignToken(testSecret, uuid.New(), "learner", "", time.Minute)
	reviewer, _ := SignToken(testSecret, uuid.New(), "reviewer", "", time.Minute)
	operator, _ := SignToken(testSecret, uuid.New(), "operator", "", time.Minute)

	rev := authRouter(RequireReviewer())
	op := authRouter(RequireOperator())

	if rec := call(rev, "Bearer "+learner); rec.Code != http.StatusForbidden {
		t.Fatalf("learner on reviewer route: want=403 got=%d", rec.Code)
	}
	if rec := call(rev, "Bearer "+operator); rec.Code != http.StatusOK {
		t.Fatalf("operator on reviewer route: want=200 got=%d", rec.Code)
	}
	if rec := call(op, "Bearer "+reviewer); rec.Code != http.StatusForbidden {
		t.Fatalf("reviewer on operator route: want=403 got=%d", rec.Code)
	}
}

func TestRequireInternalToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		configured, sent string
		want             int
	}{
		{"s3cret", "s3cret", http.StatusOK},
		{"s3cret", "nope", http.StatusUnauthorized},
		{"", "", http.StatusUnauthorized},
	} {
		r := gin.New()
		r.POST("/cb", RequireInternalToken(tc.configured), func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest(http.MethodPost, "/cb", nil)
		req.Header.Set("X-Internal-Token", tc.sent)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("configured=%q sent=%q: want=%d got=%d", tc.configured, tc.sent, tc.want, rec.Code)
		}
	}
}
