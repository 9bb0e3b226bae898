package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/manabi/apps/api/echo"
	"github.com/trezcool/manabi/core"
	testutil "github.com/trezcool/manabi/tests"
)

func Test_userApi_login(t *testing.T) {
	srv, env := newTestServer(t)
	testutil.CreateUser(t, env, "Aiko", "aiko@manabi.test", core.RoleStudent)
	testutil.CreateUser(t, env, "Kenji", "kenji@manabi.test", core.RoleStudent, false /* isActive */)

	tests := []httpTest{
		{
			name:     "invalid email",
			body:     []byte(`{"email":"lol","password":"password123"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"message":"invalid request","errors":{"email":"email must be a valid email address"}}`),
		},
		{
			name:     "wrong password",
			body:     []byte(`{"email":"aiko@manabi.test","password":"nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"message":"authentication failed"}`),
		},
		{
			name:     "unknown user",
			body:     []byte(`{"email":"ghost@manabi.test","password":"password123"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"message":"authentication failed"}`),
		},
		{
			name:     "deactivated",
			body:     []byte(`{"email":"kenji@manabi.test","password":"password123"}`),
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"success":false,"message":"account deactivated"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/v1/users/login"
			checkCodeAndData(t, tt, serve(srv, tt))
		})
	}

	t.Run("success", func(t *testing.T) {
		rec := serve(srv, httpTest{
			method: http.MethodPost,
			path:   "/v1/users/login",
			body:   []byte(`{"email":" AIKO@manabi.test ","password":"password123"}`),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		unmarshalBody(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "aiko@manabi.test", resp.User.Email)
		assert.Equal(t, core.RoleStudent, resp.User.Role)
		assert.NotContains(t, rec.Body.String(), "password")

		// the token opens authenticated routes
		rec = serve(srv, httpTest{method: http.MethodGet, path: "/v1/courses/1", token: resp.Token})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_jwtAuth(t *testing.T) {
	srv, env := newTestServer(t)
	student := testutil.CreateUser(t, env, "Aiko", "aiko@manabi.test", core.RoleStudent)
	teacher := testutil.CreateUser(t, env, "Sato", "sato@manabi.test", core.RoleTeacher)

	otherConf := *env.Conf
	otherConf.SecretKey = "not-the-secret"
	forged, err := echoapi.GenerateToken(echoapi.GetUserClaims(student, &otherConf), otherConf.SecretKey)
	require.NoError(t, err)

	expiredConf := *env.Conf
	expiredConf.Server.JWTExpirationDelta = -time.Hour
	expired, err := echoapi.GenerateToken(echoapi.GetUserClaims(student, &expiredConf), expiredConf.SecretKey)
	require.NoError(t, err)

	badSubject := echoapi.GetUserClaims(student, env.Conf)
	badSubject.Subject = "aiko"
	noIdentity, err := echoapi.GenerateToken(badSubject, env.Conf.SecretKey)
	require.NoError(t, err)

	body := []byte(`{"chapter_id":1,"course_id":1,"content_type":"text","completed":true}`)
	tests := []httpTest{
		{
			name:     "missing token",
			wantCode: http.StatusUnauthorized,
			wantData: []byte(`{"success":false,"message":"missing or malformed jwt"}`),
		},
		{
			name:     "forged token",
			token:    forged,
			wantCode: http.StatusUnauthorized,
			wantData: []byte(`{"success":false,"message":"invalid or expired jwt"}`),
		},
		{
			name:     "expired token",
			token:    expired,
			wantCode: http.StatusUnauthorized,
			wantData: []byte(`{"success":false,"message":"invalid or expired jwt"}`),
		},
		{
			name:     "token without a user id",
			token:    noIdentity,
			wantCode: http.StatusUnauthorized,
			wantData: []byte(`{"success":false,"message":"invalid or expired jwt"}`),
		},
		{
			name:     "wrong role",
			token:    getToken(t, env, teacher),
			wantCode: http.StatusUnauthorized,
			wantData: []byte(`{"success":false,"message":"unauthorized: student access required"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path, tt.body = http.MethodPost, "/v1/progress", body
			checkCodeAndData(t, tt, serve(srv, tt))
		})
	}

	t.Run("not a bearer token", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/progress", body)
		req.Header.Set(echo.HeaderAuthorization, "Basic "+getToken(t, env, student))
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: []byte(`{"success":false,"message":"missing or malformed jwt"}`),
		}, rec)
	})
}
