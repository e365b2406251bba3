package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/projetogalileu/galileu/apps/api/echo"
	"github.com/projetogalileu/galileu/core/user"
	"github.com/projetogalileu/galileu/tests"
)

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.usrRepo, "N Dog", "ndog", "ndog@escola.br", "s3nh4-f0rt3", []string{user.RoleStudent}, false)
	student := testutil.CreateUser(t, env.usrRepo, "Ana", "ana", "ana@escola.br", "s3nh4-f0rt3", []string{user.RoleStudent}, true)

	failed := marchallObj(t, httpErr{Error: "authentication failed"})
	tests := []httpTest{
		{
			name: "required fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field cannot be blank", "password": "this field is required"}),
		},
		{name: "unknown user", body: marchallObj(t, user.LoginCredentials{Username: "lol", Password: "s3nh4-f0rt3"}), wantCode: http.StatusBadRequest, wantData: failed},
		{name: "wrong password", body: marchallObj(t, user.LoginCredentials{Username: "ana", Password: "nope"}), wantCode: http.StatusBadRequest, wantData: failed},
		{name: "inactive user", body: marchallObj(t, user.LoginCredentials{Username: "ndog", Password: "s3nh4-f0rt3"}), wantCode: http.StatusBadRequest, wantData: failed},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/login"
	}
	runHTTPTests(t, env, tests)

	t.Run("logged in by email", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", marchallObj(t, user.LoginCredentials{Username: " ANA@escola.br", Password: "s3nh4-f0rt3"}))
		env.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		require.NotNil(t, resp.User)
		assert.Equal(t, student.ID, resp.User.ID)
		assert.False(t, resp.User.LastLogin.IsZero())

		rec = env.do(http.MethodGet, "/v1/account", resp.Token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	env := setup(t)
	naughty := testutil.CreateUser(t, env.usrRepo, "N Dog", "ndog", "ndog@escola.br", "", []string{user.RoleStudent}, false)
	student := testutil.CreateUser(t, env.usrRepo, "Ana", "ana", "ana@escola.br", "", []string{user.RoleStudent}, true)

	now := time.Now()
	unrefreshable := GetUserClaims(env.conf, student)
	unrefreshable.OrigIssuedAt = now.Add(-2 * env.conf.Server.JWTRefreshExpirationDelta).Unix() // older than threshold
	unrefreshableToken, err := GenerateToken(env.conf, unrefreshable)
	require.NoError(t, err)

	expired := GetUserClaims(env.conf, student)
	expired.StandardClaims = jwt.StandardClaims{Subject: student.ID, ExpiresAt: now.Add(-time.Minute).Unix()}
	expiredToken, err := GenerateToken(env.conf, expired)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Expired token", token: expiredToken, wantCode: http.StatusUnauthorized},
		{name: "Inactive user not allowed", token: env.getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/token-refresh"
	}
	runHTTPTests(t, env, tests)

	t.Run("Token refreshed", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/token-refresh", env.getToken(t, student))
		require.Equal(t, http.StatusOK, rec.Code)

		// cannot guess new token.. just check that it's not empty
		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Nil(t, resp.User)
	})
}

func Test_userApi_create(t *testing.T) {
	env := setup(t)
	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@escola.br", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Prof", "prof", "prof@escola.br", "", []string{user.RoleTeacher}, true)
	adminToken := env.getToken(t, admin)

	newUser := func(uname string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name: "Bia", Username: uname, Email: uname + "@galileu.br",
			Password: "Pl4n0-1nclinad0", PasswordConfirm: "Pl4n0-1nclinad0", Roles: roles,
		})
	}
	tests := []httpTest{
		{name: "Admin required", token: env.getToken(t, teacher), body: newUser("bia"), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{
			name: "Role above own", token: adminToken, body: newUser("bia", user.RoleAdminOwner), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{name: "Created", token: adminToken, body: newUser("bia", user.RoleTeacher), wantCode: http.StatusCreated},
		{
			name: "Username taken", token: adminToken, body: newUser("prof"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/register"
	}
	runHTTPTests(t, env, tests)

	rec := env.do(http.MethodGet, "/v1/users?search=bia", adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []user.User
	unmarshal(t, rec, &users)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsTeacher())
}
