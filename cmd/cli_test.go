package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms-project/hmsctl/internal/domain"
	"github.com/hms-project/hmsctl/internal/version"
)

const testSubject = "13800000000"

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", stdout)
}

func TestSessionSetDerivesIdentityFromToken(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "session", "set", signedToken(t, testSubject, domain.RolePatient, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Contains(t, stdout, "Session stored for "+testSubject+" (patient)")

	stdout, _, err = executeCLI(t, home, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "subject:\t"+testSubject)
	assert.Contains(t, stdout, "role:\tpatient")
	assert.Contains(t, stdout, "head nurse:\tfalse")
	assert.Contains(t, stdout, "expires:")
	assert.NotContains(t, stdout, "(expired)")
}

func TestSessionSetUsesFallbackSubjectForOpaqueToken(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "session", "set", "opaque-token", "--subject", "13900000000")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Session stored for 13900000000 (none)")

	stdout, _, err = executeCLI(t, home, "session", "show", "--json")
	require.NoError(t, err)

	var view sessionView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.True(t, view.Authenticated)
	assert.Equal(t, "13900000000", view.SubjectID)
	assert.Equal(t, "none", view.RoleLabel)
	assert.Nil(t, view.ExpiresAt)
}

func TestSessionShowJSONReportsExpiredToken(t *testing.T) {
	home := t.TempDir()
	expiresAt := time.Now().Add(-time.Hour).Truncate(time.Second)

	_, _, err := executeCLI(t, home, "session", "set", signedToken(t, testSubject, domain.RoleDoctor, expiresAt))
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "session", "show", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))

	var view sessionView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.Equal(t, string(domain.RoleDoctor), view.Role)
	assert.Equal(t, "doctor", view.RoleLabel)
	require.NotNil(t, view.ExpiresAt)
	assert.True(t, view.ExpiresAt.Equal(expiresAt))
	assert.True(t, view.Expired)
}

func TestSessionShowWithoutSession(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "session", "show")
	require.NoError(t, err)
	assert.Equal(t, "Not signed in\n", stdout)
}

func TestSessionHeadNurseFollowsRole(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "session", "set", signedToken(t, testSubject, domain.RoleNurse, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "session", "head-nurse", "on")
	require.NoError(t, err)
	assert.Equal(t, "Head nurse: true\n", stdout)

	stdout, _, err = executeCLI(t, home, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "head nurse:\ttrue")

	_, _, err = executeCLI(t, home, "session", "role", "doctor")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "role:\tdoctor")
	assert.Contains(t, stdout, "head nurse:\tfalse")
}

func TestSessionHeadNurseRejectsOtherRoles(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "session", "set", signedToken(t, testSubject, domain.RolePatient, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "session", "head-nurse", "on")
	require.ErrorIs(t, err, errHeadNurseRequiresNurse)

	_, _, err = executeCLI(t, home, "session", "head-nurse", "maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid head-nurse value")
}

func TestSessionRoleAcceptsBackendLabel(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "session", "role", string(domain.RolePharmacist))
	require.NoError(t, err)
	assert.Equal(t, "Role set to pharmacist\n", stdout)
}

func TestSessionRoleRejectsUnknownRole(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "session", "role", "janitor")
	require.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestSessionLogoutClearsStoredSession(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "session", "set", signedToken(t, testSubject, domain.RolePatient, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "session", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", stdout)

	stdout, _, err = executeCLI(t, home, "session", "show")
	require.NoError(t, err)
	assert.Equal(t, "Not signed in\n", stdout)

	_, _, err = executeCLI(t, home, "session", "logout")
	require.NoError(t, err)
}

func TestRemindersLifecycle(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "reminders", "ignore", "3", "1", "3")
	require.NoError(t, err)
	assert.Equal(t, "Ignoring 3 task(s)\n", stdout)

	stdout, _, err = executeCLI(t, home, "reminders", "ignored", "--json")
	require.NoError(t, err)
	var ids []int64
	require.NoError(t, json.Unmarshal([]byte(stdout), &ids))
	assert.Equal(t, []int64{1, 3}, ids)

	stdout, _, err = executeCLI(t, home, "reminders", "check", "1")
	require.NoError(t, err)
	assert.Equal(t, "1: ignored\n", stdout)

	stdout, _, err = executeCLI(t, home, "reminders", "check", "2")
	require.NoError(t, err)
	assert.Equal(t, "2: not ignored\n", stdout)

	_, _, err = executeCLI(t, home, "reminders", "clear")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "reminders", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "No ignored tasks\n", stdout)
}

func TestRemindersRejectNonIntegerIDs(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "reminders", "ignore", "4", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid task id "abc"`)
}

func TestNoticesRequirePatientSession(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "notices", "--json")
	require.ErrorIs(t, err, errNoticesRequirePatient)

	_, _, err = executeCLI(t, home, "session", "set", signedToken(t, testSubject, domain.RoleDoctor, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "notices", "--json")
	require.ErrorIs(t, err, errNoticesRequirePatient)
}

func TestNoticesJSONReconcilesBackendRecords(t *testing.T) {
	home := t.TempDir()
	token := signedToken(t, testSubject, domain.RolePatient, time.Now().Add(time.Hour))
	today := time.Now().Format(time.DateOnly)

	var unauthenticated atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			unauthenticated.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/payments":
			_, _ = w.Write([]byte(`[
				{"payment_id": 7, "type": "药品费", "amount": 12.5, "time": "2026-01-01T10:00:00", "status": "未缴费"},
				{"payment_id": 8, "type": "挂号费", "amount": 5, "time": "2026-01-01T09:00:00", "status": "已缴费"}
			]`))
		case "/api/registrations":
			_, _ = w.Write([]byte(`[
				{"reg_id": 21, "visit_date": "` + today + `", "status": "排队中"},
				{"reg_id": 22, "visit_date": "1999-01-01", "status": "排队中"}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	t.Setenv("HMS_API_BASE_URL", server.URL)

	_, _, err := executeCLI(t, home, "session", "set", token)
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "notices", "--json")
	require.NoError(t, err)
	assert.Zero(t, unauthenticated.Load())

	var notices []domain.Notice
	require.NoError(t, json.Unmarshal([]byte(stdout), &notices))
	require.Len(t, notices, 2)

	byKey := make(map[string]domain.Notice, len(notices))
	for _, notice := range notices {
		byKey[notice.Key] = notice
	}
	require.Contains(t, byKey, "payment-7")
	assert.Equal(t, "Pending payment of type 药品费", byKey["payment-7"].Message)
	require.Contains(t, byKey, "reg-21")
	assert.Equal(t, "Please visit the hospital today", byKey["reg-21"].Message)
}

func TestNoticesUnauthorizedSignsOut(t *testing.T) {
	home := t.TempDir()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "Could not validate credentials"}`))
	}))
	t.Cleanup(server.Close)
	t.Setenv("HMS_API_BASE_URL", server.URL)

	_, _, err := executeCLI(t, home, "session", "set", signedToken(t, testSubject, domain.RolePatient, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "notices", "--json")
	require.Error(t, err)

	stdout, _, err := executeCLI(t, home, "session", "show")
	require.NoError(t, err)
	assert.Equal(t, "Not signed in\n", stdout)
}

func TestUnknownCommandFails(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "prescriptions")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func signedToken(t *testing.T, subject string, role domain.Role, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": string(role),
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}
