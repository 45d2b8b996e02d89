package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	names := make([]string, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		names = append(names, fe.Field)
	}
	return names
}

func TestContactInput_Valid(t *testing.T) {
	in := ContactInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@x.com",
		Company:   "Acme",
		Message:   "Hello",
	}
	assert.NoError(t, Validate(&in))
}

func TestContactInput_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		in    ContactInput
		field string
	}{
		{"missing firstName", ContactInput{LastName: "D", Email: "a@b.com", Company: "C", Message: "m"}, "firstName"},
		{"missing email", ContactInput{FirstName: "J", LastName: "D", Company: "C", Message: "m"}, "email"},
		{"bad email", ContactInput{FirstName: "J", LastName: "D", Email: "nope", Company: "C", Message: "m"}, "email"},
		{"missing company", ContactInput{FirstName: "J", LastName: "D", Email: "a@b.com", Message: "m"}, "company"},
		{"missing message", ContactInput{FirstName: "J", LastName: "D", Email: "a@b.com", Company: "C"}, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.in)
			require.Error(t, err)
			assert.Contains(t, fieldNames(t, err), tt.field)
		})
	}
}

func TestContactInput_Normalize(t *testing.T) {
	in := ContactInput{
		FirstName:   "  Jane ",
		Email:       " Jane@X.com ",
		Phone:       strPtr("   "),
		CompanySize: strPtr(" 11-50 "),
	}
	in.Normalize()

	assert.Equal(t, "Jane", in.FirstName)
	assert.Equal(t, "jane@x.com", in.Email)
	assert.Nil(t, in.Phone)
	require.NotNil(t, in.CompanySize)
	assert.Equal(t, "11-50", *in.CompanySize)
}

func TestRequestInput_Validation(t *testing.T) {
	valid := RequestInput{
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        "jane@x.com",
		Company:      "Acme",
		RequestTypes: TagList{"demo"},
	}
	assert.NoError(t, Validate(&valid))

	noTypes := valid
	noTypes.RequestTypes = nil
	assert.Contains(t, fieldNames(t, Validate(&noTypes)), "requestTypes")

	comma := valid
	comma.RequestTypes = TagList{"demo,showcase"}
	assert.Contains(t, fieldNames(t, Validate(&comma)), "requestTypes[0]")
}

func TestSignupRequest_Validation(t *testing.T) {
	req := SignupRequest{Username: "jd", Email: "jd@x.com", Password: "short", FirstName: "J", LastName: "D"}
	names := fieldNames(t, Validate(&req))
	assert.ElementsMatch(t, []string{"username", "password"}, names)
}

func TestLoginRequest_NormalizeUsesEmailAlias(t *testing.T) {
	req := LoginRequest{Email: " Jane@X.com ", Password: "pw"}
	req.Normalize()
	assert.Equal(t, "jane@x.com", req.Username)
	assert.NoError(t, Validate(&req))
}

func TestFlexBool(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
		err  bool
	}{
		{`true`, true, false},
		{`false`, false, false},
		{`"true"`, true, false},
		{`"false"`, false, false},
		{`""`, false, false},
		{`null`, false, false},
		{`"maybe"`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var b FlexBool
			err := json.Unmarshal([]byte(tt.raw), &b)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, bool(b))
		})
	}
}

func TestTagList(t *testing.T) {
	var fromString TagList
	require.NoError(t, json.Unmarshal([]byte(`"demo, showcase,,assessment"`), &fromString))
	assert.Equal(t, TagList{"demo", "showcase", "assessment"}, fromString)

	var fromArray TagList
	require.NoError(t, json.Unmarshal([]byte(`["demo","showcase"]`), &fromArray))
	assert.Equal(t, TagList{"demo", "showcase"}, fromArray)
}

func TestUser_JSONHidesSecrets(t *testing.T) {
	tok := "secret-token"
	u := User{ID: 1, Username: "jd", PasswordHash: "hash", VerificationToken: &tok}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hash")
	assert.NotContains(t, string(b), tok)
}
