package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/scheduleme/backend/core"
)

func newTestValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

func TestNewUser_Validate_passwordPolicy(t *testing.T) {
	validate, translator := newTestValidator()

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr string
	}{
		{name: "no password", email: "jane@test.cd"},
		{name: "too short", email: "jane@test.cd", pwd: "Ab1!", wantErr: "password must contain at least 8 characters"},
		{name: "whitespace", email: "jane@test.cd", pwd: "Abc 1234!", wantErr: "password must not contain whitespace"},
		{name: "all numeric", email: "jane@test.cd", pwd: "1234567890", wantErr: "password cannot be entirely numeric"},
		{name: "not complex", email: "jane@test.cd", pwd: "abcdefgh1", wantErr: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		{name: "similar to email", email: "janeausten@test.cd", pwd: "Janeausten1!", wantErr: "password cannot be similar to the email address"},
		{name: "strong", email: "jane@test.cd", pwd: "Tr1cky-Owl!42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{Email: tt.email, Role: RoleAdmin, Password: tt.pwd}
			err := nu.Validate(validate)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			if !ok || len(vErrs) != 1 {
				t.Fatalf("Validate() error = %v, want 1 validation error", err)
			}
			if got := vErrs[0].Translate(translator); got != tt.wantErr {
				t.Errorf("Validate() error = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestNewUser_Validate_defaults(t *testing.T) {
	validate, translator := newTestValidator()

	nu := NewUser{Email: " Jane@Test.CD "}
	if err := nu.Validate(validate); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}
	if nu.Email != "jane@test.cd" || nu.Role != RoleViewer {
		t.Errorf("Validate() cleaned = %+v", nu)
	}

	nu = NewUser{Email: "jane@test.cd", Role: "boss"}
	err := nu.Validate(validate)
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		t.Fatalf("Validate() error = %v", err)
	}
	if got := vErrs[0].Translate(translator); got != "role must be one of admin, teacher, viewer" {
		t.Errorf("Validate() error = %q", got)
	}
}

func TestUpdateUser_Validate(t *testing.T) {
	validate, _ := newTestValidator()
	orig := User{Email: "jane@test.cd", Role: RoleViewer}

	if err := (&UpdateUser{}).Validate(orig, validate); err == nil {
		t.Error("Validate() expected an error for an empty update")
	}

	// password similarity is checked against the new email when it changes
	email, pwd := "tricky.owl@test.cd", "Tricky-owl1"
	if err := (&UpdateUser{Email: &email, Password: &pwd}).Validate(orig, validate); err == nil {
		t.Error("Validate() expected a similarity error")
	}
	pwd = "Tr1cky-Owl!42"
	if err := (&UpdateUser{Password: &pwd}).Validate(orig, validate); err != nil {
		t.Errorf("Validate() unexpected error = %v", err)
	}
}
