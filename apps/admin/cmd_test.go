package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/teacher"
	"github.com/scheduleme/backend/core/user"
	sqlxrepos "github.com/scheduleme/backend/storage/database/sqlx"
	"github.com/scheduleme/backend/tests"
)

const strongPwd = "Tr1cky-Owl!42"

var (
	usrRepo     user.Repository
	teacherRepo teacher.Repository
)

func setup(t *testing.T) *commandLine {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	usrRepo = sqlxrepos.NewUserRepository(db)
	teacherRepo = sqlxrepos.NewTeacherRepository(db)

	// start CLI
	return &commandLine{
		db:       db,
		usrSvc:   user.NewService(usrRepo, teacher.NewService(teacherRepo), core.NewTestConfig()),
		validate: newValidator(),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
	t.Cleanup(func() { readPasswordFunc = orig })
}

func checkRunErr(t *testing.T, err error, tt cliTest) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_run(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, cli.run(args), tt)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	type call struct {
		command string
		args    []string
	}
	var got call
	orig := runMigrationsFunc
	runMigrationsFunc = func(db *sqlx.DB, command string, args ...string) error {
		got = call{command: command, args: args}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version", "up-to", "down-to":
			return nil
		}
		return fmt.Errorf("%q: no such command", command)
	}
	t.Cleanup(func() { runMigrationsFunc = orig })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command", extra: call{command: "lol"}},
		{name: "up", args: []string{"migrate", "up"}, extra: call{command: "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}, extra: call{command: "up-to", args: []string{"2"}}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}, extra: call{command: "down-to", args: []string{"1"}}},
		{name: "status", args: []string{"migrate", "status"}, extra: call{command: "status"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			got = call{}
			checkRunErr(t, cli.run(args), tt)
			if want, ok := tt.extra.(call); ok {
				assert.Equal(t, want.command, got.command)
				assert.Equal(t, len(want.args), len(got.args))
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	jane := testutil.CreateTeacher(t, teacherRepo, "Jane", "Austen")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-email", "boss@test.cd"}, wantErr: errHelp},
		{name: "unknown teacher", args: []string{"adduser", "-email", "jane@test.cd", "-role", "teacher", "-teacher", "lol"}, extra: extra{pwd: strongPwd}, wantErrStr: "teacher not found"},
		{name: "admin by default", args: []string{"adduser", "-email", "Boss@test.cd"}, extra: extra{pwd: strongPwd}},
		{name: "teacher", args: []string{"adduser", "-email", "jane@test.cd", "-role", "teacher", "-teacher", jane.ID}, extra: extra{pwd: strongPwd}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			var pwd string
			if e, ok := tt.extra.(extra); ok {
				pwd = e.pwd
			}
			mockPassword(t, pwd)
			checkRunErr(t, cli.run(args), tt)
		})
	}

	ctx := context.Background()
	boss, err := usrRepo.GetUserByEmail(ctx, "boss@test.cd")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, boss.Role)
	assert.NoError(t, boss.CheckPassword(strongPwd))

	janeUsr, err := usrRepo.GetUserByEmail(ctx, "jane@test.cd")
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, janeUsr.Role)
	assert.Equal(t, jane.ID, janeUsr.TeacherID.String)

	// weak password
	mockPassword(t, "password")
	err = cli.run([]string{"admin", "adduser", "-email", "weak@test.cd"})
	var vErrs validator.ValidationErrors
	if assert.True(t, errors.As(err, &vErrs)) {
		assert.Equal(t, "password", vErrs[0].Field())
	}

	// same email updates the role
	mockPassword(t, strongPwd)
	require.NoError(t, cli.run([]string{"admin", "adduser", "-email", "jane@test.cd", "-role", "viewer"}))
	janeUsr, err = usrRepo.GetUserByEmail(ctx, "jane@test.cd")
	require.NoError(t, err)
	assert.Equal(t, user.RoleViewer, janeUsr.Role)
	assert.False(t, janeUsr.TeacherID.Valid)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "awe@test.cd", strongPwd, user.RoleViewer, "")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: extra{pwd: "N3w-Secret!x"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "AWE@test.cd"}, extra: extra{pwd: "N3w-Secret!x"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			var pwd string
			if e, ok := tt.extra.(extra); ok {
				pwd = e.pwd
			}
			mockPassword(t, pwd)
			checkRunErr(t, cli.run(args), tt)
		})
	}

	refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Error(t, refreshed.CheckPassword(strongPwd))
	assert.NoError(t, refreshed.CheckPassword("N3w-Secret!x"))
}
