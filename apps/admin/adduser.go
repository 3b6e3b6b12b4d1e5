package main

import (
	"context"

	"github.com/scheduleme/backend/core/user"
)

// addUser creates a user.User, or updates the role, teacher & password of the user with the same email.
func (cli *commandLine) addUser(email, role, teacherID, pwd string) error {
	nu := user.NewUser{
		Email:     email,
		Role:      role,
		TeacherID: teacherID,
		Password:  pwd,
	}
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}
	_, err := cli.usrSvc.Create(context.Background(), nu)
	return err
}
