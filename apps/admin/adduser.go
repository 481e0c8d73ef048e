package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/user"
)

var errInvalidRole = errors.New("role must be one of: proctor, examinee")

// addUser updates or creates a user.User. Proctors never keep a class name.
func (cli *commandLine) addUser(email, role, name, class string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)
	if role != user.RoleProctor && role != user.RoleExaminee {
		return errInvalidRole
	}

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email, CreatedAt: now}
	}

	usr.Role = role
	if name != "" {
		usr.DisplayName = core.NullString(name)
	}
	if class != "" {
		usr.ClassName = core.NullString(class)
	}
	if usr.IsProctor() {
		usr.ClassName.Valid = false
		usr.ClassName.String = ""
	}
	usr.UpdatedAt = now

	if usr.ID == 0 {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return errors.Wrap(err, "saving user")
}
