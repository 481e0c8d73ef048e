package user

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core"
)

var (
	ErrNotFound         = core.NewNotFoundError("User not found")
	ErrUserExists       = core.NewConflictError("User already exists")
	ErrHasMeetings      = core.NewConflictError("User has scheduled meetings")
	ErrCannotDeleteSelf = core.NewValidationError(errors.New("You cannot delete your own account"))
	ErrCannotChangeRole = core.NewValidationError(errors.New("You cannot change your own role"))

	// ErrEmailExists is returned by repositories on a unique email violation.
	ErrEmailExists = errors.New("a user with this email already exists")

	// Directory errors
	ErrDirectoryUserExists   = errors.New("identity directory: user already exists")
	ErrDirectoryUserNotFound = errors.New("identity directory: user not found")

	errClassRequired = errors.New("class_name is required for examinee")
	errEmailInvalid  = errors.New("email is invalid")
	errEmailTooLong  = errors.New("email is too long")

	maxEmailLen = 255
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id int64, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error)
		QueryUsers(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUser(ctx context.Context, id int64, exec ...core.DBExecutor) error
		// HasScheduledMeetings reports whether the User created any scheduled meeting.
		HasScheduledMeetings(ctx context.Context, id int64, exec ...core.DBExecutor) (bool, error)
	}

	// Directory is the external identity provider where login accounts live.
	Directory interface {
		// CreateUser creates a login account and sends the temporary credentials.
		// Returns ErrDirectoryUserExists if the account already exists.
		CreateUser(ctx context.Context, email string) error
		// DeleteUser returns ErrDirectoryUserNotFound if the account does not exist.
		DeleteUser(ctx context.Context, email string) error
	}

	Service struct {
		db        core.DB
		repo      Repository
		directory Directory
		mailSvc   core.EmailService
		conf      *core.Config
	}
)

func NewService(db core.DB, repo Repository, directory Directory, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		directory: directory,
		mailSvc:   mailSvc,
		conf:      conf,
	}
}

// Resolve returns the local User for an authenticated identity, creating it on first sight.
// New users get the proctor role when their email is listed in the default proctors.
func (svc *Service) Resolve(ctx context.Context, email string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return User{}, ErrNotFound
	}

	usr, err := svc.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return usr, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "finding user by email")
	}

	role := RoleExaminee
	if svc.conf.IsDefaultProctor(email) {
		role = RoleProctor
	}
	now := time.Now().UTC()
	usr, err = svc.repo.CreateUser(ctx, User{Email: email, Role: role, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		// concurrent first requests of the same identity
		if errors.Cause(err) == ErrEmailExists {
			return svc.repo.GetUserByEmail(ctx, email)
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	return svc.repo.GetUserByEmail(ctx, email)
}

func (svc *Service) Query(ctx context.Context, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, ordering)
}

// UpdateProfile sets the display name and class name of usr. Proctors never keep a class name.
func (svc *Service) UpdateProfile(ctx context.Context, usr User, pu ProfileUpdate) (User, error) {
	usr.DisplayName = core.NullString(pu.DisplayName)
	usr.ClassName = core.NullString(pu.ClassName)
	usr.clean()
	usr.UpdatedAt = time.Now().UTC()

	var updated User
	err := core.WithTransaction(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		updated, err = svc.repo.UpdateUser(ctx, usr, exec)
		return err
	})
	if err != nil {
		return User{}, errors.Wrap(err, "updating profile")
	}
	return updated, nil
}

// Invite creates the login account in the identity directory, then creates or updates the local
// User with the given role, and finally sends an invitation email.
// No compensation happens in the directory if the local write fails.
func (svc *Service) Invite(ctx context.Context, inv Invitation) (User, error) {
	if err := svc.directory.CreateUser(ctx, inv.Email); err != nil {
		if errors.Cause(err) == ErrDirectoryUserExists {
			return User{}, ErrUserExists
		}
		return User{}, errors.Wrap(err, "creating directory user")
	}

	var usr User
	err := core.WithTransaction(ctx, svc.db, func(exec core.DBExecutor) error {
		now := time.Now().UTC()
		existing, err := svc.repo.GetUserByEmail(ctx, inv.Email, exec)
		switch errors.Cause(err) {
		case nil:
			existing.Role = inv.Role
			existing.clean()
			existing.UpdatedAt = now
			usr, err = svc.repo.UpdateUser(ctx, existing, exec)
		case ErrNotFound:
			usr, err = svc.repo.CreateUser(ctx, User{Email: inv.Email, Role: inv.Role, CreatedAt: now, UpdatedAt: now}, exec)
		}
		return err
	})
	if err != nil {
		return User{}, errors.Wrap(err, "saving invited user")
	}

	svc.sendInvitation(usr)
	return usr, nil
}

func (svc *Service) sendInvitation(usr User) {
	msg := &core.EmailMessage{
		To:              []mail.Address{{Address: usr.Email}},
		Subject:         fmt.Sprintf("You have been invited to %s", svc.conf.AppName),
		TemplateName:    "invitation",
		TemplateData:    map[string]string{"Role": usr.Role},
		FrontendBaseURL: svc.conf.FrontendBaseURL,
	}
	svc.mailSvc.SendMessages(msg)
}

// Update changes the role and/or class name of the User identified by email.
// actor cannot change their own role.
func (svc *Service) Update(ctx context.Context, actor User, email string, uu UpdateUser) (User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, err
	}

	var usr User
	err = core.WithTransaction(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		if usr, err = svc.repo.GetUserByEmail(ctx, email, exec); err != nil {
			return err
		}

		if uu.Role != nil {
			if usr.Email == actor.Email && *uu.Role != usr.Role {
				return ErrCannotChangeRole
			}
			usr.Role = *uu.Role
		}
		if uu.ClassName != nil {
			usr.ClassName = core.NullString(*uu.ClassName)
		}
		usr.clean()
		usr.UpdatedAt = time.Now().UTC()

		usr, err = svc.repo.UpdateUser(ctx, usr, exec)
		return err
	})
	if err != nil {
		return User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

// Delete removes the User identified by email from the identity directory and locally.
// actor cannot delete themselves, and users owning scheduled meetings are kept.
func (svc *Service) Delete(ctx context.Context, actor User, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if email == actor.Email {
		return ErrCannotDeleteSelf
	}

	return core.WithTransaction(ctx, svc.db, func(exec core.DBExecutor) error {
		usr, err := svc.repo.GetUserByEmail(ctx, email, exec)
		if err != nil {
			return err
		}

		hasMeetings, err := svc.repo.HasScheduledMeetings(ctx, usr.ID, exec)
		if err != nil {
			return errors.Wrap(err, "checking scheduled meetings")
		}
		if hasMeetings {
			return ErrHasMeetings
		}

		if err = svc.directory.DeleteUser(ctx, email); err != nil && errors.Cause(err) != ErrDirectoryUserNotFound {
			return errors.Wrap(err, "deleting directory user")
		}
		return svc.repo.DeleteUser(ctx, usr.ID, exec)
	})
}

func normalizeEmail(email string) (string, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" || !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return "", core.NewValidationError(errEmailInvalid)
	}
	if len(email) > maxEmailLen {
		return "", core.NewValidationError(errEmailTooLong)
	}
	return email, nil
}
