package identitysvc

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core/user"
)

// CognitoAPI is the subset of the Cognito user pools client used by CognitoDirectory.
type CognitoAPI interface {
	AdminCreateUser(ctx context.Context, in *cognitoidentityprovider.AdminCreateUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminCreateUserOutput, error)
	AdminDeleteUser(ctx context.Context, in *cognitoidentityprovider.AdminDeleteUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminDeleteUserOutput, error)
}

// CognitoDirectory manages login accounts in a Cognito user pool. Usernames are emails.
type CognitoDirectory struct {
	api    CognitoAPI
	poolID string
}

var _ user.Directory = (*CognitoDirectory)(nil)

func NewCognitoDirectory(cfg aws.Config, poolID string) *CognitoDirectory {
	return &CognitoDirectory{api: cognitoidentityprovider.NewFromConfig(cfg), poolID: poolID}
}

func NewCognitoDirectoryWithAPI(api CognitoAPI, poolID string) *CognitoDirectory {
	return &CognitoDirectory{api: api, poolID: poolID}
}

// CreateUser creates a verified-email account; Cognito emails the temporary password.
func (d *CognitoDirectory) CreateUser(ctx context.Context, email string) error {
	_, err := d.api.AdminCreateUser(ctx, &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId: aws.String(d.poolID),
		Username:   aws.String(email),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("email_verified"), Value: aws.String("true")},
		},
		DesiredDeliveryMediums: []types.DeliveryMediumType{types.DeliveryMediumTypeEmail},
	})
	if err != nil {
		var existsErr *types.UsernameExistsException
		if errors.As(err, &existsErr) {
			return user.ErrDirectoryUserExists
		}
		return errors.Wrap(err, "cognito: creating user")
	}
	return nil
}

func (d *CognitoDirectory) DeleteUser(ctx context.Context, email string) error {
	_, err := d.api.AdminDeleteUser(ctx, &cognitoidentityprovider.AdminDeleteUserInput{
		UserPoolId: aws.String(d.poolID),
		Username:   aws.String(email),
	})
	if err != nil {
		var nfErr *types.UserNotFoundException
		if errors.As(err, &nfErr) {
			return user.ErrDirectoryUserNotFound
		}
		return errors.Wrap(err, "cognito: deleting user")
	}
	return nil
}
