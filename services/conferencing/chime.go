package conferencesvc

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core/meeting"
)

var errEmptyResponse = errors.New("empty response")

// ChimeAPI is the subset of the Chime SDK meetings client used by ChimeProvider.
type ChimeAPI interface {
	CreateMeeting(ctx context.Context, in *chimesdkmeetings.CreateMeetingInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.CreateMeetingOutput, error)
	GetMeeting(ctx context.Context, in *chimesdkmeetings.GetMeetingInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.GetMeetingOutput, error)
	DeleteMeeting(ctx context.Context, in *chimesdkmeetings.DeleteMeetingInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.DeleteMeetingOutput, error)
	CreateAttendee(ctx context.Context, in *chimesdkmeetings.CreateAttendeeInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.CreateAttendeeOutput, error)
}

// ChimeProvider is the meeting.Provider backed by Amazon Chime SDK meetings.
type ChimeProvider struct {
	api ChimeAPI
}

var _ meeting.Provider = (*ChimeProvider)(nil)

func NewChimeProvider(cfg aws.Config) *ChimeProvider {
	return &ChimeProvider{api: chimesdkmeetings.NewFromConfig(cfg)}
}

// NewChimeProviderWithAPI wraps an existing client (tests, custom endpoints).
func NewChimeProviderWithAPI(api ChimeAPI) *ChimeProvider {
	return &ChimeProvider{api: api}
}

func (p *ChimeProvider) CreateMeeting(ctx context.Context, in meeting.CreateMeetingInput) (meeting.Meeting, error) {
	out, err := p.api.CreateMeeting(ctx, &chimesdkmeetings.CreateMeetingInput{
		ClientRequestToken: aws.String(in.ClientRequestToken),
		MediaRegion:        aws.String(in.MediaRegion),
		ExternalMeetingId:  aws.String(in.ExternalMeetingID),
	})
	if err != nil {
		return meeting.Meeting{}, errors.Wrap(err, "chime: creating meeting")
	}
	if out.Meeting == nil {
		return meeting.Meeting{}, errors.Wrap(errEmptyResponse, "chime: creating meeting")
	}
	return toMeeting(out.Meeting), nil
}

func (p *ChimeProvider) GetMeeting(ctx context.Context, meetingID string) (meeting.Meeting, error) {
	out, err := p.api.GetMeeting(ctx, &chimesdkmeetings.GetMeetingInput{MeetingId: aws.String(meetingID)})
	if err != nil {
		return meeting.Meeting{}, trapNotFound(err, "chime: getting meeting")
	}
	if out.Meeting == nil {
		return meeting.Meeting{}, errors.Wrap(errEmptyResponse, "chime: getting meeting")
	}
	return toMeeting(out.Meeting), nil
}

func (p *ChimeProvider) DeleteMeeting(ctx context.Context, meetingID string) error {
	_, err := p.api.DeleteMeeting(ctx, &chimesdkmeetings.DeleteMeetingInput{MeetingId: aws.String(meetingID)})
	if err != nil {
		return trapNotFound(err, "chime: deleting meeting")
	}
	return nil
}

func (p *ChimeProvider) CreateAttendee(ctx context.Context, meetingID, externalUserID string) (meeting.Attendee, error) {
	out, err := p.api.CreateAttendee(ctx, &chimesdkmeetings.CreateAttendeeInput{
		MeetingId:      aws.String(meetingID),
		ExternalUserId: aws.String(externalUserID),
	})
	if err != nil {
		return meeting.Attendee{}, trapNotFound(err, "chime: creating attendee")
	}
	if out.Attendee == nil || aws.ToString(out.Attendee.JoinToken) == "" {
		return meeting.Attendee{}, errors.Wrap(errEmptyResponse, "chime: creating attendee")
	}
	return meeting.Attendee{
		AttendeeId:     aws.ToString(out.Attendee.AttendeeId),
		ExternalUserId: aws.ToString(out.Attendee.ExternalUserId),
		JoinToken:      aws.ToString(out.Attendee.JoinToken),
	}, nil
}

// trapNotFound maps Chime "not found" errors to meeting.ErrProviderMeetingNotFound
func trapNotFound(err error, msg string) error {
	var nfErr *types.NotFoundException
	if errors.As(err, &nfErr) {
		return meeting.ErrProviderMeetingNotFound
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NotFoundException") {
		return meeting.ErrProviderMeetingNotFound
	}
	return errors.Wrap(err, msg)
}

func toMeeting(m *types.Meeting) meeting.Meeting {
	if m == nil {
		return meeting.Meeting{}
	}
	pm := meeting.Meeting{
		MeetingId:         aws.ToString(m.MeetingId),
		MeetingArn:        aws.ToString(m.MeetingArn),
		ExternalMeetingId: aws.ToString(m.ExternalMeetingId),
		MediaRegion:       aws.ToString(m.MediaRegion),
	}
	if mp := m.MediaPlacement; mp != nil {
		pm.MediaPlacement = &meeting.MediaPlacement{
			AudioHostUrl:      aws.ToString(mp.AudioHostUrl),
			AudioFallbackUrl:  aws.ToString(mp.AudioFallbackUrl),
			SignalingUrl:      aws.ToString(mp.SignalingUrl),
			TurnControlUrl:    aws.ToString(mp.TurnControlUrl),
			ScreenDataUrl:     aws.ToString(mp.ScreenDataUrl),
			ScreenViewingUrl:  aws.ToString(mp.ScreenViewingUrl),
			ScreenSharingUrl:  aws.ToString(mp.ScreenSharingUrl),
			EventIngestionUrl: aws.ToString(mp.EventIngestionUrl),
		}
	}
	return pm
}
