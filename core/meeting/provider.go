package meeting

import (
	"context"

	"github.com/pkg/errors"
)

// ErrProviderMeetingNotFound is returned by a Provider when a meeting expired or never existed.
var ErrProviderMeetingNotFound = errors.New("meeting provider: meeting not found")

type (
	// Provider is the managed video-conferencing API.
	Provider interface {
		CreateMeeting(ctx context.Context, in CreateMeetingInput) (Meeting, error)
		// GetMeeting returns ErrProviderMeetingNotFound if the meeting does not exist anymore.
		GetMeeting(ctx context.Context, meetingID string) (Meeting, error)
		DeleteMeeting(ctx context.Context, meetingID string) error
		CreateAttendee(ctx context.Context, meetingID, externalUserID string) (Attendee, error)
	}

	CreateMeetingInput struct {
		ClientRequestToken string
		MediaRegion        string
		ExternalMeetingID  string
	}

	// RecordingStorage issues time-limited upload URLs for recordings.
	RecordingStorage interface {
		PresignUpload(ctx context.Context, key, contentType string) (PresignedUpload, error)
	}

	PresignedUpload struct {
		URL       string `json:"url"`
		Key       string `json:"key"`
		ExpiresIn int    `json:"expires_in"` // seconds
	}
)

// Provider payloads keep the provider's field names: web clients hand them as-is to the
// conferencing SDK.
type (
	MediaPlacement struct {
		AudioHostUrl      string `json:"AudioHostUrl,omitempty"`
		AudioFallbackUrl  string `json:"AudioFallbackUrl,omitempty"`
		SignalingUrl      string `json:"SignalingUrl,omitempty"`
		TurnControlUrl    string `json:"TurnControlUrl,omitempty"`
		ScreenDataUrl     string `json:"ScreenDataUrl,omitempty"`
		ScreenViewingUrl  string `json:"ScreenViewingUrl,omitempty"`
		ScreenSharingUrl  string `json:"ScreenSharingUrl,omitempty"`
		EventIngestionUrl string `json:"EventIngestionUrl,omitempty"`
	}

	Meeting struct {
		MeetingId         string          `json:"MeetingId"`
		MeetingArn        string          `json:"MeetingArn,omitempty"`
		ExternalMeetingId string          `json:"ExternalMeetingId,omitempty"`
		MediaRegion       string          `json:"MediaRegion,omitempty"`
		MediaPlacement    *MediaPlacement `json:"MediaPlacement,omitempty"`
	}

	Attendee struct {
		AttendeeId     string `json:"AttendeeId"`
		ExternalUserId string `json:"ExternalUserId"`
		JoinToken      string `json:"JoinToken"`
	}

	MeetingResponse struct {
		Meeting Meeting `json:"Meeting"`
	}

	AttendeeResponse struct {
		Attendee Attendee `json:"Attendee"`
	}

	GuestJoinResponse struct {
		Meeting  Meeting  `json:"Meeting"`
		Attendee Attendee `json:"Attendee"`
	}
)
