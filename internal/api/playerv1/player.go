// Package playerv1 contains the message types of the tubeplay.player.v1 RPC
// API. Messages travel as JSON.
package playerv1

import "time"

// NotificationType identifies the kind of a Notification.
type NotificationType string

const (
	NotificationTypeInitialState   NotificationType = "initial_state"
	NotificationTypeQueueChanged   NotificationType = "queue_changed"
	NotificationTypeTrackSelected  NotificationType = "track_selected"
	NotificationTypeTrackStarted   NotificationType = "track_started"
	NotificationTypePlaybackFailed NotificationType = "playback_failed"
	NotificationTypeLyricsLoaded   NotificationType = "lyrics_loaded"
	NotificationTypePaused         NotificationType = "paused"
	NotificationTypeResumed        NotificationType = "resumed"
	NotificationTypeVolumeChanged  NotificationType = "volume_changed"
	NotificationTypeTrackEnded     NotificationType = "track_ended"
)

// Track is a playable item.
type Track struct {
	Id        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// Status is a snapshot of the player.
type Status struct {
	Queue        []*Track `json:"queue"`
	CurrentIndex int32    `json:"current_index"`
	Current      *Track   `json:"current,omitempty"`
	Paused       bool     `json:"paused"`
	Volume       float64  `json:"volume"`
	PositionMs   int64    `json:"position_ms"`
	LengthMs     int64    `json:"length_ms"`
	FetchState   string   `json:"fetch_state"`
	Lyrics       string   `json:"lyrics,omitempty"`
}

// Notification is pushed to subscribers of SubscribeNotifications.
type Notification struct {
	SequenceNo uint64           `json:"sequence_no"`
	Type       NotificationType `json:"type"`
	Timestamp  time.Time        `json:"timestamp"`
	Track      *Track           `json:"track,omitempty"`
	Index      int32            `json:"index"`
	QueueSize  int32            `json:"queue_size"`
	Message    string           `json:"message,omitempty"`
	Lyrics     string           `json:"lyrics,omitempty"`
	Volume     float64          `json:"volume,omitempty"`
	Status     *Status          `json:"status,omitempty"`
}

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Status *Status `json:"status"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	Tracks []*Track `json:"tracks"`
}

type EnqueueRequest struct {
	Track *Track `json:"track"`
}

type EnqueueResponse struct {
	QueueSize    int32 `json:"queue_size"`
	CurrentIndex int32 `json:"current_index"`
}

type NextRequest struct{}

type NextResponse struct {
	Status *Status `json:"status"`
}

type PreviousRequest struct{}

type PreviousResponse struct {
	Status *Status `json:"status"`
}

type JumpRequest struct {
	Index int32 `json:"index"`
}

type JumpResponse struct {
	Status *Status `json:"status"`
}

type TogglePauseRequest struct{}

type TogglePauseResponse struct {
	Paused bool `json:"paused"`
}

type SetVolumeRequest struct {
	Volume float64 `json:"volume"`
}

type SetVolumeResponse struct {
	Volume float64 `json:"volume"`
}

type SuggestRequest struct {
	Count int32 `json:"count"`
}

type SuggestResponse struct {
	Tracks []*Track `json:"tracks"`
}

type SubscribeNotificationsRequest struct{}
