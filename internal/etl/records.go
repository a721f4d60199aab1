package etl

import "songplay_etl/internal/dataset"

// SongRecord is one line of the song metadata files.
type SongRecord struct {
	SongID          dataset.Null[string]
	Title           dataset.Null[string]
	ArtistID        dataset.Null[string]
	ArtistName      dataset.Null[string]
	ArtistLocation  dataset.Null[string]
	ArtistLatitude  dataset.Null[float64]
	ArtistLongitude dataset.Null[float64]
	Year            dataset.Null[int64]
	Duration        dataset.Null[float64]
	NumSongs        dataset.Null[int64]
}

// DecodeSong maps a song metadata record onto SongRecord.
func DecodeSong(r dataset.Record) SongRecord {
	return SongRecord{
		SongID:          r.String("song_id"),
		Title:           r.String("title"),
		ArtistID:        r.String("artist_id"),
		ArtistName:      r.String("artist_name"),
		ArtistLocation:  r.String("artist_location"),
		ArtistLatitude:  r.Float("artist_latitude"),
		ArtistLongitude: r.Float("artist_longitude"),
		Year:            r.Int("year"),
		Duration:        r.Float("duration"),
		NumSongs:        r.Int("num_songs"),
	}
}

// LogRecord is one line of the user activity logs.
type LogRecord struct {
	UserID    dataset.Null[string]
	FirstName dataset.Null[string]
	LastName  dataset.Null[string]
	Gender    dataset.Null[string]
	Level     dataset.Null[string]
	// Ts is the event time in epoch milliseconds.
	Ts        dataset.Null[int64]
	Page      dataset.Null[string]
	Song      dataset.Null[string]
	Artist    dataset.Null[string]
	Length    dataset.Null[float64]
	SessionID dataset.Null[int64]
	Location  dataset.Null[string]
	UserAgent dataset.Null[string]
}

// DecodeLog maps an activity log record onto LogRecord.
func DecodeLog(r dataset.Record) LogRecord {
	return LogRecord{
		UserID:    r.String("userId"),
		FirstName: r.String("firstName"),
		LastName:  r.String("lastName"),
		Gender:    r.String("gender"),
		Level:     r.String("level"),
		Ts:        r.Int("ts"),
		Page:      r.String("page"),
		Song:      r.String("song"),
		Artist:    r.String("artist"),
		Length:    r.Float("length"),
		SessionID: r.Int("sessionId"),
		Location:  r.String("location"),
		UserAgent: r.String("userAgent"),
	}
}

// IsSongPlay reports whether the log line is a listening event.
func IsSongPlay(l LogRecord) bool {
	return l.Page.Valid && l.Page.V == "NextSong"
}
