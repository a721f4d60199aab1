package etl

import (
	"time"

	"songplay_etl/internal/dataset"
)

// BuildSongs projects the distinct songs with a song_id.
func BuildSongs(records []SongRecord) []SongRow {
	withID := dataset.Filter(records, func(s SongRecord) bool { return s.SongID.Valid })
	return dataset.Distinct(dataset.Map(withID, func(s SongRecord) SongRow {
		return SongRow{
			SongID:   s.SongID,
			Title:    s.Title,
			ArtistID: s.ArtistID,
			Year:     s.Year,
			Duration: s.Duration,
		}
	}))
}

// BuildArtists projects the distinct artists with an artist_id.
func BuildArtists(records []SongRecord) []ArtistRow {
	withID := dataset.Filter(records, func(s SongRecord) bool { return s.ArtistID.Valid })
	return dataset.Distinct(dataset.Map(withID, func(s SongRecord) ArtistRow {
		return ArtistRow{
			ArtistID:  s.ArtistID,
			Name:      s.ArtistName,
			Location:  s.ArtistLocation,
			Lattitude: s.ArtistLatitude,
			Longitude: s.ArtistLongitude,
		}
	}))
}

func userRow(l LogRecord) UserRow {
	return UserRow{
		UserID:    l.UserID,
		FirstName: l.FirstName,
		LastName:  l.LastName,
		Gender:    l.Gender,
		Level:     l.Level,
	}
}

// BuildUsers projects the distinct users with a user_id from song plays. A user whose level
// changed appears once per level unless latestLevel is set, in which case only the row of
// their latest event is kept.
func BuildUsers(plays []LogRecord, latestLevel bool) []UserRow {
	withID := dataset.Filter(plays, func(l LogRecord) bool { return l.UserID.Valid })
	if !latestLevel {
		return dataset.Distinct(dataset.Map(withID, userRow))
	}

	type latest struct {
		ts  dataset.Null[int64]
		row UserRow
	}
	var order []string
	byUser := make(map[string]latest)
	for _, l := range withID {
		cur, seen := byUser[l.UserID.V]
		if !seen {
			order = append(order, l.UserID.V)
		}
		if !seen || newerOrEqual(l.Ts, cur.ts) {
			byUser[l.UserID.V] = latest{ts: l.Ts, row: userRow(l)}
		}
	}

	rows := make([]UserRow, 0, len(order))
	for _, id := range order {
		rows = append(rows, byUser[id].row)
	}
	return rows
}

// newerOrEqual orders null timestamps before every real one.
func newerOrEqual(ts, than dataset.Null[int64]) bool {
	if !ts.Valid {
		return !than.Valid
	}
	return !than.Valid || ts.V >= than.V
}

// EpochSeconds converts an epoch-millisecond timestamp to whole seconds, rounding down.
func EpochSeconds(ts int64) int64 {
	sec := ts / 1000
	if ts%1000 < 0 {
		sec--
	}
	return sec
}

// WallClock returns the wall-clock time of an epoch second in loc.
func WallClock(sec int64, loc *time.Location) time.Time {
	return time.Unix(sec, 0).In(loc)
}

// NewTimeRow splits start (epoch seconds) into the time table columns. Week is the ISO week.
func NewTimeRow(start int64, loc *time.Location) TimeRow {
	t := WallClock(start, loc)
	_, week := t.ISOWeek()
	return TimeRow{
		StartTime: start,
		Hour:      int32(t.Hour()),
		Day:       int32(t.Day()),
		Week:      int32(week),
		Month:     int32(t.Month()),
		Year:      int32(t.Year()),
		Weekday:   t.Format("Mon"),
	}
}

// Event is a song play with its derived start_time.
type Event struct {
	LogRecord
	StartTime int64
}

// Events keeps the plays that carry a timestamp and derives start_time for each.
func Events(plays []LogRecord) []Event {
	timed := dataset.Filter(plays, func(l LogRecord) bool { return l.Ts.Valid })
	return dataset.Map(timed, func(l LogRecord) Event {
		return Event{LogRecord: l, StartTime: EpochSeconds(l.Ts.V)}
	})
}

// BuildTime returns one row per distinct start_time.
func BuildTime(events []Event, loc *time.Location) []TimeRow {
	return dataset.Distinct(dataset.Map(events, func(e Event) TimeRow {
		return NewTimeRow(e.StartTime, loc)
	}))
}

type songKey struct {
	title    string
	artist   string
	duration float64
}

// BuildSongplays joins events to songs on exact title, artist name and duration, and to the
// time table on start_time. Events with no match in either are dropped.
func BuildSongplays(events []Event, songs []SongRecord, times []TimeRow) []SongplayRow {
	type matched struct {
		event Event
		song  SongRecord
	}

	withSong := dataset.Join(events, songs,
		func(e Event) (songKey, bool) {
			return songKey{title: e.Song.V, artist: e.Artist.V, duration: e.Length.V},
				e.Song.Valid && e.Artist.Valid && e.Length.Valid
		},
		func(s SongRecord) (songKey, bool) {
			return songKey{title: s.Title.V, artist: s.ArtistName.V, duration: s.Duration.V},
				s.Title.Valid && s.ArtistName.Valid && s.Duration.Valid
		},
		func(e Event, s SongRecord) matched { return matched{event: e, song: s} })

	rows := dataset.Join(withSong, times,
		func(m matched) (int64, bool) { return m.event.StartTime, true },
		func(t TimeRow) (int64, bool) { return t.StartTime, true },
		func(m matched, t TimeRow) SongplayRow {
			return SongplayRow{
				StartTime: t.StartTime,
				Year:      t.Year,
				Month:     t.Month,
				UserID:    m.event.UserID,
				Level:     m.event.Level,
				SongID:    m.song.SongID,
				ArtistID:  m.song.ArtistID,
				SessionID: m.event.SessionID,
				Location:  m.event.Location,
				UserAgent: m.event.UserAgent,
			}
		})
	return dataset.Distinct(rows)
}
