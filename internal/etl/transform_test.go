package etl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songplay_etl/internal/dataset"
)

var (
	str = dataset.Value[string]
	i64 = dataset.Value[int64]
	f64 = dataset.Value[float64]
)

func TestEpochSeconds(t *testing.T) {
	assert.Equal(t, int64(1000), EpochSeconds(1000000))
	assert.Equal(t, int64(1), EpochSeconds(1999))
	assert.Equal(t, int64(1541121934), EpochSeconds(1541121934796))
	assert.Equal(t, int64(-1), EpochSeconds(-1))
	assert.Equal(t, int64(-1), EpochSeconds(-1000))
}

func TestNewTimeRow(t *testing.T) {
	got := NewTimeRow(1541121934, time.UTC)
	assert.Equal(t, TimeRow{
		StartTime: 1541121934,
		Hour:      1,
		Day:       2,
		Week:      44,
		Month:     11,
		Year:      2018,
		Weekday:   "Fri",
	}, got)

	// the same instant four hours west falls on the previous day
	west := NewTimeRow(1541121934, time.FixedZone("UTC-4", -4*3600))
	assert.Equal(t, int32(21), west.Hour)
	assert.Equal(t, int32(1), west.Day)
	assert.Equal(t, "Thu", west.Weekday)
}

func TestBuildSongs(t *testing.T) {
	records := []SongRecord{
		{SongID: str("S1"), Title: str("Foo"), ArtistID: str("AR1"), ArtistName: str("Bar"), Year: i64(2000), Duration: f64(200)},
		{SongID: str("S1"), Title: str("Foo"), ArtistID: str("AR1"), ArtistName: str("Bar again"), Year: i64(2000), Duration: f64(200)},
		{Title: str("No ID"), ArtistID: str("AR2")},
		{SongID: str("S2"), Title: str("Baz"), ArtistID: str("AR2"), Year: i64(0), Duration: f64(10.5)},
	}

	got := BuildSongs(records)
	assert.Equal(t, []SongRow{
		{SongID: str("S1"), Title: str("Foo"), ArtistID: str("AR1"), Year: i64(2000), Duration: f64(200)},
		{SongID: str("S2"), Title: str("Baz"), ArtistID: str("AR2"), Year: i64(0), Duration: f64(10.5)},
	}, got)
}

func TestBuildArtists(t *testing.T) {
	records := []SongRecord{
		{ArtistID: str("AR1"), ArtistName: str("Bar"), ArtistLocation: str("Paris"), ArtistLatitude: f64(48.85), ArtistLongitude: f64(2.35)},
		{ArtistID: str("AR1"), ArtistName: str("Bar"), ArtistLocation: str("Paris"), ArtistLatitude: f64(48.85), ArtistLongitude: f64(2.35)},
		{ArtistID: str("AR2"), ArtistName: str("Qux")},
		{ArtistName: str("Nobody")},
	}

	got := BuildArtists(records)
	assert.Equal(t, []ArtistRow{
		{ArtistID: str("AR1"), Name: str("Bar"), Location: str("Paris"), Lattitude: f64(48.85), Longitude: f64(2.35)},
		{ArtistID: str("AR2"), Name: str("Qux")},
	}, got)
}

func TestBuildUsers(t *testing.T) {
	plays := []LogRecord{
		{UserID: str("1"), FirstName: str("Ann"), Level: str("free"), Ts: i64(100)},
		{UserID: str("1"), FirstName: str("Ann"), Level: str("free"), Ts: i64(200)},
		{UserID: str("2"), FirstName: str("Bob"), Level: str("paid"), Ts: i64(150)},
		{UserID: str("1"), FirstName: str("Ann"), Level: str("paid"), Ts: i64(300)},
		{FirstName: str("Ghost"), Level: str("free"), Ts: i64(400)},
	}

	t.Run("distinct keeps every level", func(t *testing.T) {
		got := BuildUsers(plays, false)
		assert.Equal(t, []UserRow{
			{UserID: str("1"), FirstName: str("Ann"), Level: str("free")},
			{UserID: str("2"), FirstName: str("Bob"), Level: str("paid")},
			{UserID: str("1"), FirstName: str("Ann"), Level: str("paid")},
		}, got)
	})

	t.Run("latest level", func(t *testing.T) {
		got := BuildUsers(plays, true)
		assert.Equal(t, []UserRow{
			{UserID: str("1"), FirstName: str("Ann"), Level: str("paid")},
			{UserID: str("2"), FirstName: str("Bob"), Level: str("paid")},
		}, got)
	})
}

func TestBuildTime_DistinctStartTime(t *testing.T) {
	plays := []LogRecord{
		{Ts: i64(1541121934796)},
		{Ts: i64(1541121934001)},
		{Ts: i64(1541121935000)},
		{Page: str("NextSong")},
	}
	events := Events(plays)
	require.Len(t, events, 3)

	got := BuildTime(events, time.UTC)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1541121934), got[0].StartTime)
	assert.Equal(t, int64(1541121935), got[1].StartTime)
}

func TestBuildSongplays(t *testing.T) {
	songs := []SongRecord{
		{SongID: str("S1"), Title: str("Foo"), ArtistID: str("AR1"), ArtistName: str("Bar"), Year: i64(2000), Duration: f64(200)},
		{SongID: str("S2"), Title: str("Foo"), ArtistID: str("AR2"), ArtistName: str("Other"), Duration: f64(200)},
	}
	plays := []LogRecord{
		{Page: str("NextSong"), Song: str("Foo"), Artist: str("Bar"), Length: f64(200), Ts: i64(1000000), UserID: str("1"), Level: str("free"), SessionID: i64(7), Location: str("Here"), UserAgent: str("UA")},
		// duration off by a fraction: no tolerance
		{Page: str("NextSong"), Song: str("Foo"), Artist: str("Bar"), Length: f64(200.0001), Ts: i64(2000000), UserID: str("2")},
		// unknown song
		{Page: str("NextSong"), Song: str("Nope"), Artist: str("Bar"), Length: f64(200), Ts: i64(3000000), UserID: str("3")},
		// null artist never matches
		{Page: str("NextSong"), Song: str("Foo"), Length: f64(200), Ts: i64(4000000), UserID: str("4")},
	}

	events := Events(plays)
	got := BuildSongplays(events, songs, BuildTime(events, time.UTC))

	assert.Equal(t, []SongplayRow{{
		StartTime: 1000,
		Year:      1970,
		Month:     1,
		UserID:    str("1"),
		Level:     str("free"),
		SongID:    str("S1"),
		ArtistID:  str("AR1"),
		SessionID: i64(7),
		Location:  str("Here"),
		UserAgent: str("UA"),
	}}, got)
}

func TestBuildSongplays_DuplicateSongsCollapse(t *testing.T) {
	song := SongRecord{SongID: str("S1"), Title: str("Foo"), ArtistID: str("AR1"), ArtistName: str("Bar"), Duration: f64(200)}
	plays := []LogRecord{{Song: str("Foo"), Artist: str("Bar"), Length: f64(200), Ts: i64(1000000), UserID: str("1")}}

	events := Events(plays)
	got := BuildSongplays(events, []SongRecord{song, song}, BuildTime(events, time.UTC))
	assert.Len(t, got, 1)
}

func TestIsSongPlay(t *testing.T) {
	assert.True(t, IsSongPlay(LogRecord{Page: str("NextSong")}))
	assert.False(t, IsSongPlay(LogRecord{Page: str("Home")}))
	assert.False(t, IsSongPlay(LogRecord{}))
}

func TestDecodeLog(t *testing.T) {
	rec, err := dataset.ParseRecord([]byte(`{"artist":"Bar","auth":"Logged In","firstName":"Ann","gender":"F","itemInSession":0,"lastName":"Lee","length":200.0,"level":"free","location":"Here","method":"PUT","page":"NextSong","registration":1540919166796.0,"sessionId":38,"song":"Foo","status":200,"ts":1541121934796,"userAgent":"UA","userId":"39"}`))
	require.NoError(t, err)

	got := DecodeLog(rec)
	assert.Equal(t, LogRecord{
		UserID:    str("39"),
		FirstName: str("Ann"),
		LastName:  str("Lee"),
		Gender:    str("F"),
		Level:     str("free"),
		Ts:        i64(1541121934796),
		Page:      str("NextSong"),
		Song:      str("Foo"),
		Artist:    str("Bar"),
		Length:    f64(200),
		SessionID: i64(38),
		Location:  str("Here"),
		UserAgent: str("UA"),
	}, got)
}

func TestDecodeSong(t *testing.T) {
	rec, err := dataset.ParseRecord([]byte(`{"num_songs": 1, "artist_id": "ARJIE2Y1187B994AB7", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Line Renaud", "song_id": "SOUPIRU12A6D4FA1E1", "title": "Der Kleine Dompfaff", "duration": 152.92036, "year": 0}`))
	require.NoError(t, err)

	got := DecodeSong(rec)
	assert.Equal(t, SongRecord{
		SongID:         str("SOUPIRU12A6D4FA1E1"),
		Title:          str("Der Kleine Dompfaff"),
		ArtistID:       str("ARJIE2Y1187B994AB7"),
		ArtistName:     str("Line Renaud"),
		ArtistLocation: str(""),
		Year:           i64(0),
		Duration:       f64(152.92036),
		NumSongs:       i64(1),
	}, got)
}
