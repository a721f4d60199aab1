package etl

import (
	"songplay_etl/internal/dataset"
	"songplay_etl/internal/engine"
)

type SongRow struct {
	SongID   dataset.Null[string]
	Title    dataset.Null[string]
	ArtistID dataset.Null[string]
	Year     dataset.Null[int64]
	Duration dataset.Null[float64]
}

// SongFile is the songs parquet row; year and artist_id live in the partition path.
type SongFile struct {
	SongID   *string  `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Title    *string  `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Duration *float64 `parquet:"name=duration, type=DOUBLE, repetitiontype=OPTIONAL"`
}

var SongsTable = engine.Table[SongRow, SongFile]{
	Name:        "songs",
	PartitionBy: []string{"year", "artist_id"},
	Partition: func(r SongRow) []string {
		return []string{engine.PartitionValue(r.Year), engine.PartitionValue(r.ArtistID)}
	},
	File: func(r SongRow) SongFile {
		return SongFile{SongID: r.SongID.Ptr(), Title: r.Title.Ptr(), Duration: r.Duration.Ptr()}
	},
}

type ArtistRow struct {
	ArtistID  dataset.Null[string]
	Name      dataset.Null[string]
	Location  dataset.Null[string]
	Lattitude dataset.Null[float64]
	Longitude dataset.Null[float64]
}

// ArtistFile keeps the historical "lattitude" column name.
type ArtistFile struct {
	ArtistID  *string  `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Name      *string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Location  *string  `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Lattitude *float64 `parquet:"name=lattitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Longitude *float64 `parquet:"name=longitude, type=DOUBLE, repetitiontype=OPTIONAL"`
}

var ArtistsTable = engine.Table[ArtistRow, ArtistFile]{
	Name: "artists",
	File: func(r ArtistRow) ArtistFile {
		return ArtistFile{
			ArtistID:  r.ArtistID.Ptr(),
			Name:      r.Name.Ptr(),
			Location:  r.Location.Ptr(),
			Lattitude: r.Lattitude.Ptr(),
			Longitude: r.Longitude.Ptr(),
		}
	},
}

type UserRow struct {
	UserID    dataset.Null[string]
	FirstName dataset.Null[string]
	LastName  dataset.Null[string]
	Gender    dataset.Null[string]
	Level     dataset.Null[string]
}

type UserFile struct {
	UserID    *string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	FirstName *string `parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	LastName  *string `parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Gender    *string `parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Level     *string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

var UsersTable = engine.Table[UserRow, UserFile]{
	Name: "users",
	File: func(r UserRow) UserFile {
		return UserFile{
			UserID:    r.UserID.Ptr(),
			FirstName: r.FirstName.Ptr(),
			LastName:  r.LastName.Ptr(),
			Gender:    r.Gender.Ptr(),
			Level:     r.Level.Ptr(),
		}
	},
}

// TimeRow splits a start_time (epoch seconds) into calendar parts.
type TimeRow struct {
	StartTime int64
	Hour      int32
	Day       int32
	Week      int32
	Month     int32
	Year      int32
	Weekday   string
}

type TimeFile struct {
	StartTime int64  `parquet:"name=start_time, type=INT64"`
	Hour      int32  `parquet:"name=hour, type=INT32"`
	Day       int32  `parquet:"name=day, type=INT32"`
	Week      int32  `parquet:"name=week, type=INT32"`
	Weekday   string `parquet:"name=weekday, type=BYTE_ARRAY, convertedtype=UTF8"`
}

var TimeTable = engine.Table[TimeRow, TimeFile]{
	Name:        "time",
	PartitionBy: []string{"year", "month"},
	Partition: func(r TimeRow) []string {
		return []string{engine.PartitionValue(dataset.Value(r.Year)), engine.PartitionValue(dataset.Value(r.Month))}
	},
	File: func(r TimeRow) TimeFile {
		return TimeFile{StartTime: r.StartTime, Hour: r.Hour, Day: r.Day, Week: r.Week, Weekday: r.Weekday}
	},
}

type SongplayRow struct {
	StartTime int64
	Year      int32
	Month     int32
	UserID    dataset.Null[string]
	Level     dataset.Null[string]
	SongID    dataset.Null[string]
	ArtistID  dataset.Null[string]
	SessionID dataset.Null[int64]
	Location  dataset.Null[string]
	UserAgent dataset.Null[string]
}

type SongplayFile struct {
	StartTime int64   `parquet:"name=start_time, type=INT64"`
	UserID    *string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Level     *string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	SongID    *string `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ArtistID  *string `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	SessionID *int64  `parquet:"name=session_id, type=INT64, repetitiontype=OPTIONAL"`
	Location  *string `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	UserAgent *string `parquet:"name=user_agent, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

var SongplaysTable = engine.Table[SongplayRow, SongplayFile]{
	Name:        "songplays",
	PartitionBy: []string{"year", "month"},
	Partition: func(r SongplayRow) []string {
		return []string{engine.PartitionValue(dataset.Value(r.Year)), engine.PartitionValue(dataset.Value(r.Month))}
	},
	File: func(r SongplayRow) SongplayFile {
		return SongplayFile{
			StartTime: r.StartTime,
			UserID:    r.UserID.Ptr(),
			Level:     r.Level.Ptr(),
			SongID:    r.SongID.Ptr(),
			ArtistID:  r.ArtistID.Ptr(),
			SessionID: r.SessionID.Ptr(),
			Location:  r.Location.Ptr(),
			UserAgent: r.UserAgent.Ptr(),
		}
	},
}
