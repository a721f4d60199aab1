package etl

import (
	"context"
	"fmt"
	"log/slog"

	"songplay_etl/internal/dataset"
	"songplay_etl/internal/engine"
)

const (
	SongDataGlob = "song-data/A/A/A/*.json"
	LogDataGlob  = "log_data/*/*/*.json"
)

// ProcessSongData loads the song metadata and writes the songs and artists tables.
func ProcessSongData(ctx context.Context, ec *engine.Context) error {
	slog.Info("Processing song data", "glob", SongDataGlob)

	songs, err := loadSongs(ctx, ec)
	if err != nil {
		return err
	}

	if err := engine.WriteTable(ctx, ec, SongsTable, BuildSongs(songs)); err != nil {
		return fmt.Errorf("songs table: %w", err)
	}
	if err := engine.WriteTable(ctx, ec, ArtistsTable, BuildArtists(songs)); err != nil {
		return fmt.Errorf("artists table: %w", err)
	}
	return nil
}

// ProcessLogData loads the activity logs and writes the users, time and songplays tables.
// Song metadata is read again for the songplays join.
func ProcessLogData(ctx context.Context, ec *engine.Context) error {
	slog.Info("Processing log data", "glob", LogDataGlob)

	logs, stats, err := dataset.Load(ctx, ec.Input, LogDataGlob, ec.Workers, DecodeLog)
	if err != nil {
		return fmt.Errorf("failed to load log data: %w", err)
	}
	ec.Stats().RecordLoad("log_data", stats)

	plays := dataset.Filter(logs, IsSongPlay)
	slog.Info("Filtered song plays", "records", len(logs), "plays", len(plays))

	if err := engine.WriteTable(ctx, ec, UsersTable, BuildUsers(plays, ec.LatestUserLevel)); err != nil {
		return fmt.Errorf("users table: %w", err)
	}

	events := Events(plays)
	if dropped := len(plays) - len(events); dropped > 0 {
		slog.Warn("Song plays without a timestamp left out of time and songplays", "count", dropped)
	}

	times := BuildTime(events, ec.Location)
	if err := engine.WriteTable(ctx, ec, TimeTable, times); err != nil {
		return fmt.Errorf("time table: %w", err)
	}

	songs, err := loadSongs(ctx, ec)
	if err != nil {
		return err
	}

	songplays := BuildSongplays(events, songs, times)
	slog.Info("Matched song plays to songs", "plays", len(events), "songplays", len(songplays))
	if err := engine.WriteTable(ctx, ec, SongplaysTable, songplays); err != nil {
		return fmt.Errorf("songplays table: %w", err)
	}
	return nil
}

func loadSongs(ctx context.Context, ec *engine.Context) ([]SongRecord, error) {
	songs, stats, err := dataset.Load(ctx, ec.Input, SongDataGlob, ec.Workers, DecodeSong)
	if err != nil {
		return nil, fmt.Errorf("failed to load song data: %w", err)
	}
	ec.Stats().RecordLoad("song_data", stats)
	return songs, nil
}
