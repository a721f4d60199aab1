package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songplay_etl/internal/config"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func put(t *testing.T, s Store, key, body string) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), key, strings.NewReader(body), nil))
}

func keys(objects []Object) []string {
	var out []string
	for _, o := range objects {
		out = append(out, o.Key)
	}
	return out
}

func TestLocalStore_PutGetList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	put(t, s, "song-data/A/B/C/TRABC.json", `{"song_id":"S1"}`)
	put(t, s, "song-data/A/A/A/TRAAA.json", `{"song_id":"S2"}`)
	put(t, s, "log_data/2018/11/events.json", `{}`)

	data, err := s.Get(ctx, "song-data/A/A/A/TRAAA.json")
	require.NoError(t, err)
	assert.Equal(t, `{"song_id":"S2"}`, string(data))

	objects, err := s.List(ctx, "song-data/")
	require.NoError(t, err)
	assert.Equal(t, []string{"song-data/A/A/A/TRAAA.json", "song-data/A/B/C/TRABC.json"}, keys(objects))
	assert.Equal(t, int64(len(`{"song_id":"S2"}`)), objects[0].Size)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLocalStore_ListMissingPrefix(t *testing.T) {
	objects, err := newTestStore(t).List(context.Background(), "nothing/here/")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestLocalStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	put(t, s, "a/b.txt", "first")
	put(t, s, "a/b.txt", "second")

	data, err := s.Get(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Join(s.Location(), "a"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	put(t, s, "songs/songs_table.parquet/year=2000/part-00000.parquet", "x")
	put(t, s, "songs/songs_table.parquet/_SUCCESS", "")
	put(t, s, "artists/artists_table.parquet/_SUCCESS", "")

	require.NoError(t, s.DeleteAll(ctx, "songs/songs_table.parquet/"))
	objects, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"artists/artists_table.parquet/_SUCCESS"}, keys(objects))

	require.NoError(t, s.Delete(ctx, "artists/artists_table.parquet/_SUCCESS"))
	require.NoError(t, s.Delete(ctx, "artists/artists_table.parquet/_SUCCESS"))

	assert.Error(t, s.DeleteAll(ctx, "/"))
}

func TestMatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	put(t, s, "song-data/A/A/A/TRAAAAW128F429D538.json", "{}")
	put(t, s, "song-data/A/A/B/TRAABCL128F4286650.json", "{}")
	put(t, s, "song-data/A/A/A/TRAAAGZ128F4286650.json.gz", "")
	put(t, s, "song-data/A/A/A/notes.txt", "")
	put(t, s, "song-data/A/A/A/notes.txt.gz", "")
	put(t, s, "log_data/2018/11/2018-11-01-events.json", "{}")
	put(t, s, "log_data/2018/2018-11-02-events.json", "{}")

	songs, err := Match(ctx, s, "song-data/A/A/A/*.json")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"song-data/A/A/A/TRAAAAW128F429D538.json",
		"song-data/A/A/A/TRAAAGZ128F4286650.json.gz",
	}, keys(songs))

	logs, err := Match(ctx, s, "log_data/*/*/*.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"log_data/2018/11/2018-11-01-events.json"}, keys(logs))
}

func TestStaticPrefix(t *testing.T) {
	assert.Equal(t, "song-data/A/A/A/", staticPrefix("song-data/A/A/A/*.json"))
	assert.Equal(t, "log_data/", staticPrefix("log_data/*/*/*.json"))
	assert.Equal(t, "", staticPrefix("*.json"))
	assert.Equal(t, "a/b.json", staticPrefix("a/b.json"))
}

func TestOpen(t *testing.T) {
	awsCfg := config.AWSConfig{AccessKeyID: "id", SecretAccessKey: "secret", Region: "us-west-2"}

	s, err := Open(awsCfg, "s3a://udacity-dend/")
	require.NoError(t, err)
	s3Store, ok := s.(*S3Store)
	require.True(t, ok)
	assert.Equal(t, "udacity-dend", s3Store.bucket)
	assert.Equal(t, "", s3Store.prefix)
	assert.Equal(t, "s3://udacity-dend/", s.Location())

	s, err = Open(awsCfg, "s3://bucket/output/run")
	require.NoError(t, err)
	assert.Equal(t, "output/run/", s.(*S3Store).prefix)
	assert.Equal(t, "output/run/songs/x.parquet", s.(*S3Store).key("songs/x.parquet"))

	dir := t.TempDir()
	s, err = Open(awsCfg, "file://"+dir)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	s, err = Open(awsCfg, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, s.Location())

	_, err = Open(awsCfg, "gs://bucket/")
	assert.Error(t, err)

	_, err = Open(awsCfg, "s3:///nobucket")
	assert.Error(t, err)
}
