package songstore_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/nisimpson/songstore"
	"github.com/nisimpson/songstore/ddbmock"
)

const testTable = "TBL_SONG"

func seedSongs(t *testing.T, store *songstore.Store, songs ...songstore.Song) {
	t.Helper()
	for _, song := range songs {
		if err := store.Put(context.Background(), song); err != nil {
			t.Fatalf("failed to seed song %s: %v", song.ID, err)
		}
	}
}

func TestStoreFetchAllFollowsPagination(t *testing.T) {
	fake := ddbmock.NewTableFake()
	fake.PageSize = 2 // force multiple scan pages
	store := songstore.NewStore(fake, testTable)

	var want []songstore.Song
	for i := 0; i < 5; i++ {
		want = append(want, songstore.Song{
			ID:   fmt.Sprintf("S%d", i),
			Name: fmt.Sprintf("song %d", i),
			Path: fmt.Sprintf("/music/%d.mp3", i),
		})
	}
	seedSongs(t, store, want...)

	songs, err := store.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(songs) != len(want) {
		t.Fatalf("expected %d songs, got %d", len(want), len(songs))
	}

	byID := make(map[string]songstore.Song, len(songs))
	for _, song := range songs {
		byID[song.ID] = song
	}
	for _, song := range want {
		if byID[song.ID] != song {
			t.Errorf("song %s: expected %+v, got %+v", song.ID, song, byID[song.ID])
		}
	}
}

func TestStoreFetchAllEmptyTable(t *testing.T) {
	store := songstore.NewStore(ddbmock.NewTableFake(), testTable)

	songs, err := store.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(songs) != 0 {
		t.Errorf("expected no songs, got %d", len(songs))
	}
}

func TestStoreMissingTable(t *testing.T) {
	fake := ddbmock.NewTableFake()
	fake.MissingTable = true
	store := songstore.NewStore(fake, testTable)

	_, err := store.FetchAll(context.Background())
	if !errors.Is(err, songstore.ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestStoreResolveRetriesAfterFault(t *testing.T) {
	mock := ddbmock.NewMockClient(t)
	cause := errors.New("connection refused")

	calls := 0
	mock.DescribeTableFunc = func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
		calls++
		if calls == 1 {
			return nil, cause
		}
		return &dynamodb.DescribeTableOutput{}, nil
	}
	mock.ScanFunc = func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
		return &dynamodb.ScanOutput{}, nil
	}

	store := songstore.NewStore(mock, testTable)

	// First attempt surfaces the connectivity fault.
	_, err := store.FetchAll(context.Background())
	var storageErr *songstore.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}

	// A transient fault must not poison the guard.
	if _, err := store.FetchAll(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 describe calls, got %d", calls)
	}

	// Once resolved, the handle is reused.
	if _, err := store.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected no further describe calls, got %d", calls)
	}
}

func TestStoreResolveConcurrentFirstUse(t *testing.T) {
	mock := ddbmock.NewMockClient(t)

	var describes atomic.Int32
	mock.DescribeTableFunc = func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
		describes.Add(1)
		return &dynamodb.DescribeTableOutput{}, nil
	}
	mock.ScanFunc = func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
		return &dynamodb.ScanOutput{}, nil
	}

	// A fresh store raced by many in-flight requests must resolve the
	// table handle exactly once, with every request succeeding.
	store := songstore.NewStore(mock, testTable)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.FetchAll(context.Background()); err != nil {
				t.Errorf("FetchAll failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := describes.Load(); got != 1 {
		t.Errorf("expected exactly 1 describe call, got %d", got)
	}
}

func TestStoreFetchByKey(t *testing.T) {
	store := songstore.NewStore(ddbmock.NewTableFake(), testTable)
	want := songstore.Song{ID: "S1", Name: "Imagine", Path: "/imagine.mp3", Plays: 3}
	seedSongs(t, store, want)

	t.Run("found", func(t *testing.T) {
		got, err := store.FetchByKey(context.Background(), "S1")
		if err != nil {
			t.Fatalf("FetchByKey failed: %v", err)
		}
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("absent", func(t *testing.T) {
		_, err := store.FetchByKey(context.Background(), "missing")
		if !errors.Is(err, songstore.ErrSongNotFound) {
			t.Errorf("expected ErrSongNotFound, got %v", err)
		}
	})
}

func TestStorePartialUpdate(t *testing.T) {
	store := songstore.NewStore(ddbmock.NewTableFake(), testTable)
	seedSongs(t, store, songstore.Song{ID: "S1", Name: "Imagine", Path: "/imagine.mp3", Plays: 0})

	plays := 5
	updated, err := store.PartialUpdate(context.Background(), "S1", songstore.SongPatch{Plays: &plays})
	if err != nil {
		t.Fatalf("PartialUpdate failed: %v", err)
	}
	if updated.Plays != 5 {
		t.Errorf("expected plays 5, got %d", updated.Plays)
	}
	if updated.Name != "Imagine" || updated.Path != "/imagine.mp3" {
		t.Errorf("untouched fields changed: %+v", updated)
	}

	// The write is durable and visible to subsequent reads.
	stored, err := store.FetchByKey(context.Background(), "S1")
	if err != nil {
		t.Fatalf("FetchByKey failed: %v", err)
	}
	if stored != updated {
		t.Errorf("expected stored %+v, got %+v", updated, stored)
	}
}

func TestStorePartialUpdateAbsentKey(t *testing.T) {
	store := songstore.NewStore(ddbmock.NewTableFake(), testTable)

	name := "ghost"
	_, err := store.PartialUpdate(context.Background(), "missing", songstore.SongPatch{Name: &name})
	if !errors.Is(err, songstore.ErrSongNotFound) {
		t.Errorf("expected ErrSongNotFound, got %v", err)
	}
}

func TestStoreDeleteByKey(t *testing.T) {
	fake := ddbmock.NewTableFake()
	store := songstore.NewStore(fake, testTable)
	want := songstore.Song{ID: "S1", Name: "Imagine", Path: "/imagine.mp3", Plays: 9}
	seedSongs(t, store, want)

	deleted, err := store.DeleteByKey(context.Background(), "S1")
	if err != nil {
		t.Fatalf("DeleteByKey failed: %v", err)
	}
	if deleted != want {
		t.Errorf("expected deleted song %+v, got %+v", want, deleted)
	}
	if fake.Len() != 0 {
		t.Errorf("expected empty table, got %d items", fake.Len())
	}

	_, err = store.DeleteByKey(context.Background(), "S1")
	if !errors.Is(err, songstore.ErrSongNotFound) {
		t.Errorf("expected ErrSongNotFound on second delete, got %v", err)
	}
}

func TestStoreScanFault(t *testing.T) {
	mock := ddbmock.NewMockClient(t)
	cause := errors.New("throughput exceeded")
	mock.ScanFunc = func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
		return nil, cause
	}

	store := songstore.NewStore(mock, testTable)

	_, err := store.FetchAll(context.Background())
	var storageErr *songstore.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if storageErr.Op != "scan" {
		t.Errorf("expected op 'scan', got %q", storageErr.Op)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}
