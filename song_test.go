package songstore

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestMarshalSong(t *testing.T) {
	song := Song{
		ID:    "S1",
		Name:  "Imagine",
		Path:  "https://example.com/songs/imagine.mp3",
		Plays: 42,
	}

	item, err := MarshalSong(song)
	if err != nil {
		t.Fatalf("MarshalSong failed: %v", err)
	}

	// The persisted layout is a contract: flat attributes, strings for
	// id/name/path and a number for plays.
	if got, ok := item[AttributeNameID].(*types.AttributeValueMemberS); !ok || got.Value != "S1" {
		t.Errorf("expected id attribute 'S1', got %v", item[AttributeNameID])
	}
	if got, ok := item[AttributeNameName].(*types.AttributeValueMemberS); !ok || got.Value != "Imagine" {
		t.Errorf("expected name attribute 'Imagine', got %v", item[AttributeNameName])
	}
	if got, ok := item[AttributeNamePath].(*types.AttributeValueMemberS); !ok || got.Value != song.Path {
		t.Errorf("expected path attribute %q, got %v", song.Path, item[AttributeNamePath])
	}
	if got, ok := item[AttributeNamePlays].(*types.AttributeValueMemberN); !ok || got.Value != "42" {
		t.Errorf("expected plays attribute '42', got %v", item[AttributeNamePlays])
	}
}

func TestUnmarshalSongRoundtrip(t *testing.T) {
	want := Song{ID: "S1", Name: "Imagine", Path: "/music/imagine.mp3", Plays: 7}

	item, err := MarshalSong(want)
	if err != nil {
		t.Fatalf("MarshalSong failed: %v", err)
	}

	got, err := UnmarshalSong(item)
	if err != nil {
		t.Fatalf("UnmarshalSong failed: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestUnmarshalSongsPreservesOrder(t *testing.T) {
	first, _ := MarshalSong(Song{ID: "A", Name: "a", Path: "/a"})
	second, _ := MarshalSong(Song{ID: "B", Name: "b", Path: "/b"})

	songs, err := UnmarshalSongs([]Item{first, second})
	if err != nil {
		t.Fatalf("UnmarshalSongs failed: %v", err)
	}
	if len(songs) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(songs))
	}
	if songs[0].ID != "A" || songs[1].ID != "B" {
		t.Errorf("expected order A,B; got %s,%s", songs[0].ID, songs[1].ID)
	}
}

func TestUnmarshalSongsEmpty(t *testing.T) {
	songs, err := UnmarshalSongs(nil)
	if err != nil {
		t.Fatalf("UnmarshalSongs failed: %v", err)
	}
	if len(songs) != 0 {
		t.Errorf("expected no songs, got %d", len(songs))
	}
}

func TestSongPatchIsZero(t *testing.T) {
	name := "n"
	path := "/p"
	plays := 0

	tests := []struct {
		desc  string
		patch SongPatch
		want  bool
	}{
		{"empty", SongPatch{}, true},
		{"name only", SongPatch{Name: &name}, false},
		{"path only", SongPatch{Path: &path}, false},
		{"plays zero is still a change", SongPatch{Plays: &plays}, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := tt.patch.IsZero(); got != tt.want {
				t.Errorf("IsZero() = %v, want %v", got, tt.want)
			}
		})
	}
}
