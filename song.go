package songstore

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Song is the persisted entity. Each song occupies one table item keyed
// by its id, with name, path and plays stored as flat attributes.
type Song struct {
	ID    string `json:"id" dynamodbav:"id"`       // generated at creation, immutable
	Name  string `json:"name" dynamodbav:"name"`   // non-empty, at most 200 characters
	Path  string `json:"path" dynamodbav:"path"`   // file path or URL, format unconstrained
	Plays int    `json:"plays" dynamodbav:"plays"` // non-negative play counter
}

// Attribute names in the songs table.
const (
	AttributeNameID    = "id"
	AttributeNameName  = "name"
	AttributeNamePath  = "path"
	AttributeNamePlays = "plays"
)

// Item is an alias for the dynamodb attribute value map.
type Item = map[string]types.AttributeValue

// Key returns the primary key item for the given song id.
func Key(id string) Item {
	return Item{
		AttributeNameID: &types.AttributeValueMemberS{Value: id},
	}
}

// MarshalSong converts a song into its table item. It assumes the song
// already satisfies the entity invariants; no validation happens here.
func MarshalSong(song Song) (Item, error) {
	item, err := attributevalue.MarshalMap(song)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal song: %w", err)
	}
	return item, nil
}

// UnmarshalSong converts a table item back into a song.
func UnmarshalSong(item Item) (Song, error) {
	var song Song
	if err := attributevalue.UnmarshalMap(item, &song); err != nil {
		return Song{}, fmt.Errorf("failed to unmarshal song: %w", err)
	}
	return song, nil
}

// UnmarshalSongs converts each item in items into a song, preserving
// order. The item ordering is whatever the store returned; it is not
// guaranteed sorted.
func UnmarshalSongs(items []Item) ([]Song, error) {
	songs := make([]Song, 0, len(items))
	for i, item := range items {
		song, err := UnmarshalSong(item)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal item %d: %w", i, err)
		}
		songs = append(songs, song)
	}
	return songs, nil
}

// SongPatch enumerates the optional fields of a partial update. A nil
// field is left untouched in the stored item.
type SongPatch struct {
	Name  *string
	Path  *string
	Plays *int
}

// IsZero reports whether the patch supplies no fields.
func (p SongPatch) IsZero() bool {
	return p.Name == nil && p.Path == nil && p.Plays == nil
}

// Update builds the typed change set for the supplied fields. Calling
// Update on a zero patch produces an empty builder, which the expression
// package rejects; callers guard with IsZero first.
func (p SongPatch) Update() expression.UpdateBuilder {
	var update expression.UpdateBuilder
	if p.Name != nil {
		update = update.Set(expression.Name(AttributeNameName), expression.Value(*p.Name))
	}
	if p.Path != nil {
		update = update.Set(expression.Name(AttributeNamePath), expression.Value(*p.Path))
	}
	if p.Plays != nil {
		update = update.Set(expression.Name(AttributeNamePlays), expression.Value(*p.Plays))
	}
	return update
}
