// Package songstore implements a small CRUD service over songs persisted
// in a single Amazon DynamoDB table, keyed by song id.
//
// The package is organized in three layers:
//
//   - Store wraps the DynamoDB client and exposes the primitive table
//     operations: full scans with transparent pagination, key lookups,
//     puts, partial updates and deletes.
//   - Song and SongPatch define the entity and its typed change set,
//     along with the (un)marshaling between songs and table items.
//   - Service orchestrates the five operations the HTTP layer exposes:
//     List, Create, GetByID, Update and Delete.
//
// The HTTP surface lives in the api subpackage; ddbmock provides test
// doubles for the DynamoDB client.
package songstore
