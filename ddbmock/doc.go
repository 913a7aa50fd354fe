// Package ddbmock provides test doubles for the DynamoDB client used by
// songstore.
//
// MockClient is an expectation-based mock: each operation is a function
// field, and any operation without an expectation fails the test. Use it
// to assert which calls happen and to inject faults.
//
// TableFake is an in-memory single-table fake with enough real behavior
// to exercise the store end to end: key lookups, ALL_OLD deletes, SET
// update expressions with attribute name and value substitution,
// attribute_exists conditions, and scan pagination driven by
// ExclusiveStartKey. Set PageSize to force multi-page scans.
package ddbmock
