// Package testhelper provides the shared pgxmock harness for repository tests.
// Repositories accept the postgres.Querier interface, so tests run against a
// mock pool without a live database.
package testhelper

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"
)

// NewMockQuerier creates a pgxmock pool for repository tests.
// The pool satisfies postgres.Querier. It is closed via t.Cleanup.
func NewMockQuerier(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("testhelper: create pgxmock pool: %v", err)
	}

	t.Cleanup(func() {
		mock.Close()
	})

	return mock
}

// ExpectationsWereMet fails the test if any declared expectations were not met.
func ExpectationsWereMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}
