package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestPGDetailsReadsBothDrivers(t *testing.T) {
	pgx := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "22001", ColumnName: "lot_code", Message: "value too long"})
	got, ok := PGDetails(pgx)
	if !ok || got.Code != "22001" || got.Column != "lot_code" {
		t.Fatalf("unexpected pgx details %+v %v", got, ok)
	}

	pqErr := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "idx_lots_lot_code"})
	got, ok = PGDetails(pqErr)
	if !ok || got.Code != "23505" || got.Constraint != "idx_lots_lot_code" {
		t.Fatalf("unexpected pq details %+v %v", got, ok)
	}

	if _, ok := PGDetails(fmt.Errorf("plain")); ok {
		t.Fatalf("plain errors carry no pg details")
	}
}

func TestDumpCarriesReasonAndChain(t *testing.T) {
	cause := &pgconn.PgError{Code: "22001", TableName: "products"}
	err := Wrap(CodePersistence, cause, "db: insert product").WithReason(ReasonProductDuplicate)

	d := Dump(err)
	if d.Code != CodePersistence || d.Reason != ReasonProductDuplicate {
		t.Fatalf("unexpected code/reason %s %s", d.Code, d.Reason)
	}
	if d.PGCode != "22001" || d.PGTable != "products" {
		t.Fatalf("unexpected pg fields %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries got %v", d.Chain)
	}
}
