package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		visible   bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, visible: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, visible: true},
		{code: CodeForbidden, status: http.StatusForbidden, visible: true},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict, visible: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s has no public message", tt.code)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.MessageVisible != tt.visible {
			t.Fatalf("code %s expected visible %v got %v", tt.code, tt.visible, meta.MessageVisible)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "rating must be between 1 and 5")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	cause := stdErrors.New("db down")
	wrapped := Wrap(CodeDependency, cause, "load movie")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("wrapped error should unwrap to cause")
	}
	if wrapped.Error() != "DEPENDENCY_ERROR: load movie: db down" {
		t.Fatalf("unexpected error string %q", wrapped.Error())
	}

	if Wrap(CodeInternal, nil, "noop").Unwrap() != nil {
		t.Fatalf("wrap of nil cause should not carry a cause")
	}
}

func TestAsAndIsCodeSeeThroughWrapping(t *testing.T) {
	typed := New(CodeNotFound, "petition not found")
	outer := fmt.Errorf("delete petition: %w", typed)

	if As(outer) != typed {
		t.Fatalf("As should return the typed error")
	}
	if !IsCode(outer, CodeNotFound) {
		t.Fatalf("IsCode should match not found")
	}
	if IsCode(stdErrors.New("plain"), CodeNotFound) {
		t.Fatalf("IsCode should be false for untyped errors")
	}
}

func TestFieldErrors(t *testing.T) {
	err := New(CodeValidation, "validation failed").WithDetails(map[string]string{"rating": "is invalid"})
	fields := FieldErrors(fmt.Errorf("wrap: %w", err))
	if fields["rating"] != "is invalid" {
		t.Fatalf("unexpected field errors %v", fields)
	}
	if FieldErrors(New(CodeValidation, "x").WithDetails("not a map")) != nil {
		t.Fatalf("non-map details should yield nil")
	}
}

func TestDumpCapturesPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "reviews_movie_user_key", TableName: "reviews"}
	err := Wrap(CodeConflict, pgErr, "insert review")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code got %s", dump.Code)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "reviews_movie_user_key" {
		t.Fatalf("unexpected pg details %+v", dump)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries got %d", len(dump.Chain))
	}
	if dump.Fields()["pg_table"] != "reviews" {
		t.Fatalf("fields should carry pg table")
	}
}
