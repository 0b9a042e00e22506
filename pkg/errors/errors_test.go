package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeTooLarge, status: http.StatusRequestEntityTooLarge, publicMsg: "payload too large", detailsOK: true},
		{code: CodeUnsupported, status: http.StatusUnsupportedMediaType, publicMsg: "unsupported media type", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeUnavailable, status: http.StatusServiceUnavailable, publicMsg: "service unavailable", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
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
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodeNotFound, "product not found")
	outer := fmt.Errorf("catalog: %w", inner)
	if !IsCode(outer, CodeNotFound) {
		t.Fatalf("expected IsCode to find not found through fmt wrapping")
	}
	if IsCode(outer, CodeConflict) {
		t.Fatalf("unexpected conflict match")
	}
	if IsCode(nil, CodeNotFound) {
		t.Fatalf("nil error should not match")
	}
}

func TestIsCodeWalksNestedTypedErrors(t *testing.T) {
	inner := New(CodeNotFound, "cart snapshot missing")
	outer := Wrap(CodeDependency, fmt.Errorf("load: %w", inner), "restore cart")
	if !IsCode(outer, CodeDependency) || !IsCode(outer, CodeNotFound) {
		t.Fatal("expected both codes to be found in the chain")
	}
	if IsCode(outer, CodeConflict) {
		t.Fatal("unexpected conflict match")
	}
}

func TestPublicMessage(t *testing.T) {
	if got := New(CodeValidation, "size is required").PublicMessage(); got != "size is required" {
		t.Fatalf("validation message should be exposed, got %q", got)
	}
	if got := Wrap(CodeDependency, stdErrors.New("dial tcp 10.0.0.5:6379"), "redis down").PublicMessage(); got != "dependency unavailable" {
		t.Fatalf("dependency message should be hidden, got %q", got)
	}
	if got := New(CodeNotFound, "").PublicMessage(); got != "resource not found" {
		t.Fatalf("empty message should fall back, got %q", got)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("timeout"), "save cart")
	if err.Error() != "DEPENDENCY_ERROR: save cart: timeout" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
	if !IsRetryable(err) || IsRetryable(New(CodeValidation, "x")) || IsRetryable(stdErrors.New("plain")) {
		t.Fatal("unexpected retryable classification")
	}
}

func TestDumpCapturesChainAndCode(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("redis down"), "save cart")
	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", d.Code)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", d.Chain)
	}
	if d.DB != nil {
		t.Fatalf("expected no db error, got %+v", d.DB)
	}
	if _, ok := d.Fields()["db_code"]; ok {
		t.Fatal("db fields should be omitted")
	}
}

func TestDumpExtractsPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users"}
	d := Dump(Wrap(CodeConflict, pgErr, "insert user"))
	if d.DB == nil || d.DB.Driver != "pgx" || d.DB.Code != "23505" || d.DB.Constraint != "users_email_key" || d.DB.Table != "users" {
		t.Fatalf("unexpected db dump %+v", d.DB)
	}
	fields := d.Fields()
	if fields["db_constraint"] != "users_email_key" || fields["error_code"] != CodeConflict {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestDumpExtractsPqError(t *testing.T) {
	pqErr := &pq.Error{Code: "23503", Constraint: "order_lines_order_id_fkey", Table: "order_lines"}
	d := Dump(fmt.Errorf("insert line: %w", pqErr))
	if d.DB == nil || d.DB.Driver != "pq" || d.DB.Code != "23503" || d.DB.Table != "order_lines" {
		t.Fatalf("unexpected db dump %+v", d.DB)
	}
}
