package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/baggage"
)

func TestWithOrgBaggageTagsTenant(t *testing.T) {
	ctx := WithOrgBaggage(context.Background(), "123456")

	member := baggage.FromContext(ctx).Member(orgBaggageMember)
	if member.Value() != "123456" {
		t.Fatalf("expected org baggage 123456, got %q", member.Value())
	}
}

func TestWithOrgBaggageSkipsBlankOrg(t *testing.T) {
	ctx := WithOrgBaggage(context.Background(), "")

	if len(baggage.FromContext(ctx).Members()) != 0 {
		t.Fatalf("blank org must leave baggage untouched")
	}
}
