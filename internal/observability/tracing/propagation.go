package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
)

// orgBaggageMember carries the tenant on outbound calls so the collector can
// attribute client spans to an organisation.
const orgBaggageMember = "pointage.org_id"

// SetPropagator configures global W3C tracecontext + baggage propagation.
func SetPropagator() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// ExtractContext resumes an inbound trace from carrier headers.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// InjectContext writes trace and baggage headers into the carrier.
func InjectContext(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}

// WithOrgBaggage tags the context baggage with the organisation. A blank or
// malformed id leaves the baggage untouched.
func WithOrgBaggage(ctx context.Context, orgID string) context.Context {
	if orgID == "" {
		return ctx
	}
	member, err := baggage.NewMember(orgBaggageMember, orgID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.FromContext(ctx).SetMember(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
