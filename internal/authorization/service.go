// Package authorization decides which capability an actor may exercise inside
// an organisation. Actors are "user:<id>", "device:<id>" or "system".
package authorization

import "context"

// Objects.
const (
	ObjectPointage     = "pointage"
	ObjectBadge        = "badge"
	ObjectTopology     = "topology"
	ObjectOrganization = "organization"
	ObjectReport       = "report"
	ObjectAccount      = "account"
)

// Actions.
const (
	ActionPointageRecord = "pointage.record"
	ActionPointageForce  = "pointage.force"

	ActionBadgeManage = "badge.manage"

	ActionTopologyManage = "topology.manage"

	ActionOrganizationManage = "organization.manage"

	ActionReportViewSelf = "report.view_self"
	ActionReportViewOrg  = "report.view_org"

	ActionAccountExport     = "account.export"
	ActionAccountDeactivate = "account.deactivate"
)

type Service interface {
	Authorize(ctx context.Context, actor string, orgID string, object string, action string) error
}
