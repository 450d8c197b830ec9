package rbac

const (
	PermTestView         = "test:view"
	PermTestCreate       = "test:create"
	PermTestDelete       = "test:delete"
	PermTestResults      = "test:results"
	PermTestAnswerKeys   = "test:answer-keys"
	PermSubmissionCreate = "submission:create"
	PermSubmissionOwn    = "submission:view-own"
	PermUsersList        = "users:list"
	PermUsersStatus      = "users:update-status"
	PermUsersBulk        = "users:bulk_upsert"
	PermSelfView         = "user:view-self"
	PermEventsView       = "events:view"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	"student": {
		PermTestView,
		PermSubmissionCreate,
		PermSubmissionOwn,
		PermSelfView,
	},
	"teacher": {
		"test:*",
		"users:*",
		PermEventsView,
		PermSelfView,
	},
}
