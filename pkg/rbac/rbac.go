package rbac

import "fmt"

// 角色常量
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// 权限常量
const (
	PermissionReadClient  = "client:read"
	PermissionWriteClient = "client:write"

	PermissionReadProject  = "project:read"
	PermissionWriteProject = "project:write"
	PermissionRunWizard    = "project:wizard"

	PermissionReadTask       = "task:read"
	PermissionWriteTask      = "task:write"
	PermissionBulkCreateTask = "task:bulk_create"

	PermissionReadMessage  = "message:read"
	PermissionWriteMessage = "message:write"

	PermissionReadInvoice  = "invoice:read"
	PermissionWriteInvoice = "invoice:write"

	PermissionReadReport  = "report:read"
	PermissionWriteReport = "report:write"

	PermissionInvokeAI     = "ai:invoke"
	PermissionUploadFile   = "file:upload"
	PermissionUseAssistant = "assistant:use"
	PermissionReplayOutbox = "outbox:replay"
)

var allPermissions = []string{
	PermissionReadClient, PermissionWriteClient,
	PermissionReadProject, PermissionWriteProject, PermissionRunWizard,
	PermissionReadTask, PermissionWriteTask, PermissionBulkCreateTask,
	PermissionReadMessage, PermissionWriteMessage,
	PermissionReadInvoice, PermissionWriteInvoice,
	PermissionReadReport, PermissionWriteReport,
	PermissionInvokeAI, PermissionUploadFile, PermissionUseAssistant,
	PermissionReplayOutbox,
}

// 角色权限映射；客户门户只能查看自己的数据，并且只能发送消息
var rolePermissions = map[string][]string{
	RoleAdmin: allPermissions,
	RoleClient: {
		PermissionReadProject,
		PermissionReadTask,
		PermissionReadInvoice,
		PermissionReadMessage,
		PermissionWriteMessage,
		PermissionUploadFile,
	},
}

// ValidRole 判断角色是否存在
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查角色是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{Role: role, Permission: permission}
	}
	return nil
}

// EntityPermission 返回实体类型对应的读/写权限；未知实体类型只有管理员可访问
func EntityPermission(entityType string, write bool) string {
	resource, ok := entityResources[entityType]
	if !ok {
		resource = "admin"
	}
	if write {
		return resource + ":write"
	}
	return resource + ":read"
}

var entityResources = map[string]string{
	"Client":       "client",
	"Project":      "project",
	"Task":         "task",
	"Message":      "message",
	"Invoice":      "invoice",
	"TimeEntry":    "project",
	"Expense":      "invoice",
	"Report":       "report",
	"BusinessGoal": "report",
	"KPIMetric":    "report",
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("insufficient permissions: role %q lacks %q", e.Role, e.Permission)
}

// ScopeMismatchError 表示请求的 client_id 与 token 中的 client_id 不一致
type ScopeMismatchError struct {
	TokenClientID   string
	PayloadClientID string
}

func (e *ScopeMismatchError) Error() string {
	return "client_id in payload does not match token"
}

// ValidateClientScope 客户角色只能操作自己的 client_id
func ValidateClientScope(role, tokenClientID, payloadClientID string) error {
	if role != RoleClient {
		return nil
	}
	if payloadClientID != tokenClientID {
		return &ScopeMismatchError{TokenClientID: tokenClientID, PayloadClientID: payloadClientID}
	}
	return nil
}
