package dto

// AuditListData wraps a page of audit rows (§4.4's range-cursor list).
type AuditListData struct {
	Rows []AuditView `json:"rows"`
}
