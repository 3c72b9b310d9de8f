package service

import (
	"time"

	"gradebook/database"
	"gradebook/database/model"
	"gradebook/logger"

	"github.com/goccy/go-json"
)

// AuditService records who performed which mutation. The acting user is
// always passed in explicitly by the handler; nothing here reads the session.
type AuditService struct{}

// LogAction appends one audit row. Failures are logged and swallowed so a
// broken audit trail never blocks the mutation itself.
func (s *AuditService) LogAction(user *model.User, action string, resource string, resourceId int, ip string, details map[string]any) {
	detailsJSON := ""
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			logger.Warning("failed to marshal audit details:", err)
		} else {
			detailsJSON = string(data)
		}
	}

	entry := model.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceId: resourceId,
		IP:         ip,
		Details:    detailsJSON,
		CreatedAt:  time.Now(),
	}
	if user != nil {
		entry.UserId = user.Id
		entry.Username = user.Username
	}

	if err := database.GetDB().Create(&entry).Error; err != nil {
		logger.Warningf("failed to create audit log: action=%s resource=%s err=%v", action, resource, err)
	}
}

// GetAuditLogs returns the most recent audit rows, newest first.
func (s *AuditService) GetAuditLogs(limit int) ([]model.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []model.AuditLog
	err := database.GetDB().Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
