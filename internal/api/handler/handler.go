package handler

import "stargate/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth   *AuthHandler
	Person *PersonHandler
	Duty   *DutyHandler
	Export *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:   NewAuthHandler(svc.Auth),
		Person: NewPersonHandler(svc.Person),
		Duty:   NewDutyHandler(svc.Duty),
		Export: NewExportHandler(svc.Export),
	}
}
