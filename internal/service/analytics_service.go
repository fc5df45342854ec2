package service

import (
	"context"

	"go-backoffice/internal/apperr"
	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/repository/dao"
)

const msgAnalyticsFailed = "Failed to fetch analytics."

type AnalyticsService struct {
	Records *dao.RecordDAO
}

func NewAnalyticsService(r *dao.RecordDAO) *AnalyticsService { return &AnalyticsService{Records: r} }

type TaskWorkorderCount struct {
	Tasks      int64 `json:"tasks"`
	Workorders int64 `json:"workorders"`
	Total      int64 `json:"total"`
}

func (s *AnalyticsService) TasksAndWorkorders(ctx context.Context) (*TaskWorkorderCount, error) {
	tasks, err := s.Records.Count(ctx, model.KindTask.BaseTable())
	if err != nil {
		return nil, apperr.Internal(msgAnalyticsFailed, err)
	}
	wos, err := s.Records.Count(ctx, model.KindWorkorder.BaseTable())
	if err != nil {
		return nil, apperr.Internal(msgAnalyticsFailed, err)
	}
	return &TaskWorkorderCount{Tasks: tasks, Workorders: wos, Total: tasks + wos}, nil
}

// ByStatus {status: count}
func (s *AnalyticsService) ByStatus(ctx context.Context, kind model.EntityKind) (map[string]int64, error) {
	m, err := s.Records.CountByStatus(ctx, kind.BaseTable())
	if err != nil {
		return nil, apperr.Internal(msgAnalyticsFailed, err)
	}
	return m, nil
}
