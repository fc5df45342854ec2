package service

import (
	"context"

	"go-backoffice/internal/apperr"
	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/repository/dao"
)

type LogService struct {
	DAO *dao.OperationLogDAO
}

func NewLogService(d *dao.OperationLogDAO) *LogService { return &LogService{DAO: d} }

type LogListResult struct {
	List  []model.OperationLog `json:"list"`
	Count int64                `json:"count"`
}

func (s *LogService) List(ctx context.Context, keyword string, page, limit int) (*LogListResult, error) {
	list, total, err := s.DAO.ListPage(ctx, keyword, page, limit)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch operation logs.", err)
	}
	if list == nil {
		list = []model.OperationLog{}
	}
	return &LogListResult{List: list, Count: total}, nil
}

func (s *LogService) Delete(ctx context.Context, id int64) error {
	n, err := s.DAO.Delete(ctx, id)
	if err != nil {
		return apperr.Internal("Failed to delete operation log.", err)
	}
	if n == 0 {
		return apperr.NotFound("Operation log not found.")
	}
	return nil
}
