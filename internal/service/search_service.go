package service

import (
	"context"
	"fmt"
	"postcraft-go/internal/model"
	"postcraft-go/internal/repository"
	"postcraft-go/pkg/es"
	"strings"
)

// PostSearcher 在全文索引中检索用户的生成历史。
type PostSearcher interface {
	SearchPosts(ctx context.Context, userID uint, query string, size int) ([]es.SearchHit, error)
}

// HistoryPage 是分页的生成历史。
type HistoryPage struct {
	Posts []model.GeneratedPost `json:"posts"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Size  int                   `json:"size"`
}

// SearchService 接口定义了历史内容的检索与分页查询。
type SearchService interface {
	SearchPosts(ctx context.Context, userID uint, query string, size int) ([]es.SearchHit, error)
	History(ctx context.Context, userID uint, page, size int) (*HistoryPage, error)
}

type searchService struct {
	searcher PostSearcher
	posts    repository.ContentRepository
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(searcher PostSearcher, posts repository.ContentRepository) SearchService {
	return &searchService{searcher: searcher, posts: posts}
}

func (s *searchService) SearchPosts(ctx context.Context, userID uint, query string, size int) ([]es.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	return s.searcher.SearchPosts(ctx, userID, query, size)
}

func (s *searchService) History(ctx context.Context, userID uint, page, size int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	posts, total, err := s.posts.ListPosts(ctx, userID, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Posts: posts, Total: total, Page: page, Size: size}, nil
}
