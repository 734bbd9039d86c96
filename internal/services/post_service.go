package services

import (
	"context"
	"log"
	"strings"

	"bookclub/internal/models"
	"bookclub/internal/storage"
)

// PostService manages users' own posts. Only the author may edit or delete a post.
type PostService interface {
	Create(ctx context.Context, authorID uint, content string) (*models.Post, error)
	// List returns every post, newest first, or only authorID's when it is not 0.
	List(ctx context.Context, authorID uint, limit, offset int) ([]models.Post, error)
	Update(ctx context.Context, postID, requesterID uint, content string) (*models.Post, error)
	Delete(ctx context.Context, postID, requesterID uint) error
}

type postService struct {
	postRepo storage.PostRepository
}

// NewPostService creates a new PostService instance.
func NewPostService(postRepo storage.PostRepository) PostService {
	return &postService{postRepo: postRepo}
}

func (s *postService) Create(ctx context.Context, authorID uint, content string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, newError(KindInvalidRequest, "帖子内容不能为空")
	}
	post := &models.Post{AuthorID: authorID, Content: content}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, storeError(err, "", "", "保存帖子失败")
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, authorID uint, limit, offset int) ([]models.Post, error) {
	posts, err := s.postRepo.List(ctx, authorID, limit, offset)
	if err != nil {
		return nil, storeError(err, "", "", "获取帖子失败")
	}
	return posts, nil
}

func (s *postService) Update(ctx context.Context, postID, requesterID uint, content string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, newError(KindInvalidRequest, "帖子内容不能为空")
	}
	post, err := s.authored(ctx, postID, requesterID)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.UpdateContent(ctx, post.ID, content); err != nil {
		return nil, storeError(err, "帖子不存在", "", "更新帖子失败")
	}
	post.Content = content
	return post, nil
}

func (s *postService) Delete(ctx context.Context, postID, requesterID uint) error {
	if _, err := s.authored(ctx, postID, requesterID); err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return storeError(err, "帖子不存在", "", "删除帖子失败")
	}
	log.Printf("Post %d deleted by user %d", postID, requesterID)
	return nil
}

func (s *postService) authored(ctx context.Context, postID, requesterID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, storeError(err, "帖子不存在", "", "获取帖子失败")
	}
	if post.AuthorID != requesterID {
		return nil, newError(KindNotAllowed, "只有作者可以修改或删除帖子")
	}
	return post, nil
}
