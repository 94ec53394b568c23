package repository

import (
	"context"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
)

// ArticleRepository stores knowledge articles, one per ticket.
type ArticleRepository interface {
	Create(ctx context.Context, article *domain.KnowledgeArticle) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.KnowledgeArticle, error)
}

type articleRepository struct {
	db DBTX
}

// NewArticleRepository builds repository.
func NewArticleRepository(db DBTX) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article *domain.KnowledgeArticle) error {
	const query = `
        INSERT INTO knowledge_articles (id, ticket_id, title, content, status, created_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (ticket_id) DO NOTHING`
	cmd, err := r.db.Exec(ctx, query,
		article.ID,
		article.TicketID,
		article.Title,
		article.Content,
		article.Status,
		article.CreatedBy,
		article.CreatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *articleRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.KnowledgeArticle, error) {
	const query = `
        SELECT k.id, k.ticket_id, k.title, k.content, k.status, k.created_by, k.created_at
        FROM knowledge_articles k JOIN tickets t ON t.id = k.ticket_id
        WHERE k.ticket_id=$1 AND t.deleted=FALSE`
	var article domain.KnowledgeArticle
	if err := r.db.QueryRow(ctx, query, ticketID).Scan(
		&article.ID,
		&article.TicketID,
		&article.Title,
		&article.Content,
		&article.Status,
		&article.CreatedBy,
		&article.CreatedAt,
	); err != nil {
		return nil, notFoundOr(err)
	}
	return &article, nil
}
